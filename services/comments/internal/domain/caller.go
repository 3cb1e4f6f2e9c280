package domain

type Role string

const (
	RoleViewer  Role = "viewer"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Caller is the authenticated identity behind a request. The zero value is
// an anonymous visitor.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) Authenticated() bool { return c.ID != "" }

// IsModerator reports whether the caller may moderate any comment.
func (c Caller) IsModerator() bool { return c.Authenticated() && c.Role == RoleAdmin }

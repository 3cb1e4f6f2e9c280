package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func makeToken(subject, role string, exp time.Time) string {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tok.SignedString(testSecret)
	return signed
}

func newVerifier() JWTVerifier { return JWTVerifier{Secret: testSecret} }

// withRole injects role into context using the unexported key (same package).
func withRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole{}, role)
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	tok := makeToken("user-1", "viewer", time.Now().Add(time.Hour))
	claims, err := newVerifier().Parse(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject 'user-1', got %q", claims.Subject)
	}
	if claims.Role != "viewer" {
		t.Fatalf("expected role 'viewer', got %q", claims.Role)
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	valid := makeToken("user-1", "admin", time.Now().Add(time.Hour))
	parts := strings.Split(valid, ".")
	cases := map[string]struct {
		token    string
		verifier JWTVerifier
	}{
		"expired":      {makeToken("user-1", "viewer", time.Now().Add(-time.Hour)), newVerifier()},
		"wrong secret": {valid, JWTVerifier{Secret: []byte("wrong-secret")}},
		"malformed":    {"not.a.valid.token", newVerifier()},
		"tampered":     {parts[0] + ".dGFtcGVyZWQ." + parts[2], newVerifier()},
	}
	for name, tc := range cases {
		if _, err := tc.verifier.Parse(tc.token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func callRequireUser(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uid))
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireUser_ValidBearer(t *testing.T) {
	tok := makeToken("user-42", "viewer", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rr := callRequireUser(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "user-42" {
		t.Fatalf("expected 'user-42' in body, got %q", rr.Body.String())
	}
}

func TestRequireUser_Rejects(t *testing.T) {
	expired := makeToken("user-1", "viewer", time.Now().Add(-time.Hour))
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer invalid.token.here", "Bearer " + expired} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if rr := callRequireUser(req); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestRequireUser_InjectsRoleIntoContext(t *testing.T) {
	tok := makeToken("user-99", "admin", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	var capturedRole string
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if capturedRole != "admin" {
		t.Fatalf("expected role 'admin', got %q", capturedRole)
	}
}

func callRequireAdmin(ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"creator", http.StatusForbidden},
		{"viewer", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		ctx := context.Background()
		if tc.role != "" {
			ctx = withRole(ctx, tc.role)
		}
		if rr := callRequireAdmin(ctx); rr.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, rr.Code)
		}
	}
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	tok := makeToken("", "viewer", time.Now().Add(time.Hour))
	if _, err := newVerifier().Parse(tok); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]string{"": "viewer", "user": "viewer", "Creator": "creator", " ADMIN ": "admin"}
	for in, want := range cases {
		if got := NormalizeRole(in); got != want {
			t.Fatalf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func callOptionalUser(req *http.Request) (*httptest.ResponseRecorder, string) {
	rr := httptest.NewRecorder()
	var uid string
	OptionalUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr, uid
}

func TestOptionalUser_Anonymous(t *testing.T) {
	rr, uid := callOptionalUser(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || uid != "" {
		t.Fatalf("expected anonymous pass-through, got %d uid=%q", rr.Code, uid)
	}
}

func TestOptionalUser_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken("user-7", "creator", time.Now().Add(time.Hour)))
	rr, uid := callOptionalUser(req)
	if rr.Code != http.StatusOK || uid != "user-7" {
		t.Fatalf("expected identity, got %d uid=%q", rr.Code, uid)
	}
}

func TestOptionalUser_InvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr, _ := callOptionalUser(req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

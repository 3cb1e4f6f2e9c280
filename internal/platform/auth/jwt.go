package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/devtube/internal/platform/api"
	"github.com/example/devtube/internal/platform/httpserver"
)

type ctxKeyUserID struct{}
type ctxKeyRole struct{}

// Platform roles carried in the token's role claim.
const (
	RoleViewer  = "viewer"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyUserID{}).(string)
	return v, ok
}

// WithUserID injects user_id into context. Useful for testing.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRole{}).(string)
	return v, ok
}

// WithRole injects a normalized role into context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole{}, NormalizeRole(role))
}

// NormalizeRole lowercases the claim; empty or unknown roles become viewer.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleCreator, RoleAdmin:
		return r
	default:
		return RoleViewer
	}
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTVerifier struct {
	Secret []byte
}

var errNoBearer = errors.New("missing bearer token")

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", errNoBearer
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("unsupported authorization scheme")
	}
	return strings.TrimSpace(parts[1]), nil
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = WithUserID(ctx, claims.Subject)
	return WithRole(ctx, claims.Role)
}

// RequireUser middleware validates Bearer token and injects user_id and role into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := bearerToken(r)
			if err != nil {
				api.Unauthorized(w, "UNAUTHENTICATED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			claims, err := verifier.Parse(tok)
			if err != nil {
				api.Unauthorized(w, "UNAUTHENTICATED", "invalid token", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalUser injects identity when a valid Bearer token is present and
// lets anonymous requests through. A present but invalid token is rejected.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := bearerToken(r)
			if errors.Is(err, errNoBearer) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				api.Unauthorized(w, "UNAUTHENTICATED", "invalid authorization header", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			claims, err := verifier.Parse(tok)
			if err != nil {
				api.Unauthorized(w, "UNAUTHENTICATED", "invalid token", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

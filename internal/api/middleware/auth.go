package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cargohitch/server/internal/auth"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
)

type contextKey string

const principalKey contextKey = "principal"

// Auth resolves the bearer token on protected routes and injects the
// authenticated user into the request context.
type Auth struct {
	tokens *auth.TokenService
	users  repositories.UserRepository
}

func NewAuth(tokens *auth.TokenService, users repositories.UserRepository) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (a *Auth) resolve(r *http.Request) (*models.User, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := a.tokens.Verify(token, auth.PurposeAccess)
	if err != nil {
		return nil, err
	}
	user, err := a.users.FindByEmail(claims.Email)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

// Required rejects the request with 401 unless a valid access token maps to
// a verified user.
func (a *Auth) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.resolve(r)
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !user.IsVerified {
			utils.JSONError(w, http.StatusUnauthorized, "Email not verified")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

// Optional injects the principal when a valid token is present and passes
// the request through anonymously otherwise.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := a.resolve(r); err == nil {
			r = r.WithContext(WithPrincipal(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal returns a context carrying the authenticated user.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// Principal returns the authenticated user from the context, or nil on
// optionally-authenticated routes with no token.
func Principal(ctx context.Context) *models.User {
	user, _ := ctx.Value(principalKey).(*models.User)
	return user
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/handlers/render"
	"github.com/danilgordienko/user-auth-service/internal/handlers/userctx"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

type authService interface {
	// Resolve the user behind an access token
	// Expired tokens must return apperrors.ErrTokenExpired
	Identify(ctx context.Context, accessToken string) (models.User, error)
}

type logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// BearerToken extracts a token from the Authorization header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// Identity establishes the caller identity from a bearer access token
//
// No header means the request just stays unauthenticated. An expired access
// token is treated the same way: the caller is pushed through refresh, not
// rejected. Structural and cryptographic token failures stop the request,
// and no failure path ever lets it continue with an identity half set
func Identity(as authService, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			// Identity may be established already, don't redo the work
			if _, ok := userctx.FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := as.Identify(r.Context(), token)

			switch {
			case err == nil:
				ctx := userctx.New(r.Context(), user)
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, apperrors.ErrTokenExpired):
				// Stale access token is just "not logged in"
				next.ServeHTTP(w, r)
			case errors.Is(err, apperrors.ErrMalformedToken), errors.Is(err, apperrors.ErrUnsupportedToken):
				l.Warn("rejected token", "error", err.Error())
				render.ServiceError(w, "Invalid token", http.StatusForbidden)
			case errors.Is(err, apperrors.ErrInvalidToken):
				l.Warn("rejected token", "error", err.Error())
				render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
			default:
				l.Error("authentication failed", "error", err.Error())
				render.ServiceError(w, "Authentication failed", http.StatusForbidden)
			}
		})
	}
}

// RequireRole lets through only callers that hold the role
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.HasRole(role) {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth lets through only authenticated callers
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userctx.FromContext(r.Context()); !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

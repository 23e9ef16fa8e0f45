package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/handlers/middleware"
	"github.com/danilgordienko/user-auth-service/internal/handlers/render"
	"github.com/danilgordienko/user-auth-service/internal/handlers/userctx"
	"github.com/danilgordienko/user-auth-service/internal/logger"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

// Auth service the handlers work against
type AuthService interface {
	// Register user and issue a token pair
	// Has to return apperrors.ErrUserAlreadyExists if login is taken
	Register(ctx context.Context, email string, login string, password string) (models.TokenPair, error)

	// Login user with login and password
	// Has to return apperrors.ErrAuthenticationFailed on bad credentials
	Login(ctx context.Context, login string, password string) (models.TokenPair, error)

	// Exchange the refresh token for a new access token
	// The refresh token itself is echoed back unchanged
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)

	// Validate and revoke the refresh token
	Logout(ctx context.Context, refreshToken string) error

	// Append a role to the user role set
	// Has to return apperrors.ErrRoleAlreadyAssigned if the role is held already
	AssignRole(ctx context.Context, login string, role string) (models.User, error)
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthHandler struct {
	auth   AuthService
	logger logger.Logger
}

func NewAuth(auth AuthService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Login    string `json:"login" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=6"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Register(r.Context(), data.Email, data.Login, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			h.logger.Error("registration failed", "login", data.Login, "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, TokenPairResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Login, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAuthenticationFailed):
			render.ServiceError(w, "Invalid login or password", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "login", data.Login, "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, TokenPairResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	refresh, ok := middleware.BearerToken(r)
	if !ok {
		render.ServiceError(w, "Refresh token not provided", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), refresh)
	if err != nil {
		h.writeTokenError(w, err)
		return
	}

	render.JSON(w, TokenPairResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	refresh, ok := middleware.BearerToken(r)
	if !ok {
		render.ServiceError(w, "Refresh token not provided", http.StatusUnauthorized)
		return
	}

	if err := h.auth.Logout(r.Context(), refresh); err != nil {
		h.writeTokenError(w, err)
		return
	}

	render.NoContent(w)
}

// assignRole handles the admin-gated role assignment endpoints
// The target user login comes from the request path
func (h *AuthHandler) assignRole(role string, confirmation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := r.PathValue("login")

		_, err := h.auth.AssignRole(r.Context(), login, role)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			case errors.Is(err, apperrors.ErrRoleAlreadyAssigned):
				render.ServiceError(w, "Role already assigned", http.StatusConflict)
			default:
				h.logger.Error("role assignment failed", "login", login, "role", role, "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.Text(w, confirmation+" "+login)
	}
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	type MeResponse struct {
		ID    int64    `json:"id"`
		Login string   `json:"login"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	}

	// RequireAuth guarantees the user is set
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, MeResponse{ID: user.ID, Login: user.Login, Email: user.Email, Roles: user.Roles})
}

// writeTokenError maps refresh token workflow failures to responses
// A revoked token is recognized but rejected (403), everything else about
// the token means the caller is simply not authenticated (401)
func (h *AuthHandler) writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTokenAlreadyRevoked):
		render.ServiceError(w, "Token already revoked", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrTokenExpired):
		render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrTokenNotFound),
		errors.Is(err, apperrors.ErrMalformedToken),
		errors.Is(err, apperrors.ErrUnsupportedToken),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrAuthenticationFailed):
		render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
	default:
		h.logger.Error("token workflow failed", "error", err.Error())
		render.ServiceError(w, "Authentication failed", http.StatusForbidden)
	}
}

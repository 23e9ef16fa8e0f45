package handlers

import (
	"net/http"

	"github.com/danilgordienko/user-auth-service/internal/handlers/middleware"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authHandler *AuthHandler,
	identity func(next http.Handler) http.Handler,
	mds ...func(next http.Handler) http.Handler,
) http.Handler {
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	auth := http.NewServeMux()

	auth.Handle("POST /register", http.HandlerFunc(authHandler.register))
	auth.Handle("POST /login", http.HandlerFunc(authHandler.login))
	auth.Handle("POST /refresh", http.HandlerFunc(authHandler.refresh))
	auth.Handle("POST /logout", http.HandlerFunc(authHandler.logout))

	auth.Handle("POST /add/admin/{login}", requireAdmin(authHandler.assignRole(models.RoleAdmin, "Admin role assigned to user")))
	auth.Handle("POST /add/premium/{login}", requireAdmin(authHandler.assignRole(models.RolePremium, "Premium role assigned to user")))

	auth.Handle("GET /me", middleware.RequireAuth(http.HandlerFunc(authHandler.me)))

	root := http.NewServeMux()
	root.Handle("/api/v1/auth/", http.StripPrefix("/api/v1/auth", auth))

	// Identity runs before the handlers so every route sees the caller,
	// extra middlewares (logging) wrap the whole thing
	handler := chain(root, append(mds, identity)...)

	return handler
}

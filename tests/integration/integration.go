package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/danilgordienko/user-auth-service/internal/handlers"
	"github.com/danilgordienko/user-auth-service/internal/handlers/middleware"
	"github.com/danilgordienko/user-auth-service/internal/logger"
	"github.com/danilgordienko/user-auth-service/internal/repository/postgres"
	"github.com/danilgordienko/user-auth-service/internal/service/auth"
	"github.com/danilgordienko/user-auth-service/internal/testutil"
)

// 32 byte key in std base64
const TestSecretKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

type Services struct {
	AuthService *auth.AuthService
}

// Create db transaction and run the full server stack on that connection
// (one connection cause one transaction). Everything the test does through
// the server rolls back when the test finishes
func RunTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		as, err := auth.NewService(auth.Config{SecretKey: TestSecretKey}, storage)
		require.NoError(t, err, "auth service starting error")

		l := logger.NewNoOpLogger()

		// Complete all together as router
		router := handlers.NewRouter(
			handlers.NewAuth(as, l),
			middleware.Identity(as, l),
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(srv.URL, Services{AuthService: as})
	})
}

package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danilgordienko/user-auth-service/internal/models"
	"github.com/danilgordienko/user-auth-service/internal/testutil"
	"github.com/danilgordienko/user-auth-service/tests/integration"
)

const (
	AddPremiumURL = "/api/v1/auth/add/premium/"
	AddAdminURL   = "/api/v1/auth/add/admin/"
	MeURL         = "/api/v1/auth/me"
)

func Test_Roles(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Register the target user and an administrator, return an admin access token
	setupAdmin := func(t *testing.T, s integration.Services) string {
		t.Helper()

		_, err := s.AuthService.Register(t.Context(), "nk@example.com", "nk", "secret1")
		require.NoError(t, err)

		_, err = s.AuthService.Register(t.Context(), "root@example.com", "root", "secret1")
		require.NoError(t, err)
		_, err = s.AuthService.AssignRole(t.Context(), "root", models.RoleAdmin)
		require.NoError(t, err)

		// Tokens issued on register don't carry ADMIN yet, login again
		pair, err := s.AuthService.Login(t.Context(), "root", "secret1")
		require.NoError(t, err)

		return pair.Access
	}

	t.Run("admin grants premium, user sees it", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			adminAccess := setupAdmin(t, s)

			resp, body := postBearer(t, srvURL+AddPremiumURL+"nk", adminAccess)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Equal(t, "Premium role assigned to user nk", string(body))

			// User logs in again and the new role is visible on /me
			pair, err := s.AuthService.Login(t.Context(), "nk", "secret1")
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodGet, srvURL+MeURL, nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+pair.Access)
			meResp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			meBody, err := io.ReadAll(meResp.Body)
			require.NoError(t, err)
			defer func() { _ = meResp.Body.Close() }()
			require.Equalf(t, http.StatusOK, meResp.StatusCode, "not expected code. Body: %s", string(meBody))

			var me struct {
				Login string   `json:"login"`
				Roles []string `json:"roles"`
			}
			require.NoError(t, json.Unmarshal(meBody, &me))
			require.Equal(t, "nk", me.Login)
			require.ElementsMatch(t, []string{models.RoleGuest, models.RolePremium}, me.Roles)
		})
	})

	t.Run("admin grants admin", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			adminAccess := setupAdmin(t, s)

			resp, body := postBearer(t, srvURL+AddAdminURL+"nk", adminAccess)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Equal(t, "Admin role assigned to user nk", string(body))
		})
	})

	t.Run("granting the same role twice conflicts", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			adminAccess := setupAdmin(t, s)

			resp, body := postBearer(t, srvURL+AddPremiumURL+"nk", adminAccess)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

			resp, body = postBearer(t, srvURL+AddPremiumURL+"nk", adminAccess)
			require.Equalf(t, http.StatusConflict, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Role already assigned"
				}`, string(body))
		})
	})

	t.Run("guest may not grant roles", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			pair, err := s.AuthService.Register(t.Context(), "nk@example.com", "nk", "secret1")
			require.NoError(t, err)

			resp, body := postBearer(t, srvURL+AddPremiumURL+"nk", pair.Access)
			require.Equalf(t, http.StatusForbidden, resp.StatusCode, "not expected code. Body: %s", string(body))
		})
	})

	t.Run("unknown target user", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			adminAccess := setupAdmin(t, s)

			resp, body := postBearer(t, srvURL+AddPremiumURL+"ghost", adminAccess)
			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", string(body))
		})
	})
}

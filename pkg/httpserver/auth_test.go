package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/auth/token"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, authHeader string, minRole api.Role) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Use(Identity(token.NewVerifier("user-secret", "admin-secret")))
	e.GET("/whoami", AuthorizeHandler(func(c echo.Context) error {
		id := GetUserID(c)
		if id == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, string(GetUserRole(c)))
	}, minRole))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIdentity(t *testing.T) {
	userToken, err := token.Sign("user-secret", 5)
	require.NoError(t, err)

	rec := serve(t, "", api.PublicRole)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "anonymous", rec.Body.String())

	rec = serve(t, "Bearer garbage", api.PublicRole)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, "Bearer "+userToken, api.PublicRole)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(api.AuthenticatedRole), rec.Body.String())
}

func TestAuthorizeHandler(t *testing.T) {
	userToken, err := token.Sign("user-secret", 5)
	require.NoError(t, err)
	adminToken, err := token.Sign("admin-secret", 1)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, serve(t, "", api.AuthenticatedRole).Code)
	require.Equal(t, http.StatusOK, serve(t, "Bearer "+userToken, api.AuthenticatedRole).Code)
	require.Equal(t, http.StatusForbidden, serve(t, "Bearer "+userToken, api.AdminRole).Code)
	require.Equal(t, http.StatusOK, serve(t, "Bearer "+adminToken, api.AdminRole).Code)
}

package httpserver

import (
	"net/http"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/auth/token"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey   = "bitebliss.user_id"
	userRoleKey = "bitebliss.user_role"
)

// Identity resolves the caller from the Authorization header. Requests without
// the header continue anonymously; a header carrying an invalid token is
// rejected.
func Identity(verifier *token.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(header) == "" {
				ctx.Set(userRoleKey, api.PublicRole)
				return next(ctx)
			}

			identity, err := verifier.Verify(header)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}

			ctx.Set(userRoleKey, identity.Role)
			if identity.UserID != nil {
				ctx.Set(userIDKey, *identity.UserID)
			}
			return next(ctx)
		}
	}
}

func AuthorizeHandler(h echo.HandlerFunc, minRole api.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := RequireMinRole(ctx, minRole); err != nil {
			return err
		}

		return h(ctx)
	}
}

func RequireMinRole(ctx echo.Context, minRole api.Role) error {
	role := GetUserRole(ctx)
	if hasAccess(role, minRole) {
		return nil
	}
	if role == api.PublicRole {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return echo.NewHTTPError(http.StatusForbidden, "missing required permission")
}

func GetUserRole(ctx echo.Context) api.Role {
	role, ok := ctx.Get(userRoleKey).(api.Role)
	if !ok {
		return api.PublicRole
	}
	return role
}

// GetUserID returns nil for anonymous callers.
func GetUserID(ctx echo.Context) *uint {
	id, ok := ctx.Get(userIDKey).(uint)
	if !ok {
		return nil
	}
	return &id
}

func roleToPriority(role api.Role) int {
	switch role {
	case api.PublicRole:
		return 0
	case api.AuthenticatedRole:
		return 1
	case api.AdminRole:
		return 2
	default:
		return 0
	}
}

func hasAccess(currRole, minRole api.Role) bool {
	return roleToPriority(currRole) >= roleToPriority(minRole)
}

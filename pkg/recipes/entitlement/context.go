package entitlement

import (
	"context"

	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/labstack/echo/v4"
)

type contextKey struct{}

func NewContext(ctx context.Context, e Entitlement) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the free tier when nothing was resolved.
func FromContext(ctx context.Context) Entitlement {
	e, ok := ctx.Value(contextKey{}).(Entitlement)
	if !ok {
		return anonymous
	}
	return e
}

// Middleware resolves the caller's entitlement. It must run after
// httpserver.Identity.
func Middleware(r *Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			e := r.Resolve(req.Context(), httpserver.GetUserID(c))
			c.SetRequest(req.WithContext(NewContext(req.Context(), e)))
			return next(c)
		}
	}
}

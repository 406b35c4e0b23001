package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// Session gates routes behind the gateway-held session. A request passes
// when a usable token exists or fallback mode is active (the placeholder
// credential keeps the POS operable offline). Role and credential source
// are injected into the echo context for RBAC downstream.
func Session(session ports.AuthSession, fallback ports.FallbackAccess) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			sess := session.Current(ctx)
			if sess == nil || (!session.IsAuthenticated(ctx) && !fallback.Active(ctx)) {
				return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
			}

			role := domain.RoleGuest
			if sess.User != nil && sess.User.Role.Valid() {
				role = sess.User.Role
			}
			c.Set("role", string(role))
			c.Set("source", string(sess.Source))

			return next(c)
		}
	}
}

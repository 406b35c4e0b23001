package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// RBAC restricts a route to the given pos roles. The role claim is read
// from the context as placed there by the Session middleware.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := set[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

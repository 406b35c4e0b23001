package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// ctxRole extracts the role injected by the Session middleware and performs
// a fast-fail check before any service call: a non-empty role proves the
// middleware ran, so handlers never serve an ungated request by accident.
func ctxRole(c echo.Context) (domain.Role, error) {
	raw, _ := c.Get("role").(string)
	if raw == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing session claims")
	}
	return domain.Role(raw), nil
}

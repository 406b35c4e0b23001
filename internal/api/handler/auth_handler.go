package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/api/metrics"
	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

type AuthHandler struct {
	session  ports.AuthSession
	fallback ports.FallbackAccess
}

func NewAuthHandler(session ports.AuthSession, fallback ports.FallbackAccess) *AuthHandler {
	return &AuthHandler{session: session, fallback: fallback}
}

// Login authenticates against the backend and establishes the shared
// session. The response carries the role-derived redirect target for the
// front end to navigate to.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, redirect, err := h.session.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return err
		}
		metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
		// Backend unreachable or token machinery broken: tell the UI
		// whether offering an explicit switch to offline mode makes sense.
		return c.JSON(http.StatusServiceUnavailable, loginErrorResponse{
			Error:            "backend unavailable",
			OfflineAvailable: h.session.OfflineSuggested(ctx, err),
		})
	}
	metrics.AuthLoginsTotal.WithLabelValues("ok").Inc()

	return c.JSON(http.StatusOK, loginResponse{
		Redirect:  redirect,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
		User:      sess.User,
		Source:    string(sess.Source),
	})
}

// Logout tears the session down. It always succeeds from the client's
// point of view; backend notification is best-effort.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Session reports the current session state for UI bootstrapping.
func (h *AuthHandler) Session(c echo.Context) error {
	ctx := c.Request().Context()

	resp := sessionResponse{
		Authenticated: h.session.IsAuthenticated(ctx),
		Fallback:      h.fallback.Active(ctx),
	}
	if sess := h.session.Current(ctx); sess != nil {
		resp.User = sess.User
		resp.Source = string(sess.Source)
		if !sess.ExpiresAt.IsZero() {
			resp.ExpiresAt = sess.ExpiresAt.Format(time.RFC3339)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

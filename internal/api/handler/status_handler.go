package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
	"github.com/brewpoint/pos-edge/internal/core/service"
)

type StatusHandler struct {
	session  ports.AuthSession
	fallback ports.FallbackAccess
	monitor  *service.ConnectivityMonitor
	recovery *service.Recovery
}

func NewStatusHandler(session ports.AuthSession, fallback ports.FallbackAccess, monitor *service.ConnectivityMonitor, recovery *service.Recovery) *StatusHandler {
	return &StatusHandler{session: session, fallback: fallback, monitor: monitor, recovery: recovery}
}

type statusResponse struct {
	Status    domain.ConnectivityStatus `json:"status"`
	CheckedAt string                    `json:"checked_at,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Fallback  bool                      `json:"fallback"`
	Breaker   bool                      `json:"breaker_tripped"`
}

// Status feeds the UI banner: current connectivity, fallback flag, breaker.
func (h *StatusHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	state := h.monitor.State()

	resp := statusResponse{
		Status:   state.Status,
		Reason:   state.Reason,
		Fallback: h.fallback.Active(ctx),
		Breaker:  h.session.BreakerTripped(ctx),
	}
	if !state.CheckedAt.IsZero() {
		resp.CheckedAt = state.CheckedAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// Reconnect is the user's explicit exit from fallback mode: lift the
// degraded pin, probe immediately, and only when the backend answers does
// the durable failure state get cleared. A failed probe leaves fallback
// untouched so the POS keeps working offline.
func (h *StatusHandler) Reconnect(c echo.Context) error {
	ctx := c.Request().Context()

	h.monitor.ClearDegraded(ctx)
	state := h.monitor.CheckNow(ctx)
	if state.Status != domain.StatusOnline {
		if h.fallback.Active(ctx) {
			h.monitor.SetDegraded(ctx, "backend still unreachable")
		}
		return c.JSON(http.StatusServiceUnavailable, statusResponse{
			Status:   h.monitor.State().Status,
			Reason:   state.Reason,
			Fallback: h.fallback.Active(ctx),
			Breaker:  h.session.BreakerTripped(ctx),
		})
	}

	if err := h.session.ResetFailures(ctx); err != nil {
		return err
	}
	if err := h.recovery.Reset(ctx); err != nil {
		return err
	}
	if err := h.fallback.Deactivate(ctx); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:   domain.StatusOnline,
		Fallback: false,
		Breaker:  false,
	})
}

// ResetState clears the auth-error counter, recovery attempts and debounce
// stamps without touching the session. Gated to admin and support roles.
func (h *StatusHandler) ResetState(c echo.Context) error {
	if _, err := ctxRole(c); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if err := h.session.ResetFailures(ctx); err != nil {
		return err
	}
	if err := h.recovery.Reset(ctx); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// HealthHandler answers the liveness probe: the process is up.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HealthDependenciesHandler answers the readiness probe. Redis is a hard
// dependency: without the state store no session survives. The backend is
// not: the whole point of this gateway is staying useful while the backend
// is down, so its reachability is reported but never fails readiness.
type HealthDependenciesHandler struct {
	rdb     *redis.Client
	monitor ports.Connectivity
}

func NewHealthDependenciesHandler(rdb *redis.Client, monitor ports.Connectivity) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{rdb: rdb, monitor: monitor}
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	checks := map[string]string{"redis": "ok"}
	status := http.StatusOK

	pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.rdb.Ping(pingCtx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	checks["backend"] = string(h.monitor.State().Status)

	return c.JSON(status, checks)
}

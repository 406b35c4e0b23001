package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/api/metrics"
	"github.com/brewpoint/pos-edge/internal/core/ports"
	"github.com/brewpoint/pos-edge/internal/core/service"
)

// HeaderDataSource tells the front end whether a payload came from the live
// backend or the local fallback dataset.
const HeaderDataSource = "X-Data-Source"

type OrdersHandler struct {
	gateway  ports.Gateway
	fallback ports.FallbackAccess
}

func NewOrdersHandler(gateway ports.Gateway, fallback ports.FallbackAccess) *OrdersHandler {
	return &OrdersHandler{gateway: gateway, fallback: fallback}
}

func (h *OrdersHandler) Pending(c echo.Context) error {
	return h.serve(c, service.EndpointOrdersPending)
}

func (h *OrdersHandler) InProgress(c echo.Context) error {
	return h.serve(c, service.EndpointOrdersInProgress)
}

func (h *OrdersHandler) Completed(c echo.Context) error {
	return h.serve(c, service.EndpointOrdersCompleted)
}

func (h *OrdersHandler) Inventory(c echo.Context) error {
	return h.serve(c, service.EndpointInventory)
}

func (h *OrdersHandler) Stations(c echo.Context) error {
	return h.serve(c, service.EndpointStations)
}

// Complete marks an order done. While degraded the mutation applies to the
// local dataset only; otherwise it is proxied with an operation id so the
// backend can deduplicate retries.
func (h *OrdersHandler) Complete(c echo.Context) error {
	ctx := c.Request().Context()
	orderID := c.Param("id")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order id required")
	}

	if h.fallback.Active(ctx) {
		if err := h.fallback.CompleteOrder(ctx, orderID); err != nil {
			return err
		}
		c.Response().Header().Set(HeaderDataSource, string(ports.SourceFallback))
		return c.NoContent(http.StatusNoContent)
	}

	ep := ports.Endpoint{Key: "orders/" + orderID + "/complete", Method: http.MethodPost}
	res, err := h.gateway.Request(ctx, ep, nil, uuid.NewString())
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(ep.Key, "error", "").Inc()
		return err
	}
	metrics.GatewayRequestsTotal.WithLabelValues(ep.Key, "ok", string(res.Source)).Inc()

	c.Response().Header().Set(HeaderDataSource, string(res.Source))
	return c.NoContent(http.StatusNoContent)
}

func (h *OrdersHandler) serve(c echo.Context, ep ports.Endpoint) error {
	res, err := h.gateway.Request(c.Request().Context(), ep, nil, "")
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(ep.Key, "error", "").Inc()
		return err
	}
	metrics.GatewayRequestsTotal.WithLabelValues(ep.Key, "ok", string(res.Source)).Inc()

	c.Response().Header().Set(HeaderDataSource, string(res.Source))
	return c.JSONBlob(res.Status, res.Body)
}

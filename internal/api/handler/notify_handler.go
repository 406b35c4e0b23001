package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
	"github.com/brewpoint/pos-edge/internal/core/service"
)

type NotifyHandler struct {
	gateway ports.Gateway
	dedup   ports.DedupStore
}

func NewNotifyHandler(gateway ports.Gateway, dedup ports.DedupStore) *NotifyHandler {
	return &NotifyHandler{gateway: gateway, dedup: dedup}
}

type smsRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	// 320 covers a two-segment concatenated SMS.
	Message string `json:"message" validate:"required,max=320"`
	OrderID string `json:"order_id,omitempty"`
	// OperationID lets a client retry safely: a delivered operation id is
	// acknowledged without sending again.
	OperationID string `json:"operation_id,omitempty"`
}

type smsResponse struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id"`
}

// SendSMS proxies a customer notification. An HTTP 200 from the SMS
// provider is not enough: the body must carry an explicit success flag, so
// a provider error page or partial response is never mistaken for a
// delivered message.
func (h *NotifyHandler) SendSMS(c echo.Context) error {
	var req smsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	operationID := req.OperationID
	if operationID == "" {
		operationID = uuid.NewString()
	} else if seen, err := h.dedup.Seen(c.Request().Context(), operationID); err == nil && seen {
		return c.JSON(http.StatusOK, smsResponse{Success: true, OperationID: operationID})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.gateway.Request(c.Request().Context(), service.EndpointSMSSend, body, operationID)
	if err != nil {
		return err
	}

	var ack struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(res.Body, &ack); err != nil || ack.Success == nil || !*ack.Success {
		return fmt.Errorf("%w: provider did not confirm delivery", domain.ErrNotificationRejected)
	}

	// Only confirmed deliveries are deduplicated; a failed send stays
	// retryable under the same operation id. A failed mark just means the
	// next retry sends again, which the upstream tolerates.
	_ = h.dedup.MarkDone(c.Request().Context(), operationID)

	return c.JSON(http.StatusOK, smsResponse{Success: true, OperationID: operationID})
}

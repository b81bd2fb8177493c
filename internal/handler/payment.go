package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

const maxNotificationBytes = 64 << 10

// PaymentHandler receives gateway callbacks.  Neither endpoint trusts the
// caller: webhooks are signature-checked and the browser return only
// triggers a status query.
type PaymentHandler struct {
	recon    ReconcileAPI
	verifier SignatureVerifier // nil disables signature checks
}

func NewPaymentHandler(recon ReconcileAPI, verifier SignatureVerifier) *PaymentHandler {
	return &PaymentHandler{recon: recon, verifier: verifier}
}

// Notification handles POST /v1/payments/notifications.  Duplicates and
// events for terminal orders are acknowledged with 200 so the gateway stops
// retrying; transient failures return 500 so it retries.
func (h *PaymentHandler) Notification(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxNotificationBytes))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	var n gateway.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return badRequest(c, "malformed notification")
	}
	log := logrus.WithFields(logrus.Fields{
		"request_id":     middleware.RequestIDFrom(c),
		"order_number":   n.OrderID,
		"transaction_id": n.TransactionID,
	})
	if h.verifier != nil && !h.verifier.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		log.Warn("notification signature mismatch")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid_signature", "message": "signature verification failed"})
	}

	res, err := h.recon.Apply(c.Request().Context(), service.Notification{
		OrderNumber:       n.OrderID,
		TransactionID:     n.TransactionID,
		TransactionStatus: model.TransactionStatus(strings.ToLower(n.TransactionStatus)),
		FraudStatus:       strings.ToLower(n.FraudStatus),
		PaymentType:       n.PaymentType,
		Source:            model.SourceWebhook,
		Payload:           raw,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrOrderNotFound):
		return respondError(c, err)
	default:
		log.WithError(err).Error("notification not applied")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retry", "message": "notification could not be processed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"outcome":      res.Outcome,
		"order_number": n.OrderID,
		"status":       res.To,
	})
}

// Return handles GET /v1/payments/return, where the buyer's browser lands
// after the payment page.
func (h *PaymentHandler) Return(c echo.Context) error {
	number := strings.TrimSpace(c.QueryParam("order_id"))
	if number == "" {
		return badRequest(c, "order_id is required")
	}
	res, err := h.recon.HandleReturn(c.Request().Context(), number)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"order_number":         res.Order.OrderNumber,
		"status":               res.Order.Status,
		"grand_total":          res.Order.GrandTotal,
		"pending_confirmation": res.PendingConfirmation,
	})
}

// Reconcile handles POST /v1/admin/orders/:number/reconcile.
func (h *PaymentHandler) Reconcile(c echo.Context) error {
	res, err := h.recon.ReconcileOrder(c.Request().Context(), c.Param("number"), model.SourceStatusQuery)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"outcome":      res.Outcome,
		"from":         res.From,
		"to":           res.To,
		"order_number": res.Order.OrderNumber,
	})
}

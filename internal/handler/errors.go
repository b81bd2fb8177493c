package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

// errorStatus maps sentinel errors to an HTTP status and a stable code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrValidation, http.StatusBadRequest, "validation_error"},
	{service.ErrLoginRequired, http.StatusUnauthorized, "login_required"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found"},
	{service.ErrCartLineNotFound, http.StatusNotFound, "cart_line_not_found"},
	{service.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{service.ErrWithdrawalNotFound, http.StatusNotFound, "withdrawal_not_found"},
	{gateway.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{service.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{service.ErrTicketInactive, http.StatusConflict, "ticket_inactive"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrInsufficientAvailableBalance, http.StatusUnprocessableEntity, "insufficient_available_balance"},
	{service.ErrAmountNotCoverable, http.StatusUnprocessableEntity, "amount_not_coverable"},
	{service.ErrPaymentSession, http.StatusBadGateway, "payment_session_failed"},
	{gateway.ErrUnavailable, http.StatusBadGateway, "gateway_unavailable"},
	{gateway.ErrRejected, http.StatusBadGateway, "gateway_rejected"},
}

// respondError writes the JSON error body for err.  Unknown errors are
// logged and reported as 500 without their text.
func respondError(c echo.Context, err error) error {
	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		body := echo.Map{"error": m.code, "message": err.Error()}
		var ve *service.ValidationError
		var be *service.BalanceError
		var ce *service.CoverageError
		switch {
		case errors.As(err, &ve):
			body["message"] = ve.Error()
			if ve.Field != "" {
				body["field"] = ve.Field
			}
		case errors.As(err, &be):
			body["available_balance"] = be.Available
		case errors.As(err, &ce):
			body["nearest_below"] = ce.Below
			body["nearest_above"] = ce.Above
		}
		return c.JSON(m.status, body)
	}
	logrus.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFrom(c),
		"path":       c.Path(),
	}).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

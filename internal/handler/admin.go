package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// AdminHandler drives the withdrawal queue.
type AdminHandler struct {
	withdrawals WithdrawalAPI
}

func NewAdminHandler(withdrawals WithdrawalAPI) *AdminHandler {
	return &AdminHandler{withdrawals: withdrawals}
}

// ListWithdrawals handles GET /v1/admin/withdrawals?status=.
func (h *AdminHandler) ListWithdrawals(c echo.Context) error {
	var status *model.WithdrawalStatus
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		st := model.WithdrawalStatus(strings.ToUpper(s))
		status = &st
	}
	limit, offset := page(c)
	ws, err := h.withdrawals.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": newWithdrawals(ws)})
}

// GetWithdrawal handles GET /v1/admin/withdrawals/:id.
func (h *AdminHandler) GetWithdrawal(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid withdrawal id")
	}
	w, err := h.withdrawals.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newWithdrawal(w))
}

type decisionFunc func(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error)

func (h *AdminHandler) decide(c echo.Context, fn decisionFunc) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid withdrawal id")
	}
	var body struct {
		Notes *string `json:"notes"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	admin, _ := middleware.ActorFrom(c)
	w, err := fn(c.Request().Context(), admin.ID, id, body.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newWithdrawal(w))
}

// Approve handles POST /v1/admin/withdrawals/:id/approve.
func (h *AdminHandler) Approve(c echo.Context) error { return h.decide(c, h.withdrawals.Approve) }

// Reject handles POST /v1/admin/withdrawals/:id/reject.
func (h *AdminHandler) Reject(c echo.Context) error { return h.decide(c, h.withdrawals.Reject) }

// Complete handles POST /v1/admin/withdrawals/:id/complete.
func (h *AdminHandler) Complete(c echo.Context) error {
	return h.decide(c, func(ctx context.Context, adminID, id uint64, _ *string) (*model.WithdrawalRequest, error) {
		return h.withdrawals.Complete(ctx, adminID, id)
	})
}

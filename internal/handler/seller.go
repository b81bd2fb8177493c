package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// SellerHandler serves a seller's own earnings and withdrawals.  Routes are
// mounted behind RequireRole(SELLER), so the actor id is the seller id.
type SellerHandler struct {
	ledger      LedgerAPI
	withdrawals WithdrawalAPI
}

func NewSellerHandler(ledger LedgerAPI, withdrawals WithdrawalAPI) *SellerHandler {
	return &SellerHandler{ledger: ledger, withdrawals: withdrawals}
}

func sellerID(c echo.Context) uint64 {
	a, _ := middleware.ActorFrom(c)
	return a.ID
}

// Earnings handles GET /v1/seller/earnings?status=.
func (h *SellerHandler) Earnings(c echo.Context) error {
	var status *model.EarningStatus
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		st := model.EarningStatus(strings.ToUpper(s))
		status = &st
	}
	limit, offset := page(c)
	es, err := h.ledger.ListEarnings(c.Request().Context(), sellerID(c), status, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"earnings": newEarnings(es)})
}

// Balance handles GET /v1/seller/balance.
func (h *SellerHandler) Balance(c echo.Context) error {
	b, err := h.ledger.Balance(c.Request().Context(), sellerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, balanceResponse{
		Pending: b.Pending, Available: b.Available, Withdrawn: b.Withdrawn,
		Outstanding: b.Outstanding, Withdrawable: b.Withdrawable,
	})
}

type withdrawalBody struct {
	Amount int64 `json:"amount"`
	bankBody
}

// RequestWithdrawal handles POST /v1/seller/withdrawals.
func (h *SellerHandler) RequestWithdrawal(c echo.Context) error {
	var body withdrawalBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	w, err := h.withdrawals.Request(c.Request().Context(), sellerID(c), body.Amount, model.BankAccount{
		BankName: body.BankName, AccountNumber: body.AccountNumber, AccountHolder: body.AccountHolder,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newWithdrawal(w))
}

// Withdrawals handles GET /v1/seller/withdrawals.
func (h *SellerHandler) Withdrawals(c echo.Context) error {
	limit, offset := page(c)
	ws, err := h.withdrawals.ListBySeller(c.Request().Context(), sellerID(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": newWithdrawals(ws)})
}

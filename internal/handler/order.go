package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

// OrderHandler serves checkout and the customer's order history.
type OrderHandler struct {
	checkout CheckoutAPI
	orders   OrderAPI
}

func NewOrderHandler(checkout CheckoutAPI, orders OrderAPI) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type checkoutBody struct {
	LineIDs []uint64      `json:"line_ids"`
	Buyer   service.Buyer `json:"buyer"`
}

// Checkout handles POST /v1/checkout.  On success the body carries the
// payment token and redirect URL of the hosted payment page.
func (h *OrderHandler) Checkout(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok || !actor.IsCustomer() {
		return respondError(c, service.ErrLoginRequired)
	}
	var body checkoutBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.checkout.Checkout(c.Request().Context(), model.UserIdentity(actor.ID), service.CheckoutRequest{
		LineIDs: body.LineIDs, Buyer: body.Buyer,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newOrder(o))
}

// List handles GET /v1/orders.
func (h *OrderHandler) List(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	limit, offset := page(c)
	orders, err := h.orders.ListForCustomer(c.Request().Context(), actor.ID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrder(&orders[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// Get handles GET /v1/orders/:number and GET /v1/admin/orders/:number.
// Admins also see the payment event history.
func (h *OrderHandler) Get(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	d, err := h.orders.Get(c.Request().Context(), actor, c.Param("number"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, withEvents(newOrder(d.Order), d.Events))
}

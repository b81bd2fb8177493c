package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

// CartHandler serves /v1/cart for guests and signed-in customers.  The cart
// owner comes from middleware.CartIdentity.
type CartHandler struct {
	cart CartAPI
}

func NewCartHandler(cart CartAPI) *CartHandler {
	if cart == nil {
		panic("nil cart service passed to NewCartHandler")
	}
	return &CartHandler{cart: cart}
}

type addItemBody struct {
	TicketID  uint64  `json:"ticket_id"`
	Quantity  int     `json:"quantity"`
	VisitDate *string `json:"visit_date"`
	Note      *string `json:"note"`
}

type updateItemBody struct {
	Quantity       *int    `json:"quantity"`
	VisitDate      *string `json:"visit_date"`
	ClearVisitDate bool    `json:"clear_visit_date"`
	Note           *string `json:"note"`
	ClearNote      bool    `json:"clear_note"`
}

func parseVisitDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
	sum, err := h.cart.Summarize(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newCart(sum))
}

// AddItem handles POST /v1/cart/items.
func (h *CartHandler) AddItem(c echo.Context) error {
	var body addItemBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	visit, err := parseVisitDate(body.VisitDate)
	if err != nil {
		return badRequest(c, "visit_date must be YYYY-MM-DD")
	}
	line, err := h.cart.Add(c.Request().Context(), middleware.IdentityFrom(c), service.AddItemInput{
		TicketID: body.TicketID, Quantity: body.Quantity, VisitDate: visit, Note: body.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newCartLine(line))
}

// UpdateItem handles PATCH /v1/cart/items/:id.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid cart line id")
	}
	var body updateItemBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	visit, err := parseVisitDate(body.VisitDate)
	if err != nil {
		return badRequest(c, "visit_date must be YYYY-MM-DD")
	}
	line, err := h.cart.Update(c.Request().Context(), middleware.IdentityFrom(c), id, service.UpdateItemInput{
		Quantity: body.Quantity, VisitDate: visit, ClearVisitDate: body.ClearVisitDate,
		Note: body.Note, ClearNote: body.ClearNote,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newCartLine(line))
}

// RemoveItem handles DELETE /v1/cart/items/:id.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid cart line id")
	}
	if err := h.cart.Remove(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear handles DELETE /v1/cart.
func (h *CartHandler) Clear(c echo.Context) error {
	n, err := h.cart.Clear(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": n})
}

// Adopt handles POST /v1/cart/adopt.  It moves the guest cart named by the
// session header or cookie into the signed-in customer's cart.
func (h *CartHandler) Adopt(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok || !actor.IsCustomer() {
		return respondError(c, service.ErrLoginRequired)
	}
	var body struct {
		SessionToken string `json:"session_token"`
	}
	_ = c.Bind(&body)
	token := strings.TrimSpace(body.SessionToken)
	if token == "" {
		token = c.Request().Header.Get(middleware.CartSessionHeader)
	}
	if token == "" {
		if ck, err := c.Cookie(middleware.CartSessionCookie); err == nil {
			token = ck.Value
		}
	}
	res, err := h.cart.Adopt(c.Request().Context(), token, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

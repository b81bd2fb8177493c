package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TicketHandler exposes read-only inventory figures.
type TicketHandler struct {
	inventory AvailabilityAPI
}

func NewTicketHandler(inventory AvailabilityAPI) *TicketHandler {
	return &TicketHandler{inventory: inventory}
}

// Availability handles GET /v1/tickets/:id/availability.  The figure is
// advisory; checkout re-checks under lock.
func (h *TicketHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	a, err := h.inventory.Availability(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

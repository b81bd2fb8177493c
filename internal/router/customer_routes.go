package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/handler"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// RegisterCart registers the cart endpoints.  Guests and customers share
// them; the cart owner is resolved by CartIdentity from the token or the
// cart session.
func RegisterCart(e *echo.Echo, h *handler.CartHandler, jwtSecret string) {
	g := e.Group(
		"/v1/cart",
		middleware.OptionalJWT(jwtSecret),
		middleware.CartIdentity(),
	)
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.POST("/items", h.AddItem)
	g.PATCH("/items/:id", h.UpdateItem)
	g.DELETE("/items/:id", h.RemoveItem)
}

// RegisterCustomer registers endpoints that need a signed-in customer.
// Checkout is rate limited per user.
func RegisterCustomer(e *echo.Echo, h Handlers, opts Options) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/cart/adopt", h.Cart.Adopt)
	g.POST("/checkout", h.Orders.Checkout, middleware.NewTokenBucket(opts.RateLimit, opts.Redis))
	g.GET("/orders", h.Orders.List)
	g.GET("/orders/:number", h.Orders.Get)
}

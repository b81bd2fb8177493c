// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/config"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/handler"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Cart     *handler.CartHandler
	Tickets  *handler.TicketHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Seller   *handler.SellerHandler
	Admin    *handler.AdminHandler
}

// Options carries what the middleware needs.  Redis may be nil, in which
// case caching and rate limiting are disabled.
type Options struct {
	JWTSecret string
	DB        handler.Pinger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// RegisterRoutes mounts the whole API.
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.Use(middleware.RequestLogger())
	e.GET("/healthz", handler.Health(opts.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterPublic(e, h, opts)
	RegisterCart(e, h.Cart, opts.JWTSecret)
	RegisterCustomer(e, h, opts)
	RegisterPayments(e, h.Payments)
	RegisterSeller(e, h.Seller, opts)
	RegisterAdmin(e, h, opts.JWTSecret)
}

// RegisterPublic registers unauthenticated catalog reads.  Availability is
// served through the Redis cache.
func RegisterPublic(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/v1/tickets/:id/availability", h.Tickets.Availability, middleware.NewRedisCache(opts.Cache, opts.Redis))
}

// RegisterPayments registers the gateway callbacks.  They carry no JWT; the
// webhook is authenticated by its signature.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler) {
	g := e.Group("/v1/payments")
	g.POST("/notifications", p.Notification)
	g.GET("/return", p.Return)
}

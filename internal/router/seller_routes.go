package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/handler"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// RegisterSeller registers a seller's ledger endpoints under /v1/seller.
func RegisterSeller(e *echo.Echo, h *handler.SellerHandler, opts Options) {
	g := e.Group(
		"/v1/seller",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.RequireRole(model.RoleSeller),
	)
	g.GET("/earnings", h.Earnings)
	g.GET("/balance", h.Balance)
	g.GET("/withdrawals", h.Withdrawals)
	g.POST("/withdrawals", h.RequestWithdrawal, middleware.NewTokenBucket(opts.RateLimit, opts.Redis))
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// RegisterAdmin registers the back-office endpoints: the withdrawal queue,
// order lookup with payment history, and forced reconciliation.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/withdrawals", h.Admin.ListWithdrawals)
	g.GET("/withdrawals/:id", h.Admin.GetWithdrawal)
	g.POST("/withdrawals/:id/approve", h.Admin.Approve)
	g.POST("/withdrawals/:id/reject", h.Admin.Reject)
	g.POST("/withdrawals/:id/complete", h.Admin.Complete)

	g.GET("/orders/:number", h.Orders.Get)
	g.POST("/orders/:number/reconcile", h.Payments.Reconcile)
}

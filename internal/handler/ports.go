package handler

import (
	"context"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

// The handlers depend on these narrow views of the services so they can be
// tested with mocks.

type CartAPI interface {
	Add(ctx context.Context, id model.Identity, in service.AddItemInput) (*model.CartLine, error)
	Update(ctx context.Context, id model.Identity, lineID uint64, in service.UpdateItemInput) (*model.CartLine, error)
	Remove(ctx context.Context, id model.Identity, lineID uint64) error
	Clear(ctx context.Context, id model.Identity) (int64, error)
	Summarize(ctx context.Context, id model.Identity) (*model.CartSummary, error)
	Adopt(ctx context.Context, sessionToken string, userID uint64) (*service.AdoptResult, error)
}

type AvailabilityAPI interface {
	Availability(ctx context.Context, ticketID uint64) (*service.Availability, error)
}

type CheckoutAPI interface {
	Checkout(ctx context.Context, id model.Identity, req service.CheckoutRequest) (*model.Order, error)
}

type OrderAPI interface {
	Get(ctx context.Context, actor model.Actor, number string) (*service.OrderDetail, error)
	ListForCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Order, error)
}

type ReconcileAPI interface {
	Apply(ctx context.Context, n service.Notification) (*service.ApplyResult, error)
	HandleReturn(ctx context.Context, orderNumber string) (*service.ReturnResult, error)
	ReconcileOrder(ctx context.Context, orderNumber string, source model.EventSource) (*service.ApplyResult, error)
}

// SignatureVerifier checks webhook signatures.  *gateway.Client satisfies it.
type SignatureVerifier interface {
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
}

type LedgerAPI interface {
	Balance(ctx context.Context, sellerID uint64) (*model.SellerBalance, error)
	ListEarnings(ctx context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error)
}

type WithdrawalAPI interface {
	Request(ctx context.Context, sellerID uint64, amount int64, bank model.BankAccount) (*model.WithdrawalRequest, error)
	Approve(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error)
	Reject(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error)
	Complete(ctx context.Context, adminID, id uint64) (*model.WithdrawalRequest, error)
	Get(ctx context.Context, id uint64) (*model.WithdrawalRequest, error)
	ListBySeller(ctx context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error)
	List(ctx context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error)
}

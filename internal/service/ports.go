package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// The interfaces below are implemented by the MySQL repositories in
// internal/repository.  Methods with a Tx suffix run inside the transaction
// handed out by Transactor.InTx.

// Transactor runs fn inside one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type TicketStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ticket, error)
	IncrementSoldTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) (bool, error)
}

type ReservationStore interface {
	ReservedQuantity(ctx context.Context, ticketID uint64) (int, error)
	ReservedQuantityTx(ctx context.Context, tx *sql.Tx, ticketID uint64) (int, error)
	CreateMultipleTx(ctx context.Context, tx *sql.Tx, rs []model.InventoryReservation) error
	DeleteByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) error
	ExtendTx(ctx context.Context, tx *sql.Tx, orderID uint64, expiresAt time.Time) error
	ExpiredOrderIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

type CartStore interface {
	GetByID(ctx context.Context, id uint64) (*model.CartLine, error)
	FindByTicket(ctx context.Context, owner model.Identity, ticketID uint64) (*model.CartLine, error)
	FindByTicketTx(ctx context.Context, tx *sql.Tx, owner model.Identity, ticketID uint64) (*model.CartLine, error)
	Create(ctx context.Context, l *model.CartLine) error
	Update(ctx context.Context, l *model.CartLine) error
	UpdateTx(ctx context.Context, tx *sql.Tx, l *model.CartLine) error
	Delete(ctx context.Context, id uint64) error
	DeleteByOwner(ctx context.Context, owner model.Identity) (int64, error)
	ListViews(ctx context.Context, owner model.Identity) ([]model.CartLineView, error)
	ListByOwnerTx(ctx context.Context, tx *sql.Tx, owner model.Identity) ([]model.CartLine, error)
	ReassignTx(ctx context.Context, tx *sql.Tx, lineID uint64, owner model.Identity) error
	DeleteManyTx(ctx context.Context, tx *sql.Tx, ids []uint64) error
}

type OrderStore interface {
	NumberExistsTx(ctx context.Context, tx *sql.Tx, number string) (bool, error)
	CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetByNumberForUpdateTx(ctx context.Context, tx *sql.Tx, number string) (*model.Order, error)
	MarkAwaitingPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, token, redirectURL string) error
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.OrderStatus, paidAt *time.Time) error
	ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Order, error)
}

type PaymentEventStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, ev *model.PaymentEvent) error
	ListByOrder(ctx context.Context, orderID uint64) ([]model.PaymentEvent, error)
}

type EarningStore interface {
	CreateManyTx(ctx context.Context, tx *sql.Tx, es []model.SellerEarning) error
	PromoteMatured(ctx context.Context, now time.Time) (int64, error)
	SumByStatus(ctx context.Context, sellerID uint64) (map[model.EarningStatus]int64, error)
	ListUnclaimedForUpdateTx(ctx context.Context, tx *sql.Tx, sellerID uint64) ([]model.SellerEarning, error)
	ListClaimedForUpdateTx(ctx context.Context, tx *sql.Tx, withdrawalID uint64) ([]model.SellerEarning, error)
	ClaimTx(ctx context.Context, tx *sql.Tx, ids []uint64, withdrawalID uint64) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, withdrawalID uint64) error
	MarkWithdrawnTx(ctx context.Context, tx *sql.Tx, ids []uint64, withdrawalID uint64) error
	ListBySeller(ctx context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error)
}

type WithdrawalStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, w *model.WithdrawalRequest) error
	GetByID(ctx context.Context, id uint64) (*model.WithdrawalRequest, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.WithdrawalRequest, error)
	OutstandingTotal(ctx context.Context, sellerID uint64) (int64, error)
	OutstandingTotalTx(ctx context.Context, tx *sql.Tx, sellerID uint64) (int64, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.WithdrawalStatus, adminID uint64, notes *string, at time.Time) error
	ListBySeller(ctx context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error)
	List(ctx context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error)
}

// PaymentGateway opens checkout sessions and answers status queries.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
	QueryStatus(ctx context.Context, orderNumber string) (*gateway.TransactionStatus, error)
}

// EventPublisher delivers domain events after commit.  Failures are
// logged by the caller and never roll anything back.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// Stores bundles the persistence dependencies shared by the services.
type Stores struct {
	Tx           Transactor
	Tickets      TicketStore
	Reservations ReservationStore
	Carts        CartStore
	Orders       OrderStore
	Events       PaymentEventStore
	Earnings     EarningStore
	Withdrawals  WithdrawalStore
}

// Clock returns the current time.  Tests replace it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

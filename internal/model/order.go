package model

import "time"

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderCreated         OrderStatus = "CREATED"
	OrderAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderPaid            OrderStatus = "PAID"
	OrderPending         OrderStatus = "PENDING"
	OrderFailed          OrderStatus = "FAILED"
)

// Terminal reports whether no further money movement can happen.
func (s OrderStatus) Terminal() bool { return s == OrderPaid || s == OrderFailed }

// Order is created once at checkout and afterwards mutated only by payment
// reconciliation.  Orders are never deleted.
type Order struct {
	ID                  uint64
	OrderNumber         string
	CustomerID          uint64
	BuyerName           string
	BuyerEmail          string
	BuyerPhone          string
	Subtotal            int64
	PlatformFee         int64
	GrandTotal          int64
	Status              OrderStatus
	PaymentSessionToken *string
	PaymentRedirectURL  *string
	PaidAt              *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Items               []OrderItem
}

// OrderItem is a frozen snapshot of a cart line at checkout time.  Later
// catalog price changes do not affect it.
type OrderItem struct {
	ID         uint64
	OrderID    uint64
	TicketID   uint64
	SellerID   uint64
	TicketName string
	UnitPrice  int64
	Quantity   int
	Subtotal   int64
	VisitDate  *time.Time
	Note       *string
	CreatedAt  time.Time
}

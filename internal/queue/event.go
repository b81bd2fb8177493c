// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the audit consumer.
package queue

// Routing keys double as queue names on the default exchange.
const (
	OrderPaidKey           = "order.paid"
	WithdrawalCompletedKey = "withdrawal.completed"
)

// OrderPaidEvent is published after an order's first transition to PAID has
// committed.  It carries enough for downstream consumers (e-ticket issuance,
// notifications, audit) to act without querying the primary database.
type OrderPaidEvent struct {
	OrderID       uint64              `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uint64              `json:"customer_id"`
	BuyerEmail    string              `json:"buyer_email"`
	Subtotal      int64               `json:"subtotal"`
	PlatformFee   int64               `json:"platform_fee"`
	GrandTotal    int64               `json:"grand_total"`
	TransactionID string              `json:"transaction_id"`
	PaymentType   string              `json:"payment_type,omitempty"`
	Items         []OrderPaidItem     `json:"items"`
	Earnings      []SellerEarningLine `json:"earnings"`
	PaidAt        string              `json:"paid_at"`
}

type OrderPaidItem struct {
	TicketID   uint64 `json:"ticket_id"`
	SellerID   uint64 `json:"seller_id"`
	TicketName string `json:"ticket_name"`
	Quantity   int    `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
}

type SellerEarningLine struct {
	SellerID         uint64 `json:"seller_id"`
	OrderItemID      uint64 `json:"order_item_id"`
	NetAmount        int64  `json:"net_amount"`
	PlatformFeeShare int64  `json:"platform_fee_share"`
	AvailableAt      string `json:"available_at"`
}

// WithdrawalCompletedEvent is published when an admin completes a payout.
type WithdrawalCompletedEvent struct {
	WithdrawalID uint64   `json:"withdrawal_id"`
	SellerID     uint64   `json:"seller_id"`
	Amount       int64    `json:"amount"`
	EarningIDs   []uint64 `json:"earning_ids"`
	ProcessedBy  uint64   `json:"processed_by"`
	CompletedAt  string   `json:"completed_at"`
}

package model

import "time"

// TransactionStatus is the gateway's transaction_status value.
type TransactionStatus string

const (
	TxCapture    TransactionStatus = "capture"
	TxSettlement TransactionStatus = "settlement"
	TxPending    TransactionStatus = "pending"
	TxDeny       TransactionStatus = "deny"
	TxCancel     TransactionStatus = "cancel"
	TxExpire     TransactionStatus = "expire"
	TxFailure    TransactionStatus = "failure"
)

// Known reports whether the status is one the reconciliation handler maps.
func (s TransactionStatus) Known() bool {
	switch s {
	case TxCapture, TxSettlement, TxPending, TxDeny, TxCancel, TxExpire, TxFailure:
		return true
	}
	return false
}

// FraudStatus accompanies capture notifications for card payments.
type FraudStatus string

const (
	FraudAccept    FraudStatus = "accept"
	FraudChallenge FraudStatus = "challenge"
	FraudDeny      FraudStatus = "deny"
)

// EventSource says where a payment notification came from.
type EventSource string

const (
	SourceWebhook     EventSource = "webhook"
	SourceStatusQuery EventSource = "status_query"
	SourceSweep       EventSource = "sweep"
)

// EventOutcome records what reconciliation did with a payment event.
type EventOutcome string

const (
	OutcomeApplied EventOutcome = "applied"
	OutcomeIgnored EventOutcome = "ignored"
)

// PaymentEvent is an append-only record of a gateway notification.
// (OrderNumber, TransactionID, TransactionStatus, FraudStatus) is unique and
// is the idempotency key for reconciliation.
type PaymentEvent struct {
	ID                uint64
	OrderID           uint64
	OrderNumber       string
	TransactionID     string
	TransactionStatus TransactionStatus
	FraudStatus       *string
	PaymentType       *string
	Source            EventSource
	Outcome           EventOutcome
	Payload           []byte
	ReceivedAt        time.Time
}

package model

import "time"

// WithdrawalStatus is the state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalApproved  WithdrawalStatus = "APPROVED"
	WithdrawalRejected  WithdrawalStatus = "REJECTED"
	WithdrawalCompleted WithdrawalStatus = "COMPLETED"
)

// Outstanding reports whether the request still claims part of the
// seller's available balance.
func (s WithdrawalStatus) Outstanding() bool {
	return s == WithdrawalPending || s == WithdrawalApproved
}

// BankAccount is the payout destination.
type BankAccount struct {
	BankName      string
	AccountNumber string
	AccountHolder string
}

// WithdrawalRequest is a seller's request to pay out available earnings.
type WithdrawalRequest struct {
	ID          uint64
	SellerID    uint64
	Amount      int64
	Bank        BankAccount
	Status      WithdrawalStatus
	AdminNotes  *string
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy *uint64
}

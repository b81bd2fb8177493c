package model

import "time"

// EarningStatus tracks a seller earning from settlement to payout.
type EarningStatus string

const (
	EarningPending   EarningStatus = "PENDING"
	EarningAvailable EarningStatus = "AVAILABLE"
	EarningWithdrawn EarningStatus = "WITHDRAWN"
)

// SellerEarning is the seller's share of one paid order item.  Exactly one
// row exists per order item.  GrossAmount = PlatformFeeShare + NetAmount.
type SellerEarning struct {
	ID               uint64
	SellerID         uint64
	OrderID          uint64
	OrderItemID      uint64
	GrossAmount      int64
	PlatformFeeShare int64
	NetAmount        int64
	Status           EarningStatus
	AvailableAt      time.Time
	WithdrawalID     *uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SellerBalance summarises a seller's earnings by status.  Withdrawable is
// Available minus the amount already requested by outstanding withdrawals.
type SellerBalance struct {
	SellerID     uint64
	Pending      int64
	Available    int64
	Withdrawn    int64
	Outstanding  int64
	Withdrawable int64
}

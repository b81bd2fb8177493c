// Package service implements the marketplace core: the inventory guard,
// carts, checkout, payment reconciliation, the earnings ledger and seller
// withdrawals.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrOutOfStock        = errors.New("out of stock")
	ErrTicketInactive    = errors.New("ticket is not on sale")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrForbidden         = errors.New("forbidden")
	ErrLoginRequired     = errors.New("login required")
	ErrPaymentSession    = errors.New("payment session could not be created")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientAvailableBalance is wrapped by *BalanceError.
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	// ErrAmountNotCoverable is wrapped by *CoverageError.
	ErrAmountNotCoverable = errors.New("amount cannot be covered exactly by available earnings")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrLedgerConsistency  = errors.New("ledger does not balance")
)

// ValidationError names the offending field.  It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// BalanceError reports the withdrawable balance when a request exceeds it.
type BalanceError struct {
	Available int64
	Requested int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s: requested %d, withdrawable %d", ErrInsufficientAvailableBalance, e.Requested, e.Available)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientAvailableBalance }

// CoverageError reports the closest amounts that available earnings can
// cover exactly when taken oldest first.  Below is 0 when not even the
// oldest row fits.  Above is 0 when every available row together is still
// short of the amount.
type CoverageError struct {
	Amount int64
	Below  int64
	Above  int64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("%s: amount %d, nearest coverable %d and %d", ErrAmountNotCoverable, e.Amount, e.Below, e.Above)
}

func (e *CoverageError) Unwrap() error { return ErrAmountNotCoverable }

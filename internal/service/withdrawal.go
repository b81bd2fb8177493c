package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/monitoring"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/queue"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// WithdrawalService runs the payout state machine:
// PENDING -> APPROVED | REJECTED, APPROVED -> COMPLETED.
type WithdrawalService struct {
	s   Stores
	pub EventPublisher
	now Clock
}

func NewWithdrawalService(s Stores, pub EventPublisher) *WithdrawalService {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return &WithdrawalService{s: s, pub: pub, now: systemClock}
}

func validateBank(b *model.BankAccount) error {
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.AccountHolder = strings.TrimSpace(b.AccountHolder)
	switch {
	case b.BankName == "":
		return invalid("bank_name", "is required")
	case b.AccountNumber == "":
		return invalid("account_number", "is required")
	case b.AccountHolder == "":
		return invalid("account_holder", "is required")
	}
	return nil
}

// Request files a payout request.  The seller's unclaimed AVAILABLE
// earnings are locked and taken oldest first until they reach the amount;
// they must match it exactly and are then claimed by the new request, so
// whatever is approved can always be completed.  An amount above the
// unclaimed total fails with *BalanceError, one that falls between two
// running totals with *CoverageError.
func (w *WithdrawalService) Request(ctx context.Context, sellerID uint64, amount int64, bank model.BankAccount) (*model.WithdrawalRequest, error) {
	if sellerID == 0 {
		return nil, ErrForbidden
	}
	if amount <= 0 {
		return nil, invalid("amount", "must be greater than zero")
	}
	if err := validateBank(&bank); err != nil {
		return nil, err
	}
	var req *model.WithdrawalRequest
	err := w.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		rows, err := w.s.Earnings.ListUnclaimedForUpdateTx(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		withdrawable := netTotal(rows)
		if amount > withdrawable {
			return &BalanceError{Available: withdrawable, Requested: amount}
		}
		taken, covered := takeOldestFirst(rows, amount)
		if covered != amount {
			return coverageError(rows, amount)
		}
		req = &model.WithdrawalRequest{
			SellerID:    sellerID,
			Amount:      amount,
			Bank:        bank,
			Status:      model.WithdrawalPending,
			RequestedAt: w.now(),
		}
		if err := w.s.Withdrawals.CreateTx(ctx, tx, req); err != nil {
			return err
		}
		return w.s.Earnings.ClaimTx(ctx, tx, taken, req.ID)
	})
	if err != nil {
		return nil, err
	}
	monitoring.TrackWithdrawal(string(model.WithdrawalPending))
	logrus.WithFields(logrus.Fields{"seller_id": sellerID, "withdrawal_id": req.ID, "amount": amount}).Info("withdrawal requested")
	return req, nil
}

// Approve accepts a PENDING request.
func (w *WithdrawalService) Approve(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error) {
	return w.decide(ctx, adminID, id, model.WithdrawalApproved, notes)
}

// Reject declines a PENDING request and releases the earnings it claimed.
func (w *WithdrawalService) Reject(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error) {
	return w.decide(ctx, adminID, id, model.WithdrawalRejected, notes)
}

func (w *WithdrawalService) decide(ctx context.Context, adminID, id uint64, to model.WithdrawalStatus, notes *string) (*model.WithdrawalRequest, error) {
	var req *model.WithdrawalRequest
	err := w.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		req, err = w.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != model.WithdrawalPending {
			return fmt.Errorf("withdrawal %d is %s: %w", id, req.Status, ErrInvalidTransition)
		}
		now := w.now()
		if err := w.s.Withdrawals.UpdateStatusTx(ctx, tx, id, to, adminID, notes, now); err != nil {
			return err
		}
		stamp(req, to, adminID, notes, now)
		if to == model.WithdrawalRejected {
			return w.s.Earnings.ReleaseTx(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.TrackWithdrawal(string(to))
	logrus.WithFields(logrus.Fields{"withdrawal_id": id, "admin_id": adminID, "status": to}).Info("withdrawal decided")
	return req, nil
}

// Complete pays out an APPROVED request by moving the earnings it claimed
// to WITHDRAWN.  The claimed rows are locked oldest first and must still add
// up to the amount; anything else is a ledger inconsistency and nothing
// changes.
func (w *WithdrawalService) Complete(ctx context.Context, adminID, id uint64) (*model.WithdrawalRequest, error) {
	var (
		req     *model.WithdrawalRequest
		taken   []uint64
		covered int64
	)
	err := w.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		req, err = w.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != model.WithdrawalApproved {
			return fmt.Errorf("withdrawal %d is %s: %w", id, req.Status, ErrInvalidTransition)
		}
		rows, err := w.s.Earnings.ListClaimedForUpdateTx(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		taken, covered = takeOldestFirst(rows, req.Amount)
		if covered != req.Amount || len(taken) != len(rows) {
			return fmt.Errorf("%w: withdrawal %d claims %d of %d", ErrLedgerConsistency, id, netTotal(rows), req.Amount)
		}
		if err := w.s.Earnings.MarkWithdrawnTx(ctx, tx, taken, req.ID); err != nil {
			return err
		}
		now := w.now()
		if err := w.s.Withdrawals.UpdateStatusTx(ctx, tx, id, model.WithdrawalCompleted, adminID, nil, now); err != nil {
			return err
		}
		stamp(req, model.WithdrawalCompleted, adminID, nil, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.TrackWithdrawal(string(model.WithdrawalCompleted))
	logrus.WithFields(logrus.Fields{
		"withdrawal_id": id, "seller_id": req.SellerID, "amount": req.Amount, "earnings": len(taken),
	}).Info("withdrawal completed")

	ev := queue.WithdrawalCompletedEvent{
		WithdrawalID: req.ID,
		SellerID:     req.SellerID,
		Amount:       req.Amount,
		EarningIDs:   taken,
		ProcessedBy:  adminID,
	}
	if req.ProcessedAt != nil {
		ev.CompletedAt = req.ProcessedAt.UTC().Format(time.RFC3339)
	}
	if err := w.pub.Publish(ctx, queue.WithdrawalCompletedKey, ev); err != nil {
		logrus.WithError(err).WithField("withdrawal_id", id).Warn("withdrawal.completed publish failed")
	}
	return req, nil
}

// takeOldestFirst accumulates rows in order until the running total reaches
// amount and returns the ids consumed with their total.
func takeOldestFirst(rows []model.SellerEarning, amount int64) ([]uint64, int64) {
	var (
		ids   []uint64
		total int64
	)
	for _, e := range rows {
		if total >= amount {
			break
		}
		ids = append(ids, e.ID)
		total += e.NetAmount
	}
	return ids, total
}

func netTotal(rows []model.SellerEarning) int64 {
	var total int64
	for _, e := range rows {
		total += e.NetAmount
	}
	return total
}

func coverageError(rows []model.SellerEarning, amount int64) error {
	ce := &CoverageError{Amount: amount}
	var total int64
	for _, e := range rows {
		total += e.NetAmount
		if total < amount {
			ce.Below = total
			continue
		}
		if total > amount {
			ce.Above = total
		}
		break
	}
	return ce
}

// Get returns one request.
func (w *WithdrawalService) Get(ctx context.Context, id uint64) (*model.WithdrawalRequest, error) {
	req, err := w.s.Withdrawals.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	return req, err
}

// ListBySeller pages through a seller's requests, newest first.
func (w *WithdrawalService) ListBySeller(ctx context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error) {
	return w.s.Withdrawals.ListBySeller(ctx, sellerID, clampLimit(limit), max(offset, 0))
}

// List pages through all requests for the admin queue, oldest first.
func (w *WithdrawalService) List(ctx context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error) {
	if status != nil {
		switch *status {
		case model.WithdrawalPending, model.WithdrawalApproved, model.WithdrawalRejected, model.WithdrawalCompleted:
		default:
			return nil, invalid("status", "must be PENDING, APPROVED, REJECTED or COMPLETED")
		}
	}
	return w.s.Withdrawals.List(ctx, status, clampLimit(limit), max(offset, 0))
}

func (w *WithdrawalService) lock(ctx context.Context, tx *sql.Tx, id uint64) (*model.WithdrawalRequest, error) {
	req, err := w.s.Withdrawals.GetForUpdateTx(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	return req, err
}

func stamp(req *model.WithdrawalRequest, status model.WithdrawalStatus, adminID uint64, notes *string, at time.Time) {
	req.Status = status
	req.ProcessedAt = &at
	req.ProcessedBy = &adminID
	if notes != nil {
		req.AdminNotes = notes
	}
}

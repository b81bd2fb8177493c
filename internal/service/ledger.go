package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/money"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/monitoring"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// DefaultHoldingPeriod delays new earnings before they become withdrawable.
const DefaultHoldingPeriod = 72 * time.Hour

// Ledger splits paid orders into seller earnings and reports balances.
type Ledger struct {
	earnings    EarningStore
	withdrawals WithdrawalStore
	holding     time.Duration
}

func NewLedger(s Stores, holding time.Duration) *Ledger {
	if holding < 0 {
		holding = DefaultHoldingPeriod
	}
	return &Ledger{earnings: s.Earnings, withdrawals: s.Withdrawals, holding: holding}
}

// Settle writes one PENDING earning per order item.  It must run in the
// same transaction that marks the order PAID.  The fee share of each item is
// computed on the item subtotal, so Σ net + Σ share always equals the order
// subtotal; a mismatch returns ErrLedgerConsistency and aborts the caller's
// transaction.
func (l *Ledger) Settle(ctx context.Context, tx *sql.Tx, o *model.Order, paidAt time.Time) ([]model.SellerEarning, error) {
	if len(o.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items: %w", o.OrderNumber, ErrLedgerConsistency)
	}
	availableAt := paidAt.Add(l.holding)
	es := make([]model.SellerEarning, 0, len(o.Items))
	var itemsTotal, netTotal, shareTotal int64
	for _, it := range o.Items {
		share, net := money.Split(it.Subtotal)
		es = append(es, model.SellerEarning{
			SellerID:         it.SellerID,
			OrderID:          o.ID,
			OrderItemID:      it.ID,
			GrossAmount:      it.Subtotal,
			PlatformFeeShare: share,
			NetAmount:        net,
			Status:           model.EarningPending,
			AvailableAt:      availableAt,
			CreatedAt:        paidAt,
			UpdatedAt:        paidAt,
		})
		itemsTotal += it.Subtotal
		netTotal += net
		shareTotal += share
	}
	if itemsTotal != o.Subtotal || netTotal+shareTotal != o.Subtotal {
		return nil, fmt.Errorf("order %s: items %d, net %d + share %d, subtotal %d: %w",
			o.OrderNumber, itemsTotal, netTotal, shareTotal, o.Subtotal, ErrLedgerConsistency)
	}
	if err := l.earnings.CreateManyTx(ctx, tx, es); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("order %s already settled: %w", o.OrderNumber, ErrLedgerConsistency)
		}
		return nil, err
	}
	monitoring.TrackEarningsSettled(len(es))
	return es, nil
}

// PromoteMatured makes PENDING earnings whose holding period has passed
// AVAILABLE and returns how many were promoted.
func (l *Ledger) PromoteMatured(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.earnings.PromoteMatured(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		monitoring.TrackEarningsPromoted(n)
		logrus.WithField("count", n).Info("seller earnings became available")
	}
	return n, nil
}

// Balance summarises a seller's earnings.  Withdrawable excludes amounts
// already claimed by PENDING or APPROVED withdrawal requests.
func (l *Ledger) Balance(ctx context.Context, sellerID uint64) (*model.SellerBalance, error) {
	sums, err := l.earnings.SumByStatus(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	outstanding, err := l.withdrawals.OutstandingTotal(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	b := &model.SellerBalance{
		SellerID:    sellerID,
		Pending:     sums[model.EarningPending],
		Available:   sums[model.EarningAvailable],
		Withdrawn:   sums[model.EarningWithdrawn],
		Outstanding: outstanding,
	}
	b.Withdrawable = b.Available - b.Outstanding
	if b.Withdrawable < 0 {
		b.Withdrawable = 0
	}
	return b, nil
}

// ListEarnings pages through a seller's earnings, newest first.
func (l *Ledger) ListEarnings(ctx context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error) {
	if status != nil {
		switch *status {
		case model.EarningPending, model.EarningAvailable, model.EarningWithdrawn:
		default:
			return nil, invalid("status", "must be PENDING, AVAILABLE or WITHDRAWN")
		}
	}
	return l.earnings.ListBySeller(ctx, sellerID, status, clampLimit(limit), max(offset, 0))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

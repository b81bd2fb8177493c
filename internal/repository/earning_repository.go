package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// EarningRepo stores seller_earnings.  One row exists per paid order item.
type EarningRepo struct {
	db *sql.DB
}

func NewEarningRepo(db *sql.DB) *EarningRepo { return &EarningRepo{db: db} }

const earningColumns = `id, seller_id, order_id, order_item_id, gross_amount, platform_fee_share, net_amount,
	status, available_at, withdrawal_id, created_at, updated_at`

func scanEarning(row interface{ Scan(...any) error }) (*model.SellerEarning, error) {
	var (
		e            model.SellerEarning
		status       string
		withdrawalID sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.SellerID, &e.OrderID, &e.OrderItemID, &e.GrossAmount, &e.PlatformFeeShare,
		&e.NetAmount, &status, &e.AvailableAt, &withdrawalID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	e.Status = model.EarningStatus(status)
	if withdrawalID.Valid {
		id := uint64(withdrawalID.Int64)
		e.WithdrawalID = &id
	}
	return &e, nil
}

func scanEarnings(rows *sql.Rows) ([]model.SellerEarning, error) {
	defer rows.Close()
	var out []model.SellerEarning
	for rows.Next() {
		e, err := scanEarning(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CreateManyTx inserts earning rows.  A second row for the same order item
// violates uk_seller_earnings_item and yields ErrDuplicate.
func (r *EarningRepo) CreateManyTx(ctx context.Context, tx *sql.Tx, es []model.SellerEarning) error {
	if len(es) == 0 {
		return nil
	}
	query := `INSERT INTO seller_earnings (seller_id, order_id, order_item_id, gross_amount, platform_fee_share,
	                                       net_amount, status, available_at) VALUES `
	args := make([]any, 0, len(es)*8)
	for i, e := range es {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, e.SellerID, e.OrderID, e.OrderItemID, e.GrossAmount, e.PlatformFeeShare,
			e.NetAmount, string(e.Status), e.AvailableAt.UTC())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// PromoteMatured flips PENDING rows whose available_at has passed to
// AVAILABLE and returns how many changed.
func (r *EarningRepo) PromoteMatured(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seller_earnings SET status = ? WHERE status = ? AND available_at <= ?`,
		string(model.EarningAvailable), string(model.EarningPending), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumByStatus totals net_amount per status for a seller.
func (r *EarningRepo) SumByStatus(ctx context.Context, sellerID uint64) (map[model.EarningStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COALESCE(SUM(net_amount), 0) FROM seller_earnings WHERE seller_id = ? GROUP BY status`,
		sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[model.EarningStatus]int64, 3)
	for rows.Next() {
		var (
			status string
			sum    int64
		)
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		sums[model.EarningStatus(status)] = sum
	}
	return sums, rows.Err()
}

// ListUnclaimedForUpdateTx returns the seller's AVAILABLE earnings that no
// withdrawal request has claimed, oldest first (available_at, id), and locks
// them.  Concurrent requests for the same seller queue on these locks.
func (r *EarningRepo) ListUnclaimedForUpdateTx(ctx context.Context, tx *sql.Tx, sellerID uint64) ([]model.SellerEarning, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+earningColumns+` FROM seller_earnings
		 WHERE seller_id = ? AND status = ? AND withdrawal_id IS NULL
		 ORDER BY available_at, id FOR UPDATE`,
		sellerID, string(model.EarningAvailable))
	if err != nil {
		return nil, err
	}
	return scanEarnings(rows)
}

// ListClaimedForUpdateTx returns the AVAILABLE earnings claimed by the
// withdrawal, oldest first, and locks them.
func (r *EarningRepo) ListClaimedForUpdateTx(ctx context.Context, tx *sql.Tx, withdrawalID uint64) ([]model.SellerEarning, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+earningColumns+` FROM seller_earnings
		 WHERE withdrawal_id = ? AND status = ?
		 ORDER BY available_at, id FOR UPDATE`,
		withdrawalID, string(model.EarningAvailable))
	if err != nil {
		return nil, err
	}
	return scanEarnings(rows)
}

// ClaimTx links unclaimed AVAILABLE rows to a withdrawal request.  Fewer
// updated rows than ids yields ErrConflict.
func (r *EarningRepo) ClaimTx(ctx context.Context, tx *sql.Tx, ids []uint64, withdrawalID uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+2)
	args = append(args, withdrawalID, string(model.EarningAvailable))
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seller_earnings SET withdrawal_id = ?
		 WHERE status = ? AND withdrawal_id IS NULL AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != int64(len(ids)) {
		return ErrConflict
	}
	return nil
}

// ReleaseTx drops the withdrawal's claim on rows that were not paid out.
func (r *EarningRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, withdrawalID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seller_earnings SET withdrawal_id = NULL WHERE withdrawal_id = ? AND status = ?`,
		withdrawalID, string(model.EarningAvailable))
	return err
}

// MarkWithdrawnTx moves rows claimed by the withdrawal to WITHDRAWN.  Only
// AVAILABLE rows claimed by it are touched; fewer updated rows than ids
// yields ErrConflict.
func (r *EarningRepo) MarkWithdrawnTx(ctx context.Context, tx *sql.Tx, ids []uint64, withdrawalID uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+3)
	args = append(args, string(model.EarningWithdrawn), string(model.EarningAvailable), withdrawalID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seller_earnings SET status = ?
		 WHERE status = ? AND withdrawal_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != int64(len(ids)) {
		return ErrConflict
	}
	return nil
}

// ListBySeller returns the seller's earnings newest first, optionally
// filtered by status.
func (r *EarningRepo) ListBySeller(ctx context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM seller_earnings WHERE seller_id = ?`
	args := []any{sellerID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEarnings(rows)
}

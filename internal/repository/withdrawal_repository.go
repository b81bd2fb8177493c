package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// WithdrawalRepo stores seller payout requests.
type WithdrawalRepo struct {
	db *sql.DB
}

func NewWithdrawalRepo(db *sql.DB) *WithdrawalRepo { return &WithdrawalRepo{db: db} }

const withdrawalColumns = `id, seller_id, amount, bank_name, account_number, account_holder, status,
	admin_notes, requested_at, processed_at, processed_by`

func scanWithdrawal(row interface{ Scan(...any) error }) (*model.WithdrawalRequest, error) {
	var (
		w           model.WithdrawalRequest
		status      string
		notes       sql.NullString
		processedAt sql.NullTime
		processedBy sql.NullInt64
	)
	if err := row.Scan(&w.ID, &w.SellerID, &w.Amount, &w.Bank.BankName, &w.Bank.AccountNumber,
		&w.Bank.AccountHolder, &status, &notes, &w.RequestedAt, &processedAt, &processedBy); err != nil {
		return nil, notFound(err)
	}
	w.Status = model.WithdrawalStatus(status)
	w.AdminNotes = stringPtr(notes)
	w.ProcessedAt = timePtr(processedAt)
	if processedBy.Valid {
		id := uint64(processedBy.Int64)
		w.ProcessedBy = &id
	}
	return &w, nil
}

func scanWithdrawals(rows *sql.Rows) ([]model.WithdrawalRequest, error) {
	defer rows.Close()
	var out []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// CreateTx inserts a PENDING request and fills in its id.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.WithdrawalRequest) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO withdrawal_requests (seller_id, amount, bank_name, account_number, account_holder, status, requested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.SellerID, w.Amount, w.Bank.BankName, w.Bank.AccountNumber, w.Bank.AccountHolder,
		string(w.Status), w.RequestedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return nil
}

// GetByID returns the request or ErrNotFound.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uint64) (*model.WithdrawalRequest, error) {
	return scanWithdrawal(r.db.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = ?`, id))
}

// GetForUpdateTx loads and locks the request.
func (r *WithdrawalRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.WithdrawalRequest, error) {
	return scanWithdrawal(tx.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = ? FOR UPDATE`, id))
}

func outstandingTotal(ctx context.Context, q querier, sellerID uint64) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests WHERE seller_id = ? AND status IN (?, ?)`,
		sellerID, string(model.WithdrawalPending), string(model.WithdrawalApproved)).Scan(&total)
	return total, err
}

// OutstandingTotal sums the seller's PENDING and APPROVED requests.
func (r *WithdrawalRepo) OutstandingTotal(ctx context.Context, sellerID uint64) (int64, error) {
	return outstandingTotal(ctx, r.db, sellerID)
}

func (r *WithdrawalRepo) OutstandingTotalTx(ctx context.Context, tx *sql.Tx, sellerID uint64) (int64, error) {
	return outstandingTotal(ctx, tx, sellerID)
}

// UpdateStatusTx records an admin decision on the request.
func (r *WithdrawalRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.WithdrawalStatus, adminID uint64, notes *string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status = ?, processed_by = ?, processed_at = ?,
		        admin_notes = COALESCE(?, admin_notes)
		 WHERE id = ?`,
		string(status), adminID, at.UTC(), nullString(notes), id)
	return err
}

// ListBySeller returns the seller's requests newest first.
func (r *WithdrawalRepo) ListBySeller(ctx context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE seller_id = ?
		 ORDER BY requested_at DESC, id DESC LIMIT ? OFFSET ?`, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

// List returns requests oldest first for the admin queue, optionally
// filtered by status.
func (r *WithdrawalRepo) List(ctx context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY requested_at, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

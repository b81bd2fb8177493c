package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// TicketRepo reads the ticket catalog and maintains sold_quantity.  The
// catalog itself is managed elsewhere; this repository never changes price
// or available_quantity.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, seller_id, name, price, available_quantity, sold_quantity, is_active, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	if err := row.Scan(&t.ID, &t.SellerID, &t.Name, &t.Price, &t.AvailableQuantity,
		&t.SoldQuantity, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetByID returns the ticket or ErrNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
}

// GetForUpdateTx loads the ticket and takes a row lock on it for the rest
// of the transaction.
func (r *TicketRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ticket, error) {
	return scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ? FOR UPDATE`, id))
}

// IncrementSoldTx adds qty to sold_quantity only while enough capacity
// remains.  It reports false when the guard rejected the update.
func (r *TicketRepo) IncrementSoldTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE tickets SET sold_quantity = sold_quantity + ?
		 WHERE id = ? AND available_quantity - sold_quantity >= ?`,
		qty, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

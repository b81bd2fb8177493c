package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// InventoryReservationRepo provides data access to the
// inventory_reservations table.  A reservation holds ticket capacity for
// an order that is waiting on the payment gateway.  All timestamps are UTC.
type InventoryReservationRepo struct {
	db *sql.DB
}

func NewInventoryReservationRepo(db *sql.DB) *InventoryReservationRepo {
	return &InventoryReservationRepo{db: db}
}

const reservedQuantitySQL = `SELECT COALESCE(SUM(quantity), 0) FROM inventory_reservations WHERE ticket_id = ?`

// ReservedQuantity sums the quantity currently held for a ticket.
func (r *InventoryReservationRepo) ReservedQuantity(ctx context.Context, ticketID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, reservedQuantitySQL, ticketID).Scan(&n)
	return n, err
}

// ReservedQuantityTx is ReservedQuantity inside a transaction.  It is a
// locking read: under REPEATABLE READ a plain SELECT would answer from the
// snapshot taken at the transaction's first read and miss reservations
// committed while the caller waited for a later ticket lock.
func (r *InventoryReservationRepo) ReservedQuantityTx(ctx context.Context, tx *sql.Tx, ticketID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, reservedQuantitySQL+` FOR SHARE`, ticketID).Scan(&n)
	return n, err
}

// CreateMultipleTx inserts reservations in a single statement.  Passing an
// empty slice has no effect.
func (r *InventoryReservationRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, rs []model.InventoryReservation) error {
	if len(rs) == 0 {
		return nil
	}
	query := `INSERT INTO inventory_reservations (ticket_id, order_id, quantity, expires_at) VALUES `
	args := make([]any, 0, len(rs)*4)
	for i, res := range rs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, res.TicketID, res.OrderID, res.Quantity, res.ExpiresAt.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteByOrderTx releases every reservation held by the order.
func (r *InventoryReservationRepo) DeleteByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM inventory_reservations WHERE order_id = ?`, orderID)
	return err
}

// ExtendTx pushes the expiry of the order's reservations to expiresAt.
func (r *InventoryReservationRepo) ExtendTx(ctx context.Context, tx *sql.Tx, orderID uint64, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE inventory_reservations SET expires_at = ? WHERE order_id = ?`,
		expiresAt.UTC(), orderID)
	return err
}

// ExpiredOrderIDs returns up to limit distinct order ids owning a
// reservation whose expires_at is at or before now.
func (r *InventoryReservationRepo) ExpiredOrderIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT order_id FROM inventory_reservations
		 WHERE expires_at <= ? ORDER BY order_id LIMIT ?`,
		now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// OrderRepo persists orders and their frozen items.  Orders are never
// deleted; after checkout only status, payment session and paid_at change.
type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_number, customer_id, buyer_name, buyer_email, buyer_phone,
	subtotal, platform_fee, grand_total, status, payment_session_token, payment_redirect_url,
	paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o        model.Order
		status   string
		token    sql.NullString
		redirect sql.NullString
		paidAt   sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.BuyerName, &o.BuyerEmail, &o.BuyerPhone,
		&o.Subtotal, &o.PlatformFee, &o.GrandTotal, &status, &token, &redirect,
		&paidAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentSessionToken = stringPtr(token)
	o.PaymentRedirectURL = stringPtr(redirect)
	o.PaidAt = timePtr(paidAt)
	return &o, nil
}

// NumberExistsTx reports whether an order already uses the number.
func (r *OrderRepo) NumberExistsTx(ctx context.Context, tx *sql.Tx, number string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE order_number = ? LIMIT 1`, number).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CreateTx inserts the order with its items and fills in the generated ids.
// A clashing order number yields ErrDuplicate.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (order_number, customer_id, buyer_name, buyer_email, buyer_phone,
		                     subtotal, platform_fee, grand_total, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.CustomerID, o.BuyerName, o.BuyerEmail, o.BuyerPhone,
		o.Subtotal, o.PlatformFee, o.GrandTotal, string(o.Status))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, ticket_id, seller_id, ticket_name, unit_price, quantity, subtotal, visit_date, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.OrderID, it.TicketID, it.SellerID, it.TicketName, it.UnitPrice, it.Quantity, it.Subtotal,
			it.VisitDate, nullString(it.Note))
		if err != nil {
			return err
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = uint64(itemID)
	}
	return nil
}

func (r *OrderRepo) items(ctx context.Context, q querier, orderID uint64) ([]model.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, ticket_id, seller_id, ticket_name, unit_price, quantity, subtotal, visit_date, note, created_at
		 FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.OrderItem
	for rows.Next() {
		var (
			it    model.OrderItem
			visit sql.NullTime
			note  sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketID, &it.SellerID, &it.TicketName,
			&it.UnitPrice, &it.Quantity, &it.Subtotal, &visit, &note, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.VisitDate = timePtr(visit)
		it.Note = stringPtr(note)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepo) withItems(ctx context.Context, q querier, o *model.Order, err error) (*model.Order, error) {
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByNumber returns the order with its items or ErrNotFound.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number))
	return r.withItems(ctx, r.db, o, err)
}

// GetByID returns the order with its items or ErrNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	return r.withItems(ctx, r.db, o, err)
}

// GetByNumberForUpdateTx locks the order row and loads its items.  Every
// payment notification for the order serialises on this lock.
func (r *OrderRepo) GetByNumberForUpdateTx(ctx context.Context, tx *sql.Tx, number string) (*model.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ? FOR UPDATE`, number))
	return r.withItems(ctx, tx, o, err)
}

// MarkAwaitingPaymentTx stores the gateway session and moves the order to
// AWAITING_PAYMENT.
func (r *OrderRepo) MarkAwaitingPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, token, redirectURL string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_session_token = ?, payment_redirect_url = ? WHERE id = ? AND status = ?`,
		string(model.OrderAwaitingPayment), token, redirectURL, id, string(model.OrderCreated))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateStatusTx sets the status and, when paidAt is non-nil, paid_at.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.OrderStatus, paidAt *time.Time) error {
	var err error
	if paidAt != nil {
		_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ?, paid_at = ? WHERE id = ?`, string(status), paidAt.UTC(), id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	}
	return err
}

// ListByCustomer returns the customer's orders newest first, without items.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// PaymentEventRepo appends gateway notifications.  Rows are never updated.
type PaymentEventRepo struct {
	db *sql.DB
}

func NewPaymentEventRepo(db *sql.DB) *PaymentEventRepo { return &PaymentEventRepo{db: db} }

// InsertTx appends the event.  A repeat of an (order_number, transaction_id,
// transaction_status, fraud_status) key yields ErrDuplicate.  A missing fraud
// status is stored as the empty string so it takes part in the key.
func (r *PaymentEventRepo) InsertTx(ctx context.Context, tx *sql.Tx, ev *model.PaymentEvent) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payment_events (order_id, order_number, gateway_transaction_id, transaction_status,
		                             fraud_status, payment_type, source, outcome, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.OrderID, ev.OrderNumber, ev.TransactionID, string(ev.TransactionStatus),
		fraudKey(ev.FraudStatus), nullString(ev.PaymentType), string(ev.Source), string(ev.Outcome), ev.Payload)
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
	ev.ID = uint64(id)
	return nil
}

// ListByOrder returns the order's events in arrival order.
func (r *PaymentEventRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.PaymentEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, order_number, gateway_transaction_id, transaction_status, fraud_status,
		        payment_type, source, outcome, payload, received_at
		 FROM payment_events WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.PaymentEvent
	for rows.Next() {
		var (
			ev          model.PaymentEvent
			status      string
			fraud       sql.NullString
			paymentType sql.NullString
			source      string
			outcome     string
		)
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.OrderNumber, &ev.TransactionID, &status, &fraud,
			&paymentType, &source, &outcome, &ev.Payload, &ev.ReceivedAt); err != nil {
			return nil, err
		}
		ev.TransactionStatus = model.TransactionStatus(status)
		if fraud.String != "" {
			ev.FraudStatus = stringPtr(fraud)
		}
		ev.PaymentType = stringPtr(paymentType)
		ev.Source = model.EventSource(source)
		ev.Outcome = model.EventOutcome(outcome)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func fraudKey(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

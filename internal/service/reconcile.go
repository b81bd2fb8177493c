package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/monitoring"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/queue"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// Notification is a payment status report from the gateway, either pushed
// by webhook or pulled through a status query.
type Notification struct {
	OrderNumber       string
	TransactionID     string
	TransactionStatus model.TransactionStatus
	FraudStatus       string
	PaymentType       string
	Source            model.EventSource
	Payload           []byte
}

// NotificationFromStatus converts a gateway status body.
func NotificationFromStatus(st *gateway.TransactionStatus, source model.EventSource) Notification {
	payload, _ := json.Marshal(st)
	return Notification{
		OrderNumber:       st.OrderID,
		TransactionID:     st.TransactionID,
		TransactionStatus: model.TransactionStatus(strings.ToLower(st.TransactionStatus)),
		FraudStatus:       strings.ToLower(st.FraudStatus),
		PaymentType:       st.PaymentType,
		Source:            source,
		Payload:           payload,
	}
}

// Outcome says what Apply did with a notification.
type Outcome string

const (
	// OutcomeApplied: the event was recorded and the order moved (or already
	// was) in the mapped status.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the same event was processed before; nothing changed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored: the order is terminal and the event asked for a
	// different status.  The event is recorded, the order is untouched.
	OutcomeIgnored Outcome = "ignored"
)

// ApplyResult describes the effect of one notification.
type ApplyResult struct {
	Outcome Outcome
	From    model.OrderStatus
	To      model.OrderStatus
	Order   *model.Order
}

// Changed reports whether the order's status moved.
func (r *ApplyResult) Changed() bool { return r.Outcome == OutcomeApplied && r.From != r.To }

// TargetStatus maps a gateway transaction status and fraud status onto the
// order status it implies.
func TargetStatus(status model.TransactionStatus, fraud string) (model.OrderStatus, bool) {
	switch status {
	case model.TxSettlement:
		return model.OrderPaid, true
	case model.TxCapture:
		switch model.FraudStatus(fraud) {
		case model.FraudAccept, "":
			return model.OrderPaid, true
		case model.FraudDeny:
			return model.OrderFailed, true
		}
		// challenge, or a verdict we do not know, waits for a later event.
		return model.OrderPending, true
	case model.TxPending:
		return model.OrderPending, true
	case model.TxDeny, model.TxCancel, model.TxExpire, model.TxFailure:
		return model.OrderFailed, true
	}
	return "", false
}

// ReconciliationService is the only writer of order status after checkout.
type ReconciliationService struct {
	s      Stores
	ledger *Ledger
	gw     PaymentGateway
	pub    EventPublisher
	ttl    time.Duration
	now    Clock
}

func NewReconciliationService(s Stores, ledger *Ledger, gw PaymentGateway, pub EventPublisher, reservationTTL time.Duration) *ReconciliationService {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if reservationTTL <= 0 {
		reservationTTL = 30 * time.Minute
	}
	return &ReconciliationService{s: s, ledger: ledger, gw: gw, pub: pub, ttl: reservationTTL, now: systemClock}
}

func validateNotification(n *Notification) error {
	n.OrderNumber = strings.TrimSpace(n.OrderNumber)
	n.TransactionID = strings.TrimSpace(n.TransactionID)
	if n.OrderNumber == "" {
		return invalid("order_id", "is required")
	}
	if n.TransactionID == "" {
		return invalid("transaction_id", "is required")
	}
	if !n.TransactionStatus.Known() {
		return invalid("transaction_status", fmt.Sprintf("unknown status %q", n.TransactionStatus))
	}
	if n.Source == "" {
		n.Source = model.SourceWebhook
	}
	return nil
}

// Apply reconciles one notification in a single transaction.  The order row
// is locked first, so concurrent notifications for the same order are
// serialised and only one of them can perform the first transition to PAID.
// The (order, transaction, status, fraud status) key is recorded once;
// repeats are reported as OutcomeDuplicate with no effect.
func (r *ReconciliationService) Apply(ctx context.Context, n Notification) (*ApplyResult, error) {
	if err := validateNotification(&n); err != nil {
		return nil, err
	}
	target, _ := TargetStatus(n.TransactionStatus, n.FraudStatus)
	log := logrus.WithFields(logrus.Fields{
		"order_number":       n.OrderNumber,
		"transaction_id":     n.TransactionID,
		"transaction_status": n.TransactionStatus,
		"source":             n.Source,
	})

	var (
		res      *ApplyResult
		earnings []model.SellerEarning
	)
	err := r.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		earnings = nil
		o, err := r.s.Orders.GetByNumberForUpdateTx(ctx, tx, n.OrderNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		res = &ApplyResult{Outcome: OutcomeApplied, From: o.Status, To: target, Order: o}
		if o.Status.Terminal() && o.Status != target {
			res.Outcome = OutcomeIgnored
			res.To = o.Status
		}

		ev := &model.PaymentEvent{
			OrderID:           o.ID,
			OrderNumber:       o.OrderNumber,
			TransactionID:     n.TransactionID,
			TransactionStatus: n.TransactionStatus,
			FraudStatus:       optional(n.FraudStatus),
			PaymentType:       optional(n.PaymentType),
			Source:            n.Source,
			Outcome:           model.EventOutcome(res.Outcome),
			Payload:           n.Payload,
			ReceivedAt:        r.now(),
		}
		if err := r.s.Events.InsertTx(ctx, tx, ev); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				res.Outcome = OutcomeDuplicate
				res.To = o.Status
				return nil
			}
			return err
		}
		if !res.Changed() {
			return nil
		}

		switch target {
		case model.OrderPaid:
			earnings, err = r.markPaid(ctx, tx, o)
			return err
		case model.OrderFailed:
			if err := r.s.Orders.UpdateStatusTx(ctx, tx, o.ID, model.OrderFailed, nil); err != nil {
				return err
			}
			o.Status = model.OrderFailed
			return r.s.Reservations.DeleteByOrderTx(ctx, tx, o.ID)
		case model.OrderPending:
			if err := r.s.Orders.UpdateStatusTx(ctx, tx, o.ID, model.OrderPending, nil); err != nil {
				return err
			}
			o.Status = model.OrderPending
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			log.WithError(err).Error("payment reconciliation failed")
		}
		return nil, err
	}

	monitoring.TrackPaymentEvent(string(n.Source), string(res.Outcome))
	switch {
	case res.Outcome == OutcomeIgnored:
		log.WithError(ErrInvalidTransition).WithField("status", res.From).Warn("notification ignored for terminal order")
	case res.Changed():
		monitoring.TrackOrderTransition(string(res.From), string(res.To))
		log.WithFields(logrus.Fields{"from": res.From, "to": res.To}).Info("order status changed")
		if res.To == model.OrderPaid {
			r.publishPaid(ctx, res.Order, n, earnings)
		}
	case res.Outcome == OutcomeDuplicate:
		log.Debug("duplicate notification")
	}
	return res, nil
}

// markPaid performs the first PAID transition: stamp paid_at, turn the
// reservations into sold units and settle seller earnings.
func (r *ReconciliationService) markPaid(ctx context.Context, tx *sql.Tx, o *model.Order) ([]model.SellerEarning, error) {
	paidAt := r.now()
	if err := r.s.Orders.UpdateStatusTx(ctx, tx, o.ID, model.OrderPaid, &paidAt); err != nil {
		return nil, err
	}
	if err := r.s.Reservations.DeleteByOrderTx(ctx, tx, o.ID); err != nil {
		return nil, err
	}

	qty := make(map[uint64]int, len(o.Items))
	for _, it := range o.Items {
		qty[it.TicketID] += it.Quantity
	}
	ids := make([]uint64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		ok, err := r.s.Tickets.IncrementSoldTx(ctx, tx, id, qty[id])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ticket %d: cannot sell %d more: %w", id, qty[id], ErrOutOfStock)
		}
	}

	o.Status = model.OrderPaid
	o.PaidAt = &paidAt
	return r.ledger.Settle(ctx, tx, o, paidAt)
}

func (r *ReconciliationService) publishPaid(ctx context.Context, o *model.Order, n Notification, es []model.SellerEarning) {
	ev := queue.OrderPaidEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		BuyerEmail:    o.BuyerEmail,
		Subtotal:      o.Subtotal,
		PlatformFee:   o.PlatformFee,
		GrandTotal:    o.GrandTotal,
		TransactionID: n.TransactionID,
		PaymentType:   n.PaymentType,
	}
	if o.PaidAt != nil {
		ev.PaidAt = o.PaidAt.UTC().Format(time.RFC3339)
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, queue.OrderPaidItem{
			TicketID: it.TicketID, SellerID: it.SellerID, TicketName: it.TicketName, Quantity: it.Quantity, Subtotal: it.Subtotal,
		})
	}
	for _, e := range es {
		ev.Earnings = append(ev.Earnings, queue.SellerEarningLine{
			SellerID: e.SellerID, OrderItemID: e.OrderItemID, NetAmount: e.NetAmount,
			PlatformFeeShare: e.PlatformFeeShare, AvailableAt: e.AvailableAt.UTC().Format(time.RFC3339),
		})
	}
	if err := r.pub.Publish(ctx, queue.OrderPaidKey, ev); err != nil {
		logrus.WithError(err).WithField("order_number", o.OrderNumber).Warn("order.paid publish failed")
	}
}

// ReconcileOrder asks the gateway for the order's status and applies the
// answer through Apply.
func (r *ReconciliationService) ReconcileOrder(ctx context.Context, orderNumber string, source model.EventSource) (*ApplyResult, error) {
	st, err := r.gw.QueryStatus(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if st.OrderID == "" {
		st.OrderID = orderNumber
	}
	return r.Apply(ctx, NotificationFromStatus(st, source))
}

// ReturnResult is what the browser return page renders.
type ReturnResult struct {
	Order *model.Order
	// PendingConfirmation is set while the order is not yet terminal or the
	// gateway could not be asked.
	PendingConfirmation bool
}

// HandleReturn runs when the buyer's browser comes back from the payment
// page.  The return itself proves nothing; it only triggers a status query
// whose answer goes through the normal reconciliation path.  When the query
// fails the stored status is shown as pending confirmation.
func (r *ReconciliationService) HandleReturn(ctx context.Context, orderNumber string) (*ReturnResult, error) {
	o, err := r.s.Orders.GetByNumber(ctx, orderNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return &ReturnResult{Order: o}, nil
	}
	res, err := r.ReconcileOrder(ctx, orderNumber, model.SourceStatusQuery)
	if err != nil {
		logrus.WithError(err).WithField("order_number", orderNumber).Warn("status query on return failed")
		return &ReturnResult{Order: o, PendingConfirmation: true}, nil
	}
	return &ReturnResult{Order: res.Order, PendingConfirmation: !res.Order.Status.Terminal()}, nil
}

// SweepExpiredReservations looks at orders whose reservations have expired
// and asks the gateway about each one.  Unknown transactions are failed with
// a synthetic expire event so their capacity is released; still-pending
// payments get their reservations extended.  It returns how many orders
// were resolved.
func (r *ReconciliationService) SweepExpiredReservations(ctx context.Context, limit int) (int, error) {
	ids, err := r.s.Reservations.ExpiredOrderIDs(ctx, r.now(), clampLimit(limit))
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		ok, err := r.sweepOne(ctx, id)
		if err != nil {
			monitoring.TrackSweep("error")
			logrus.WithError(err).WithField("order_id", id).Warn("reservation sweep failed")
			continue
		}
		if ok {
			resolved++
			monitoring.TrackSweep("resolved")
		} else {
			monitoring.TrackSweep("extended")
		}
	}
	return resolved, nil
}

func (r *ReconciliationService) sweepOne(ctx context.Context, orderID uint64) (bool, error) {
	o, err := r.s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if o.Status.Terminal() {
		// Stale hold left behind by a terminal order.
		return true, r.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
			return r.s.Reservations.DeleteByOrderTx(ctx, tx, o.ID)
		})
	}

	st, err := r.gw.QueryStatus(ctx, o.OrderNumber)
	switch {
	case errors.Is(err, gateway.ErrTransactionNotFound):
		res, err := r.Apply(ctx, Notification{
			OrderNumber:       o.OrderNumber,
			TransactionID:     "expired-" + o.OrderNumber,
			TransactionStatus: model.TxExpire,
			Source:            model.SourceSweep,
		})
		if err != nil {
			return false, err
		}
		return res.Order.Status.Terminal(), nil
	case err != nil:
		return false, err
	}
	if st.OrderID == "" {
		st.OrderID = o.OrderNumber
	}
	res, err := r.Apply(ctx, NotificationFromStatus(st, model.SourceSweep))
	if err != nil {
		return false, err
	}
	if res.Order.Status.Terminal() {
		return true, nil
	}
	return false, r.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		return r.s.Reservations.ExtendTx(ctx, tx, o.ID, r.now().Add(r.ttl))
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

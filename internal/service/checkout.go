package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/money"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/monitoring"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

const orderNumberAttempts = 5

// Buyer is the contact the gateway and e-tickets are addressed to.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CheckoutRequest selects cart lines to buy.  An empty LineIDs buys the
// whole cart.
type CheckoutRequest struct {
	LineIDs []uint64
	Buyer   Buyer
}

// CheckoutConfig tunes the checkout transaction.
type CheckoutConfig struct {
	// ReservationTTL is how long capacity is held before the sweeper asks
	// the gateway about the order.
	ReservationTTL time.Duration
	// GatewayTimeout bounds the session call made inside the transaction.
	GatewayTimeout time.Duration
}

// CheckoutService turns a cart into an order awaiting payment.
type CheckoutService struct {
	s         Stores
	guard     *InventoryGuard
	gw        PaymentGateway
	cfg       CheckoutConfig
	now       Clock
	newNumber func(time.Time) string
}

func NewCheckoutService(s Stores, guard *InventoryGuard, gw PaymentGateway, cfg CheckoutConfig) *CheckoutService {
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 30 * time.Minute
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return &CheckoutService{s: s, guard: guard, gw: gw, cfg: cfg, now: systemClock, newNumber: NewOrderNumber}
}

// NewOrderNumber formats ORD-YYYYMMDD-XXXXXXXX with eight random upper-case
// hex digits.
func NewOrderNumber(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}

func validateBuyer(b *Buyer) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = strings.TrimSpace(b.Phone)
	if b.Name == "" {
		return invalid("buyer.name", "is required")
	}
	if b.Email == "" {
		return invalid("buyer.email", "is required")
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return invalid("buyer.email", "is not a valid address")
	}
	return nil
}

// Checkout assembles an order from the identity's cart in one transaction:
// lock tickets in id order, re-check capacity, freeze prices into order
// items, compute the fee, persist the order, consume the cart lines, open a
// gateway session and reserve inventory.  Any failure, including the
// gateway call, rolls everything back.
func (c *CheckoutService) Checkout(ctx context.Context, id model.Identity, req CheckoutRequest) (*model.Order, error) {
	customerID, ok := id.UserID()
	if !ok {
		return nil, ErrLoginRequired
	}
	if err := validateBuyer(&req.Buyer); err != nil {
		return nil, err
	}

	start := time.Now()
	var order *model.Order
	err := c.s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		lines, err := c.selectLines(ctx, tx, id, req.LineIDs)
		if err != nil {
			return err
		}

		qtyByTicket := make(map[uint64]int, len(lines))
		for _, l := range lines {
			qtyByTicket[l.TicketID] += l.Quantity
		}
		ticketIDs := make([]uint64, 0, len(qtyByTicket))
		for tid := range qtyByTicket {
			ticketIDs = append(ticketIDs, tid)
		}
		sort.Slice(ticketIDs, func(i, j int) bool { return ticketIDs[i] < ticketIDs[j] })

		tickets := make(map[uint64]*model.Ticket, len(ticketIDs))
		for _, tid := range ticketIDs {
			t, err := c.s.Tickets.GetForUpdateTx(ctx, tx, tid)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("ticket %d: %w", tid, ErrTicketNotFound)
			}
			if err != nil {
				return err
			}
			if err := c.guard.checkCapacityTx(ctx, tx, t, qtyByTicket[tid]); err != nil {
				return err
			}
			tickets[tid] = t
		}

		now := c.now()
		o := &model.Order{
			CustomerID: customerID,
			BuyerName:  req.Buyer.Name,
			BuyerEmail: req.Buyer.Email,
			BuyerPhone: req.Buyer.Phone,
			Status:     model.OrderCreated,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		lineIDs := make([]uint64, 0, len(lines))
		for _, l := range lines {
			t := tickets[l.TicketID]
			sub := money.LineTotal(t.Price, l.Quantity)
			o.Items = append(o.Items, model.OrderItem{
				TicketID:   t.ID,
				SellerID:   t.SellerID,
				TicketName: t.Name,
				UnitPrice:  t.Price,
				Quantity:   l.Quantity,
				Subtotal:   sub,
				VisitDate:  l.VisitDate,
				Note:       l.Note,
				CreatedAt:  now,
			})
			o.Subtotal += sub
			lineIDs = append(lineIDs, l.ID)
		}
		o.PlatformFee = money.PlatformFee(o.Subtotal)
		o.GrandTotal = o.Subtotal + o.PlatformFee

		if o.OrderNumber, err = c.uniqueNumber(ctx, tx, now); err != nil {
			return err
		}
		if err := c.s.Orders.CreateTx(ctx, tx, o); err != nil {
			return err
		}
		if err := c.s.Carts.DeleteManyTx(ctx, tx, lineIDs); err != nil {
			return err
		}

		gctx, cancel := context.WithTimeout(ctx, c.cfg.GatewayTimeout)
		session, err := c.gw.CreateSession(gctx, sessionRequest(o))
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentSession, err)
		}
		if err := c.s.Orders.MarkAwaitingPaymentTx(ctx, tx, o.ID, session.Token, session.RedirectURL); err != nil {
			return err
		}
		o.Status = model.OrderAwaitingPayment
		o.PaymentSessionToken = &session.Token
		o.PaymentRedirectURL = &session.RedirectURL

		expires := now.Add(c.cfg.ReservationTTL)
		holds := make([]model.InventoryReservation, 0, len(ticketIDs))
		for _, tid := range ticketIDs {
			holds = append(holds, model.InventoryReservation{
				TicketID: tid, OrderID: o.ID, Quantity: qtyByTicket[tid], ExpiresAt: expires, CreatedAt: now,
			})
		}
		if err := c.s.Reservations.CreateMultipleTx(ctx, tx, holds); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		monitoring.TrackCheckout(checkoutResult(err), time.Since(start))
		logrus.WithError(err).WithField("customer_id", customerID).Warn("checkout failed")
		return nil, err
	}
	monitoring.TrackCheckout("ok", time.Since(start))
	logrus.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"customer_id":  customerID,
		"grand_total":  order.GrandTotal,
		"items":        len(order.Items),
	}).Info("order awaiting payment")
	return order, nil
}

// selectLines loads the identity's cart lines, restricted to ids when given.
func (c *CheckoutService) selectLines(ctx context.Context, tx *sql.Tx, id model.Identity, ids []uint64) ([]model.CartLine, error) {
	all, err := c.s.Carts.ListByOwnerTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if len(all) == 0 {
			return nil, invalid("cart", "cart is empty")
		}
		return all, nil
	}
	byID := make(map[uint64]model.CartLine, len(all))
	for _, l := range all {
		byID[l.ID] = l
	}
	seen := make(map[uint64]bool, len(ids))
	out := make([]model.CartLine, 0, len(ids))
	for _, lid := range ids {
		if seen[lid] {
			continue
		}
		seen[lid] = true
		l, ok := byID[lid]
		if !ok {
			return nil, fmt.Errorf("line %d: %w", lid, ErrCartLineNotFound)
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *CheckoutService) uniqueNumber(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		n := c.newNumber(now)
		exists, err := c.s.Orders.NumberExistsTx(ctx, tx, n)
		if err != nil {
			return "", err
		}
		if !exists {
			return n, nil
		}
	}
	return "", fmt.Errorf("could not allocate an order number after %d attempts", orderNumberAttempts)
}

func sessionRequest(o *model.Order) gateway.SessionRequest {
	req := gateway.SessionRequest{
		OrderNumber: o.OrderNumber,
		GrossAmount: o.GrandTotal,
		Customer:    gateway.Customer{Name: o.BuyerName, Email: o.BuyerEmail, Phone: o.BuyerPhone},
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, gateway.Item{
			ID: strconv.FormatUint(it.TicketID, 10), Name: it.TicketName, Price: it.UnitPrice, Quantity: it.Quantity,
		})
	}
	if o.PlatformFee != 0 {
		req.Items = append(req.Items, gateway.Item{
			ID: gateway.PlatformFeeItemID, Name: "Platform fee", Price: o.PlatformFee, Quantity: 1,
		})
	}
	return req
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrPaymentSession):
		return "gateway_error"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrCartLineNotFound),
		errors.Is(err, ErrTicketInactive), errors.Is(err, ErrTicketNotFound):
		return "rejected"
	}
	return "error"
}

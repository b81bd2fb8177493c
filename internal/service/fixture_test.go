package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

const (
	testSeller   uint64 = 100
	testCustomer uint64 = 7
	testAdmin    uint64 = 1
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memStore
	gw    *fakeGateway
	pub   *recordingPublisher
	now   time.Time

	guard       *InventoryGuard
	cart        *CartService
	checkout    *CheckoutService
	ledger      *Ledger
	recon       *ReconciliationService
	withdrawals *WithdrawalService
	orders      *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: newMemStore(),
		gw:    newFakeGateway(),
		pub:   &recordingPublisher{},
		now:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	s := f.store.stores()

	f.guard = NewInventoryGuard(s.Tickets, s.Reservations)
	f.cart = NewCartService(s, f.guard)
	f.cart.now = clock
	f.checkout = NewCheckoutService(s, f.guard, f.gw, CheckoutConfig{ReservationTTL: 30 * time.Minute})
	f.checkout.now = clock
	f.ledger = NewLedger(s, DefaultHoldingPeriod)
	f.recon = NewReconciliationService(s, f.ledger, f.gw, f.pub, 30*time.Minute)
	f.recon.now = clock
	f.withdrawals = NewWithdrawalService(s, f.pub)
	f.withdrawals.now = clock
	f.orders = NewOrderService(s)
	return f
}

func (f *fixture) ticket(price int64, available int) model.Ticket {
	return f.store.addTicket(model.Ticket{
		SellerID: testSeller, Name: "Borobudur Sunrise", Price: price,
		AvailableQuantity: available, IsActive: true,
	})
}

func (f *fixture) add(id model.Identity, ticketID uint64, qty int) *model.CartLine {
	f.t.Helper()
	l, err := f.cart.Add(f.ctx, id, AddItemInput{TicketID: ticketID, Quantity: qty})
	require.NoError(f.t, err)
	return l
}

func buyer() Buyer {
	return Buyer{Name: "Budi Santoso", Email: "budi@example.com", Phone: "+628123456789"}
}

// placeOrder puts qty units of a fresh ticket in the customer's cart and
// checks out.
func (f *fixture) placeOrder(price int64, available, qty int) (*model.Order, model.Ticket) {
	f.t.Helper()
	tk := f.ticket(price, available)
	customer := model.UserIdentity(testCustomer)
	f.add(customer, tk.ID, qty)
	o, err := f.checkout.Checkout(f.ctx, customer, CheckoutRequest{Buyer: buyer()})
	require.NoError(f.t, err)
	return o, tk
}

func (f *fixture) notify(number, txID string, status model.TransactionStatus, fraud string) (*ApplyResult, error) {
	return f.recon.Apply(f.ctx, Notification{
		OrderNumber:       number,
		TransactionID:     txID,
		TransactionStatus: status,
		FraudStatus:       fraud,
		Source:            model.SourceWebhook,
		Payload:           []byte(`{}`),
	})
}

func (f *fixture) order(number string) *model.Order {
	f.t.Helper()
	o, err := f.store.stores().Orders.GetByNumber(f.ctx, number)
	require.NoError(f.t, err)
	return o
}

package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  InTx runs
// transactions one at a time and restores a snapshot when fn fails, which
// is enough to observe the commit/rollback behaviour of the services.  Tx
// arguments are ignored.  Reads always see the latest state, like the
// locking reads the repositories issue inside a transaction.
//
// onTicketLock, when set, runs before GetForUpdateTx returns a ticket.  It
// stands in for another transaction that commits while the caller waits for
// that row lock.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	onTicketLock func(ticketID uint64)

	nextID       uint64
	tickets      map[uint64]model.Ticket
	reservations map[uint64]model.InventoryReservation
	carts        map[uint64]model.CartLine
	orders       map[uint64]model.Order
	events       []model.PaymentEvent
	earnings     map[uint64]model.SellerEarning
	withdrawals  map[uint64]model.WithdrawalRequest
}

type memSnapshot struct {
	nextID       uint64
	tickets      map[uint64]model.Ticket
	reservations map[uint64]model.InventoryReservation
	carts        map[uint64]model.CartLine
	orders       map[uint64]model.Order
	events       []model.PaymentEvent
	earnings     map[uint64]model.SellerEarning
	withdrawals  map[uint64]model.WithdrawalRequest
}

func newMemStore() *memStore {
	return &memStore{
		tickets:      map[uint64]model.Ticket{},
		reservations: map[uint64]model.InventoryReservation{},
		carts:        map[uint64]model.CartLine{},
		orders:       map[uint64]model.Order{},
		earnings:     map[uint64]model.SellerEarning{},
		withdrawals:  map[uint64]model.WithdrawalRequest{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Tx:           m,
		Tickets:      memTickets{m},
		Reservations: memReservations{m},
		Carts:        memCarts{m},
		Orders:       memOrders{m},
		Events:       memEvents{m},
		Earnings:     memEarnings{m},
		Withdrawals:  memWithdrawals{m},
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make(map[uint64]model.Order, len(m.orders))
	for k, o := range m.orders {
		o.Items = append([]model.OrderItem(nil), o.Items...)
		orders[k] = o
	}
	return memSnapshot{
		nextID:       m.nextID,
		tickets:      copyMap(m.tickets),
		reservations: copyMap(m.reservations),
		carts:        copyMap(m.carts),
		orders:       orders,
		events:       append([]model.PaymentEvent(nil), m.events...),
		earnings:     copyMap(m.earnings),
		withdrawals:  copyMap(m.withdrawals),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.tickets = s.tickets
	m.reservations = s.reservations
	m.carts = s.carts
	m.orders = s.orders
	m.events = s.events
	m.earnings = s.earnings
	m.withdrawals = s.withdrawals
}

func (m *memStore) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// seeding and inspection helpers

func (m *memStore) addTicket(t model.Ticket) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	}
	m.tickets[t.ID] = t
	return t
}

func (m *memStore) ticket(id uint64) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id]
}

func (m *memStore) addEarning(e model.SellerEarning) model.SellerEarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.earnings[e.ID] = e
	return e
}

func (m *memStore) earningsFor(orderID uint64) []model.SellerEarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SellerEarning
	for _, e := range m.earnings {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) earning(id uint64) model.SellerEarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.earnings[id]
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *memStore) reservationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memStore) cartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// reserve records a hold committed by some other order.
func (m *memStore) reserve(ticketID, orderID uint64, qty int, expires time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.reservations[id] = model.InventoryReservation{
		ID: id, TicketID: ticketID, OrderID: orderID, Quantity: qty, ExpiresAt: expires,
	}
}

func (m *memStore) expireReservations(orderID uint64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reservations {
		if r.OrderID == orderID {
			r.ExpiresAt = at
			m.reservations[id] = r
		}
	}
}

// tickets

type memTickets struct{ m *memStore }

func (s memTickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s memTickets) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (*model.Ticket, error) {
	if s.m.onTicketLock != nil {
		s.m.onTicketLock(id)
	}
	return s.GetByID(ctx, id)
}

func (s memTickets) IncrementSoldTx(_ context.Context, _ *sql.Tx, id uint64, qty int) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tickets[id]
	if !ok || t.AvailableQuantity-t.SoldQuantity < qty {
		return false, nil
	}
	t.SoldQuantity += qty
	s.m.tickets[id] = t
	return true, nil
}

// reservations

type memReservations struct{ m *memStore }

func (s memReservations) ReservedQuantity(_ context.Context, ticketID uint64) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, r := range s.m.reservations {
		if r.TicketID == ticketID {
			n += r.Quantity
		}
	}
	return n, nil
}

func (s memReservations) ReservedQuantityTx(ctx context.Context, _ *sql.Tx, ticketID uint64) (int, error) {
	return s.ReservedQuantity(ctx, ticketID)
}

func (s memReservations) CreateMultipleTx(_ context.Context, _ *sql.Tx, rs []model.InventoryReservation) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, r := range rs {
		r.ID = s.m.id()
		s.m.reservations[r.ID] = r
	}
	return nil
}

func (s memReservations) DeleteByOrderTx(_ context.Context, _ *sql.Tx, orderID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, r := range s.m.reservations {
		if r.OrderID == orderID {
			delete(s.m.reservations, id)
		}
	}
	return nil
}

func (s memReservations) ExtendTx(_ context.Context, _ *sql.Tx, orderID uint64, expiresAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, r := range s.m.reservations {
		if r.OrderID == orderID {
			r.ExpiresAt = expiresAt
			s.m.reservations[id] = r
		}
	}
	return nil
}

func (s memReservations) ExpiredOrderIDs(_ context.Context, now time.Time, limit int) ([]uint64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	seen := map[uint64]bool{}
	var ids []uint64
	for _, r := range s.m.reservations {
		if !r.ExpiresAt.After(now) && !seen[r.OrderID] {
			seen[r.OrderID] = true
			ids = append(ids, r.OrderID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// carts

type memCarts struct{ m *memStore }

func (s memCarts) GetByID(_ context.Context, id uint64) (*model.CartLine, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	l, ok := s.m.carts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (s memCarts) FindByTicket(_ context.Context, owner model.Identity, ticketID uint64) (*model.CartLine, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, l := range s.m.carts {
		if l.OwnedBy(owner) && l.TicketID == ticketID {
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memCarts) FindByTicketTx(ctx context.Context, _ *sql.Tx, owner model.Identity, ticketID uint64) (*model.CartLine, error) {
	return s.FindByTicket(ctx, owner, ticketID)
}

func (s memCarts) Create(_ context.Context, l *model.CartLine) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, other := range s.m.carts {
		if other.TicketID == l.TicketID && sameOwner(other, *l) {
			return repository.ErrDuplicate
		}
	}
	l.ID = s.m.id()
	s.m.carts[l.ID] = *l
	return nil
}

func sameOwner(a, b model.CartLine) bool {
	switch {
	case a.UserID != nil && b.UserID != nil:
		return *a.UserID == *b.UserID
	case a.SessionID != nil && b.SessionID != nil:
		return *a.SessionID == *b.SessionID
	}
	return false
}

func (s memCarts) Update(_ context.Context, l *model.CartLine) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.carts[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Quantity, cur.VisitDate, cur.Note = l.Quantity, l.VisitDate, l.Note
	s.m.carts[l.ID] = cur
	return nil
}

func (s memCarts) UpdateTx(ctx context.Context, _ *sql.Tx, l *model.CartLine) error {
	return s.Update(ctx, l)
}

func (s memCarts) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.carts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.m.carts, id)
	return nil
}

func (s memCarts) DeleteByOwner(_ context.Context, owner model.Identity) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, l := range s.m.carts {
		if l.OwnedBy(owner) {
			delete(s.m.carts, id)
			n++
		}
	}
	return n, nil
}

func (s memCarts) owned(owner model.Identity) []model.CartLine {
	var out []model.CartLine
	for _, l := range s.m.carts {
		if l.OwnedBy(owner) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s memCarts) ListViews(_ context.Context, owner model.Identity) ([]model.CartLineView, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var views []model.CartLineView
	for _, l := range s.owned(owner) {
		t := s.m.tickets[l.TicketID]
		views = append(views, model.CartLineView{
			CartLine: l, TicketName: t.Name, UnitPrice: t.Price, IsActive: t.IsActive,
		})
	}
	return views, nil
}

func (s memCarts) ListByOwnerTx(_ context.Context, _ *sql.Tx, owner model.Identity) ([]model.CartLine, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.owned(owner), nil
}

func (s memCarts) ReassignTx(_ context.Context, _ *sql.Tx, lineID uint64, owner model.Identity) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	l, ok := s.m.carts[lineID]
	if !ok {
		return repository.ErrNotFound
	}
	l.SetOwner(owner)
	s.m.carts[lineID] = l
	return nil
}

func (s memCarts) DeleteManyTx(_ context.Context, _ *sql.Tx, ids []uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		delete(s.m.carts, id)
	}
	return nil
}

// orders

type memOrders struct{ m *memStore }

func cloneOrder(o model.Order) *model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return &o
}

func (s memOrders) NumberExistsTx(_ context.Context, _ *sql.Tx, number string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, o := range s.m.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (s memOrders) CreateTx(_ context.Context, _ *sql.Tx, o *model.Order) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, other := range s.m.orders {
		if other.OrderNumber == o.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	o.ID = s.m.id()
	for i := range o.Items {
		o.Items[i].ID = s.m.id()
		o.Items[i].OrderID = o.ID
	}
	s.m.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (s memOrders) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, o := range s.m.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s memOrders) GetByNumberForUpdateTx(ctx context.Context, _ *sql.Tx, number string) (*model.Order, error) {
	return s.GetByNumber(ctx, number)
}

func (s memOrders) MarkAwaitingPaymentTx(_ context.Context, _ *sql.Tx, id uint64, token, redirectURL string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok || o.Status != model.OrderCreated {
		return repository.ErrConflict
	}
	o.Status = model.OrderAwaitingPayment
	o.PaymentSessionToken = &token
	o.PaymentRedirectURL = &redirectURL
	s.m.orders[id] = o
	return nil
}

func (s memOrders) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uint64, status model.OrderStatus, paidAt *time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	s.m.orders[id] = o
	return nil
}

func (s memOrders) ListByCustomer(_ context.Context, customerID uint64, limit, offset int) ([]model.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Order
	for _, o := range s.m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// payment events

type memEvents struct{ m *memStore }

func (s memEvents) InsertTx(_ context.Context, _ *sql.Tx, ev *model.PaymentEvent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, e := range s.m.events {
		if e.OrderNumber == ev.OrderNumber && e.TransactionID == ev.TransactionID &&
			e.TransactionStatus == ev.TransactionStatus && deref(e.FraudStatus) == deref(ev.FraudStatus) {
			return repository.ErrDuplicate
		}
	}
	ev.ID = s.m.id()
	s.m.events = append(s.m.events, *ev)
	return nil
}

func (s memEvents) ListByOrder(_ context.Context, orderID uint64) ([]model.PaymentEvent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.PaymentEvent
	for _, e := range s.m.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// earnings

type memEarnings struct{ m *memStore }

func (s memEarnings) CreateManyTx(_ context.Context, _ *sql.Tx, es []model.SellerEarning) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, e := range es {
		for _, cur := range s.m.earnings {
			if cur.OrderItemID == e.OrderItemID {
				return repository.ErrDuplicate
			}
		}
	}
	for _, e := range es {
		e.ID = s.m.id()
		s.m.earnings[e.ID] = e
	}
	return nil
}

func (s memEarnings) PromoteMatured(_ context.Context, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, e := range s.m.earnings {
		if e.Status == model.EarningPending && !e.AvailableAt.After(now) {
			e.Status = model.EarningAvailable
			s.m.earnings[id] = e
			n++
		}
	}
	return n, nil
}

func (s memEarnings) SumByStatus(_ context.Context, sellerID uint64) (map[model.EarningStatus]int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sums := map[model.EarningStatus]int64{}
	for _, e := range s.m.earnings {
		if e.SellerID == sellerID {
			sums[e.Status] += e.NetAmount
		}
	}
	return sums, nil
}

func sortOldestFirst(out []model.SellerEarning) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AvailableAt.Equal(out[j].AvailableAt) {
			return out[i].AvailableAt.Before(out[j].AvailableAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (s memEarnings) ListUnclaimedForUpdateTx(_ context.Context, _ *sql.Tx, sellerID uint64) ([]model.SellerEarning, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.SellerEarning
	for _, e := range s.m.earnings {
		if e.SellerID == sellerID && e.Status == model.EarningAvailable && e.WithdrawalID == nil {
			out = append(out, e)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s memEarnings) ListClaimedForUpdateTx(_ context.Context, _ *sql.Tx, withdrawalID uint64) ([]model.SellerEarning, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.SellerEarning
	for _, e := range s.m.earnings {
		if e.Status == model.EarningAvailable && e.WithdrawalID != nil && *e.WithdrawalID == withdrawalID {
			out = append(out, e)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s memEarnings) ClaimTx(_ context.Context, _ *sql.Tx, ids []uint64, withdrawalID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		e, ok := s.m.earnings[id]
		if !ok || e.Status != model.EarningAvailable || e.WithdrawalID != nil {
			return repository.ErrConflict
		}
		wid := withdrawalID
		e.WithdrawalID = &wid
		s.m.earnings[id] = e
	}
	return nil
}

func (s memEarnings) ReleaseTx(_ context.Context, _ *sql.Tx, withdrawalID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, e := range s.m.earnings {
		if e.Status == model.EarningAvailable && e.WithdrawalID != nil && *e.WithdrawalID == withdrawalID {
			e.WithdrawalID = nil
			s.m.earnings[id] = e
		}
	}
	return nil
}

func (s memEarnings) MarkWithdrawnTx(_ context.Context, _ *sql.Tx, ids []uint64, withdrawalID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		e, ok := s.m.earnings[id]
		if !ok || e.Status != model.EarningAvailable || e.WithdrawalID == nil || *e.WithdrawalID != withdrawalID {
			return repository.ErrConflict
		}
		e.Status = model.EarningWithdrawn
		s.m.earnings[id] = e
	}
	return nil
}

func (s memEarnings) ListBySeller(_ context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.SellerEarning
	for _, e := range s.m.earnings {
		if e.SellerID == sellerID && (status == nil || e.Status == *status) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// withdrawals

type memWithdrawals struct{ m *memStore }

func (s memWithdrawals) CreateTx(_ context.Context, _ *sql.Tx, w *model.WithdrawalRequest) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w.ID = s.m.id()
	s.m.withdrawals[w.ID] = *w
	return nil
}

func (s memWithdrawals) GetByID(_ context.Context, id uint64) (*model.WithdrawalRequest, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w, ok := s.m.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (s memWithdrawals) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (*model.WithdrawalRequest, error) {
	return s.GetByID(ctx, id)
}

func (s memWithdrawals) OutstandingTotal(_ context.Context, sellerID uint64) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var total int64
	for _, w := range s.m.withdrawals {
		if w.SellerID == sellerID && w.Status.Outstanding() {
			total += w.Amount
		}
	}
	return total, nil
}

func (s memWithdrawals) OutstandingTotalTx(ctx context.Context, _ *sql.Tx, sellerID uint64) (int64, error) {
	return s.OutstandingTotal(ctx, sellerID)
}

func (s memWithdrawals) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uint64, status model.WithdrawalStatus, adminID uint64, notes *string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w, ok := s.m.withdrawals[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Status = status
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	if notes != nil {
		w.AdminNotes = notes
	}
	s.m.withdrawals[id] = w
	return nil
}

func (s memWithdrawals) ListBySeller(_ context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.WithdrawalRequest
	for _, w := range s.m.withdrawals {
		if w.SellerID == sellerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (s memWithdrawals) List(_ context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.WithdrawalRequest
	for _, w := range s.m.withdrawals {
		if status == nil || w.Status == *status {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if len(in) > limit {
		in = in[:limit]
	}
	return in
}

// fakeGateway records calls and answers from canned values.

type fakeGateway struct {
	mu         sync.Mutex
	sessions   []gateway.SessionRequest
	createErr  error
	statuses   map[string]*gateway.TransactionStatus
	queryErr   error
	queryCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: map[string]*gateway.TransactionStatus{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessions = append(g.sessions, req)
	return &gateway.Session{Token: "tok-" + req.OrderNumber, RedirectURL: "https://pay.test/" + req.OrderNumber}, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, orderNumber string) (*gateway.TransactionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	st, ok := g.statuses[orderNumber]
	if !ok {
		return nil, gateway.ErrTransactionNotFound
	}
	cp := *st
	return &cp, nil
}

func (g *fakeGateway) setStatus(orderNumber, txID, status, fraud string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[orderNumber] = &gateway.TransactionStatus{
		OrderID: orderNumber, TransactionID: txID, TransactionStatus: status, FraudStatus: fraud, StatusCode: "200",
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	key string
	v   any
}

func (p *recordingPublisher) Publish(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key, v})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.key
	}
	return out
}

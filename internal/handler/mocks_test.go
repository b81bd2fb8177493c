package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
)

type mockCart struct{ mock.Mock }

func (m *mockCart) Add(ctx context.Context, id model.Identity, in service.AddItemInput) (*model.CartLine, error) {
	args := m.Called(ctx, id, in)
	l, _ := args.Get(0).(*model.CartLine)
	return l, args.Error(1)
}

func (m *mockCart) Update(ctx context.Context, id model.Identity, lineID uint64, in service.UpdateItemInput) (*model.CartLine, error) {
	args := m.Called(ctx, id, lineID, in)
	l, _ := args.Get(0).(*model.CartLine)
	return l, args.Error(1)
}

func (m *mockCart) Remove(ctx context.Context, id model.Identity, lineID uint64) error {
	return m.Called(ctx, id, lineID).Error(0)
}

func (m *mockCart) Clear(ctx context.Context, id model.Identity) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCart) Summarize(ctx context.Context, id model.Identity) (*model.CartSummary, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.CartSummary)
	return s, args.Error(1)
}

func (m *mockCart) Adopt(ctx context.Context, token string, userID uint64) (*service.AdoptResult, error) {
	args := m.Called(ctx, token, userID)
	r, _ := args.Get(0).(*service.AdoptResult)
	return r, args.Error(1)
}

type mockInventory struct{ mock.Mock }

func (m *mockInventory) Availability(ctx context.Context, ticketID uint64) (*service.Availability, error) {
	args := m.Called(ctx, ticketID)
	a, _ := args.Get(0).(*service.Availability)
	return a, args.Error(1)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) Checkout(ctx context.Context, id model.Identity, req service.CheckoutRequest) (*model.Order, error) {
	args := m.Called(ctx, id, req)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) Get(ctx context.Context, actor model.Actor, number string) (*service.OrderDetail, error) {
	args := m.Called(ctx, actor, number)
	d, _ := args.Get(0).(*service.OrderDetail)
	return d, args.Error(1)
}

func (m *mockOrders) ListForCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, customerID, limit, offset)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

type mockRecon struct{ mock.Mock }

func (m *mockRecon) Apply(ctx context.Context, n service.Notification) (*service.ApplyResult, error) {
	args := m.Called(ctx, n)
	r, _ := args.Get(0).(*service.ApplyResult)
	return r, args.Error(1)
}

func (m *mockRecon) HandleReturn(ctx context.Context, number string) (*service.ReturnResult, error) {
	args := m.Called(ctx, number)
	r, _ := args.Get(0).(*service.ReturnResult)
	return r, args.Error(1)
}

func (m *mockRecon) ReconcileOrder(ctx context.Context, number string, source model.EventSource) (*service.ApplyResult, error) {
	args := m.Called(ctx, number, source)
	r, _ := args.Get(0).(*service.ApplyResult)
	return r, args.Error(1)
}

type mockVerifier struct{ ok bool }

func (v mockVerifier) VerifySignature(_, _, _, _ string) bool { return v.ok }

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Balance(ctx context.Context, sellerID uint64) (*model.SellerBalance, error) {
	args := m.Called(ctx, sellerID)
	b, _ := args.Get(0).(*model.SellerBalance)
	return b, args.Error(1)
}

func (m *mockLedger) ListEarnings(ctx context.Context, sellerID uint64, status *model.EarningStatus, limit, offset int) ([]model.SellerEarning, error) {
	args := m.Called(ctx, sellerID, status, limit, offset)
	es, _ := args.Get(0).([]model.SellerEarning)
	return es, args.Error(1)
}

type mockWithdrawals struct{ mock.Mock }

func (m *mockWithdrawals) Request(ctx context.Context, sellerID uint64, amount int64, bank model.BankAccount) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, sellerID, amount, bank)
	w, _ := args.Get(0).(*model.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) Approve(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, adminID, id, notes)
	w, _ := args.Get(0).(*model.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) Reject(ctx context.Context, adminID, id uint64, notes *string) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, adminID, id, notes)
	w, _ := args.Get(0).(*model.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) Complete(ctx context.Context, adminID, id uint64) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, adminID, id)
	w, _ := args.Get(0).(*model.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) Get(ctx context.Context, id uint64) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*model.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) ListBySeller(ctx context.Context, sellerID uint64, limit, offset int) ([]model.WithdrawalRequest, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	ws, _ := args.Get(0).([]model.WithdrawalRequest)
	return ws, args.Error(1)
}

func (m *mockWithdrawals) List(ctx context.Context, status *model.WithdrawalStatus, limit, offset int) ([]model.WithdrawalRequest, error) {
	args := m.Called(ctx, status, limit, offset)
	ws, _ := args.Get(0).([]model.WithdrawalRequest)
	return ws, args.Error(1)
}

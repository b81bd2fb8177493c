package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

func (f *fixture) earning(net int64, status model.EarningStatus, availableAt time.Time) model.SellerEarning {
	return f.store.addEarning(model.SellerEarning{
		SellerID: testSeller, GrossAmount: net, NetAmount: net, Status: status, AvailableAt: availableAt,
	})
}

func TestLedger_PromoteMatured(t *testing.T) {
	f := newFixture(t)
	due := f.earning(1000, model.EarningPending, f.now.Add(-time.Minute))
	exact := f.earning(2000, model.EarningPending, f.now)
	later := f.earning(3000, model.EarningPending, f.now.Add(time.Hour))

	n, err := f.ledger.PromoteMatured(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, model.EarningAvailable, f.store.earning(due.ID).Status)
	assert.Equal(t, model.EarningAvailable, f.store.earning(exact.ID).Status)
	assert.Equal(t, model.EarningPending, f.store.earning(later.ID).Status)

	n, err = f.ledger.PromoteMatured(f.ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedger_Balance(t *testing.T) {
	f := newFixture(t)
	f.earning(1000, model.EarningPending, f.now.Add(time.Hour))
	f.earning(20000, model.EarningAvailable, f.now)
	f.earning(30000, model.EarningAvailable, f.now)
	f.earning(400, model.EarningWithdrawn, f.now)

	_, err := f.withdrawals.Request(f.ctx, testSeller, 20000, bank())
	require.NoError(t, err)

	b, err := f.ledger.Balance(f.ctx, testSeller)
	require.NoError(t, err)
	assert.Equal(t, model.SellerBalance{
		SellerID: testSeller, Pending: 1000, Available: 50000, Withdrawn: 400,
		Outstanding: 20000, Withdrawable: 30000,
	}, *b)

	empty, err := f.ledger.Balance(f.ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, empty.Withdrawable)
}

func TestLedger_SettleRejectsInconsistentOrders(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Settle(f.ctx, nil, &model.Order{ID: 1, OrderNumber: "ORD-X"}, f.now)
	assert.ErrorIs(t, err, ErrLedgerConsistency)

	o := &model.Order{
		ID: 2, OrderNumber: "ORD-Y", Subtotal: 999,
		Items: []model.OrderItem{{ID: 10, SellerID: testSeller, Subtotal: 1000}},
	}
	_, err = f.ledger.Settle(f.ctx, nil, o, f.now)
	assert.ErrorIs(t, err, ErrLedgerConsistency)

	o.Subtotal = 1000
	es, err := f.ledger.Settle(f.ctx, nil, o, f.now)
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, int64(50), es[0].PlatformFeeShare)
	assert.Equal(t, int64(950), es[0].NetAmount)

	_, err = f.ledger.Settle(f.ctx, nil, o, f.now)
	assert.ErrorIs(t, err, ErrLedgerConsistency, "second settlement of the same item")
}

func TestLedger_ListEarnings(t *testing.T) {
	f := newFixture(t)
	f.earning(1000, model.EarningPending, f.now)
	f.earning(2000, model.EarningAvailable, f.now)

	all, err := f.ledger.ListEarnings(f.ctx, testSeller, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	st := model.EarningAvailable
	avail, err := f.ledger.ListEarnings(f.ctx, testSeller, &st, 10, 0)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, int64(2000), avail[0].NetAmount)

	bad := model.EarningStatus("LOST")
	_, err = f.ledger.ListEarnings(f.ctx, testSeller, &bad, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 50, clampLimit(-3))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, 200, clampLimit(1000))
}

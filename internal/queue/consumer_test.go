package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuditLine_OrderPaid(t *testing.T) {
	body, _ := json.Marshal(OrderPaidEvent{
		OrderNumber: "ORD-20240101-ABCDEF12",
		CustomerID:  7,
		Subtotal:    200000,
		PlatformFee: 10000,
		GrandTotal:  210000,
		Items:       []OrderPaidItem{{TicketID: 1, Quantity: 2}},
		Earnings:    []SellerEarningLine{{SellerID: 3, NetAmount: 190000}},
		PaidAt:      "2024-01-01T10:00:00Z",
	})
	line, err := FormatAuditLine(OrderPaidKey, body)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-01-01T10:00:00Z] Order paid | order=ORD-20240101-ABCDEF12 | customer_id=7 | subtotal=200000 | fee=10000 | total=210000 | items=1 | earnings=1 | tx=\n",
		line)
}

func TestFormatAuditLine_Withdrawal(t *testing.T) {
	body, _ := json.Marshal(WithdrawalCompletedEvent{
		WithdrawalID: 5, SellerID: 3, Amount: 50000, EarningIDs: []uint64{1, 2}, ProcessedBy: 9,
		CompletedAt: "2024-01-05T00:00:00Z",
	})
	line, err := FormatAuditLine(WithdrawalCompletedKey, body)
	require.NoError(t, err)
	assert.Contains(t, line, "withdrawal_id=5 | seller_id=3 | amount=50000 | earnings=[1 2] | admin_id=9")
}

func TestFormatAuditLine_Errors(t *testing.T) {
	_, err := FormatAuditLine("booking.confirmed", []byte(`{}`))
	assert.Error(t, err)
	_, err = FormatAuditLine(OrderPaidKey, []byte(`not json`))
	assert.Error(t, err)
}

func TestAuditConsumer_HandleAppends(t *testing.T) {
	dir := t.TempDir()
	c := NewAuditConsumer("", dir)
	body, _ := json.Marshal(OrderPaidEvent{OrderNumber: "ORD-1"})

	require.NoError(t, c.handle(OrderPaidKey, body))
	require.NoError(t, c.handle(OrderPaidKey, body))

	data, err := os.ReadFile(filepath.Join(dir, "ledger.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

package handler

import (
	"time"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// dateLayout is the wire format of visit dates.
const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type cartLineResponse struct {
	ID         uint64  `json:"id"`
	TicketID   uint64  `json:"ticket_id"`
	TicketName string  `json:"ticket_name,omitempty"`
	UnitPrice  int64   `json:"unit_price,omitempty"`
	Quantity   int     `json:"quantity"`
	Subtotal   int64   `json:"subtotal,omitempty"`
	VisitDate  *string `json:"visit_date"`
	Note       *string `json:"note"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

func newCartLine(l *model.CartLine) cartLineResponse {
	return cartLineResponse{
		ID: l.ID, TicketID: l.TicketID, Quantity: l.Quantity,
		VisitDate: formatDate(l.VisitDate), Note: l.Note,
	}
}

type cartResponse struct {
	Lines       []cartLineResponse `json:"lines"`
	TotalQty    int                `json:"total_quantity"`
	TotalAmount int64              `json:"total_amount"`
}

func newCart(s *model.CartSummary) cartResponse {
	out := cartResponse{Lines: make([]cartLineResponse, 0, len(s.Lines)), TotalQty: s.TotalQty, TotalAmount: s.TotalAmount}
	for _, v := range s.Lines {
		r := newCartLine(&v.CartLine)
		r.TicketName, r.UnitPrice, r.Subtotal = v.TicketName, v.UnitPrice, v.Subtotal
		active := v.IsActive
		r.IsActive = &active
		out.Lines = append(out.Lines, r)
	}
	return out
}

type orderItemResponse struct {
	TicketID   uint64  `json:"ticket_id"`
	SellerID   uint64  `json:"seller_id"`
	TicketName string  `json:"ticket_name"`
	UnitPrice  int64   `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	Subtotal   int64   `json:"subtotal"`
	VisitDate  *string `json:"visit_date"`
	Note       *string `json:"note"`
}

type paymentEventResponse struct {
	TransactionID     string  `json:"transaction_id"`
	TransactionStatus string  `json:"transaction_status"`
	FraudStatus       *string `json:"fraud_status"`
	PaymentType       *string `json:"payment_type"`
	Source            string  `json:"source"`
	Outcome           string  `json:"outcome"`
	ReceivedAt        string  `json:"received_at"`
}

type orderResponse struct {
	OrderNumber string                 `json:"order_number"`
	Status      model.OrderStatus      `json:"status"`
	BuyerName   string                 `json:"buyer_name"`
	BuyerEmail  string                 `json:"buyer_email"`
	BuyerPhone  string                 `json:"buyer_phone,omitempty"`
	Subtotal    int64                  `json:"subtotal"`
	PlatformFee int64                  `json:"platform_fee"`
	GrandTotal  int64                  `json:"grand_total"`
	Token       *string                `json:"payment_token,omitempty"`
	RedirectURL *string                `json:"redirect_url,omitempty"`
	PaidAt      *string                `json:"paid_at"`
	CreatedAt   string                 `json:"created_at"`
	Items       []orderItemResponse    `json:"items"`
	Events      []paymentEventResponse `json:"payment_events,omitempty"`
}

func rfc3339(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func newOrder(o *model.Order) orderResponse {
	r := orderResponse{
		OrderNumber: o.OrderNumber, Status: o.Status,
		BuyerName: o.BuyerName, BuyerEmail: o.BuyerEmail, BuyerPhone: o.BuyerPhone,
		Subtotal: o.Subtotal, PlatformFee: o.PlatformFee, GrandTotal: o.GrandTotal,
		CreatedAt: rfc3339(o.CreatedAt),
		Items:     make([]orderItemResponse, 0, len(o.Items)),
	}
	if !o.Status.Terminal() {
		r.Token, r.RedirectURL = o.PaymentSessionToken, o.PaymentRedirectURL
	}
	if o.PaidAt != nil {
		s := rfc3339(*o.PaidAt)
		r.PaidAt = &s
	}
	for _, it := range o.Items {
		r.Items = append(r.Items, orderItemResponse{
			TicketID: it.TicketID, SellerID: it.SellerID, TicketName: it.TicketName,
			UnitPrice: it.UnitPrice, Quantity: it.Quantity, Subtotal: it.Subtotal,
			VisitDate: formatDate(it.VisitDate), Note: it.Note,
		})
	}
	return r
}

func withEvents(r orderResponse, evs []model.PaymentEvent) orderResponse {
	for _, e := range evs {
		r.Events = append(r.Events, paymentEventResponse{
			TransactionID: e.TransactionID, TransactionStatus: string(e.TransactionStatus),
			FraudStatus: e.FraudStatus, PaymentType: e.PaymentType,
			Source: string(e.Source), Outcome: string(e.Outcome), ReceivedAt: rfc3339(e.ReceivedAt),
		})
	}
	return r
}

type earningResponse struct {
	ID               uint64              `json:"id"`
	OrderID          uint64              `json:"order_id"`
	OrderItemID      uint64              `json:"order_item_id"`
	GrossAmount      int64               `json:"gross_amount"`
	PlatformFeeShare int64               `json:"platform_fee_share"`
	NetAmount        int64               `json:"net_amount"`
	Status           model.EarningStatus `json:"status"`
	AvailableAt      string              `json:"available_at"`
	WithdrawalID     *uint64             `json:"withdrawal_id"`
}

func newEarnings(es []model.SellerEarning) []earningResponse {
	out := make([]earningResponse, 0, len(es))
	for _, e := range es {
		out = append(out, earningResponse{
			ID: e.ID, OrderID: e.OrderID, OrderItemID: e.OrderItemID,
			GrossAmount: e.GrossAmount, PlatformFeeShare: e.PlatformFeeShare, NetAmount: e.NetAmount,
			Status: e.Status, AvailableAt: rfc3339(e.AvailableAt), WithdrawalID: e.WithdrawalID,
		})
	}
	return out
}

type balanceResponse struct {
	Pending      int64 `json:"pending"`
	Available    int64 `json:"available"`
	Withdrawn    int64 `json:"withdrawn"`
	Outstanding  int64 `json:"outstanding_withdrawals"`
	Withdrawable int64 `json:"withdrawable"`
}

type bankBody struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

type withdrawalResponse struct {
	ID          uint64                 `json:"id"`
	SellerID    uint64                 `json:"seller_id"`
	Amount      int64                  `json:"amount"`
	Bank        bankBody               `json:"bank"`
	Status      model.WithdrawalStatus `json:"status"`
	AdminNotes  *string                `json:"admin_notes"`
	RequestedAt string                 `json:"requested_at"`
	ProcessedAt *string                `json:"processed_at"`
	ProcessedBy *uint64                `json:"processed_by"`
}

func newWithdrawal(w *model.WithdrawalRequest) withdrawalResponse {
	r := withdrawalResponse{
		ID: w.ID, SellerID: w.SellerID, Amount: w.Amount,
		Bank:   bankBody{BankName: w.Bank.BankName, AccountNumber: w.Bank.AccountNumber, AccountHolder: w.Bank.AccountHolder},
		Status: w.Status, AdminNotes: w.AdminNotes, RequestedAt: rfc3339(w.RequestedAt), ProcessedBy: w.ProcessedBy,
	}
	if w.ProcessedAt != nil {
		s := rfc3339(*w.ProcessedAt)
		r.ProcessedAt = &s
	}
	return r
}

func newWithdrawals(ws []model.WithdrawalRequest) []withdrawalResponse {
	out := make([]withdrawalResponse, 0, len(ws))
	for i := range ws {
		out = append(out, newWithdrawal(&ws[i]))
	}
	return out
}

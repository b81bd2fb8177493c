package gateway

import "errors"

var (
	// ErrTransactionNotFound is returned by QueryStatus when the gateway has
	// no transaction for the order, typically because the buyer never
	// opened the payment page.
	ErrTransactionNotFound = errors.New("gateway: transaction not found")
	// ErrUnavailable wraps transport failures and 5xx responses.
	ErrUnavailable = errors.New("gateway: unavailable")
	// ErrRejected wraps 4xx responses other than not-found.
	ErrRejected = errors.New("gateway: request rejected")
)

// PlatformFeeItemID is the item id used for the platform fee line.
const PlatformFeeItemID = "PLATFORM_FEE"

// Customer is the buyer's contact details.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Item is one line sent to the payment page.
type Item struct {
	ID       string
	Name     string
	Price    int64
	Quantity int
}

// SessionRequest describes the checkout session to open.  OrderNumber is
// also the idempotency key.
type SessionRequest struct {
	OrderNumber string
	GrossAmount int64
	Customer    Customer
	Items       []Item
}

// Session is a payment page the buyer is redirected to.
type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// TransactionStatus is the gateway's view of an order's payment.
type TransactionStatus struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	StatusMessage     string `json:"status_message"`
	SignatureKey      string `json:"signature_key,omitempty"`
}

// Notification is the webhook body posted by the gateway.  It carries the
// same fields as a status response plus the signature.
type Notification = TransactionStatus

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer_details"`
	ItemDetails []snapItem `json:"item_details"`
	Callbacks   struct {
		Finish   string `json:"finish,omitempty"`
		Unfinish string `json:"unfinish,omitempty"`
		Error    string `json:"error,omitempty"`
	} `json:"callbacks"`
}

type snapItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type errorBody struct {
	StatusCode    string   `json:"status_code"`
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}

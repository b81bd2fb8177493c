// Package gateway talks to a Midtrans-style payment gateway: Snap for
// opening checkout sessions and the v2 status API for querying payments.
package gateway

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/monitoring"
)

// Config holds the gateway endpoints and credentials.
type Config struct {
	ServerKey   string
	SnapURL     string // e.g. https://app.sandbox.midtrans.com/snap/v1/transactions
	APIURL      string // e.g. https://api.sandbox.midtrans.com
	Timeout     time.Duration
	FinishURL   string
	UnfinishURL string
	ErrorURL    string
}

// SessionCache remembers the session opened for an order so that a retried
// checkout does not open a second payment page.
type SessionCache interface {
	Get(ctx context.Context, orderNumber string) (*Session, error)
	Set(ctx context.Context, orderNumber string, s *Session) error
}

// Client is the payment gateway client.
type Client struct {
	// cfg holds endpoints and credentials.
	cfg Config

	// cache may be nil.
	cache SessionCache

	// hc is the http client.
	hc *http.Client
}

// NewClient creates a gateway client.  cache may be nil.
func NewClient(cfg Config, cache SessionCache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:   cfg,
		cache: cache,
		hc:    &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateSession opens a checkout session for the order.  A cached session
// for the same order number is returned without calling the gateway.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c.cache != nil {
		if s, err := c.cache.Get(ctx, req.OrderNumber); err == nil && s != nil {
			return s, nil
		} else if err != nil {
			logrus.WithError(err).WithField("order_number", req.OrderNumber).Warn("session cache lookup failed")
		}
	}

	var body snapRequest
	body.TransactionDetails.OrderID = req.OrderNumber
	body.TransactionDetails.GrossAmount = req.GrossAmount
	body.CustomerDetails.FirstName = req.Customer.Name
	body.CustomerDetails.Email = req.Customer.Email
	body.CustomerDetails.Phone = req.Customer.Phone
	body.Callbacks.Finish = c.cfg.FinishURL
	body.Callbacks.Unfinish = c.cfg.UnfinishURL
	body.Callbacks.Error = c.cfg.ErrorURL
	body.ItemDetails = make([]snapItem, 0, len(req.Items))
	for _, it := range req.Items {
		body.ItemDetails = append(body.ItemDetails, snapItem{
			ID: it.ID, Name: truncate(it.Name, 50), Price: it.Price, Quantity: it.Quantity,
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway.CreateSession: json.Marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SnapURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway.CreateSession: http.NewRequest: %w", err)
	}
	httpReq.Header.Set("X-Idempotency-Key", req.OrderNumber)

	var s Session
	if err := c.do(httpReq, "create_session", &s); err != nil {
		return nil, fmt.Errorf("gateway.CreateSession: %w", err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("gateway.CreateSession: %w: empty token", ErrUnavailable)
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, req.OrderNumber, &s); err != nil {
			logrus.WithError(err).WithField("order_number", req.OrderNumber).Warn("session cache store failed")
		}
	}
	return &s, nil
}

// QueryStatus fetches the gateway's current status for the order.
func (c *Client) QueryStatus(ctx context.Context, orderNumber string) (*TransactionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	u := strings.TrimRight(c.cfg.APIURL, "/") + "/v2/" + url.PathEscape(orderNumber) + "/status"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway.QueryStatus: http.NewRequest: %w", err)
	}
	var st TransactionStatus
	if err := c.do(httpReq, "query_status", &st); err != nil {
		return nil, fmt.Errorf("gateway.QueryStatus: %w", err)
	}
	// The status API answers some errors with HTTP 200 and the real code in
	// the body.
	switch st.StatusCode {
	case "404":
		return nil, fmt.Errorf("gateway.QueryStatus: %w", ErrTransactionNotFound)
	case "", "200", "201", "202", "407":
	default:
		if strings.HasPrefix(st.StatusCode, "5") {
			return nil, fmt.Errorf("gateway.QueryStatus: %w: %s %s", ErrUnavailable, st.StatusCode, st.StatusMessage)
		}
		if st.TransactionStatus == "" {
			return nil, fmt.Errorf("gateway.QueryStatus: %w: %s %s", ErrRejected, st.StatusCode, st.StatusMessage)
		}
	}
	return &st, nil
}

// VerifySignature checks a notification signature:
// hex(SHA-512(order_id + status_code + gross_amount + server_key)).
func (c *Client) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	expected := Signature(orderID, statusCode, grossAmount, c.cfg.ServerKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// SignatureEnabled reports whether a server key is configured.
func (c *Client) SignatureEnabled() bool { return c.cfg.ServerKey != "" }

// Signature computes the notification signature for the given fields.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// do sends the request with auth headers, maps the HTTP status onto the
// package errors and decodes a successful body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	req.SetBasicAuth(c.cfg.ServerKey, "")
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		monitoring.TrackGatewayCall(op, "error", time.Since(start))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	monitoring.TrackGatewayCall(op, fmt.Sprint(resp.StatusCode), time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrTransactionNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.StatusMessage
		if len(eb.ErrorMessages) > 0 {
			msg = strings.Join(eb.ErrorMessages, "; ")
		}
		return fmt.Errorf("%w: http %d: %s", ErrRejected, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRetryable reports whether err is a transient gateway failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

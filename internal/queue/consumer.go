package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditConsumer listens to the ledger queues and appends one line per event
// to <dir>/ledger.log.
type AuditConsumer struct {
	url string
	dir string
}

func NewAuditConsumer(url, dir string) *AuditConsumer {
	if url == "" {
		url = DefaultURL
	}
	if dir == "" {
		dir = "logs"
	}
	return &AuditConsumer{url: url, dir: dir}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.
func (c *AuditConsumer) Run(ctx context.Context) error {
	log := logrus.WithField("component", "audit-consumer")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logrus.WithError(err).Warn("audit-consumer: set QoS failed")
	}

	deliveries := make(chan amqp.Delivery)
	for _, q := range []string{OrderPaidKey, WithdrawalCompletedKey} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-deliveries:
			if err := c.handle(d.RoutingKey, d.Body); err != nil {
				logrus.WithError(err).WithField("routing_key", d.RoutingKey).Error("audit-consumer: handle message failed")
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handle(routingKey string, body []byte) error {
	line, err := FormatAuditLine(routingKey, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "ledger.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders an event as a single human-friendly log line.
func FormatAuditLine(routingKey string, body []byte) (string, error) {
	switch routingKey {
	case OrderPaidKey:
		var ev OrderPaidEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Order paid | order=%s | customer_id=%d | subtotal=%d | fee=%d | total=%d | items=%d | earnings=%d | tx=%s\n",
			ev.PaidAt, ev.OrderNumber, ev.CustomerID, ev.Subtotal, ev.PlatformFee, ev.GrandTotal,
			len(ev.Items), len(ev.Earnings), ev.TransactionID), nil
	case WithdrawalCompletedKey:
		var ev WithdrawalCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Withdrawal completed | withdrawal_id=%d | seller_id=%d | amount=%d | earnings=%v | admin_id=%d\n",
			ev.CompletedAt, ev.WithdrawalID, ev.SellerID, ev.Amount, ev.EarningIDs, ev.ProcessedBy), nil
	}
	return "", fmt.Errorf("unknown routing key %q", routingKey)
}

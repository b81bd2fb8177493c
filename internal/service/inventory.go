package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// Availability is the capacity picture of one ticket.
type Availability struct {
	TicketID  uint64 `json:"ticket_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Available int    `json:"available_quantity"`
	Sold      int    `json:"sold_quantity"`
	Reserved  int    `json:"reserved_quantity"`
	Remaining int    `json:"remaining"`
	IsActive  bool   `json:"is_active"`
}

// InventoryGuard authorises quantity changes against ticket capacity.
// Remaining capacity is available - sold - reserved, where reserved counts
// every inventory reservation held by an unresolved order.
type InventoryGuard struct {
	tickets      TicketStore
	reservations ReservationStore
}

func NewInventoryGuard(tickets TicketStore, reservations ReservationStore) *InventoryGuard {
	return &InventoryGuard{tickets: tickets, reservations: reservations}
}

// Ticket loads a ticket, mapping a missing row to ErrTicketNotFound.
func (g *InventoryGuard) Ticket(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := g.tickets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// Availability reports the ticket's current capacity.  The figures are
// advisory: nothing is locked.
func (g *InventoryGuard) Availability(ctx context.Context, ticketID uint64) (*Availability, error) {
	t, err := g.Ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	reserved, err := g.reservations.ReservedQuantity(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Availability{
		TicketID:  t.ID,
		Name:      t.Name,
		Price:     t.Price,
		Available: t.AvailableQuantity,
		Sold:      t.SoldQuantity,
		Reserved:  reserved,
		Remaining: t.Remaining(reserved),
		IsActive:  t.IsActive,
	}, nil
}

// CheckCapacity verifies that requestedTotal units of t could be sold now.
// requestedTotal is the total the caller would hold afterwards, not the
// delta.  The check is advisory; checkout repeats it under a row lock.
func (g *InventoryGuard) CheckCapacity(ctx context.Context, t *model.Ticket, requestedTotal int) error {
	if !t.IsActive {
		return ErrTicketInactive
	}
	reserved, err := g.reservations.ReservedQuantity(ctx, t.ID)
	if err != nil {
		return err
	}
	return capacityError(t, reserved, requestedTotal)
}

// checkCapacityTx is the authoritative check.  The caller must already hold
// the ticket row lock in tx.
func (g *InventoryGuard) checkCapacityTx(ctx context.Context, tx *sql.Tx, t *model.Ticket, requestedTotal int) error {
	if !t.IsActive {
		return fmt.Errorf("ticket %d: %w", t.ID, ErrTicketInactive)
	}
	reserved, err := g.reservations.ReservedQuantityTx(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	return capacityError(t, reserved, requestedTotal)
}

func capacityError(t *model.Ticket, reserved, requestedTotal int) error {
	if remaining := t.Remaining(reserved); requestedTotal > remaining {
		return fmt.Errorf("ticket %d: requested %d, remaining %d: %w", t.ID, requestedTotal, remaining, ErrOutOfStock)
	}
	return nil
}

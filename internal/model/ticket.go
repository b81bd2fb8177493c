package model

import "time"

// Ticket is the slice of the catalog the checkout core consumes.  The rest of
// the catalog (descriptions, images, sites) is owned elsewhere.
//
// Fields:
//  ID                – tickets.id
//  SellerID          – seller who receives earnings for this ticket.
//  Name              – display name, frozen into order items.
//  Price             – unit price in whole currency units.
//  AvailableQuantity – total capacity offered for sale.
//  SoldQuantity      – units on Paid orders.  Never exceeds AvailableQuantity.
//  IsActive          – inactive tickets cannot be added or checked out.
type Ticket struct {
	ID                uint64
	SellerID          uint64
	Name              string
	Price             int64
	AvailableQuantity int
	SoldQuantity      int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Remaining returns the capacity left after sold units and the given number
// of reserved units.  It never returns a negative value.
func (t Ticket) Remaining(reserved int) int {
	n := t.AvailableQuantity - t.SoldQuantity - reserved
	if n < 0 {
		return 0
	}
	return n
}

// InventoryReservation holds capacity for an order awaiting payment.  It is
// deleted when the order is paid (the quantity moves into SoldQuantity) or
// fails.  ExpiresAt schedules a gateway status check; the hold is counted
// against capacity until the order resolves.
type InventoryReservation struct {
	ID        uint64
	TicketID  uint64
	OrderID   uint64
	Quantity  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

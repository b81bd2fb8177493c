package model

import "time"

// CartLine is one ticket in a cart.  Exactly one of UserID and SessionID is
// set, matching the Identity that owns the line.
type CartLine struct {
	ID        uint64
	UserID    *uint64
	SessionID *string
	TicketID  uint64
	Quantity  int
	VisitDate *time.Time
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether the line belongs to the identity.
func (l CartLine) OwnedBy(id Identity) bool {
	if uid, ok := id.UserID(); ok {
		return l.UserID != nil && *l.UserID == uid && l.SessionID == nil
	}
	if tok, ok := id.SessionToken(); ok {
		return l.SessionID != nil && *l.SessionID == tok && l.UserID == nil
	}
	return false
}

// SetOwner stamps the identity on the line, clearing the other half.
func (l *CartLine) SetOwner(id Identity) {
	l.UserID, l.SessionID = nil, nil
	if uid, ok := id.UserID(); ok {
		l.UserID = &uid
	} else if tok, ok := id.SessionToken(); ok {
		l.SessionID = &tok
	}
}

// CartLineView is a cart line priced against the current catalog.
type CartLineView struct {
	CartLine
	TicketName string
	UnitPrice  int64
	Subtotal   int64
	IsActive   bool
}

// CartSummary is the result of summarising an identity's cart.
type CartSummary struct {
	Lines       []CartLineView
	TotalQty    int
	TotalAmount int64
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// MaxNoteLength bounds the free-text note on a cart line, in characters.
const MaxNoteLength = 500

// AddItemInput describes a ticket being added to a cart.
type AddItemInput struct {
	TicketID  uint64
	Quantity  int
	VisitDate *time.Time
	Note      *string
}

// UpdateItemInput changes fields of a cart line.  Nil fields are left
// untouched; ClearVisitDate and ClearNote remove the optional values.
type UpdateItemInput struct {
	Quantity       *int
	VisitDate      *time.Time
	ClearVisitDate bool
	Note           *string
	ClearNote      bool
}

// AdoptResult counts what happened to each anonymous line on adoption.
type AdoptResult struct {
	Moved   int `json:"moved"`
	Merged  int `json:"merged"`
	Dropped int `json:"dropped"`
}

// CartService manages per-identity carts.  Every call names the owning
// identity explicitly.
type CartService struct {
	tx    Transactor
	carts CartStore
	guard *InventoryGuard
	now   Clock
}

func NewCartService(s Stores, guard *InventoryGuard) *CartService {
	return &CartService{tx: s.Tx, carts: s.Carts, guard: guard, now: systemClock}
}

func (c *CartService) validateNoteAndDate(visit *time.Time, note *string) error {
	if note != nil && utf8.RuneCountInString(*note) > MaxNoteLength {
		return invalid("note", "must be at most 500 characters")
	}
	if visit != nil {
		today := c.now().UTC().Truncate(24 * time.Hour)
		if visit.UTC().Before(today) {
			return invalid("visit_date", "must not be in the past")
		}
	}
	return nil
}

// Add puts qty units of a ticket in the identity's cart, merging into an
// existing line for the same ticket.  The combined quantity is checked
// against remaining capacity.
func (c *CartService) Add(ctx context.Context, id model.Identity, in AddItemInput) (*model.CartLine, error) {
	if !id.Valid() {
		return nil, invalid("identity", "cart identity is required")
	}
	if in.TicketID == 0 {
		return nil, invalid("ticket_id", "is required")
	}
	if in.Quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	if err := c.validateNoteAndDate(in.VisitDate, in.Note); err != nil {
		return nil, err
	}
	t, err := c.guard.Ticket(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}

	// A concurrent Add for the same ticket may win the insert; merge into
	// its line on the second pass.
	for attempt := 0; attempt < 2; attempt++ {
		merged, err := c.mergeInto(ctx, id, t, in)
		if err != nil {
			return nil, err
		}
		if merged != nil {
			return merged, nil
		}

		if err := c.guard.CheckCapacity(ctx, t, in.Quantity); err != nil {
			return nil, err
		}
		line := &model.CartLine{TicketID: t.ID, Quantity: in.Quantity, VisitDate: in.VisitDate, Note: in.Note}
		line.SetOwner(id)
		err = c.carts.Create(ctx, line)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return line, nil
	}
	return nil, repository.ErrConflict
}

// mergeInto adds in.Quantity to the identity's existing line for t.  The
// line is locked for the read-modify-write so concurrent adds do not lose
// an increment.  It returns nil, nil when there is no line yet.
func (c *CartService) mergeInto(ctx context.Context, id model.Identity, t *model.Ticket, in AddItemInput) (*model.CartLine, error) {
	var merged *model.CartLine
	err := c.tx.InTx(ctx, func(tx *sql.Tx) error {
		existing, err := c.carts.FindByTicketTx(ctx, tx, id, t.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		total := existing.Quantity + in.Quantity
		if err := c.guard.CheckCapacity(ctx, t, total); err != nil {
			return err
		}
		existing.Quantity = total
		if in.VisitDate != nil {
			existing.VisitDate = in.VisitDate
		}
		if in.Note != nil {
			existing.Note = in.Note
		}
		if err := c.carts.UpdateTx(ctx, tx, existing); err != nil {
			return err
		}
		merged = existing
		return nil
	})
	return merged, err
}

// ownedLine loads a line and verifies it belongs to id.
func (c *CartService) ownedLine(ctx context.Context, id model.Identity, lineID uint64) (*model.CartLine, error) {
	if !id.Valid() {
		return nil, invalid("identity", "cart identity is required")
	}
	l, err := c.carts.GetByID(ctx, lineID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(id) {
		return nil, ErrForbidden
	}
	return l, nil
}

// Update changes quantity, visit date or note of one of the identity's lines.
func (c *CartService) Update(ctx context.Context, id model.Identity, lineID uint64, in UpdateItemInput) (*model.CartLine, error) {
	l, err := c.ownedLine(ctx, id, lineID)
	if err != nil {
		return nil, err
	}
	if err := c.validateNoteAndDate(in.VisitDate, in.Note); err != nil {
		return nil, err
	}
	if in.Quantity != nil {
		if *in.Quantity < 1 {
			return nil, invalid("quantity", "must be at least 1")
		}
		if *in.Quantity > l.Quantity {
			t, err := c.guard.Ticket(ctx, l.TicketID)
			if err != nil {
				return nil, err
			}
			if err := c.guard.CheckCapacity(ctx, t, *in.Quantity); err != nil {
				return nil, err
			}
		}
		l.Quantity = *in.Quantity
	}
	switch {
	case in.ClearVisitDate:
		l.VisitDate = nil
	case in.VisitDate != nil:
		l.VisitDate = in.VisitDate
	}
	switch {
	case in.ClearNote:
		l.Note = nil
	case in.Note != nil:
		l.Note = in.Note
	}
	if err := c.carts.Update(ctx, l); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartLineNotFound
		}
		return nil, err
	}
	return l, nil
}

// Remove deletes one of the identity's lines.
func (c *CartService) Remove(ctx context.Context, id model.Identity, lineID uint64) error {
	if _, err := c.ownedLine(ctx, id, lineID); err != nil {
		return err
	}
	err := c.carts.Delete(ctx, lineID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCartLineNotFound
	}
	return err
}

// Clear empties the identity's cart and returns how many lines were removed.
func (c *CartService) Clear(ctx context.Context, id model.Identity) (int64, error) {
	if !id.Valid() {
		return 0, invalid("identity", "cart identity is required")
	}
	return c.carts.DeleteByOwner(ctx, id)
}

// Summarize prices the identity's cart against the current catalog.
func (c *CartService) Summarize(ctx context.Context, id model.Identity) (*model.CartSummary, error) {
	if !id.Valid() {
		return nil, invalid("identity", "cart identity is required")
	}
	views, err := c.carts.ListViews(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := &model.CartSummary{Lines: views}
	if sum.Lines == nil {
		sum.Lines = []model.CartLineView{}
	}
	for i := range sum.Lines {
		v := &sum.Lines[i]
		v.Subtotal = v.UnitPrice * int64(v.Quantity)
		sum.TotalQty += v.Quantity
		sum.TotalAmount += v.Subtotal
	}
	return sum, nil
}

// Adopt moves an anonymous session's cart into a signed-in user's cart.
// Lines for tickets the user already holds are merged when capacity allows
// the combined quantity; otherwise the user's line is kept as is and the
// anonymous line is dropped.
func (c *CartService) Adopt(ctx context.Context, sessionToken string, userID uint64) (*AdoptResult, error) {
	anon := model.AnonymousIdentity(sessionToken)
	user := model.UserIdentity(userID)
	if !anon.Valid() {
		return nil, invalid("session", "cart session token is required")
	}
	if !user.Valid() {
		return nil, ErrLoginRequired
	}
	var res AdoptResult
	err := c.tx.InTx(ctx, func(tx *sql.Tx) error {
		res = AdoptResult{}
		lines, err := c.carts.ListByOwnerTx(ctx, tx, anon)
		if err != nil {
			return err
		}
		var remove []uint64
		for i := range lines {
			l := &lines[i]
			mine, err := c.carts.FindByTicketTx(ctx, tx, user, l.TicketID)
			if errors.Is(err, repository.ErrNotFound) {
				if err := c.carts.ReassignTx(ctx, tx, l.ID, user); err != nil {
					return err
				}
				res.Moved++
				continue
			}
			if err != nil {
				return err
			}
			remove = append(remove, l.ID)
			t, err := c.guard.Ticket(ctx, l.TicketID)
			if err != nil && !errors.Is(err, ErrTicketNotFound) {
				return err
			}
			if t == nil || c.guard.CheckCapacity(ctx, t, mine.Quantity+l.Quantity) != nil {
				res.Dropped++
				continue
			}
			mine.Quantity += l.Quantity
			if mine.VisitDate == nil {
				mine.VisitDate = l.VisitDate
			}
			if mine.Note == nil {
				mine.Note = l.Note
			}
			if err := c.carts.UpdateTx(ctx, tx, mine); err != nil {
				return err
			}
			res.Merged++
		}
		return c.carts.DeleteManyTx(ctx, tx, remove)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID, "moved": res.Moved, "merged": res.Merged, "dropped": res.Dropped,
	}).Info("cart adopted")
	return &res, nil
}

package service

import (
	"context"
	"errors"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
)

// OrderDetail is an order together with its payment history.  Events are
// only filled in for admins.
type OrderDetail struct {
	Order  *model.Order
	Events []model.PaymentEvent
}

// OrderService answers read-only order queries.
type OrderService struct {
	orders OrderStore
	events PaymentEventStore
}

func NewOrderService(s Stores) *OrderService {
	return &OrderService{orders: s.Orders, events: s.Events}
}

// Get returns an order visible to the actor.  Customers only see their own
// orders; anybody else's order is reported as not found.
func (o *OrderService) Get(ctx context.Context, actor model.Actor, number string) (*OrderDetail, error) {
	ord, err := o.orders.GetByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
		evs, err := o.events.ListByOrder(ctx, ord.ID)
		if err != nil {
			return nil, err
		}
		return &OrderDetail{Order: ord, Events: evs}, nil
	case actor.IsCustomer() && ord.CustomerID == actor.ID:
		return &OrderDetail{Order: ord}, nil
	}
	return nil, ErrOrderNotFound
}

// ListForCustomer pages through a customer's orders, newest first.
func (o *OrderService) ListForCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Order, error) {
	return o.orders.ListByCustomer(ctx, customerID, clampLimit(limit), max(offset, 0))
}

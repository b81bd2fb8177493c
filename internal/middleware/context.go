package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// Context keys set by the middleware in this package.
const (
	actorKey     = "actor"
	identityKey  = "cart_identity"
	requestIDKey = "request_id"
)

// ActorFrom returns the authenticated caller resolved by JWTAuth or
// OptionalJWT.  ok is false for anonymous requests.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// IdentityFrom returns the cart owner resolved by CartIdentity.
func IdentityFrom(c echo.Context) model.Identity {
	id, _ := c.Get(identityKey).(model.Identity)
	return id
}

// RequestIDFrom returns the id assigned by RequestLogger.
func RequestIDFrom(c echo.Context) string {
	s, _ := c.Get(requestIDKey).(string)
	return s
}

// WithActor stores an actor on the context.  Tests use it to skip token
// parsing.
func WithActor(c echo.Context, a model.Actor) { c.Set(actorKey, a) }

// WithIdentity stores a cart identity on the context.
func WithIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

const (
	// CartSessionHeader carries an anonymous cart token for API clients.
	CartSessionHeader = "X-Cart-Session"
	// CartSessionCookie carries the same token for browsers.
	CartSessionCookie = "cart_session"

	cartSessionMaxAge = 30 * 24 * time.Hour
)

// CartIdentity resolves the cart owner for the request.  A signed-in
// customer owns the cart by user id.  Everyone else owns it by session
// token; a new token is minted and returned in both the header and the
// cookie when the request carries none.  Must run after OptionalJWT.
func CartIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a, ok := ActorFrom(c); ok && a.IsCustomer() {
				WithIdentity(c, model.UserIdentity(a.ID))
				return next(c)
			}
			token := sessionToken(c)
			if token == "" {
				token = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     CartSessionCookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cartSessionMaxAge / time.Second),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Response().Header().Set(CartSessionHeader, token)
			WithIdentity(c, model.AnonymousIdentity(token))
			return next(c)
		}
	}
}

func sessionToken(c echo.Context) string {
	if v := strings.TrimSpace(c.Request().Header.Get(CartSessionHeader)); v != "" {
		return v
	}
	if ck, err := c.Cookie(CartSessionCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

// userID keys per-user limits.  Anonymous callers report "guest".
func userID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok && a.ID != 0 {
		return strconv.FormatUint(a.ID, 10)
	}
	return "guest"
}

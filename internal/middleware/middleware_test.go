package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/config"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub any, role string) jwt.MapClaims {
	return jwt.MapClaims{"sub": sub, "role": role, "exp": time.Now().Add(time.Hour).Unix()}
}

func TestParseActor(t *testing.T) {
	a, err := ParseActor(testSecret, signToken(t, testSecret, validClaims(7, "customer")))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: 7, Role: model.RoleCustomer}, a)

	a, err = ParseActor(testSecret, signToken(t, testSecret, validClaims("42", "SELLER")))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: 42, Role: model.RoleSeller}, a)

	bad := []string{
		signToken(t, "other-secret", validClaims(7, "ADMIN")),
		signToken(t, testSecret, validClaims(7, "OWNER")),
		signToken(t, testSecret, validClaims(0, "ADMIN")),
		signToken(t, testSecret, validClaims("abc", "ADMIN")),
		signToken(t, testSecret, jwt.MapClaims{"sub": 7, "role": "ADMIN", "exp": time.Now().Add(-time.Minute).Unix()}),
		"not-a-token",
	}
	for _, raw := range bad {
		_, err := ParseActor(testSecret, raw)
		assert.Error(t, err, raw)
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		a, _ := ActorFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"id": a.ID})
	}, JWTAuth(testSecret), RequireRole(model.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(7, "CUSTOMER")))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(1, "ADMIN")))
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestCartIdentity(t *testing.T) {
	e := echo.New()
	e.GET("/cart", func(c echo.Context) error {
		return c.String(http.StatusOK, IdentityFrom(c).String())
	}, OptionalJWT(testSecret), CartIdentity())

	// new guest gets a session
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(CartSessionHeader)
	require.NotEmpty(t, token)
	assert.Equal(t, "session:"+token, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), CartSessionCookie+"="+token)

	// returning guest keeps it
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartSessionCookie, Value: "abc"})
	rec = serve(e, req)
	assert.Equal(t, "session:abc", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(CartSessionHeader, "hdr")
	assert.Equal(t, "session:hdr", serve(e, req).Body.String())

	// customers own carts by user id
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(CartSessionHeader, "hdr")
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(7, "CUSTOMER")))
	assert.Equal(t, "user:7", serve(e, req).Body.String())

	// a broken token is not downgraded to a guest cart
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer junk")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequestLogger(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, RequestIDFrom(c))
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	assert.Equal(t, "fixed-id", serve(e, req).Body.String())

	assert.Equal(t, http.StatusTeapot, serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil)).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/checkout")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:guest:route:POST /v1/checkout", buildRateKey(cfg, c))

	WithActor(c, model.Actor{ID: 9, Role: model.RoleCustomer})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:9", buildRateKey(cfg, c))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	called := 0
	next := func(c echo.Context) error { called++; return nil }
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)(next)(c))
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil)(next)(c))
	assert.Equal(t, 2, called)
}

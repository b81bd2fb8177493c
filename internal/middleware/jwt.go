package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// JWTAuth validates a Bearer access token and stores the resolved
// model.Actor on the context.  Tokens are issued by the identity service;
// "sub" carries the user id and "role" one of CUSTOMER, SELLER or ADMIN.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			actor, err := ParseActor(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}
			WithActor(c, actor)
			return next(c)
		}
	}
}

// OptionalJWT resolves the actor when a bearer token is present and lets
// anonymous requests through.  A token that is present but invalid is still
// rejected, so a client never silently falls back to a guest cart.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	strict := JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := strict(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// ParseActor verifies an HS256 token and extracts the actor claims.
func ParseActor(secret, raw string) (model.Actor, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Actor{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, fmt.Errorf("invalid claims")
	}
	id, err := subject(claims["sub"])
	if err != nil {
		return model.Actor{}, err
	}
	roleClaim, _ := claims["role"].(string)
	role, ok := model.ParseRole(roleClaim)
	if !ok {
		return model.Actor{}, fmt.Errorf("unknown role %q", roleClaim)
	}
	return model.Actor{ID: id, Role: role}, nil
}

// subject accepts both numeric and string "sub" claims.
func subject(v any) (uint64, error) {
	switch s := v.(type) {
	case float64:
		if s > 0 && s == float64(uint64(s)) {
			return uint64(s), nil
		}
	case string:
		if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("invalid subject %v", v)
}

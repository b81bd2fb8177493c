// Package utils holds helpers shared by the server and its tooling.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// AccessToken is a signed HS256 JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token in the shape the identity service issues:
// "sub" is the user id and "role" the actor role.  The server only verifies
// such tokens; this is used by local tooling and tests.
func NewAccessToken(secret string, actor model.Actor, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("empty signing secret")
	}
	if actor.ID == 0 {
		return AccessToken{}, errors.New("actor id is required")
	}
	if _, ok := model.ParseRole(string(actor.Role)); !ok {
		return AccessToken{}, errors.New("unknown role " + string(actor.Role))
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actor.ID,
		"role": string(actor.Role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

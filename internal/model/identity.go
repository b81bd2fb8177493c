package model

import (
	"strconv"
	"strings"
)

// IdentityKind tags which half of an Identity is set.
type IdentityKind uint8

const (
	IdentityNone IdentityKind = iota
	IdentityUser
	IdentityAnonymous
)

// Identity owns a cart.  It is either an authenticated user id or an
// anonymous session token, never both.  Construct it with UserIdentity or
// AnonymousIdentity; the zero value is invalid.
type Identity struct {
	kind    IdentityKind
	userID  uint64
	session string
}

// UserIdentity returns the identity of a signed-in user.
func UserIdentity(userID uint64) Identity {
	if userID == 0 {
		return Identity{}
	}
	return Identity{kind: IdentityUser, userID: userID}
}

// AnonymousIdentity returns the identity of a guest browser session.
func AnonymousIdentity(token string) Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}
	}
	return Identity{kind: IdentityAnonymous, session: token}
}

func (i Identity) Kind() IdentityKind { return i.kind }
func (i Identity) Valid() bool        { return i.kind != IdentityNone }

// UserID returns the user id and true for authenticated identities.
func (i Identity) UserID() (uint64, bool) {
	return i.userID, i.kind == IdentityUser
}

// SessionToken returns the session token and true for anonymous identities.
func (i Identity) SessionToken() (string, bool) {
	return i.session, i.kind == IdentityAnonymous
}

func (i Identity) String() string {
	switch i.kind {
	case IdentityUser:
		return "user:" + strconv.FormatUint(i.userID, 10)
	case IdentityAnonymous:
		return "session:" + i.session
	}
	return "none"
}

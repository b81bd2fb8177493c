package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, isDuplicateKey(dup))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", dup)))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateKey(errors.New("1062")))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), ErrNotFound)
	other := errors.New("boom")
	assert.Equal(t, other, notFound(other))
}

func TestOwnerClause(t *testing.T) {
	clause, arg := ownerClause(model.UserIdentity(7))
	assert.Equal(t, "user_id = ?", clause)
	assert.Equal(t, uint64(7), arg)

	clause, arg = ownerClause(model.AnonymousIdentity("abc"))
	assert.Equal(t, "session_id = ?", clause)
	assert.Equal(t, "abc", arg)

	clause, arg = ownerClause(model.Identity{})
	assert.Equal(t, "id = ?", clause)
	assert.Equal(t, uint64(0), arg)
}

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/middleware"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

func TestNewAccessToken_RoundTrip(t *testing.T) {
	seller := model.Actor{ID: 100, Role: model.RoleSeller}
	tok, err := NewAccessToken("s3cret", seller, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	got, err := middleware.ParseActor("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, seller, got)

	_, err = middleware.ParseActor("other", tok.Token)
	assert.Error(t, err)
}

func TestNewAccessToken_Rejects(t *testing.T) {
	_, err := NewAccessToken("", model.Actor{ID: 1, Role: model.RoleAdmin}, time.Hour)
	assert.Error(t, err)
	_, err = NewAccessToken("s", model.Actor{Role: model.RoleAdmin}, time.Hour)
	assert.Error(t, err)
	_, err = NewAccessToken("s", model.Actor{ID: 1, Role: "OWNER"}, time.Hour)
	assert.Error(t, err)

	expired, err := NewAccessToken("s", model.Actor{ID: 1, Role: model.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	_, err = middleware.ParseActor("s", expired.Token)
	assert.Error(t, err)
}

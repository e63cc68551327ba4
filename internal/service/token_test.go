package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/propelhq/propel-backend/internal/models"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	tm := newTestTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleContractor}

	pair, accessExp, refreshExp, err := tm.GeneratePair(user)
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, refreshExp.After(accessExp))

	userID, role, err := tm.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleContractor, role)

	claims, err := tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestTokenManager_ParseAccess_RejectsRefreshToken(t *testing.T) {
	tm := newTestTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleClient}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	// Секреты access и refresh различаются.
	_, _, err = tm.ParseAccess(pair.RefreshToken)
	assert.Error(t, err)
}

func TestTokenManager_ParseAccess_Expired(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleClient}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	_, _, err = tm.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenManager_ParseAccess_Garbage(t *testing.T) {
	tm := newTestTokenManager()
	_, _, err := tm.ParseAccess("definitely.not.jwt")
	assert.Error(t, err)
}

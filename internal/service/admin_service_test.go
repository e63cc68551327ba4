package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
)

type staticCounters struct {
	users    int
	projects int
	disputes int
}

func (c staticCounters) CountUsers(ctx context.Context) (int, error)    { return c.users, nil }
func (c staticCounters) CountProjects(ctx context.Context) (int, error) { return c.projects, nil }
func (c staticCounters) CountOpen(ctx context.Context) (int, error)     { return c.disputes, nil }

type mockAccountModerator struct {
	mock.Mock
}

func (m *mockAccountModerator) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccountModerator) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccountModerator) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func TestAdminService_Stats(t *testing.T) {
	counters := staticCounters{users: 12, projects: 5, disputes: 2}
	svc := NewAdminService(counters, &mockAccountModerator{}, counters, counters)

	stats, err := svc.Stats(context.Background(), models.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, 12, stats.Users)
	assert.Equal(t, 5, stats.Projects)
	assert.Equal(t, 2, stats.OpenDisputes)
}

func TestAdminService_Stats_AdminOnly(t *testing.T) {
	counters := staticCounters{}
	svc := NewAdminService(counters, &mockAccountModerator{}, counters, counters)

	_, err := svc.Stats(context.Background(), models.RoleClient)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAdminService_ToggleUserBan_Deactivates(t *testing.T) {
	accounts := &mockAccountModerator{}
	svc := NewAdminService(staticCounters{}, accounts, staticCounters{}, staticCounters{})
	ctx := context.Background()

	adminID := uuid.New()
	userID := uuid.New()

	active := &models.User{ID: userID, IsActive: true}
	banned := &models.User{ID: userID, IsActive: false}

	accounts.On("GetByID", ctx, userID).Return(active, nil)
	accounts.On("SetActive", ctx, userID, false).Return(banned, nil)
	accounts.On("DeleteSessionsByUser", ctx, userID).Return(nil)

	user, err := svc.ToggleUserBan(ctx, adminID, models.RoleAdmin, userID)
	assert.NoError(t, err)
	assert.False(t, user.IsActive)
	accounts.AssertExpectations(t)
}

func TestAdminService_ToggleUserBan_Reactivates(t *testing.T) {
	accounts := &mockAccountModerator{}
	svc := NewAdminService(staticCounters{}, accounts, staticCounters{}, staticCounters{})
	ctx := context.Background()

	userID := uuid.New()

	banned := &models.User{ID: userID, IsActive: false}
	restored := &models.User{ID: userID, IsActive: true}

	accounts.On("GetByID", ctx, userID).Return(banned, nil)
	accounts.On("SetActive", ctx, userID, true).Return(restored, nil)

	user, err := svc.ToggleUserBan(ctx, uuid.New(), models.RoleAdmin, userID)
	assert.NoError(t, err)
	assert.True(t, user.IsActive)
	// Сессии при разблокировке не трогаем.
	accounts.AssertNotCalled(t, "DeleteSessionsByUser", mock.Anything, mock.Anything)
}

func TestAdminService_ToggleUserBan_AdminOnly(t *testing.T) {
	accounts := &mockAccountModerator{}
	svc := NewAdminService(staticCounters{}, accounts, staticCounters{}, staticCounters{})

	_, err := svc.ToggleUserBan(context.Background(), uuid.New(), models.RoleClient, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
	accounts.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_ToggleUserBan_SelfBanRejected(t *testing.T) {
	accounts := &mockAccountModerator{}
	svc := NewAdminService(staticCounters{}, accounts, staticCounters{}, staticCounters{})

	adminID := uuid.New()
	_, err := svc.ToggleUserBan(context.Background(), adminID, models.RoleAdmin, adminID)
	assert.True(t, apperror.IsConflict(err))
}

func TestAdminService_ToggleUserBan_NotFound(t *testing.T) {
	accounts := &mockAccountModerator{}
	svc := NewAdminService(staticCounters{}, accounts, staticCounters{}, staticCounters{})
	ctx := context.Background()

	userID := uuid.New()
	accounts.On("GetByID", ctx, userID).Return(nil, repository.ErrUserNotFound)

	_, err := svc.ToggleUserBan(ctx, uuid.New(), models.RoleAdmin, userID)
	assert.True(t, apperror.IsNotFound(err))
}

package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/propelhq/propel-backend/internal/models"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestNotificationService_CreateNotificationForWS_TypedPayload(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	userID := uuid.New()
	relatedID := uuid.New()

	repo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == userID &&
			n.Type == models.EventPaymentReleased &&
			n.Message == "Оплата проведена" &&
			n.RelatedID != nil && *n.RelatedID == relatedID
	})).Return(nil)

	err := svc.CreateNotificationForWS(ctx, userID, models.EventPaymentReleased, EventPayload{
		Message:   "Оплата проведена",
		RelatedID: &relatedID,
	})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestNotificationService_CreateNotificationForWS_UnknownPayload(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Message == `{"custom":"data"}`
	})).Return(nil)

	err := svc.CreateNotificationForWS(ctx, userID, models.EventBidReceived, map[string]string{"custom": "data"})
	assert.NoError(t, err)
}

func TestNotificationService_MarkAsRead_Ownership(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	notificationID := uuid.New()
	ownerID := uuid.New()

	repo.On("GetByID", ctx, notificationID).Return(&models.Notification{ID: notificationID, UserID: ownerID}, nil)
	repo.On("MarkAsRead", ctx, notificationID).Return(nil)

	assert.NoError(t, svc.MarkAsRead(ctx, notificationID, ownerID))

	err := svc.MarkAsRead(ctx, notificationID, uuid.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "нет прав")
}

func TestNotificationService_ListNotifications_LimitClamp(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID, 20, 0, true).Return([]models.Notification{}, nil)

	_, err := svc.ListNotifications(ctx, userID, -1, -1, true)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

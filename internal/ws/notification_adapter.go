package ws

import (
	"context"

	"github.com/google/uuid"
)

// NotificationServiceAdapter подключает NotificationService к Hub: каждое
// отправленное по WebSocket событие контракта или спора сохраняется
// как уведомление, чтобы офлайн-пользователь увидел его позже.
type NotificationServiceAdapter struct {
	service interface {
		CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
	}
}

// NewNotificationServiceAdapter создаёт адаптер над сервисом уведомлений.
func NewNotificationServiceAdapter(service interface {
	CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// CreateNotification реализует интерфейс NotificationSaver.
func (a *NotificationServiceAdapter) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	return a.service.CreateNotificationForWS(ctx, userID, event, data)
}


package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification уведомление пользователя о событии жизненного цикла контракта.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Message   string     `db:"message" json:"message"`
	RelatedID *uuid.UUID `db:"related_id" json:"related_id,omitempty"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

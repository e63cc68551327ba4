package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletBalance представляет баланс кошелька пользователя.
// Баланс знаковый: escrow моделируется как удержание через списание
// при расчёте, а не через реальный платёжный провайдер.
type WalletBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   float64   `db:"balance" json:"balance"`
	Version   int64     `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WalletTransaction запись о движении средств. Каждый расчёт по контракту
// порождает пару записей равной величины: списание у клиента и зачисление
// исполнителю (двойная запись).
type WalletTransaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	ContractID  *uuid.UUID `db:"contract_id" json:"contract_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

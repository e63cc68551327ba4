package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract описывает договор между клиентом и исполнителем по проекту.
// Статус и escrow_status меняются только гвардированными переходами:
// контракт создаётся при принятии отклика, финализируется расчётом или спором.
type Contract struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ProjectID    uuid.UUID `db:"project_id" json:"project_id"`
	ClientID     uuid.UUID `db:"client_id" json:"client_id"`
	ContractorID uuid.UUID `db:"contractor_id" json:"contractor_id"`
	BidID        uuid.UUID `db:"bid_id" json:"bid_id"`

	// Условия, зафиксированные из принятого отклика.
	Amount float64 `db:"amount" json:"amount"`
	Days   int     `db:"days" json:"days"`

	Status       string `db:"status" json:"status"`
	EscrowStatus string `db:"escrow_status" json:"escrow_status"`

	// Сдача работы исполнителем.
	SubmissionLink  *string    `db:"submission_link" json:"submission_link,omitempty"`
	SubmissionNotes *string    `db:"submission_notes" json:"submission_notes,omitempty"`
	SubmittedAt     *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`

	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsTerminal сообщает, завершён ли контракт окончательно.
func (c *Contract) IsTerminal() bool {
	return IsTerminalContractStatus(c.Status)
}

// IsParticipant сообщает, является ли пользователь стороной контракта.
func (c *Contract) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.ContractorID == userID
}

// Counterparty возвращает вторую сторону контракта.
func (c *Contract) Counterparty(userID uuid.UUID) uuid.UUID {
	if c.ClientID == userID {
		return c.ContractorID
	}
	return c.ClientID
}

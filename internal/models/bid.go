package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid представляет отклик исполнителя на проект.
type Bid struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ProjectID    uuid.UUID `db:"project_id" json:"project_id"`
	ContractorID uuid.UUID `db:"contractor_id" json:"contractor_id"`
	Amount       float64   `db:"amount" json:"amount"`
	Days         int       `db:"days" json:"days"`
	Proposal     string    `db:"proposal" json:"proposal"`
	Status       string    `db:"status" json:"status"`
	Version      int64     `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

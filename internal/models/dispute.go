package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Dispute описывает спор по контракту. Создаётся стороной контракта,
// изменяется только арбитром и неизменяем после разрешения.
type Dispute struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	ContractID  uuid.UUID      `db:"contract_id" json:"contract_id"`
	RaisedBy    uuid.UUID      `db:"raised_by" json:"raised_by"`
	Defendant   uuid.UUID      `db:"defendant" json:"defendant"`
	Reason      string         `db:"reason" json:"reason"`
	Description string         `db:"description" json:"description"`
	Evidence    pq.StringArray `db:"evidence_files" json:"evidence_files"`

	Status            string     `db:"status" json:"status"`
	ResolutionSummary *string    `db:"resolution_summary" json:"resolution_summary,omitempty"`
	ResolvedBy        *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`

	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsResolved сообщает, закрыт ли спор.
func (d *Dispute) IsResolved() bool {
	return d.Status == DisputeStatusResolvedRefund || d.Status == DisputeStatusResolvedPayout
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ChecklistItem один пункт чек-листа результатов работы.
type ChecklistItem struct {
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
}

// Checklist упорядоченный список пунктов, хранится в JSONB.
type Checklist []ChecklistItem

// Value сериализует чек-лист для записи в базу.
func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

// Scan читает чек-лист из JSONB колонки.
func (c *Checklist) Scan(src interface{}) error {
	if src == nil {
		*c = Checklist{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("checklist: неподдерживаемый тип %T", src)
	}
	return json.Unmarshal(raw, c)
}

// AllCompleted сообщает, отмечены ли все пункты чек-листа.
// Пустой чек-лист считается выполненным.
func (c Checklist) AllCompleted() bool {
	for _, item := range c {
		if !item.IsCompleted {
			return false
		}
	}
	return true
}

// Project описывает проект, размещённый клиентом.
type Project struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ClientID       uuid.UUID      `db:"client_id" json:"client_id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	Budget         float64        `db:"budget" json:"budget"`
	Deadline       time.Time      `db:"deadline" json:"deadline"`
	RequiredSkills pq.StringArray `db:"required_skills" json:"required_skills"`
	Checklist      Checklist      `db:"checklist" json:"checklist"`
	Status         string         `db:"status" json:"status"`
	WorkLink       *string        `db:"work_link" json:"work_link,omitempty"`
	Version        int64          `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	BidsCount      *int           `db:"bids_count" json:"bids_count,omitempty"`
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/repository/common"
)

// Ошибки репозитория откликов.
var (
	ErrBidNotFound      = errors.New("bid not found")
	ErrBidAlreadyPlaced = errors.New("bid already placed for this project")
)

// BidRepository отвечает за работу с таблицей bids.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт экземпляр репозитория.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create сохраняет новый отклик. На проект допускается не более одного
// отклика в ожидании от одного исполнителя.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", bid.ProjectID, ErrProjectNotFound)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectStatusOpen {
			return ErrProjectNotOpen
		}

		var existing int
		err = tx.GetContext(ctx, &existing, `
			SELECT COUNT(*) FROM bids
			WHERE project_id = $1 AND contractor_id = $2 AND status = $3
		`, bid.ProjectID, bid.ContractorID, models.BidStatusPending)
		if err != nil {
			return fmt.Errorf("bid repository: count existing %w", err)
		}
		if existing > 0 {
			return ErrBidAlreadyPlaced
		}

		if bid.Status == "" {
			bid.Status = models.BidStatusPending
		}

		query := `
			INSERT INTO bids (project_id, contractor_id, amount, days, proposal, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, version, created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, query,
			bid.ProjectID, bid.ContractorID, bid.Amount, bid.Days, bid.Proposal, bid.Status,
		).Scan(&bid.ID, &bid.Version, &bid.CreatedAt, &bid.UpdatedAt); err != nil {
			return fmt.Errorf("bid repository: create %w", err)
		}
		return nil
	})
}

// GetByID возвращает отклик по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return common.GetByID[models.Bid](ctx, r.db, "bids", id, ErrBidNotFound)
}

// ListByProject возвращает отклики по проекту, свежие первыми.
func (r *BidRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT * FROM bids WHERE project_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bids, query, projectID); err != nil {
		return nil, fmt.Errorf("bid repository: list by project %w", err)
	}
	return bids, nil
}

// ListByContractor возвращает отклики исполнителя.
func (r *BidRepository) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT * FROM bids WHERE contractor_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bids, query, contractorID); err != nil {
		return nil, fmt.Errorf("bid repository: list by contractor %w", err)
	}
	return bids, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/repository/common"
)

// Ошибки репозитория споров.
var (
	ErrDisputeNotFound       = errors.New("dispute not found")
	ErrDisputeExists         = errors.New("dispute already open for this contract")
	ErrDisputeResolved       = errors.New("dispute already resolved")
	ErrContractNotDisputable = errors.New("contract is not in a disputable state")
)

// DisputeRepository отвечает за таблицу disputes и переходы контракта
// в спор и из спора.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetByContractID возвращает спор по контракту.
func (r *DisputeRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	query := `SELECT * FROM disputes WHERE contract_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &dispute, query, contractID); err != nil {
		return nil, ErrDisputeNotFound
	}
	return &dispute, nil
}

// ListByUser возвращает споры, где пользователь истец или ответчик.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `
		SELECT * FROM disputes
		WHERE raised_by = $1 OR defendant = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &disputes, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListOpen возвращает неразрешённые споры для панели арбитра.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `
		SELECT * FROM disputes
		WHERE status IN ('open', 'under_review')
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &disputes, query, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list open %w", err)
	}
	return disputes, nil
}

// CountOpen возвращает количество открытых споров.
func (r *DisputeRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM disputes WHERE status IN ('open', 'under_review')`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("dispute repository: count open %w", err)
	}
	return count, nil
}

// Open создаёт спор и одновременно замораживает контракт в одной
// транзакции. Контракт должен быть в active или work_submitted.
func (r *DisputeRepository) Open(ctx context.Context, dispute *models.Dispute) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		contract, err := common.GetByIDForUpdate[models.Contract](ctx, tx, "contracts", dispute.ContractID, ErrContractNotFound)
		if err != nil {
			return err
		}

		if contract.Status != models.ContractStatusActive && contract.Status != models.ContractStatusWorkSubmitted {
			if contract.Status == models.ContractStatusDisputed {
				return ErrDisputeExists
			}
			return ErrContractNotDisputable
		}

		dispute.Defendant = contract.Counterparty(dispute.RaisedBy)
		dispute.Status = models.DisputeStatusOpen

		err = tx.GetContext(ctx, dispute, `
			INSERT INTO disputes (contract_id, raised_by, defendant, reason, description, evidence_files, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		`, dispute.ContractID, dispute.RaisedBy, dispute.Defendant, dispute.Reason,
			dispute.Description, pq.Array([]string(dispute.Evidence)), dispute.Status)
		if err != nil {
			return fmt.Errorf("dispute repository: insert %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE contracts SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1
		`, contract.ID, models.ContractStatusDisputed)
		if err != nil {
			return fmt.Errorf("dispute repository: freeze contract %w", err)
		}

		return nil
	})
}

// AddEvidence дописывает путь к файлу-доказательству к открытому спору.
func (r *DisputeRepository) AddEvidence(ctx context.Context, disputeID uuid.UUID, path string) (*models.Dispute, error) {
	var updated *models.Dispute

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		dispute, err := common.GetByIDForUpdate[models.Dispute](ctx, tx, "disputes", disputeID, ErrDisputeNotFound)
		if err != nil {
			return err
		}
		if dispute.IsResolved() {
			return ErrDisputeResolved
		}

		err = tx.GetContext(ctx, dispute, `
			UPDATE disputes
			SET evidence_files = array_append(evidence_files, $2), version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, dispute.ID, path)
		if err != nil {
			return fmt.Errorf("dispute repository: add evidence %w", err)
		}

		updated = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkUnderReview переводит открытый спор в рассмотрение арбитром.
func (r *DisputeRepository) MarkUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.GetContext(ctx, &dispute, `
		UPDATE disputes SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, disputeID, models.DisputeStatusUnderReview, models.DisputeStatusOpen)
	if err != nil {
		return nil, ErrDisputeNotFound
	}
	return &dispute, nil
}

// Resolve закрывает спор решением арбитра. В одной транзакции: спор
// получает терминальный статус, контракт становится terminated с refunded или
// released escrow; выплата исполнителю идёт через тот же примитив
// перевода, что и обычный расчёт. Повторное разрешение невозможно.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID, resolverID uuid.UUID, action, summary string) (*models.Dispute, *models.Contract, error) {
	var (
		resolved *models.Dispute
		contract *models.Contract
	)

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		dispute, err := common.GetByIDForUpdate[models.Dispute](ctx, tx, "disputes", disputeID, ErrDisputeNotFound)
		if err != nil {
			return err
		}
		if dispute.IsResolved() {
			return ErrDisputeResolved
		}

		c, err := common.GetByIDForUpdate[models.Contract](ctx, tx, "contracts", dispute.ContractID, ErrContractNotFound)
		if err != nil {
			return err
		}
		if c.Status != models.ContractStatusDisputed || c.EscrowStatus != models.EscrowStatusHeld {
			return ErrDisputeResolved
		}

		disputeStatus := models.DisputeStatusResolvedRefund
		escrowStatus := models.EscrowStatusRefunded
		if action == models.DisputeActionPayContractor {
			disputeStatus = models.DisputeStatusResolvedPayout
			escrowStatus = models.EscrowStatusReleased

			if err := transferFunds(ctx, tx, c.ID, c.ClientID, c.ContractorID, c.Amount); err != nil {
				return err
			}
		}

		err = tx.GetContext(ctx, dispute, `
			UPDATE disputes
			SET status = $2, resolution_summary = $3, resolved_by = $4, resolved_at = NOW(),
			    version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, dispute.ID, disputeStatus, summary, resolverID)
		if err != nil {
			return fmt.Errorf("dispute repository: resolve %w", err)
		}

		err = tx.GetContext(ctx, c, `
			UPDATE contracts
			SET status = $2, escrow_status = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, c.ID, models.ContractStatusTerminated, escrowStatus)
		if err != nil {
			return fmt.Errorf("dispute repository: terminate contract %w", err)
		}

		resolved = dispute
		contract = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resolved, contract, nil
}

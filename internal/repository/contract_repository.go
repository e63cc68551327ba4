package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/repository/common"
)

// Ошибки репозитория контрактов. Сервисный слой переводит их в коды
// для клиента; здесь они остаются сигналами нарушенного предусловия.
var (
	ErrContractNotFound    = errors.New("contract not found")
	ErrContractExists      = errors.New("project already has a non-terminal contract")
	ErrBidNotPending       = errors.New("bid is not pending")
	ErrContractNotActive   = errors.New("contract is not active")
	ErrContractDisputed    = errors.New("contract is disputed")
	ErrEscrowNotHeld       = errors.New("escrow is not held")
	ErrChecklistIncomplete = errors.New("project checklist has incomplete items")
	ErrSubmissionMismatch  = errors.New("work already submitted with a different payload")
)

// ContractRepository отвечает за таблицу contracts и многосущностные
// переходы жизненного цикла. Каждый переход выполняется в одной
// транзакции базы с блокировками строк: либо все записи становятся
// видимыми вместе, либо ни одна.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository создаёт экземпляр репозитория.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// GetByID возвращает контракт по идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return common.GetByID[models.Contract](ctx, r.db, "contracts", id, ErrContractNotFound)
}

// GetNonTerminalByProjectID возвращает единственный незавершённый контракт
// проекта. По инварианту хранилища такой контракт не более одного.
func (r *ContractRepository) GetNonTerminalByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	query := `
		SELECT * FROM contracts
		WHERE project_id = $1 AND status NOT IN ('completed', 'terminated', 'cancelled')
	`
	if err := r.db.GetContext(ctx, &contract, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get non-terminal by project %w", err)
	}
	return &contract, nil
}

// GetLatestFinalizedByProjectID возвращает последний закрытый контракт
// проекта. Нужен для ретраев по идентификатору проекта: после расчёта
// нетерминального контракта уже нет, а вызывающему важно отличить
// «контракта никогда не было» от «контракт уже закрыт».
func (r *ContractRepository) GetLatestFinalizedByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	query := `
		SELECT * FROM contracts
		WHERE project_id = $1 AND status IN ('completed', 'terminated', 'cancelled')
		ORDER BY updated_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &contract, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get latest finalized by project %w", err)
	}
	return &contract, nil
}

// ListByUser возвращает контракты, где пользователь является клиентом
// или исполнителем.
func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	var contracts []models.Contract
	query := `
		SELECT * FROM contracts
		WHERE client_id = $1 OR contractor_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &contracts, query, userID); err != nil {
		return nil, fmt.Errorf("contract repository: list by user %w", err)
	}
	return contracts, nil
}

// AcceptBid превращает отклик в активный контракт.
// В одной транзакции: отклик должен быть pending, проект open, по
// проекту нет незавершённого контракта. Создаётся контракт (active,
// escrow held), отклик принимается, конкурирующие pending отклики
// отклоняются, проект переходит в in_progress.
func (r *ContractRepository) AcceptBid(ctx context.Context, bidID uuid.UUID) (*models.Contract, error) {
	var contract *models.Contract

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		bid, err := common.GetByIDForUpdate[models.Bid](ctx, tx, "bids", bidID, ErrBidNotFound)
		if err != nil {
			return err
		}
		if bid.Status != models.BidStatusPending {
			return ErrBidNotPending
		}

		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", bid.ProjectID, ErrProjectNotFound)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectStatusOpen {
			return ErrProjectNotOpen
		}

		var existing int
		err = tx.GetContext(ctx, &existing, `
			SELECT COUNT(*) FROM contracts
			WHERE project_id = $1 AND status NOT IN ('completed', 'terminated', 'cancelled')
		`, project.ID)
		if err != nil {
			return fmt.Errorf("contract repository: count non-terminal %w", err)
		}
		if existing > 0 {
			return ErrContractExists
		}

		var created models.Contract
		err = tx.GetContext(ctx, &created, `
			INSERT INTO contracts (project_id, client_id, contractor_id, bid_id, amount, days, status, escrow_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		`, project.ID, project.ClientID, bid.ContractorID, bid.ID, bid.Amount, bid.Days,
			models.ContractStatusActive, models.EscrowStatusHeld)
		if err != nil {
			return fmt.Errorf("contract repository: insert contract %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bids SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1
		`, bid.ID, models.BidStatusAccepted)
		if err != nil {
			return fmt.Errorf("contract repository: accept bid %w", err)
		}

		// Конкурирующие отклики больше не могут быть приняты.
		_, err = tx.ExecContext(ctx, `
			UPDATE bids SET status = $3, version = version + 1, updated_at = NOW()
			WHERE project_id = $1 AND id <> $2 AND status = $4
		`, project.ID, bid.ID, models.BidStatusRejected, models.BidStatusPending)
		if err != nil {
			return fmt.Errorf("contract repository: reject competing bids %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1
		`, project.ID, models.ProjectStatusInProgress)
		if err != nil {
			return fmt.Errorf("contract repository: update project status %w", err)
		}

		contract = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// SubmitWork переводит контракт из active в work_submitted.
// Чек-лист проекта проверяется внутри транзакции: при незакрытых
// пунктах возврат ErrChecklistIncomplete. Повторная сдача той же
// работы в статусе work_submitted считается no-op успехом.
func (r *ContractRepository) SubmitWork(ctx context.Context, contractID uuid.UUID, link, notes string) (*models.Contract, error) {
	var submitted *models.Contract

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		contract, err := common.GetByIDForUpdate[models.Contract](ctx, tx, "contracts", contractID, ErrContractNotFound)
		if err != nil {
			return err
		}

		switch contract.Status {
		case models.ContractStatusActive:
			// Нормальный переход, продолжаем ниже.
		case models.ContractStatusWorkSubmitted:
			// Идемпотентность при ретраях: тот же payload даёт тот же результат.
			if contract.SubmissionLink != nil && *contract.SubmissionLink == link &&
				contract.SubmissionNotes != nil && *contract.SubmissionNotes == notes {
				submitted = contract
				return nil
			}
			return ErrSubmissionMismatch
		case models.ContractStatusDisputed:
			return ErrContractDisputed
		default:
			return ErrContractNotActive
		}

		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", contract.ProjectID, ErrProjectNotFound)
		if err != nil {
			return err
		}
		if !project.Checklist.AllCompleted() {
			return ErrChecklistIncomplete
		}

		err = tx.GetContext(ctx, contract, `
			UPDATE contracts
			SET status = $2, submission_link = $3, submission_notes = $4, submitted_at = NOW(),
			    version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, contract.ID, models.ContractStatusWorkSubmitted, link, notes)
		if err != nil {
			return fmt.Errorf("contract repository: submit work %w", err)
		}

		// Ссылка дублируется на проект для простого чтения списков.
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET status = $2, work_link = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1
		`, project.ID, models.ProjectStatusWorkSubmitted, link)
		if err != nil {
			return fmt.Errorf("contract repository: mirror work link %w", err)
		}

		submitted = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// ReleaseEscrow атомарно проводит расчёт по контракту: списание у
// клиента, зачисление исполнителю через transferFunds, контракт
// completed/released, проект completed. Условие escrow held проверяется
// под блокировкой строки, поэтому двум конкурентным вызовам перевод
// дважды не провести.
func (r *ContractRepository) ReleaseEscrow(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	var released *models.Contract

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		contract, err := common.GetByIDForUpdate[models.Contract](ctx, tx, "contracts", contractID, ErrContractNotFound)
		if err != nil {
			return err
		}

		if contract.Status == models.ContractStatusDisputed {
			return ErrContractDisputed
		}
		if contract.EscrowStatus != models.EscrowStatusHeld || contract.IsTerminal() {
			return ErrEscrowNotHeld
		}

		if err := transferFunds(ctx, tx, contract.ID, contract.ClientID, contract.ContractorID, contract.Amount); err != nil {
			return err
		}

		err = tx.GetContext(ctx, contract, `
			UPDATE contracts
			SET status = $2, escrow_status = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, contract.ID, models.ContractStatusCompleted, models.EscrowStatusReleased)
		if err != nil {
			return fmt.Errorf("contract repository: release escrow %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1
		`, contract.ProjectID, models.ProjectStatusCompleted)
		if err != nil {
			return fmt.Errorf("contract repository: complete project %w", err)
		}

		released = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

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

// Ошибки репозитория проектов.
var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrProjectNotOpen        = errors.New("project is not open")
	ErrProjectNotCancellable = errors.New("project cannot be cancelled in its current state")
	ErrChecklistIndex        = errors.New("checklist item index out of range")
)

// ProjectRepository отвечает за работу с таблицей projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository создаёт экземпляр репозитория.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create создаёт новый проект в статусе open.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (client_id, title, description, budget, deadline, required_skills, checklist, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at
	`

	if project.Status == "" {
		project.Status = models.ProjectStatusOpen
	}

	if err := r.db.QueryRowxContext(
		ctx, query,
		project.ClientID,
		project.Title,
		project.Description,
		project.Budget,
		project.Deadline,
		pq.Array([]string(project.RequiredSkills)),
		project.Checklist,
		project.Status,
	).Scan(&project.ID, &project.Version, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}

	return nil
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return common.GetByID[models.Project](ctx, r.db, "projects", id, ErrProjectNotFound)
}

// List возвращает проекты с пагинацией, опционально по статусу.
func (r *ProjectRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Project, error) {
	query := `
		SELECT p.*, (SELECT COUNT(*) FROM bids b WHERE b.project_id = p.id) AS bids_count
		FROM projects p
	`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE p.status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("project repository: list %w", err)
	}
	return projects, nil
}

// ListByClient возвращает проекты клиента.
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	query := `SELECT * FROM projects WHERE client_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &projects, query, clientID); err != nil {
		return nil, fmt.Errorf("project repository: list by client %w", err)
	}
	return projects, nil
}

// SetChecklistItemCompleted отмечает пункт чек-листа выполненным или нет.
// Запись условная по версии: при конкурентном изменении возвращается
// ErrVersionConflict и вызывающий перечитывает состояние.
func (r *ProjectRepository) SetChecklistItemCompleted(ctx context.Context, projectID uuid.UUID, index int, completed bool) (*models.Project, error) {
	var updated *models.Project

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", projectID, ErrProjectNotFound)
		if err != nil {
			return err
		}

		if index < 0 || index >= len(project.Checklist) {
			return ErrChecklistIndex
		}
		project.Checklist[index].IsCompleted = completed

		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET checklist = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
		`, project.ID, project.Checklist, project.Version)
		if err != nil {
			return fmt.Errorf("project repository: update checklist %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return common.ErrVersionConflict
		}

		project.Version++
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddChecklistItem добавляет пункт в конец чек-листа.
func (r *ProjectRepository) AddChecklistItem(ctx context.Context, projectID uuid.UUID, text string) (*models.Project, error) {
	var updated *models.Project

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", projectID, ErrProjectNotFound)
		if err != nil {
			return err
		}

		project.Checklist = append(project.Checklist, models.ChecklistItem{Text: text})

		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET checklist = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
		`, project.ID, project.Checklist, project.Version)
		if err != nil {
			return fmt.Errorf("project repository: add checklist item %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return common.ErrVersionConflict
		}

		project.Version++
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel переводит проект в терминальный статус cancelled.
// Разрешено из open, а из in_progress только когда контракт по проекту
// уже терминален (например, после разрешения спора).
func (r *ProjectRepository) Cancel(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var cancelled *models.Project

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		project, err := common.GetByIDForUpdate[models.Project](ctx, tx, "projects", projectID, ErrProjectNotFound)
		if err != nil {
			return err
		}

		switch project.Status {
		case models.ProjectStatusOpen:
			// Нечего проверять: контракта ещё нет.
		case models.ProjectStatusInProgress:
			var active int
			err := tx.GetContext(ctx, &active, `
				SELECT COUNT(*) FROM contracts
				WHERE project_id = $1 AND status NOT IN ('completed', 'terminated', 'cancelled')
			`, projectID)
			if err != nil {
				return fmt.Errorf("project repository: count active contracts %w", err)
			}
			if active > 0 {
				return ErrProjectNotCancellable
			}
		default:
			return ErrProjectNotCancellable
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET status = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
		`, project.ID, models.ProjectStatusCancelled, project.Version)
		if err != nil {
			return fmt.Errorf("project repository: cancel %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return common.ErrVersionConflict
		}

		project.Status = models.ProjectStatusCancelled
		project.Version++
		cancelled = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CountProjects возвращает общее количество проектов.
func (r *ProjectRepository) CountProjects(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM projects`); err != nil {
		return 0, fmt.Errorf("project repository: count %w", err)
	}
	return count, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
	"github.com/propelhq/propel-backend/internal/validation"
)

// ProjectRepository описывает зависимости ProjectService от слоя хранилища.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Project, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error)
	SetChecklistItemCompleted(ctx context.Context, projectID uuid.UUID, index int, completed bool) (*models.Project, error)
	AddChecklistItem(ctx context.Context, projectID uuid.UUID, text string) (*models.Project, error)
	Cancel(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
}

// ProjectService содержит бизнес-логику работы с проектами.
type ProjectService struct {
	repo ProjectRepository
}

// NewProjectService создаёт новый сервис проектов.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// CreateProjectInput описывает входные данные.
type CreateProjectInput struct {
	ClientID       uuid.UUID
	Title          string
	Description    string
	Budget         float64
	Deadline       time.Time
	RequiredSkills []string
	Checklist      []string
}

// CreateProject создаёт проект и возвращает его.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if err := validation.ValidateProjectTitle(in.Title); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if err := validation.ValidateProjectDescription(in.Description); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if err := validation.ValidateAmount("сумма бюджета", in.Budget); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if err := validation.ValidateSkills(in.RequiredSkills); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if err := validation.ValidateChecklist(in.Checklist); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if in.Deadline.IsZero() {
		return nil, fmt.Errorf("project service: дедлайн обязателен")
	}
	if in.Deadline.Before(time.Now()) {
		return nil, fmt.Errorf("project service: дедлайн не может быть в прошлом")
	}

	checklist := make(models.Checklist, 0, len(in.Checklist))
	for _, text := range in.Checklist {
		checklist = append(checklist, models.ChecklistItem{Text: text})
	}

	skills := in.RequiredSkills
	if skills == nil {
		skills = []string{}
	}

	project := &models.Project{
		ClientID:       in.ClientID,
		Title:          in.Title,
		Description:    in.Description,
		Budget:         in.Budget,
		Deadline:       in.Deadline,
		RequiredSkills: pq.StringArray(skills),
		Checklist:      checklist,
		Status:         models.ProjectStatusOpen,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// GetProject возвращает проект по идентификатору.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjects возвращает список проектов с фильтром по статусу.
func (s *ProjectService) ListProjects(ctx context.Context, status string, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

// ListMyProjects возвращает проекты клиента.
func (s *ProjectService) ListMyProjects(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// AddChecklistItem добавляет пункт чеклиста. Доступно только владельцу проекта.
func (s *ProjectService) AddChecklistItem(ctx context.Context, projectID, userID uuid.UUID, text string) (*models.Project, error) {
	if err := validation.ValidateChecklist([]string{text}); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}

	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	return s.repo.AddChecklistItem(ctx, projectID, text)
}

// SetChecklistItemCompleted отмечает пункт чеклиста выполненным или нет.
// Доступно только владельцу проекта.
func (s *ProjectService) SetChecklistItemCompleted(ctx context.Context, projectID, userID uuid.UUID, index int, completed bool) (*models.Project, error) {
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.repo.SetChecklistItemCompleted(ctx, projectID, index, completed)
	if err != nil {
		if errors.Is(err, repository.ErrChecklistIndex) {
			return nil, apperror.New(apperror.ErrCodeBadRequest, "пункт чеклиста не найден")
		}
		return nil, err
	}
	return project, nil
}

// CancelProject отменяет проект. Доступно только владельцу.
func (s *ProjectService) CancelProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.repo.Cancel(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotCancellable) {
			return nil, apperror.New(apperror.ErrCodeConflict, "проект нельзя отменить в текущем статусе")
		}
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) requireOwner(ctx context.Context, projectID, userID uuid.UUID) error {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return apperror.ErrProjectNotFound
		}
		return err
	}
	if project.ClientID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на этот проект")
	}
	return nil
}

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/propelhq/propel-backend/internal/logger"
	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
)

// UserCounter считает активных пользователей.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// AccountModerator управляет статусом аккаунтов пользователей.
type AccountModerator interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error
}

// ProjectCounter считает проекты.
type ProjectCounter interface {
	CountProjects(ctx context.Context) (int, error)
}

// DisputeCounter считает неразрешённые споры.
type DisputeCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

// PlatformStats сводка по платформе для арбитра.
type PlatformStats struct {
	Users        int `json:"users"`
	Projects     int `json:"projects"`
	OpenDisputes int `json:"open_disputes"`
}

// AdminService отдаёт административную сводку и управляет аккаунтами.
type AdminService struct {
	users    UserCounter
	accounts AccountModerator
	projects ProjectCounter
	disputes DisputeCounter
}

// NewAdminService создаёт административный сервис.
func NewAdminService(users UserCounter, accounts AccountModerator, projects ProjectCounter, disputes DisputeCounter) *AdminService {
	return &AdminService{
		users:    users,
		accounts: accounts,
		projects: projects,
		disputes: disputes,
	}
}

// Stats возвращает сводку по платформе. Только для администратора.
func (s *AdminService) Stats(ctx context.Context, role string) (*PlatformStats, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.CountProjects(ctx)
	if err != nil {
		return nil, err
	}
	disputes, err := s.disputes.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	return &PlatformStats{
		Users:        users,
		Projects:     projects,
		OpenDisputes: disputes,
	}, nil
}

// ToggleUserBan переключает блокировку аккаунта. Только администратор;
// собственный аккаунт заблокировать нельзя. При блокировке удаляются
// все сессии пользователя, активные refresh токены перестают работать.
func (s *AdminService) ToggleUserBan(ctx context.Context, adminID uuid.UUID, role string, userID uuid.UUID) (*models.User, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if adminID == userID {
		return nil, apperror.New(apperror.ErrCodeConflict, "нельзя заблокировать собственный аккаунт")
	}

	user, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	updated, err := s.accounts.SetActive(ctx, userID, !user.IsActive)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	if !updated.IsActive {
		if err := s.accounts.DeleteSessionsByUser(ctx, userID); err != nil && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("admin service: не удалось удалить сессии заблокированного пользователя")
		}
	}

	return updated, nil
}

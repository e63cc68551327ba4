package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
	"github.com/propelhq/propel-backend/internal/validation"
)

// BidRepository описывает зависимости BidService от слоя хранилища.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Bid, error)
}

// BidService содержит бизнес-логику работы с откликами.
type BidService struct {
	repo     BidRepository
	projects ProjectRepository
	hub      WSNotifier
}

// NewBidService создаёт новый сервис откликов.
func NewBidService(repo BidRepository, projects ProjectRepository) *BidService {
	return &BidService{repo: repo, projects: projects}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *BidService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// PlaceBidInput описывает входные данные отклика.
type PlaceBidInput struct {
	ProjectID    uuid.UUID
	ContractorID uuid.UUID
	Amount       float64
	Days         int
	Proposal     string
}

// PlaceBid создаёт отклик исполнителя на открытый проект.
func (s *BidService) PlaceBid(ctx context.Context, in PlaceBidInput) (*models.Bid, error) {
	if err := validation.ValidateAmount("сумма отклика", in.Amount); err != nil {
		return nil, fmt.Errorf("bid service: %w", err)
	}
	if err := validation.ValidateDays(in.Days); err != nil {
		return nil, fmt.Errorf("bid service: %w", err)
	}
	if err := validation.ValidateBidProposal(in.Proposal); err != nil {
		return nil, fmt.Errorf("bid service: %w", err)
	}

	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}

	if project.ClientID == in.ContractorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный проект")
	}

	bid := &models.Bid{
		ProjectID:    in.ProjectID,
		ContractorID: in.ContractorID,
		Amount:       in.Amount,
		Days:         in.Days,
		Proposal:     in.Proposal,
		Status:       models.BidStatusPending,
	}

	if err := s.repo.Create(ctx, bid); err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, apperror.New(apperror.ErrCodeConflict, "проект не принимает отклики")
		case errors.Is(err, repository.ErrBidAlreadyPlaced):
			return nil, apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на этот проект")
		}
		return nil, err
	}

	// Уведомляем владельца проекта о новом отклике.
	if s.hub != nil {
		_ = s.hub.BroadcastToUser(project.ClientID, models.EventBidReceived, EventPayload{
			Message:   fmt.Sprintf("Новый отклик на проект «%s»", project.Title),
			RelatedID: &bid.ID,
			Amount:    &bid.Amount,
		})
	}

	return bid, nil
}

// GetBid возвращает отклик по идентификатору.
func (s *BidService) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}
	return bid, nil
}

// ListProjectBids возвращает отклики на проект. Полный список видит
// только владелец проекта или администратор.
func (s *BidService) ListProjectBids(ctx context.Context, projectID, userID uuid.UUID, role string) ([]models.Bid, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}

	if project.ClientID != userID && role != models.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отклики видны только владельцу проекта")
	}

	return s.repo.ListByProject(ctx, projectID)
}

// ListMyBids возвращает отклики исполнителя.
func (s *BidService) ListMyBids(ctx context.Context, contractorID uuid.UUID) ([]models.Bid, error) {
	return s.repo.ListByContractor(ctx, contractorID)
}

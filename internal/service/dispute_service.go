package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
	"github.com/propelhq/propel-backend/internal/validation"
)

// DisputeRepository описывает зависимости DisputeService от слоя хранилища.
type DisputeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
	Open(ctx context.Context, dispute *models.Dispute) error
	AddEvidence(ctx context.Context, disputeID uuid.UUID, path string) (*models.Dispute, error)
	MarkUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID, resolverID uuid.UUID, action, summary string) (*models.Dispute, *models.Contract, error)
}

// SettlementNotifier рассылает квитанции и уведомления после выплаты.
type SettlementNotifier interface {
	NotifySettled(contract *models.Contract)
}

// DisputeService содержит бизнес-логику споров и их арбитража.
type DisputeService struct {
	repo      DisputeRepository
	contracts ContractRepository
	settler   SettlementNotifier
	hub       WSNotifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepository, contracts ContractRepository, settler SettlementNotifier) *DisputeService {
	return &DisputeService{
		repo:      repo,
		contracts: contracts,
		settler:   settler,
	}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *DisputeService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// OpenDisputeInput описывает входные данные спора.
type OpenDisputeInput struct {
	ContractID  uuid.UUID
	RaisedBy    uuid.UUID
	Reason      string
	Description string
}

// OpenDispute открывает спор по контракту и замораживает расчёт.
// Идентификатор может быть как контрактом, так и проектом. Ответчиком
// автоматически становится вторая сторона контракта.
func (s *DisputeService) OpenDispute(ctx context.Context, in OpenDisputeInput) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeReasons[in.Reason]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("недопустимая причина спора %q", in.Reason))
	}
	if err := validation.ValidateDisputeDescription(in.Description); err != nil {
		return nil, fmt.Errorf("dispute service: %w", err)
	}

	contract, err := s.resolveContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParticipant(in.RaisedBy) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только сторона контракта")
	}

	dispute := &models.Dispute{
		ContractID:  contract.ID,
		RaisedBy:    in.RaisedBy,
		Reason:      in.Reason,
		Description: in.Description,
		Evidence:    pq.StringArray{},
	}

	if err := s.repo.Open(ctx, dispute); err != nil {
		switch {
		case errors.Is(err, repository.ErrDisputeExists):
			return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже открыт спор")
		case errors.Is(err, repository.ErrContractNotDisputable):
			return nil, apperror.New(apperror.ErrCodeConflict, "контракт нельзя оспорить в текущем статусе")
		case errors.Is(err, repository.ErrContractNotFound):
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	if s.hub != nil {
		_ = s.hub.BroadcastToUser(dispute.Defendant, models.EventDisputeOpened, EventPayload{
			Message:   "По вашему контракту открыт спор",
			RelatedID: &dispute.ID,
		})
	}

	return dispute, nil
}

// GetDispute возвращает спор. Доступен сторонам и администратору.
func (s *DisputeService) GetDispute(ctx context.Context, userID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}

	if dispute.RaisedBy != userID && dispute.Defendant != userID && role != models.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "у вас нет доступа к этому спору")
	}

	return dispute, nil
}

// ListMyDisputes возвращает споры, в которых пользователь участвует.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ListOpenDisputes возвращает неразрешённые споры для арбитража.
func (s *DisputeService) ListOpenDisputes(ctx context.Context, role string, limit, offset int) ([]models.Dispute, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOpen(ctx, limit, offset)
}

// AddEvidence прикрепляет файл-доказательство к открытому спору.
// Путь к файлу должен быть уже сохранён хранилищем.
func (s *DisputeService) AddEvidence(ctx context.Context, userID, disputeID uuid.UUID, path string) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}

	if dispute.RaisedBy != userID && dispute.Defendant != userID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "прикладывать доказательства могут только стороны спора")
	}

	updated, err := s.repo.AddEvidence(ctx, disputeID, path)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeResolved) {
			return nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
		}
		return nil, err
	}
	return updated, nil
}

// MarkUnderReview берёт открытый спор в рассмотрение. Только арбитр.
func (s *DisputeService) MarkUnderReview(ctx context.Context, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	dispute, err := s.repo.MarkUnderReview(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.New(apperror.ErrCodeConflict, "спор не найден или уже в рассмотрении")
		}
		return nil, err
	}
	return dispute, nil
}

// ResolveDisputeInput описывает решение арбитра.
type ResolveDisputeInput struct {
	DisputeID  uuid.UUID
	ResolverID uuid.UUID
	Role       string
	Action     string
	Summary    string
}

// ResolveDispute закрывает спор решением арбитра: refund_client
// возвращает escrow клиенту, pay_contractor выплачивает исполнителю.
// Арбитр не может быть стороной спора.
func (s *DisputeService) ResolveDispute(ctx context.Context, in ResolveDisputeInput) (*models.Dispute, *models.Contract, error) {
	if in.Role != models.RoleAdmin {
		return nil, nil, apperror.ErrForbidden
	}
	if _, ok := models.ValidDisputeActions[in.Action]; !ok {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("недопустимое решение %q", in.Action))
	}
	if err := validation.ValidateResolutionSummary(in.Summary); err != nil {
		return nil, nil, fmt.Errorf("dispute service: %w", err)
	}

	dispute, err := s.repo.GetByID(ctx, in.DisputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, nil, apperror.ErrDisputeNotFound
		}
		return nil, nil, err
	}

	if dispute.RaisedBy == in.ResolverID || dispute.Defendant == in.ResolverID {
		return nil, nil, apperror.New(apperror.ErrCodeForbidden, "арбитр не может быть стороной спора")
	}

	resolved, contract, err := s.repo.Resolve(ctx, in.DisputeID, in.ResolverID, in.Action, in.Summary)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeResolved) {
			return nil, nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
		}
		return nil, nil, err
	}

	if in.Action == models.DisputeActionPayContractor && s.settler != nil {
		s.settler.NotifySettled(contract)
	}

	if s.hub != nil {
		payload := EventPayload{
			Message:   "Спор разрешён арбитром",
			RelatedID: &resolved.ID,
		}
		_ = s.hub.BroadcastToUser(resolved.RaisedBy, models.EventDisputeResolved, payload)
		_ = s.hub.BroadcastToUser(resolved.Defendant, models.EventDisputeResolved, payload)
	}

	return resolved, contract, nil
}

// resolveContract повторяет правило поиска контракта по id контракта
// либо проекта.
func (s *DisputeService) resolveContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err == nil {
		return contract, nil
	}
	if !errors.Is(err, repository.ErrContractNotFound) {
		return nil, err
	}

	contract, err = s.contracts.GetNonTerminalByProjectID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/propelhq/propel-backend/internal/goroutine"
	"github.com/propelhq/propel-backend/internal/invoice"
	"github.com/propelhq/propel-backend/internal/logger"
	"github.com/propelhq/propel-backend/internal/mail"
	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
	"github.com/propelhq/propel-backend/internal/validation"
)

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// ContractRepository описывает зависимости ContractService от слоя хранилища.
type ContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetNonTerminalByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error)
	GetLatestFinalizedByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contract, error)
	AcceptBid(ctx context.Context, bidID uuid.UUID) (*models.Contract, error)
	SubmitWork(ctx context.Context, contractID uuid.UUID, link, notes string) (*models.Contract, error)
	ReleaseEscrow(ctx context.Context, contractID uuid.UUID) (*models.Contract, error)
}

// UserReader читает пользователей для уведомлений и квитанций.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ContractService содержит бизнес-логику жизненного цикла контракта:
// принятие отклика, сдача работы и расчёт по escrow.
type ContractService struct {
	repo     ContractRepository
	bids     BidRepository
	projects ProjectRepository
	users    UserReader
	mailer   mail.Mailer
	hub      WSNotifier
}

// NewContractService создаёт сервис контрактов.
func NewContractService(repo ContractRepository, bids BidRepository, projects ProjectRepository, users UserReader, mailer mail.Mailer) *ContractService {
	return &ContractService{
		repo:     repo,
		bids:     bids,
		projects: projects,
		users:    users,
		mailer:   mailer,
	}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *ContractService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// AcceptBid принимает отклик и создаёт контракт. Доступно только
// владельцу проекта. Конкурирующие pending-отклики отклоняются,
// проект переходит в in_progress, escrow удерживается.
func (s *ContractService) AcceptBid(ctx context.Context, clientID, bidID uuid.UUID) (*models.Contract, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, bid.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}

	if project.ClientID != clientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "принять отклик может только владелец проекта")
	}

	contract, err := s.repo.AcceptBid(ctx, bidID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBidNotPending):
			return nil, apperror.New(apperror.ErrCodeConflict, "отклик уже обработан")
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, apperror.New(apperror.ErrCodeConflict, "проект не принимает отклики")
		case errors.Is(err, repository.ErrContractExists):
			return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже существует активный контракт")
		}
		return nil, err
	}

	if s.hub != nil {
		_ = s.hub.BroadcastToUser(contract.ContractorID, models.EventBidAccepted, EventPayload{
			Message:   fmt.Sprintf("Ваш отклик на проект «%s» принят", project.Title),
			RelatedID: &contract.ID,
			Amount:    &contract.Amount,
		})
	}

	return contract, nil
}

// SubmitWork фиксирует сдачу работы исполнителем. Идентификатор может
// быть как контрактом, так и проектом.
func (s *ContractService) SubmitWork(ctx context.Context, contractorID, id uuid.UUID, link, notes string) (*models.Contract, error) {
	if err := validation.ValidateExternalLink(link); err != nil {
		return nil, fmt.Errorf("contract service: %w", err)
	}

	contract, err := s.resolveContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if contract.ContractorID != contractorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "сдать работу может только исполнитель контракта")
	}

	submitted, err := s.repo.SubmitWork(ctx, contract.ID, link, notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChecklistIncomplete):
			return nil, apperror.New(apperror.ErrCodePreconditionFailed, "не все пункты чеклиста проекта закрыты")
		case errors.Is(err, repository.ErrContractDisputed):
			return nil, apperror.New(apperror.ErrCodeConflict, "по контракту открыт спор")
		case errors.Is(err, repository.ErrSubmissionMismatch):
			return nil, apperror.New(apperror.ErrCodeConflict, "работа уже сдана с другими данными")
		case errors.Is(err, repository.ErrContractNotActive):
			return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в статусе active")
		}
		return nil, err
	}

	if s.hub != nil {
		_ = s.hub.BroadcastToUser(submitted.ClientID, models.EventWorkSubmitted, EventPayload{
			Message:   "Исполнитель сдал работу по контракту",
			RelatedID: &submitted.ID,
		})
	}

	return submitted, nil
}

// ReleaseResult итог расчёта по контракту.
type ReleaseResult struct {
	Contract        *models.Contract `json:"contract"`
	AmountMoved     float64          `json:"amount_moved"`
	AlreadyReleased bool             `json:"already_released"`
}

// ReleasePayment проводит расчёт по escrow. Доступно только клиенту
// контракта. Повторный вызов по уже рассчитанному контракту безопасен:
// деньги второй раз не двигаются, возвращается признак already_released.
func (s *ContractService) ReleasePayment(ctx context.Context, clientID, id uuid.UUID) (*ReleaseResult, error) {
	contract, err := s.resolveContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if contract.ClientID != clientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "провести расчёт может только клиент контракта")
	}

	released, err := s.repo.ReleaseEscrow(ctx, contract.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrContractDisputed):
			return nil, apperror.New(apperror.ErrCodeConflict, "по контракту открыт спор, расчёт заморожен")
		case errors.Is(err, repository.ErrEscrowNotHeld):
			return s.releaseOutcomeAfterConflict(ctx, contract.ID)
		}
		return nil, err
	}

	s.settlementSideEffects(released)

	return &ReleaseResult{
		Contract:    released,
		AmountMoved: released.Amount,
	}, nil
}

// releaseOutcomeAfterConflict различает повторный расчёт и контракт,
// закрытый возвратом или спором.
func (s *ContractService) releaseOutcomeAfterConflict(ctx context.Context, contractID uuid.UUID) (*ReleaseResult, error) {
	current, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	if current.EscrowStatus == models.EscrowStatusReleased {
		return &ReleaseResult{
			Contract:        current,
			AlreadyReleased: true,
		}, nil
	}

	return nil, apperror.New(apperror.ErrCodeConflict, "средства по контракту уже возвращены или контракт закрыт")
}

// GetContract возвращает контракт по идентификатору контракта или проекта.
// Доступен сторонам контракта и администратору.
func (s *ContractService) GetContract(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.resolveContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if !contract.IsParticipant(userID) && role != models.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "у вас нет доступа к этому контракту")
	}

	return contract, nil
}

// GetMyContracts возвращает контракты пользователя в обеих ролях.
func (s *ContractService) GetMyContracts(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	return s.repo.ListByUser(ctx, userID)
}

// InvoiceForContract формирует PDF-квитанцию по рассчитанному контракту.
func (s *ContractService) InvoiceForContract(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) ([]byte, string, error) {
	contract, err := s.GetContract(ctx, userID, role, id)
	if err != nil {
		return nil, "", err
	}

	if contract.EscrowStatus != models.EscrowStatusReleased {
		return nil, "", apperror.New(apperror.ErrCodeConflict, "расчёт по контракту ещё не проведён")
	}

	data, err := s.invoiceData(ctx, contract)
	if err != nil {
		return nil, "", err
	}

	pdf, err := invoice.Generate(*data)
	if err != nil {
		return nil, "", err
	}

	return pdf, data.Number() + ".pdf", nil
}

// resolveContract находит контракт по его идентификатору, а при промахе
// пробует трактовать идентификатор как проект с нетерминальным контрактом.
func (s *ContractService) resolveContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return contract, nil
	}
	if !errors.Is(err, repository.ErrContractNotFound) {
		return nil, err
	}

	contract, err = s.repo.GetNonTerminalByProjectID(ctx, id)
	if err == nil {
		return contract, nil
	}
	if !errors.Is(err, repository.ErrContractNotFound) {
		return nil, err
	}

	// Ретрай по идентификатору проекта после расчёта: нетерминального
	// контракта уже нет, берём последний закрытый, чтобы вызывающий
	// получил already_released или Conflict вместо 404.
	contract, err = s.repo.GetLatestFinalizedByProjectID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

// invoiceData собирает данные квитанции из контракта и связанных записей.
func (s *ContractService) invoiceData(ctx context.Context, contract *models.Contract) (*invoice.Data, error) {
	client, err := s.users.GetByID(ctx, contract.ClientID)
	if err != nil {
		return nil, err
	}
	contractor, err := s.users.GetByID(ctx, contract.ContractorID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, contract.ProjectID)
	if err != nil {
		return nil, err
	}

	releasedAt := contract.UpdatedAt
	if releasedAt.IsZero() {
		releasedAt = time.Now()
	}

	return &invoice.Data{
		ContractID:      contract.ID,
		ProjectTitle:    project.Title,
		ClientName:      client.Name,
		ClientEmail:     client.Email,
		ContractorName:  contractor.Name,
		ContractorEmail: contractor.Email,
		Amount:          contract.Amount,
		ReleasedAt:      releasedAt,
	}, nil
}

// NotifySettled запускает рассылку квитанций по рассчитанному контракту.
// Используется арбитражем при выплате исполнителю.
func (s *ContractService) NotifySettled(contract *models.Contract) {
	s.settlementSideEffects(contract)
}

// settlementSideEffects рассылает письма-квитанции и уведомления после
// расчёта. Выполняется в фоне: сбой почты не откатывает перевод.
func (s *ContractService) settlementSideEffects(contract *models.Contract) {
	c := *contract
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, err := s.invoiceData(ctx, &c)
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"contract_id": c.ID,
					"error":       err.Error(),
				}).Warn("contract service: не удалось собрать данные квитанции")
			}
			return
		}

		body := fmt.Sprintf(
			"Расчёт по контракту %s проведён.\n\nПроект: %s\nСумма: %.2f\nКвитанция: %s\n\nPaid via Propel Escrow",
			c.ID, data.ProjectTitle, c.Amount, data.Number(),
		)

		if s.mailer != nil {
			for _, rcpt := range []string{data.ClientEmail, data.ContractorEmail} {
				if err := s.mailer.Send(rcpt, "Квитанция об оплате "+data.Number(), body); err != nil && logger.Log != nil {
					logger.Log.WithFields(logrus.Fields{
						"contract_id": c.ID,
						"to":          rcpt,
					}).Warn("contract service: не удалось отправить письмо-квитанцию")
				}
			}
		}

		if s.hub != nil {
			payload := EventPayload{
				Message:   fmt.Sprintf("Оплата по проекту «%s» проведена", data.ProjectTitle),
				RelatedID: &c.ID,
				Amount:    &c.Amount,
			}
			_ = s.hub.BroadcastToUser(c.ContractorID, models.EventPaymentReleased, payload)
			_ = s.hub.BroadcastToUser(c.ClientID, models.EventPaymentReleased, payload)
		}
	})
}

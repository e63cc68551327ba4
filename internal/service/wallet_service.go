package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/validation"
)

// WalletRepository описывает зависимости WalletService от слоя хранилища.
type WalletRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.WalletBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
}

// WalletService содержит бизнес-логику работы с кошельком.
type WalletService struct {
	repo WalletRepository
}

// NewWalletService создаёт новый сервис кошелька.
func NewWalletService(repo WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

// GetBalance возвращает баланс пользователя.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.WalletBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Deposit пополняет баланс.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*models.WalletTransaction, error) {
	if err := validation.ValidateAmount("сумма пополнения", amount); err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}
	return s.repo.Deposit(ctx, userID, amount, "Пополнение баланса")
}

// ListTransactions возвращает историю транзакций.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

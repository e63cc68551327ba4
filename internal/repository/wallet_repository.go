package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/propelhq/propel-backend/internal/models"
)

// WalletRepository отвечает за балансы кошельков и историю транзакций.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository создаёт экземпляр репозитория.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetBalance возвращает баланс пользователя, создаёт запись если не существует.
func (r *WalletRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.WalletBalance, error) {
	var balance models.WalletBalance
	query := `
		INSERT INTO wallet_balances (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, balance, version, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("wallet repository: get balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет баланс пользователя.
func (r *WalletRepository) Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.WalletTransaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallet_balances.balance + $2, version = wallet_balances.version + 1, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit update balance %w", err)
	}

	var transaction models.WalletTransaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO wallet_transactions (user_id, type, amount, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, contract_id, type, amount, description, created_at
	`, userID, models.TransactionTypeDeposit, amount, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var transactions []models.WalletTransaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, contract_id, type, amount, description, created_at
		FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: list transactions %w", err)
	}
	return transactions, nil
}

// transferFunds единственный примитив движения средств между кошельками.
// Списывает amount у from и зачисляет to в рамках переданной транзакции,
// записывая пару взаимно компенсирующих строк в wallet_transactions.
// Им пользуются расчёт по контракту и выплата по решению спора; больше
// никто средства не двигает.
func transferFunds(ctx context.Context, tx *sqlx.Tx, contractID uuid.UUID, from, to uuid.UUID, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("wallet repository: сумма перевода должна быть положительной")
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, balance)
		VALUES ($1, -$2::numeric)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallet_balances.balance - $2, version = wallet_balances.version + 1, updated_at = NOW()
	`, from, amount)
	if err != nil {
		return fmt.Errorf("wallet repository: debit %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallet_balances.balance + $2, version = wallet_balances.version + 1, updated_at = NOW()
	`, to, amount)
	if err != nil {
		return fmt.Errorf("wallet repository: credit %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (user_id, contract_id, type, amount, description)
		VALUES
			($1, $3, $4, -$5::numeric, 'Списание по контракту'),
			($2, $3, $6, $5, 'Зачисление по контракту')
	`, from, to, contractID, models.TransactionTypeEscrowDebit, amount, models.TransactionTypeEscrowCredit)
	if err != nil {
		return fmt.Errorf("wallet repository: record transfer %w", err)
	}

	return nil
}

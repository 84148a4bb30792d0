package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetBalance возвращает кошелёк пользователя, создаёт если не существует.
func (r *PaymentRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	query := `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, frozen, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: get balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет кошелёк пользователя.
func (r *PaymentRepository) Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("payment repository: deposit update balance %w", err)
	}

	var transaction models.Transaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (user_id, type, amount, description)
		VALUES ($1, 'deposit', $2, $3)
		RETURNING id, user_id, job_id, type, amount, description, created_at
	`, userID, amount, description)
	if err != nil {
		return nil, fmt.Errorf("payment repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// FreezeTx удерживает amount из доступных средств плательщика.
// Списание атомарное: при нехватке средств строка не меняется
// и возвращается ErrInsufficientFunds.
func (r *PaymentRepository) FreezeTx(ctx context.Context, tx *sqlx.Tx, userID, jobID uuid.UUID, amount int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available - $2, frozen = frozen + $2, updated_at = NOW()
		WHERE user_id = $1 AND available >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("payment repository: freeze %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: freeze rows affected %w", err)
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	return r.recordTx(ctx, tx, userID, &jobID, models.TransactionTypeEscrowHold, amount,
		"Удержание средств по работе")
}

// SettleTx переводит amount из замороженных средств payer в доступные payee.
func (r *PaymentRepository) SettleTx(ctx context.Context, tx *sqlx.Tx, payer, payee, jobID uuid.UUID, amount int64, txType, description string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET frozen = frozen - $2, updated_at = NOW()
		WHERE user_id = $1 AND frozen >= $2
	`, payer, amount)
	if err != nil {
		return fmt.Errorf("payment repository: settle debit %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: settle rows affected %w", err)
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, payee, amount)
	if err != nil {
		return fmt.Errorf("payment repository: settle credit %w", err)
	}

	return r.recordTx(ctx, tx, payee, &jobID, txType, amount, description)
}

// ReverseTx возвращает amount из замороженных средств payer в его доступные.
func (r *PaymentRepository) ReverseTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64, description string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET frozen = frozen - $2, available = available + $2, updated_at = NOW()
		WHERE user_id = $1 AND frozen >= $2
	`, payer, amount)
	if err != nil {
		return fmt.Errorf("payment repository: reverse %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: reverse rows affected %w", err)
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	return r.recordTx(ctx, tx, payer, &jobID, models.TransactionTypeEscrowRefund, amount, description)
}

// ListTransactions возвращает историю движений по кошельку пользователя.
func (r *PaymentRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, job_id, type, amount, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

func (r *PaymentRepository) recordTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, jobID *uuid.UUID, txType string, amount int64, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, job_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, jobID, txType, amount, description)
	if err != nil {
		return fmt.Errorf("payment repository: record transaction %w", err)
	}
	return nil
}

package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
)

// WalletRepository описывает операции кошелька в хранилище.
type WalletRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	FreezeTx(ctx context.Context, tx *sqlx.Tx, userID, jobID uuid.UUID, amount int64) error
	SettleTx(ctx context.Context, tx *sqlx.Tx, payer, payee, jobID uuid.UUID, amount int64, txType, description string) error
	ReverseTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64, description string) error
}

// PaymentService — кошелёк платформы: балансы и история движений.
// Одновременно служит платёжным шлюзом для эскроу-леджера: удержание
// и расчёты выполняются над внутренними балансами в транзакции вызывающего.
type PaymentService struct {
	repo WalletRepository
}

var _ PaymentGateway = (*PaymentService)(nil)

func NewPaymentService(repo WalletRepository) *PaymentService {
	return &PaymentService{repo: repo}
}

// GetBalance возвращает кошелёк пользователя.
func (s *PaymentService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Deposit пополняет кошелёк.
func (s *PaymentService) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма пополнения должна быть положительной")
	}
	return s.repo.Deposit(ctx, userID, amount, "Пополнение кошелька")
}

// ListTransactions возвращает историю движений по кошельку.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// HoldTx реализует PaymentGateway.
func (s *PaymentService) HoldTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64) error {
	return s.repo.FreezeTx(ctx, tx, payer, jobID, amount)
}

// SettleTx реализует PaymentGateway.
func (s *PaymentService) SettleTx(ctx context.Context, tx *sqlx.Tx, payer, payee, jobID uuid.UUID, amount int64, txType, description string) error {
	return s.repo.SettleTx(ctx, tx, payer, payee, jobID, amount, txType, description)
}

// ReverseTx реализует PaymentGateway.
func (s *PaymentService) ReverseTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64, description string) error {
	return s.repo.ReverseTx(ctx, tx, payer, jobID, amount, description)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/domain/valueobject"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
)

// EscrowStore описывает взаимодействие леджера с хранилищем записей эскроу.
type EscrowStore interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.EscrowEntry, error)
	GetByJobIDTx(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (*models.EscrowEntry, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, entry *models.EscrowEntry, toStatus string, amountHeld, eventAmount int64, actorID uuid.UUID, note string) error
	ListEvents(ctx context.Context, jobID uuid.UUID) ([]models.EscrowEvent, error)
}

// PaymentGateway — коллаборатор движения средств. Все методы выполняются
// в рамках транзакции вызывающей стороны: сбой любого из них откатывает
// и переход статуса работы.
type PaymentGateway interface {
	// HoldTx удерживает amount из доступных средств плательщика.
	HoldTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64) error
	// SettleTx переводит amount из удержанных средств payer получателю payee.
	SettleTx(ctx context.Context, tx *sqlx.Tx, payer, payee, jobID uuid.UUID, amount int64, txType, description string) error
	// ReverseTx возвращает amount из удержанных средств payer в его доступные.
	ReverseTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64, description string) error
}

// EscrowService — леджер удержанных средств. Каждая операция идемпотентна
// по паре (работа, целевой статус): повторный вызов release по уже
// выплаченной записи — no-op, возвращающий существующую запись. Попытка
// второй, отличной терминальной операции (например, refund после release) —
// фатальная ошибка, которая никогда не гасится молча.
type EscrowService struct {
	store   EscrowStore
	gateway PaymentGateway
}

func NewEscrowService(store EscrowStore, gateway PaymentGateway) *EscrowService {
	return &EscrowService{store: store, gateway: gateway}
}

// Entry возвращает запись эскроу по работе.
func (s *EscrowService) Entry(ctx context.Context, jobID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.store.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Audit возвращает журнал операций эскроу по работе.
func (s *EscrowService) Audit(ctx context.Context, jobID uuid.UUID) ([]models.EscrowEvent, error) {
	return s.store.ListEvents(ctx, jobID)
}

// HoldTx удерживает полную сумму работы (base + fee) с заказчика.
func (s *EscrowService) HoldTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.lockEntry(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}

	if entry.Status == models.EscrowStatusHeld {
		if entry.AmountHeld == job.TotalDue {
			// Повтор того же hold — no-op.
			return entry, nil
		}
		return nil, apperror.Escrow("по работе уже удержана другая сумма", false)
	}
	if entry.IsTerminal() {
		return nil, s.alreadyTerminal(entry)
	}

	if err := s.gateway.HoldTx(ctx, tx, job.RequirerID, job.ID, job.TotalDue); err != nil {
		return nil, s.gatewayError(err, "не удалось удержать средства заказчика")
	}

	if err := s.store.UpdateStatusTx(ctx, tx, entry, models.EscrowStatusHeld,
		job.TotalDue, job.TotalDue, actorID, "удержание средств при принятии работы"); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleaseTx выплачивает удержанные средства: исполнителю — net (base - fee),
// платформе — сервисный сбор, остаток резерва возвращается заказчику.
// После выплаты amount_held равен нулю — средства распределены полностью.
func (s *EscrowService) ReleaseTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.lockEntry(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}

	if entry.Status == models.EscrowStatusReleased {
		return entry, nil
	}
	if entry.IsTerminal() {
		return nil, s.alreadyTerminal(entry)
	}
	if entry.Status != models.EscrowStatusHeld {
		return nil, apperror.Escrow("по работе нет удержанных средств", false)
	}
	if job.ProviderID == nil {
		return nil, apperror.Escrow("у работы нет исполнителя для выплаты", false)
	}

	held := entry.AmountHeld
	// Резерв заказчика: часть удержания сверх суммы работы.
	buffer := held - job.BaseAmount

	if err := s.gateway.SettleTx(ctx, tx, job.RequirerID, *job.ProviderID, job.ID,
		job.NetPayout, models.TransactionTypeEscrowRelease, "Выплата за выполненную работу"); err != nil {
		return nil, s.gatewayError(err, "не удалось выплатить средства исполнителю")
	}
	if err := s.gateway.SettleTx(ctx, tx, job.RequirerID, models.PlatformAccountID, job.ID,
		job.ServiceFee, models.TransactionTypeServiceFee, "Сервисный сбор платформы"); err != nil {
		return nil, s.gatewayError(err, "не удалось зачислить сервисный сбор")
	}
	if buffer > 0 {
		if err := s.gateway.ReverseTx(ctx, tx, job.RequirerID, job.ID,
			buffer, "Возврат резерва сервисного сбора"); err != nil {
			return nil, s.gatewayError(err, "не удалось вернуть резерв заказчику")
		}
	}

	if err := s.store.UpdateStatusTx(ctx, tx, entry, models.EscrowStatusReleased,
		0, held, actorID, "выплата исполнителю"); err != nil {
		return nil, err
	}
	return entry, nil
}

// RefundTx возвращает всю удержанную сумму заказчику.
func (s *EscrowService) RefundTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.lockEntry(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}

	if entry.Status == models.EscrowStatusRefunded {
		return entry, nil
	}
	if entry.IsTerminal() {
		return nil, s.alreadyTerminal(entry)
	}
	if entry.Status != models.EscrowStatusHeld {
		return nil, apperror.Escrow("по работе нет удержанных средств", false)
	}

	held := entry.AmountHeld
	if err := s.gateway.ReverseTx(ctx, tx, job.RequirerID, job.ID,
		held, "Возврат средств за отменённую работу"); err != nil {
		return nil, s.gatewayError(err, "не удалось вернуть средства заказчику")
	}

	if err := s.store.UpdateStatusTx(ctx, tx, entry, models.EscrowStatusRefunded,
		0, held, actorID, "возврат средств заказчику"); err != nil {
		return nil, err
	}
	return entry, nil
}

// SplitTx распределяет удержанные средства по решению арбитра: исполнитель
// получает долю shareBps от net-выплаты, платформа — сервисный сбор,
// остаток возвращается заказчику. Используется только из разрешения спора.
func (s *EscrowService) SplitTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, shareBps int64, actorID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.lockEntry(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}

	if entry.Status == models.EscrowStatusPartiallyReleased {
		return entry, nil
	}
	if entry.IsTerminal() {
		return nil, s.alreadyTerminal(entry)
	}
	if entry.Status != models.EscrowStatusHeld {
		return nil, apperror.Escrow("по работе нет удержанных средств", false)
	}
	if job.ProviderID == nil {
		return nil, apperror.Escrow("у работы нет исполнителя для выплаты", false)
	}

	providerPart, err := valueobject.SplitShare(job.NetPayout, shareBps)
	if err != nil {
		return nil, err
	}
	held := entry.AmountHeld
	requirerPart := held - job.ServiceFee - providerPart

	if providerPart > 0 {
		if err := s.gateway.SettleTx(ctx, tx, job.RequirerID, *job.ProviderID, job.ID,
			providerPart, models.TransactionTypeEscrowRelease, "Частичная выплата по решению арбитра"); err != nil {
			return nil, s.gatewayError(err, "не удалось выплатить долю исполнителю")
		}
	}
	if err := s.gateway.SettleTx(ctx, tx, job.RequirerID, models.PlatformAccountID, job.ID,
		job.ServiceFee, models.TransactionTypeServiceFee, "Сервисный сбор платформы"); err != nil {
		return nil, s.gatewayError(err, "не удалось зачислить сервисный сбор")
	}
	if requirerPart > 0 {
		if err := s.gateway.ReverseTx(ctx, tx, job.RequirerID, job.ID,
			requirerPart, "Частичный возврат по решению арбитра"); err != nil {
			return nil, s.gatewayError(err, "не удалось вернуть долю заказчику")
		}
	}

	note := fmt.Sprintf("частичное разделение: исполнителю %d, заказчику %d", providerPart, requirerPart)
	if err := s.store.UpdateStatusTx(ctx, tx, entry, models.EscrowStatusPartiallyReleased,
		0, held, actorID, note); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *EscrowService) lockEntry(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (*models.EscrowEntry, error) {
	entry, err := s.store.GetByJobIDTx(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	return entry, nil
}

// alreadyTerminal — попытка второй, отличной терминальной операции.
// Фатальная ошибка, отдаётся вызывающей стороне как есть.
func (s *EscrowService) alreadyTerminal(entry *models.EscrowEntry) error {
	return apperror.Escrow(
		fmt.Sprintf("эскроу уже в терминальном статусе %q", entry.Status), false)
}

// gatewayError переводит ошибку платёжного коллаборатора в ошибку эскроу.
// Таймаут шлюза оставляет запись в статусе held и помечается как retryable.
func (s *EscrowService) gatewayError(err error, message string) error {
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return apperror.WrapEscrow(err, "недостаточно средств на балансе заказчика", false)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.WrapEscrow(err, message+": шлюз не ответил, повторите попытку", true)
	}
	return apperror.WrapEscrow(err, message, false)
}

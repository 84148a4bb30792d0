package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
)

var ErrEscrowNotFound = errors.New("escrow not found")

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// GetByJobID возвращает запись эскроу по работе.
func (r *EscrowRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.EscrowEntry, error) {
	var entry models.EscrowEntry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM escrow_entries WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("escrow repository: get by job %w", err)
	}
	return &entry, nil
}

// GetByJobIDTx возвращает запись эскроу с блокировкой строки.
// Операции леджера сериализуются на уровне строки: параллельный
// release/refund по той же работе будет ждать коммита первой транзакции.
func (r *EscrowRepository) GetByJobIDTx(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (*models.EscrowEntry, error) {
	var entry models.EscrowEntry
	err := tx.GetContext(ctx, &entry, `SELECT * FROM escrow_entries WHERE job_id = $1 FOR UPDATE`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("escrow repository: get by job for update %w", err)
	}
	return &entry, nil
}

// UpdateStatusTx переводит запись эскроу в новый статус и дописывает
// запись журнала аудита. Журнал только дописывается и не редактируется.
// eventAmount — сумма, прошедшая через операцию (для аудита), amountHeld —
// новое значение удержанных средств (0 после выплаты или возврата).
func (r *EscrowRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, entry *models.EscrowEntry, toStatus string, amountHeld, eventAmount int64, actorID uuid.UUID, note string) error {
	fromStatus := entry.Status

	var query string
	if toStatus == models.EscrowStatusReleased ||
		toStatus == models.EscrowStatusRefunded ||
		toStatus == models.EscrowStatusPartiallyReleased {
		query = `UPDATE escrow_entries SET status = $2, amount_held = $3, released_at = NOW(), updated_at = NOW() WHERE id = $1`
	} else {
		query = `UPDATE escrow_entries SET status = $2, amount_held = $3, updated_at = NOW() WHERE id = $1`
	}
	if _, err := tx.ExecContext(ctx, query, entry.ID, toStatus, amountHeld); err != nil {
		return fmt.Errorf("escrow repository: update status %w", err)
	}

	if err := r.AppendEventTx(ctx, tx, &models.EscrowEvent{
		EscrowID:   entry.ID,
		JobID:      entry.JobID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Amount:     eventAmount,
		ActorID:    actorID,
		Note:       note,
	}); err != nil {
		return err
	}

	entry.Status = toStatus
	entry.AmountHeld = amountHeld
	return nil
}

// AppendEventTx дописывает запись журнала аудита эскроу.
func (r *EscrowRepository) AppendEventTx(ctx context.Context, tx *sqlx.Tx, event *models.EscrowEvent) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO escrow_events (escrow_id, job_id, from_status, to_status, amount, actor_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, event.EscrowID, event.JobID, event.FromStatus, event.ToStatus,
		event.Amount, event.ActorID, event.Note,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("escrow repository: append event %w", err)
	}
	return nil
}

// ListEvents возвращает журнал аудита по работе в порядке записи.
func (r *EscrowRepository) ListEvents(ctx context.Context, jobID uuid.UUID) ([]models.EscrowEvent, error) {
	var events []models.EscrowEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM escrow_events WHERE job_id = $1 ORDER BY created_at, id
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list events %w", err)
	}
	return events, nil
}

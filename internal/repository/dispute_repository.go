package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
)

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// CreateTx сохраняет новый спор в рамках транзакции перехода статуса.
func (r *DisputeRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO disputes (job_id, escrow_id, initiator_id, reason, description,
			proposed_resolution, evidence_refs, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, d.JobID, d.EscrowID, d.InitiatorID, d.Reason, d.Description,
		d.ProposedResolution, pq.Array([]string(d.EvidenceRefs)), d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	return &d, err
}

func (r *DisputeRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	return &d, err
}

// ResolveTx закрывает спор решением арбитра. Решение записывается один раз:
// уже закрытый спор не перезаписывается.
func (r *DisputeRepository) ResolveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, outcome string, providerShareBps *int64, resolvedBy uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE disputes SET status = $2, outcome = $3, provider_share_bps = $4,
			resolved_by = $5, resolved_at = NOW()
		WHERE id = $1 AND status = $6
	`, id, models.DisputeStatusResolved, outcome, providerShareBps, resolvedBy, models.DisputeStatusPending)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dispute repository: resolve rows affected %w", err)
	}
	if affected == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

// ListByUser возвращает споры, в которых пользователь — сторона работы.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.* FROM disputes d
		JOIN jobs j ON d.job_id = j.id
		WHERE j.requirer_id = $1 OR j.provider_id = $1
		ORDER BY d.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return disputes, err
}

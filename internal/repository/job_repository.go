package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository/common"
)

var ErrJobNotFound = errors.New("job not found")

// JobListParams — параметры выборки открытых работ.
type JobListParams struct {
	Category string
	Skill    string
	Limit    int
	Offset   int
}

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create создаёт работу вместе с навыками и пустой записью эскроу.
// Работа и эскроу заводятся строго парой (одна запись эскроу на работу).
func (r *JobRepository) Create(ctx context.Context, job *models.Job, skills []string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO jobs (requirer_id, title, description, category, location,
				base_amount, fee_rate_bps, service_fee, total_due, net_payout,
				status, deadline_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, version, created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			job.RequirerID, job.Title, job.Description, job.Category, job.Location,
			job.BaseAmount, job.FeeRateBps, job.ServiceFee, job.TotalDue, job.NetPayout,
			job.Status, job.DeadlineAt,
		).Scan(&job.ID, &job.Version, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return fmt.Errorf("job repository: create %w", err)
		}

		for _, skill := range skills {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO job_skills (job_id, skill) VALUES ($1, $2)`,
				job.ID, skill); err != nil {
				return fmt.Errorf("job repository: create skill %w", err)
			}
		}
		job.Skills = skills

		_, err = tx.ExecContext(ctx, `
			INSERT INTO escrow_entries (job_id, amount_held, status)
			VALUES ($1, 0, $2)
		`, job.ID, models.EscrowStatusNone)
		if err != nil {
			return fmt.Errorf("job repository: create escrow entry %w", err)
		}

		return nil
	})
}

// GetByID возвращает работу без связанных сущностей.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", id, ErrJobNotFound)
}

// GetByIDWithDetails возвращает работу вместе с навыками, эскроу и спором.
func (r *JobRepository) GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var skills []string
	if err := r.db.SelectContext(ctx, &skills,
		`SELECT skill FROM job_skills WHERE job_id = $1 ORDER BY skill`, id); err != nil {
		return nil, fmt.Errorf("job repository: list skills %w", err)
	}
	job.Skills = skills

	var escrow models.EscrowEntry
	err = r.db.GetContext(ctx, &escrow, `SELECT * FROM escrow_entries WHERE job_id = $1`, id)
	if err == nil {
		job.Escrow = &escrow
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job repository: get escrow %w", err)
	}

	var dispute models.Dispute
	err = r.db.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE job_id = $1`, id)
	if err == nil {
		job.Dispute = &dispute
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job repository: get dispute %w", err)
	}

	return job, nil
}

// ListOpen возвращает работы в статусе pending с фильтрами по категории и навыку.
func (r *JobRepository) ListOpen(ctx context.Context, params JobListParams) ([]models.Job, error) {
	query := `
		SELECT DISTINCT j.* FROM jobs j
		LEFT JOIN job_skills s ON s.job_id = j.id
		WHERE j.status = 'pending' AND j.deadline_at > NOW()
	`
	args := []interface{}{}
	idx := 1
	if params.Category != "" {
		query += fmt.Sprintf(" AND j.category = $%d", idx)
		args = append(args, params.Category)
		idx++
	}
	if params.Skill != "" {
		query += fmt.Sprintf(" AND s.skill = $%d", idx)
		args = append(args, params.Skill)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY j.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("job repository: list open %w", err)
	}
	return jobs, nil
}

// ListByUser возвращает работы пользователя: созданные им и принятые им.
func (r *JobRepository) ListByUser(ctx context.Context, userID uuid.UUID) (asRequirer, asProvider []models.Job, err error) {
	if err = r.db.SelectContext(ctx, &asRequirer,
		`SELECT * FROM jobs WHERE requirer_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, nil, fmt.Errorf("job repository: list as requirer %w", err)
	}
	if err = r.db.SelectContext(ctx, &asProvider,
		`SELECT * FROM jobs WHERE provider_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, nil, fmt.Errorf("job repository: list as provider %w", err)
	}
	return asRequirer, asProvider, nil
}

// ListExpiredPending возвращает работы в статусе pending с истёкшим дедлайном.
func (r *JobRepository) ListExpiredPending(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs WHERE status = 'pending' AND deadline_at <= NOW()
		ORDER BY deadline_at LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("job repository: list expired %w", err)
	}
	return jobs, nil
}

// UpdateStatusTx записывает изменённую работу с проверкой ожидаемой версии.
// Если версия не совпала (работа изменена параллельным запросом),
// возвращает common.ErrVersionConflict и ничего не записывает.
func (r *JobRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, expectedVersion int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET
			provider_id = $3,
			base_amount = $4, service_fee = $5, total_due = $6, net_payout = $7,
			status = $8,
			completion_notes = $9, completion_evidence = $10, rating = $11,
			archived_at = $12,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, job.ID, expectedVersion,
		job.ProviderID,
		job.BaseAmount, job.ServiceFee, job.TotalDue, job.NetPayout,
		job.Status,
		job.CompletionNotes, pq.Array([]string(job.CompletionEvidence)), job.Rating,
		job.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("job repository: update status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return common.ErrVersionConflict
	}

	job.Version = expectedVersion + 1
	job.UpdatedAt = time.Now()
	return nil
}

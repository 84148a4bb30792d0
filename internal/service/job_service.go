package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/domain/valueobject"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/logger"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/validation"
)

// JobStore описывает взаимодействие сервиса с хранилищем работ.
type JobStore interface {
	Create(ctx context.Context, job *models.Job, skills []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListOpen(ctx context.Context, params repository.JobListParams) ([]models.Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID) (asRequirer, asProvider []models.Job, err error)
	ListExpiredPending(ctx context.Context, limit int) ([]models.Job, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, expectedVersion int64) error
}

// EscrowLedger — операции леджера, выполняемые в транзакции перехода статуса.
type EscrowLedger interface {
	HoldTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error)
	ReleaseTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error)
	RefundTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error)
	SplitTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, shareBps int64, actorID uuid.UUID) (*models.EscrowEntry, error)
}

// Notifier отправляет уведомление пользователю. Вызов не блокирует
// бизнес-операцию и не влияет на её результат.
type Notifier interface {
	Notify(userID uuid.UUID, event string, data interface{})
}

// JobService — машина состояний работы. Владеет каноническим статусом
// и выполняет каждый переход атомарно с его эффектом в эскроу-леджере:
// переход статуса и движение средств коммитятся одной транзакцией.
type JobService struct {
	jobs       JobStore
	ledger     EscrowLedger
	txr        common.TxRunner
	notifier   Notifier
	feeRateBps int64
}

func NewJobService(jobs JobStore, ledger EscrowLedger, txr common.TxRunner, notifier Notifier, feeRateBps int64) *JobService {
	if feeRateBps <= 0 {
		feeRateBps = valueobject.DefaultFeeRateBps
	}
	return &JobService{
		jobs:       jobs,
		ledger:     ledger,
		txr:        txr,
		notifier:   notifier,
		feeRateBps: feeRateBps,
	}
}

// CreateJobInput описывает входные данные создания работы.
type CreateJobInput struct {
	RequirerID  uuid.UUID
	Title       string
	Description string
	Category    string
	Location    string
	Skills      []string
	BaseAmount  int64
	DeadlineAt  time.Time
}

// CreateJob создаёт работу в статусе pending. Сбор рассчитывается сразу,
// ставка фиксируется на работе; эскроу на этом этапе не финансируется.
func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	if err := validation.ValidateLength("заголовок", in.Title, validation.MinJobTitleLength, validation.MaxJobTitleLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", in.Description, validation.MinJobDescriptionLength, validation.MaxJobDescriptionLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAmount(in.BaseAmount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDeadline(in.DeadlineAt); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateSkills(in.Skills); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	fees, err := valueobject.ComputeFee(in.BaseAmount, s.feeRateBps)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		RequirerID:  in.RequirerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		BaseAmount:  in.BaseAmount,
		FeeRateBps:  s.feeRateBps,
		ServiceFee:  fees.ServiceFee,
		TotalDue:    fees.TotalDue,
		NetPayout:   fees.NetPayout,
		Status:      string(valueobject.JobStatusPending),
		DeadlineAt:  in.DeadlineAt,
	}

	if err := s.jobs.Create(ctx, job, in.Skills); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"total_due": job.TotalDue,
	}).Info("job created")

	return job, nil
}

// AcceptJob принимает работу исполнителем. Если исполнитель предложил
// другую сумму, сбор пересчитывается по зафиксированной ставке и
// base_amount обновляется безвозвратно. Эскроу финансируется на полную
// сумму (base + fee) в той же транзакции, что и переход статуса.
func (s *JobService) AcceptJob(ctx context.Context, jobID, providerID uuid.UUID, agreedAmount *int64) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	next, err := valueobject.JobStatus(job.Status).Next(valueobject.JobActionAccept)
	if err != nil {
		return nil, err
	}
	if providerID == job.RequirerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя принять собственную работу")
	}
	if err := validation.ValidateDeadline(job.DeadlineAt); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "дедлайн работы уже истёк")
	}

	if agreedAmount != nil {
		if err := validation.ValidateAmount(*agreedAmount); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		fees, err := valueobject.ComputeFee(*agreedAmount, job.FeeRateBps)
		if err != nil {
			return nil, err
		}
		job.BaseAmount = *agreedAmount
		job.ServiceFee = fees.ServiceFee
		job.TotalDue = fees.TotalDue
		job.NetPayout = fees.NetPayout
	}

	job.ProviderID = &providerID
	job.Status = string(next)

	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ledger.HoldTx(ctx, tx, job, providerID); err != nil {
			return err
		}
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(job.RequirerID, models.EventJobAccepted, job)
	return job, nil
}

// CompleteJob отмечает работу выполненной. Доступно только назначенному
// исполнителю; эскроу остаётся удержанным до решения заказчика.
func (s *JobService) CompleteJob(ctx context.Context, jobID, providerID uuid.UUID, notes *string, evidenceRefs []string) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	next, err := valueobject.JobStatus(job.Status).Next(valueobject.JobActionComplete)
	if err != nil {
		return nil, err
	}
	if job.ProviderID == nil || *job.ProviderID != providerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "завершить работу может только назначенный исполнитель")
	}
	if err := validation.ValidateEvidenceRefs(evidenceRefs); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	job.Status = string(next)
	job.CompletionNotes = notes
	job.CompletionEvidence = evidenceRefs

	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(job.RequirerID, models.EventJobCompleted, job)
	return job, nil
}

// SubmitSatisfaction подтверждает выполнение работы заказчиком и
// выплачивает эскроу: исполнитель получает net-сумму, платформа — сбор.
func (s *JobService) SubmitSatisfaction(ctx context.Context, jobID, requirerID uuid.UUID, rating int) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	next, err := valueobject.JobStatus(job.Status).Next(valueobject.JobActionSatisfy)
	if err != nil {
		return nil, err
	}
	if job.RequirerID != requirerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтвердить выполнение может только заказчик")
	}
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	now := time.Now()
	job.Status = string(next)
	job.Rating = &rating
	job.ArchivedAt = &now

	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ledger.ReleaseTx(ctx, tx, job, requirerID); err != nil {
			return err
		}
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	if job.ProviderID != nil {
		s.notifier.Notify(*job.ProviderID, models.EventPaymentReleased, job)
	}
	return job, nil
}

// CancelJob отменяет работу. Из pending отменяет заказчик или система
// (истёкший дедлайн) без эффекта в леджере — средства ещё не удержаны.
// Из accepted отмена возможна только по согласию обеих сторон и
// возвращает эскроу заказчику.
func (s *JobService) CancelJob(ctx context.Context, jobID, actorID uuid.UUID, mutualAgreement bool) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	current := valueobject.JobStatus(job.Status)
	next, err := current.Next(valueobject.JobActionCancel)
	if err != nil {
		return nil, err
	}

	refundEscrow := false
	switch current {
	case valueobject.JobStatusPending:
		if actorID != job.RequirerID && actorID != models.SystemActorID {
			return nil, apperror.New(apperror.ErrCodeForbidden, "отменить неподтверждённую работу может только заказчик")
		}
	case valueobject.JobStatusAccepted:
		if !job.IsParty(actorID) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "отменить работу может только её сторона")
		}
		if !mutualAgreement {
			return nil, apperror.New(apperror.ErrCodeValidation, "для отмены принятой работы требуется согласие обеих сторон")
		}
		refundEscrow = true
	}

	now := time.Now()
	job.Status = string(next)
	job.ArchivedAt = &now

	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if refundEscrow {
			if _, err := s.ledger.RefundTx(ctx, tx, job, actorID); err != nil {
				return err
			}
		}
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	if actorID != job.RequirerID {
		s.notifier.Notify(job.RequirerID, models.EventJobCancelled, job)
	}
	if job.ProviderID != nil && actorID != *job.ProviderID {
		s.notifier.Notify(*job.ProviderID, models.EventJobCancelled, job)
	}
	return job, nil
}

// CancelExpired отменяет от имени системы работы в статусе pending
// с истёкшим дедлайном. Возвращает число отменённых работ.
func (s *JobService) CancelExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	jobs, err := s.jobs.ListExpiredPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range jobs {
		if _, err := s.CancelJob(ctx, jobs[i].ID, models.SystemActorID, false); err != nil {
			// Параллельное принятие работы — не ошибка свипера.
			if apperror.IsStaleState(err) || apperror.IsInvalidTransition(err) || apperror.IsForbidden(err) {
				continue
			}
			logger.Log.WithError(err).WithField("job_id", jobs[i].ID).Error("expired job cancel failed")
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// GetJob возвращает работу с навыками, эскроу и спором.
func (s *JobService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByIDWithDetails(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListOpenJobs возвращает открытые работы с фильтрами.
func (s *JobService) ListOpenJobs(ctx context.Context, params repository.JobListParams) ([]models.Job, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.jobs.ListOpen(ctx, params)
}

// ListMyJobs возвращает работы пользователя в обеих ролях.
func (s *JobService) ListMyJobs(ctx context.Context, userID uuid.UUID) (asRequirer, asProvider []models.Job, err error) {
	return s.jobs.ListByUser(ctx, userID)
}

func (s *JobService) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *JobService) updateStatus(ctx context.Context, tx *sqlx.Tx, job *models.Job, expectedVersion int64) error {
	err := s.jobs.UpdateStatusTx(ctx, tx, job, expectedVersion)
	if errors.Is(err, common.ErrVersionConflict) {
		return apperror.StaleState()
	}
	return err
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/domain/valueobject"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/validation"
)

// DisputeStore описывает взаимодействие с хранилищем споров.
type DisputeStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error)
	ResolveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, outcome string, providerShareBps *int64, resolvedBy uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// EscrowReader — доступ к записи эскроу без операций леджера.
type EscrowReader interface {
	Entry(ctx context.Context, jobID uuid.UUID) (*models.EscrowEntry, error)
}

// DisputeService — разбор споров. Открытие спора никогда не двигает
// средства: эскроу остаётся удержанным до явного решения арбитра.
// Решение окончательное, повторное открытие спора невозможно.
type DisputeService struct {
	jobs     JobStore
	disputes DisputeStore
	ledger   EscrowLedger
	escrow   EscrowReader
	txr      common.TxRunner
	notifier Notifier
}

func NewDisputeService(jobs JobStore, disputes DisputeStore, ledger EscrowLedger, escrow EscrowReader, txr common.TxRunner, notifier Notifier) *DisputeService {
	return &DisputeService{
		jobs:     jobs,
		disputes: disputes,
		ledger:   ledger,
		escrow:   escrow,
		txr:      txr,
		notifier: notifier,
	}
}

// OpenDisputeInput описывает заявление стороны.
type OpenDisputeInput struct {
	Reason             string
	Description        string
	ProposedResolution *string
	EvidenceRefs       []string
}

// ResolveInput описывает решение арбитра.
type ResolveInput struct {
	Outcome          string
	ProviderShareBps *int64
}

// Open открывает спор по работе в статусе accepted или completed.
func (s *DisputeService) Open(ctx context.Context, jobID, initiatorID uuid.UUID, in OpenDisputeInput) (*models.Dispute, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	next, err := valueobject.JobStatus(job.Status).Next(valueobject.JobActionDispute)
	if err != nil {
		return nil, err
	}
	if !job.IsParty(initiatorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только сторона работы")
	}
	if _, ok := models.ValidDisputeReasons[in.Reason]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная причина спора")
	}
	if err := validation.ValidateLength("описание спора", in.Description, 1, validation.MaxJobDescriptionLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateEvidenceRefs(in.EvidenceRefs); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	entry, err := s.escrow.Entry(ctx, jobID)
	if err != nil {
		return nil, err
	}

	dispute := &models.Dispute{
		JobID:              jobID,
		EscrowID:           entry.ID,
		InitiatorID:        initiatorID,
		Reason:             in.Reason,
		Description:        in.Description,
		ProposedResolution: in.ProposedResolution,
		EvidenceRefs:       in.EvidenceRefs,
		Status:             models.DisputeStatusPending,
	}

	job.Status = string(next)

	// Эскроу не трогаем: подача спора сама по себе никогда не выплачивает
	// и не возвращает средства, только явное решение арбитра.
	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.disputes.CreateTx(ctx, tx, dispute); err != nil {
			return err
		}
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.notifyCounterparty(job, initiatorID, models.EventDisputeOpened, dispute)
	return dispute, nil
}

// Resolve закрывает спор решением арбитра и выполняет соответствующую
// операцию леджера одной транзакцией с переходом работы в resolved.
func (s *DisputeService) Resolve(ctx context.Context, jobID, arbiterID uuid.UUID, arbiterRole string, in ResolveInput) (*models.Dispute, error) {
	if arbiterRole != models.RoleArbiter {
		return nil, apperror.New(apperror.ErrCodeForbidden, "разрешить спор может только арбитр")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	expectedVersion := job.Version

	next, err := valueobject.JobStatus(job.Status).Next(valueobject.JobActionResolve)
	if err != nil {
		return nil, err
	}

	dispute, err := s.disputes.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}
	if dispute.Status == models.DisputeStatusResolved {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
	}

	switch in.Outcome {
	case models.DisputeOutcomeRelease, models.DisputeOutcomeRefund:
	case models.DisputeOutcomeSplit:
		if in.ProviderShareBps == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "для разделения укажите долю исполнителя")
		}
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректное решение по спору")
	}

	now := time.Now()
	job.Status = string(next)
	job.ArchivedAt = &now

	err = s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
		switch in.Outcome {
		case models.DisputeOutcomeRelease:
			if _, err := s.ledger.ReleaseTx(ctx, tx, job, arbiterID); err != nil {
				return err
			}
		case models.DisputeOutcomeRefund:
			if _, err := s.ledger.RefundTx(ctx, tx, job, arbiterID); err != nil {
				return err
			}
		case models.DisputeOutcomeSplit:
			if _, err := s.ledger.SplitTx(ctx, tx, job, *in.ProviderShareBps, arbiterID); err != nil {
				return err
			}
		}
		if err := s.disputes.ResolveTx(ctx, tx, dispute.ID, in.Outcome, in.ProviderShareBps, arbiterID); err != nil {
			return err
		}
		return s.updateStatus(ctx, tx, job, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	dispute.Status = models.DisputeStatusResolved
	dispute.Outcome = &in.Outcome
	dispute.ProviderShareBps = in.ProviderShareBps
	dispute.ResolvedBy = &arbiterID
	dispute.ResolvedAt = &now

	s.notifier.Notify(job.RequirerID, models.EventDisputeResolved, dispute)
	if job.ProviderID != nil {
		s.notifier.Notify(*job.ProviderID, models.EventDisputeResolved, dispute)
	}
	return dispute, nil
}

// GetByJob возвращает спор по работе.
func (s *DisputeService) GetByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

// ListMyDisputes возвращает споры пользователя.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

func (s *DisputeService) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *DisputeService) updateStatus(ctx context.Context, tx *sqlx.Tx, job *models.Job, expectedVersion int64) error {
	err := s.jobs.UpdateStatusTx(ctx, tx, job, expectedVersion)
	if errors.Is(err, common.ErrVersionConflict) {
		return apperror.StaleState()
	}
	return err
}

func (s *DisputeService) notifyCounterparty(job *models.Job, initiatorID uuid.UUID, event string, data interface{}) {
	if job.RequirerID != initiatorID {
		s.notifier.Notify(job.RequirerID, event, data)
	}
	if job.ProviderID != nil && *job.ProviderID != initiatorID {
		s.notifier.Notify(*job.ProviderID, event, data)
	}
}

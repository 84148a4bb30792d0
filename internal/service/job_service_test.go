package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/domain/valueobject"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/logger"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository/common"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	m.Run()
}

// fakeJobStore хранит работы в памяти и повторяет семантику
// оптимистичной блокировки настоящего репозитория.
type fakeJobStore struct {
	jobs           map[uuid.UUID]*models.Job
	updateErr      error
	expiredPending []models.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (f *fakeJobStore) Create(ctx context.Context, job *models.Job, skills []string) error {
	job.ID = uuid.New()
	job.Version = 1
	job.Skills = skills
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	stored, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeJobStore) GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeJobStore) ListOpen(ctx context.Context, params repository.JobListParams) ([]models.Job, error) {
	var out []models.Job
	for _, j := range f.jobs {
		if j.Status == string(valueobject.JobStatusPending) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) ListByUser(ctx context.Context, userID uuid.UUID) (asRequirer, asProvider []models.Job, err error) {
	for _, j := range f.jobs {
		if j.RequirerID == userID {
			asRequirer = append(asRequirer, *j)
		}
		if j.ProviderID != nil && *j.ProviderID == userID {
			asProvider = append(asProvider, *j)
		}
	}
	return asRequirer, asProvider, nil
}

func (f *fakeJobStore) ListExpiredPending(ctx context.Context, limit int) ([]models.Job, error) {
	return f.expiredPending, nil
}

func (f *fakeJobStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, expectedVersion int64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.jobs[job.ID]
	if !ok {
		return repository.ErrJobNotFound
	}
	if stored.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	updated := *job
	updated.Version = expectedVersion + 1
	f.jobs[job.ID] = &updated
	job.Version = updated.Version
	return nil
}

// fakeLedger фиксирует вызовы операций эскроу.
type fakeLedger struct {
	holds        int
	releases     int
	refunds      int
	splits       int
	lastShareBps int64
	err          error
}

func (f *fakeLedger) HoldTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.holds++
	return &models.EscrowEntry{JobID: job.ID, Status: models.EscrowStatusHeld, AmountHeld: job.TotalDue}, nil
}

func (f *fakeLedger) ReleaseTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.releases++
	return &models.EscrowEntry{JobID: job.ID, Status: models.EscrowStatusReleased}, nil
}

func (f *fakeLedger) RefundTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, actorID uuid.UUID) (*models.EscrowEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.refunds++
	return &models.EscrowEntry{JobID: job.ID, Status: models.EscrowStatusRefunded}, nil
}

func (f *fakeLedger) SplitTx(ctx context.Context, tx *sqlx.Tx, job *models.Job, shareBps int64, actorID uuid.UUID) (*models.EscrowEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.splits++
	f.lastShareBps = shareBps
	return &models.EscrowEntry{JobID: job.ID, Status: models.EscrowStatusPartiallyReleased}, nil
}

// fakeTxRunner выполняет функцию без настоящей транзакции.
type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

// fakeNotifier фиксирует отправленные уведомления.
type fakeNotifier struct {
	events []string
	users  []uuid.UUID
}

func (f *fakeNotifier) Notify(userID uuid.UUID, event string, data interface{}) {
	f.events = append(f.events, event)
	f.users = append(f.users, userID)
}

func newJobServiceFixture() (*JobService, *fakeJobStore, *fakeLedger, *fakeNotifier) {
	store := newFakeJobStore()
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc := NewJobService(store, ledger, fakeTxRunner{}, notifier, 250)
	return svc, store, ledger, notifier
}

func validCreateInput(requirerID uuid.UUID) CreateJobInput {
	return CreateJobInput{
		RequirerID:  requirerID,
		Title:       "Починить протечку на кухне",
		Description: "Течёт кран под мойкой, нужна замена смесителя",
		Category:    "plumbing",
		Skills:      []string{"сантехника"},
		BaseAmount:  10000,
		DeadlineAt:  time.Now().Add(48 * time.Hour),
	}
}

func TestJobService_CreateJob(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	assert.Equal(t, string(valueobject.JobStatusPending), job.Status)
	assert.Equal(t, int64(250), job.ServiceFee)
	assert.Equal(t, int64(10250), job.TotalDue)
	assert.Equal(t, int64(9750), job.NetPayout)
	assert.Equal(t, int64(250), job.FeeRateBps)
	assert.Equal(t, int64(1), job.Version)
}

func TestJobService_CreateJob_Validation(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	in := validCreateInput(requirerID)
	in.BaseAmount = 0
	_, err := svc.CreateJob(context.Background(), in)
	assert.Error(t, err)

	in = validCreateInput(requirerID)
	in.DeadlineAt = time.Now().Add(-time.Hour)
	_, err = svc.CreateJob(context.Background(), in)
	assert.Error(t, err)

	in = validCreateInput(requirerID)
	in.Skills = nil
	_, err = svc.CreateJob(context.Background(), in)
	assert.Error(t, err)

	in = validCreateInput(requirerID)
	in.Title = "ab"
	_, err = svc.CreateJob(context.Background(), in)
	assert.Error(t, err)
}

func TestJobService_AcceptJob(t *testing.T) {
	svc, _, ledger, notifier := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	accepted, err := svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)

	assert.Equal(t, string(valueobject.JobStatusAccepted), accepted.Status)
	require.NotNil(t, accepted.ProviderID)
	assert.Equal(t, providerID, *accepted.ProviderID)
	assert.Equal(t, int64(2), accepted.Version)
	assert.Equal(t, 1, ledger.holds)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventJobAccepted, notifier.events[0])
	assert.Equal(t, requirerID, notifier.users[0])
}

func TestJobService_AcceptJob_Renegotiation(t *testing.T) {
	svc, _, ledger, _ := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	agreed := int64(20000)
	accepted, err := svc.AcceptJob(context.Background(), job.ID, providerID, &agreed)
	require.NoError(t, err)

	// Сбор пересчитан по зафиксированной ставке с новой базы.
	assert.Equal(t, int64(20000), accepted.BaseAmount)
	assert.Equal(t, int64(500), accepted.ServiceFee)
	assert.Equal(t, int64(20500), accepted.TotalDue)
	assert.Equal(t, int64(19500), accepted.NetPayout)
	assert.Equal(t, 1, ledger.holds)
}

func TestJobService_AcceptJob_SelfAcceptForbidden(t *testing.T) {
	svc, _, ledger, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	_, err = svc.AcceptJob(context.Background(), job.ID, requirerID, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	assert.Zero(t, ledger.holds)
}

func TestJobService_AcceptJob_AlreadyAccepted(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	_, err = svc.AcceptJob(context.Background(), job.ID, uuid.New(), nil)
	require.NoError(t, err)

	// Второй исполнитель опоздал: работа уже не pending.
	_, err = svc.AcceptJob(context.Background(), job.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestJobService_SubmitSatisfaction(t *testing.T) {
	svc, _, ledger, notifier := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)
	_, err = svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)
	_, err = svc.CompleteJob(context.Background(), job.ID, providerID, nil, nil)
	require.NoError(t, err)

	satisfied, err := svc.SubmitSatisfaction(context.Background(), job.ID, requirerID, 5)
	require.NoError(t, err)

	assert.Equal(t, string(valueobject.JobStatusSatisfied), satisfied.Status)
	require.NotNil(t, satisfied.Rating)
	assert.Equal(t, 5, *satisfied.Rating)
	assert.NotNil(t, satisfied.ArchivedAt)
	assert.Equal(t, 1, ledger.releases)

	assert.Contains(t, notifier.events, models.EventPaymentReleased)
}

func TestJobService_SubmitSatisfaction_FromPendingFails(t *testing.T) {
	svc, _, ledger, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	// Подтвердить можно только выполненную работу.
	_, err = svc.SubmitSatisfaction(context.Background(), job.ID, requirerID, 5)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Zero(t, ledger.releases)
}

func TestJobService_SubmitSatisfaction_OnlyRequirer(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)
	_, err = svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)
	_, err = svc.CompleteJob(context.Background(), job.ID, providerID, nil, nil)
	require.NoError(t, err)

	_, err = svc.SubmitSatisfaction(context.Background(), job.ID, providerID, 5)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestJobService_CompleteJob_OnlyAssignedProvider(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)
	_, err = svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)

	_, err = svc.CompleteJob(context.Background(), job.ID, uuid.New(), nil, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestJobService_VersionConflict(t *testing.T) {
	svc, store, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	// Имитируем параллельное изменение между чтением и записью.
	store.updateErr = common.ErrVersionConflict

	_, err = svc.AcceptJob(context.Background(), job.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsStaleState(err))
	assert.True(t, apperror.IsRetryable(err))
}

func TestJobService_CancelJob_PendingByRequirer(t *testing.T) {
	svc, _, ledger, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	cancelled, err := svc.CancelJob(context.Background(), job.ID, requirerID, false)
	require.NoError(t, err)

	// Средства ещё не удерживались: леджер не трогается.
	assert.Equal(t, string(valueobject.JobStatusCancelled), cancelled.Status)
	assert.NotNil(t, cancelled.ArchivedAt)
	assert.Zero(t, ledger.refunds)
}

func TestJobService_CancelJob_PendingByStranger(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	_, err = svc.CancelJob(context.Background(), job.ID, uuid.New(), false)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestJobService_CancelJob_AcceptedRequiresMutualAgreement(t *testing.T) {
	svc, _, ledger, _ := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)
	_, err = svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)

	_, err = svc.CancelJob(context.Background(), job.ID, requirerID, false)
	require.Error(t, err)
	assert.Zero(t, ledger.refunds)

	cancelled, err := svc.CancelJob(context.Background(), job.ID, requirerID, true)
	require.NoError(t, err)
	assert.Equal(t, string(valueobject.JobStatusCancelled), cancelled.Status)
	assert.Equal(t, 1, ledger.refunds)
}

func TestJobService_CancelJob_SatisfiedIsFinal(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()
	requirerID := uuid.New()
	providerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)
	_, err = svc.AcceptJob(context.Background(), job.ID, providerID, nil)
	require.NoError(t, err)
	_, err = svc.CompleteJob(context.Background(), job.ID, providerID, nil, nil)
	require.NoError(t, err)
	_, err = svc.SubmitSatisfaction(context.Background(), job.ID, requirerID, 4)
	require.NoError(t, err)

	_, err = svc.CancelJob(context.Background(), job.ID, requirerID, true)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestJobService_CancelExpired(t *testing.T) {
	svc, store, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	store.expiredPending = []models.Job{*store.jobs[job.ID]}

	cancelled, err := svc.CancelExpired(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	stored, err := svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(valueobject.JobStatusCancelled), stored.Status)
}

func TestJobService_CancelExpired_SkipsRaces(t *testing.T) {
	svc, store, _, _ := newJobServiceFixture()
	requirerID := uuid.New()

	job, err := svc.CreateJob(context.Background(), validCreateInput(requirerID))
	require.NoError(t, err)

	// Между выборкой и отменой работу приняли.
	store.expiredPending = []models.Job{*store.jobs[job.ID]}
	_, err = svc.AcceptJob(context.Background(), job.ID, uuid.New(), nil)
	require.NoError(t, err)

	cancelled, err := svc.CancelExpired(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, cancelled)

	stored, err := svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(valueobject.JobStatusAccepted), stored.Status)
}

func TestJobService_GetJob_NotFound(t *testing.T) {
	svc, _, _, _ := newJobServiceFixture()

	_, err := svc.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrJobNotFound)
}

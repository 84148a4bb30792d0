package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
)

// fakeEscrowStore хранит одну запись эскроу в памяти и журнал событий.
type fakeEscrowStore struct {
	entry  *models.EscrowEntry
	events []models.EscrowEvent
}

func (f *fakeEscrowStore) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.EscrowEntry, error) {
	if f.entry == nil || f.entry.JobID != jobID {
		return nil, repository.ErrEscrowNotFound
	}
	return f.entry, nil
}

func (f *fakeEscrowStore) GetByJobIDTx(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (*models.EscrowEntry, error) {
	return f.GetByJobID(ctx, jobID)
}

func (f *fakeEscrowStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, entry *models.EscrowEntry, toStatus string, amountHeld, eventAmount int64, actorID uuid.UUID, note string) error {
	f.events = append(f.events, models.EscrowEvent{
		EscrowID:   entry.ID,
		JobID:      entry.JobID,
		FromStatus: entry.Status,
		ToStatus:   toStatus,
		Amount:     eventAmount,
		ActorID:    actorID,
		Note:       note,
	})
	entry.Status = toStatus
	entry.AmountHeld = amountHeld
	return nil
}

func (f *fakeEscrowStore) ListEvents(ctx context.Context, jobID uuid.UUID) ([]models.EscrowEvent, error) {
	return f.events, nil
}

// gatewayCall фиксирует один вызов платёжного коллаборатора.
type gatewayCall struct {
	op     string
	payer  uuid.UUID
	payee  uuid.UUID
	amount int64
	txType string
}

type fakeGateway struct {
	calls   []gatewayCall
	holdErr error
	failOn  string
	err     error
}

func (f *fakeGateway) HoldTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64) error {
	if f.holdErr != nil {
		return f.holdErr
	}
	f.calls = append(f.calls, gatewayCall{op: "hold", payer: payer, amount: amount})
	return nil
}

func (f *fakeGateway) SettleTx(ctx context.Context, tx *sqlx.Tx, payer, payee, jobID uuid.UUID, amount int64, txType, description string) error {
	if f.failOn == "settle" {
		return f.err
	}
	f.calls = append(f.calls, gatewayCall{op: "settle", payer: payer, payee: payee, amount: amount, txType: txType})
	return nil
}

func (f *fakeGateway) ReverseTx(ctx context.Context, tx *sqlx.Tx, payer, jobID uuid.UUID, amount int64, description string) error {
	if f.failOn == "reverse" {
		return f.err
	}
	f.calls = append(f.calls, gatewayCall{op: "reverse", payer: payer, amount: amount})
	return nil
}

func escrowFixture(status string, amountHeld int64) (*models.Job, *fakeEscrowStore, *fakeGateway, *EscrowService) {
	jobID := uuid.New()
	providerID := uuid.New()
	job := &models.Job{
		ID:         jobID,
		RequirerID: uuid.New(),
		ProviderID: &providerID,
		BaseAmount: 10000,
		FeeRateBps: 250,
		ServiceFee: 250,
		TotalDue:   10250,
		NetPayout:  9750,
	}
	store := &fakeEscrowStore{entry: &models.EscrowEntry{
		ID:         uuid.New(),
		JobID:      jobID,
		Status:     status,
		AmountHeld: amountHeld,
	}}
	gateway := &fakeGateway{}
	return job, store, gateway, NewEscrowService(store, gateway)
}

func TestEscrowService_HoldTx(t *testing.T) {
	job, store, gateway, svc := escrowFixture(models.EscrowStatusNone, 0)

	entry, err := svc.HoldTx(context.Background(), nil, job, job.RequirerID)
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusHeld, entry.Status)
	assert.Equal(t, int64(10250), entry.AmountHeld)

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, "hold", gateway.calls[0].op)
	assert.Equal(t, job.RequirerID, gateway.calls[0].payer)
	assert.Equal(t, int64(10250), gateway.calls[0].amount)

	require.Len(t, store.events, 1)
	assert.Equal(t, models.EscrowStatusNone, store.events[0].FromStatus)
	assert.Equal(t, models.EscrowStatusHeld, store.events[0].ToStatus)
}

func TestEscrowService_HoldTx_IdempotentRepeat(t *testing.T) {
	job, store, gateway, svc := escrowFixture(models.EscrowStatusHeld, 10250)

	entry, err := svc.HoldTx(context.Background(), nil, job, job.RequirerID)
	require.NoError(t, err)

	// Повторное удержание не двигает средства и не пишет события.
	assert.Equal(t, models.EscrowStatusHeld, entry.Status)
	assert.Empty(t, gateway.calls)
	assert.Empty(t, store.events)
}

func TestEscrowService_HoldTx_DifferentAmountHeld(t *testing.T) {
	job, _, _, svc := escrowFixture(models.EscrowStatusHeld, 5000)

	_, err := svc.HoldTx(context.Background(), nil, job, job.RequirerID)
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err))
}

func TestEscrowService_HoldTx_InsufficientFunds(t *testing.T) {
	job, _, gateway, svc := escrowFixture(models.EscrowStatusNone, 0)
	gateway.holdErr = repository.ErrInsufficientFunds

	_, err := svc.HoldTx(context.Background(), nil, job, job.RequirerID)
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err))
}

func TestEscrowService_HoldTx_GatewayTimeoutRetryable(t *testing.T) {
	job, _, gateway, svc := escrowFixture(models.EscrowStatusNone, 0)
	gateway.holdErr = context.DeadlineExceeded

	_, err := svc.HoldTx(context.Background(), nil, job, job.RequirerID)
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

func TestEscrowService_ReleaseTx_FullDisbursement(t *testing.T) {
	job, store, gateway, svc := escrowFixture(models.EscrowStatusHeld, 10250)

	entry, err := svc.ReleaseTx(context.Background(), nil, job, job.RequirerID)
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusReleased, entry.Status)
	assert.Equal(t, int64(0), entry.AmountHeld)

	// Три движения: net исполнителю, сбор платформе, резерв обратно заказчику.
	require.Len(t, gateway.calls, 3)

	assert.Equal(t, "settle", gateway.calls[0].op)
	assert.Equal(t, *job.ProviderID, gateway.calls[0].payee)
	assert.Equal(t, int64(9750), gateway.calls[0].amount)

	assert.Equal(t, "settle", gateway.calls[1].op)
	assert.Equal(t, models.PlatformAccountID, gateway.calls[1].payee)
	assert.Equal(t, int64(250), gateway.calls[1].amount)

	assert.Equal(t, "reverse", gateway.calls[2].op)
	assert.Equal(t, int64(250), gateway.calls[2].amount)

	// Событие аудита фиксирует всю распределённую сумму.
	require.Len(t, store.events, 1)
	assert.Equal(t, int64(10250), store.events[0].Amount)
}

func TestEscrowService_ReleaseTx_IdempotentRepeat(t *testing.T) {
	job, store, gateway, svc := escrowFixture(models.EscrowStatusReleased, 0)

	entry, err := svc.ReleaseTx(context.Background(), nil, job, job.RequirerID)
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusReleased, entry.Status)
	assert.Empty(t, gateway.calls)
	assert.Empty(t, store.events)
}

func TestEscrowService_RefundTx_AfterReleaseFails(t *testing.T) {
	// Возврат после выплаты — вторая отличная терминальная операция,
	// фатальная ошибка без движения средств.
	job, _, gateway, svc := escrowFixture(models.EscrowStatusReleased, 0)

	_, err := svc.RefundTx(context.Background(), nil, job, job.RequirerID)
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err))
	assert.Empty(t, gateway.calls)
}

func TestEscrowService_RefundTx(t *testing.T) {
	job, store, gateway, svc := escrowFixture(models.EscrowStatusHeld, 10250)

	entry, err := svc.RefundTx(context.Background(), nil, job, job.RequirerID)
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusRefunded, entry.Status)
	assert.Equal(t, int64(0), entry.AmountHeld)

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, "reverse", gateway.calls[0].op)
	assert.Equal(t, int64(10250), gateway.calls[0].amount)

	require.Len(t, store.events, 1)
	assert.Equal(t, int64(10250), store.events[0].Amount)
}

func TestEscrowService_RefundTx_WithoutHoldFails(t *testing.T) {
	job, _, _, svc := escrowFixture(models.EscrowStatusNone, 0)

	_, err := svc.RefundTx(context.Background(), nil, job, job.RequirerID)
	require.Error(t, err)
}

func TestEscrowService_SplitTx(t *testing.T) {
	job, _, gateway, svc := escrowFixture(models.EscrowStatusHeld, 10250)

	// Доля исполнителя 60%: 9750 * 0.6 = 5850, заказчику 10250 - 250 - 5850 = 4150.
	entry, err := svc.SplitTx(context.Background(), nil, job, 6000, job.RequirerID)
	require.NoError(t, err)

	assert.Equal(t, models.EscrowStatusPartiallyReleased, entry.Status)
	assert.Equal(t, int64(0), entry.AmountHeld)

	require.Len(t, gateway.calls, 3)
	assert.Equal(t, int64(5850), gateway.calls[0].amount)
	assert.Equal(t, models.PlatformAccountID, gateway.calls[1].payee)
	assert.Equal(t, int64(250), gateway.calls[1].amount)
	assert.Equal(t, "reverse", gateway.calls[2].op)
	assert.Equal(t, int64(4150), gateway.calls[2].amount)

	// Сумма всех движений равна удержанной сумме.
	var total int64
	for _, call := range gateway.calls {
		total += call.amount
	}
	assert.Equal(t, int64(10250), total)
}

func TestEscrowService_SplitTx_InvalidShare(t *testing.T) {
	job, _, _, svc := escrowFixture(models.EscrowStatusHeld, 10250)

	_, err := svc.SplitTx(context.Background(), nil, job, 0, job.RequirerID)
	assert.Error(t, err)

	_, err = svc.SplitTx(context.Background(), nil, job, 10000, job.RequirerID)
	assert.Error(t, err)
}

func TestEscrowService_Entry_NotFound(t *testing.T) {
	_, _, _, svc := escrowFixture(models.EscrowStatusNone, 0)

	_, err := svc.Entry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrEscrowNotFound)
}

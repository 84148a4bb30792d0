package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
)

func TestJobStatus_Next_AllowedTransitions(t *testing.T) {
	cases := []struct {
		from   JobStatus
		action JobAction
		want   JobStatus
	}{
		{JobStatusPending, JobActionAccept, JobStatusAccepted},
		{JobStatusPending, JobActionCancel, JobStatusCancelled},
		{JobStatusAccepted, JobActionComplete, JobStatusCompleted},
		{JobStatusAccepted, JobActionDispute, JobStatusDisputed},
		{JobStatusAccepted, JobActionCancel, JobStatusCancelled},
		{JobStatusCompleted, JobActionSatisfy, JobStatusSatisfied},
		{JobStatusCompleted, JobActionDispute, JobStatusDisputed},
		{JobStatusDisputed, JobActionResolve, JobStatusResolved},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.action), func(t *testing.T) {
			got, err := tc.from.Next(tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJobStatus_Next_RejectsOffTableTransitions(t *testing.T) {
	cases := []struct {
		from   JobStatus
		action JobAction
	}{
		// Подтверждение возможно только из completed.
		{JobStatusPending, JobActionSatisfy},
		{JobStatusAccepted, JobActionSatisfy},
		// Спор нельзя открыть по неначатой работе.
		{JobStatusPending, JobActionDispute},
		// Решение арбитра применимо только к спору.
		{JobStatusCompleted, JobActionResolve},
		{JobStatusAccepted, JobActionResolve},
		// Из терминальных статусов переходов нет.
		{JobStatusSatisfied, JobActionDispute},
		{JobStatusResolved, JobActionCancel},
		{JobStatusCancelled, JobActionAccept},
		// Отменить завершённую работу нельзя.
		{JobStatusCompleted, JobActionCancel},
		// Спор не отменяется, только разрешается.
		{JobStatusDisputed, JobActionCancel},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.action), func(t *testing.T) {
			_, err := tc.from.Next(tc.action)
			require.Error(t, err)
			assert.True(t, apperror.IsInvalidTransition(err))
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusSatisfied.IsTerminal())
	assert.True(t, JobStatusResolved.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())

	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusAccepted.IsTerminal())
	assert.False(t, JobStatusCompleted.IsTerminal())
	assert.False(t, JobStatusDisputed.IsTerminal())
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusAccepted))
	assert.True(t, JobStatusCompleted.CanTransitionTo(JobStatusDisputed))
	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusSatisfied))
	assert.False(t, JobStatusSatisfied.CanTransitionTo(JobStatusPending))
}

func TestNewJobStatus(t *testing.T) {
	s, err := NewJobStatus("accepted")
	require.NoError(t, err)
	assert.Equal(t, JobStatusAccepted, s)

	_, err = NewJobStatus("unknown")
	assert.Error(t, err)
}

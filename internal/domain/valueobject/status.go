package valueobject

import "github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"

// JobStatus — канонический статус работы. Единственный источник истины
// для допустимых переходов — таблица transitions ниже.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusAccepted  JobStatus = "accepted"
	JobStatusCompleted JobStatus = "completed"
	JobStatusSatisfied JobStatus = "satisfied"
	JobStatusDisputed  JobStatus = "disputed"
	JobStatusResolved  JobStatus = "resolved"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobAction — действие, переводящее работу из одного статуса в другой.
type JobAction string

const (
	JobActionAccept   JobAction = "accept"
	JobActionComplete JobAction = "complete"
	JobActionSatisfy  JobAction = "satisfy"
	JobActionDispute  JobAction = "dispute"
	JobActionResolve  JobAction = "resolve"
	JobActionCancel   JobAction = "cancel"
)

// transitions — таблица переходов машины состояний работы.
// Статусы satisfied, resolved и cancelled терминальные: из них переходов нет.
var transitions = map[JobStatus]map[JobAction]JobStatus{
	JobStatusPending: {
		JobActionAccept: JobStatusAccepted,
		JobActionCancel: JobStatusCancelled,
	},
	JobStatusAccepted: {
		JobActionComplete: JobStatusCompleted,
		JobActionDispute:  JobStatusDisputed,
		JobActionCancel:   JobStatusCancelled,
	},
	JobStatusCompleted: {
		JobActionSatisfy: JobStatusSatisfied,
		JobActionDispute: JobStatusDisputed,
	},
	JobStatusDisputed: {
		JobActionResolve: JobStatusResolved,
	},
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusAccepted, JobStatusCompleted,
		JobStatusSatisfied, JobStatusDisputed, JobStatusResolved, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус конечным.
// Работы в терминальных статусах архивируются, но никогда не удаляются.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSatisfied, JobStatusResolved, JobStatusCancelled:
		return true
	}
	return false
}

// Next возвращает статус, в который работа переходит по действию action.
// Любая пара (статус, действие) вне таблицы — ошибка INVALID_TRANSITION.
func (s JobStatus) Next(action JobAction) (JobStatus, error) {
	if allowed, ok := transitions[s]; ok {
		if next, ok := allowed[action]; ok {
			return next, nil
		}
	}
	return "", apperror.InvalidTransition(string(s), string(action))
}

// CanTransitionTo проверяет, достижим ли статус newStatus каким-либо действием.
func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	for _, next := range transitions[s] {
		if next == newStatus {
			return true
		}
	}
	return false
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус работы")
	}
	return s, nil
}

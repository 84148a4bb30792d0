package models

import "github.com/google/uuid"

// Роли пользователей платформы.
const (
	RoleRequirer = "requirer"
	RoleProvider = "provider"
	RoleArbiter  = "arbiter"
)

// ValidRoles — список валидных ролей.
var ValidRoles = map[string]struct{}{
	RoleRequirer: {},
	RoleProvider: {},
	RoleArbiter:  {},
}

// PlatformAccountID — служебный счёт платформы, на который зачисляется
// сервисный сбор при выплате. Заводится миграцией, в API не отдаётся.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SystemActorID — псевдо-пользователь для системных действий
// (отмена работ с истёкшим дедлайном).
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

// События уведомлений.
const (
	EventJobAccepted     = "job_accepted"
	EventJobCompleted    = "job_completed"
	EventJobCancelled    = "job_cancelled"
	EventPaymentReleased = "payment_released"
	EventDisputeOpened   = "dispute_opened"
	EventDisputeResolved = "dispute_resolved"
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы эскроу. Запись создаётся вместе с работой в статусе none,
// терминальные статусы (released, refunded, partially_released) необратимы.
const (
	EscrowStatusNone              = "none"
	EscrowStatusHeld              = "held"
	EscrowStatusReleased          = "released"
	EscrowStatusRefunded          = "refunded"
	EscrowStatusPartiallyReleased = "partially_released"
)

// EscrowEntry — состояние удержанных средств по работе, ровно одна запись
// на работу. AmountHeld никогда не превышает TotalDue работы и не меняется
// после перехода в терминальный статус.
type EscrowEntry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	JobID      uuid.UUID  `db:"job_id" json:"job_id"`
	AmountHeld int64      `db:"amount_held" json:"amount_held"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
}

// IsTerminal сообщает, находится ли запись в терминальном статусе.
func (e *EscrowEntry) IsTerminal() bool {
	switch e.Status {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusPartiallyReleased:
		return true
	}
	return false
}

// EscrowEvent — запись журнала аудита эскроу. Журнал только дописывается,
// существующие записи никогда не редактируются.
type EscrowEvent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	EscrowID   uuid.UUID `db:"escrow_id" json:"escrow_id"`
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	FromStatus string    `db:"from_status" json:"from_status"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	Amount     int64     `db:"amount" json:"amount"`
	ActorID    uuid.UUID `db:"actor_id" json:"actor_id"`
	Note       string    `db:"note" json:"note"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job описывает работу на платформе. Все денежные поля — в минимальных
// единицах валюты. Производные поля ServiceFee/TotalDue/NetPayout всегда
// пересчитываются вместе через valueobject.ComputeFee и по отдельности
// не изменяются.
type Job struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	RequirerID  uuid.UUID  `db:"requirer_id" json:"requirer_id"`
	ProviderID  *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Category    string     `db:"category" json:"category"`
	Location    string     `db:"location" json:"location"`

	BaseAmount int64 `db:"base_amount" json:"base_amount"`
	// FeeRateBps фиксируется при создании работы и далее не меняется,
	// чтобы смена глобальной ставки не затрагивала уже созданные работы.
	FeeRateBps int64 `db:"fee_rate_bps" json:"fee_rate_bps"`
	ServiceFee int64 `db:"service_fee" json:"service_fee"`
	TotalDue   int64 `db:"total_due" json:"total_due"`
	NetPayout  int64 `db:"net_payout" json:"net_payout"`

	Status     string    `db:"status" json:"status"`
	DeadlineAt time.Time `db:"deadline_at" json:"deadline_at"`

	CompletionNotes    *string        `db:"completion_notes" json:"completion_notes,omitempty"`
	CompletionEvidence pq.StringArray `db:"completion_evidence" json:"completion_evidence,omitempty"`
	Rating             *int           `db:"rating" json:"rating,omitempty"`

	// Version — счётчик оптимистичной блокировки: каждый переход статуса
	// выполняется с проверкой ожидаемой версии.
	Version    int64      `db:"version" json:"version"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	Skills  []string     `db:"-" json:"skills,omitempty"`
	Escrow  *EscrowEntry `db:"-" json:"escrow,omitempty"`
	Dispute *Dispute     `db:"-" json:"dispute,omitempty"`
}

// JobSkill — требуемый навык по работе.
type JobSkill struct {
	ID    uuid.UUID `db:"id" json:"id"`
	JobID uuid.UUID `db:"job_id" json:"job_id"`
	Skill string    `db:"skill" json:"skill"`
}

// IsParty сообщает, является ли пользователь стороной работы.
func (j *Job) IsParty(userID uuid.UUID) bool {
	if j.RequirerID == userID {
		return true
	}
	return j.ProviderID != nil && *j.ProviderID == userID
}

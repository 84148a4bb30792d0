package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Причины спора.
const (
	DisputeReasonQuality    = "quality"
	DisputeReasonIncomplete = "incomplete"
	DisputeReasonPayment    = "payment"
	DisputeReasonOther      = "other"
)

// ValidDisputeReasons — список валидных причин спора.
var ValidDisputeReasons = map[string]struct{}{
	DisputeReasonQuality:    {},
	DisputeReasonIncomplete: {},
	DisputeReasonPayment:    {},
	DisputeReasonOther:      {},
}

// Статусы рассмотрения спора.
const (
	DisputeStatusPending  = "pending"
	DisputeStatusResolved = "resolved"
)

// Решения арбитра по спору.
const (
	DisputeOutcomeRelease = "release"
	DisputeOutcomeRefund  = "refund"
	DisputeOutcomeSplit   = "split"
)

// Dispute — спор по работе. Решение арбитра окончательное: повторное
// открытие спора по той же работе невозможно.
type Dispute struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	JobID              uuid.UUID      `db:"job_id" json:"job_id"`
	EscrowID           uuid.UUID      `db:"escrow_id" json:"escrow_id"`
	InitiatorID        uuid.UUID      `db:"initiator_id" json:"initiator_id"`
	Reason             string         `db:"reason" json:"reason"`
	Description        string         `db:"description" json:"description"`
	ProposedResolution *string        `db:"proposed_resolution" json:"proposed_resolution,omitempty"`
	EvidenceRefs       pq.StringArray `db:"evidence_refs" json:"evidence_refs,omitempty"`
	Status             string         `db:"status" json:"status"`
	Outcome            *string        `db:"outcome" json:"outcome,omitempty"`
	ProviderShareBps   *int64         `db:"provider_share_bps" json:"provider_share_bps,omitempty"`
	ResolvedBy         *uuid.UUID     `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	ResolvedAt         *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
}

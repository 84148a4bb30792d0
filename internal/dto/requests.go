package dto

import "time"

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateJobRequest represents the request to post a job
type CreateJobRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Skills      []string `json:"skills" binding:"required"`
	BaseAmount  int64    `json:"base_amount" binding:"required"`
	DeadlineAt  string   `json:"deadline_at" binding:"required"`
}

// ParseDeadline converts the RFC3339 deadline string to time.Time
func (r *CreateJobRequest) ParseDeadline() (time.Time, error) {
	return time.Parse(time.RFC3339, r.DeadlineAt)
}

// AcceptJobRequest represents the request to accept a job.
// AgreedAmount, when set, renegotiates the base amount before escrow hold.
type AcceptJobRequest struct {
	AgreedAmount *int64 `json:"agreed_amount"`
}

// CompleteJobRequest represents the request to mark work as done
type CompleteJobRequest struct {
	Notes        string   `json:"notes"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// SatisfyJobRequest represents the requirer's confirmation of delivered work
type SatisfyJobRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// CancelJobRequest represents the request to cancel a job
type CancelJobRequest struct {
	MutualAgreement bool   `json:"mutual_agreement"`
	Reason          string `json:"reason"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	Reason             string   `json:"reason" binding:"required"`
	Description        string   `json:"description" binding:"required"`
	ProposedResolution *string  `json:"proposed_resolution"`
	EvidenceRefs       []string `json:"evidence_refs"`
}

// ResolveDisputeRequest represents an arbiter's ruling
type ResolveDisputeRequest struct {
	Outcome          string `json:"outcome" binding:"required"`
	ProviderShareBps *int64 `json:"provider_share_bps"`
}

// DepositRequest represents the request to top up the wallet
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

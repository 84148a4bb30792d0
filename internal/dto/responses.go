package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
)

// AuthResponse represents the result of registration, login or refresh
type AuthResponse struct {
	User   *UserInfo          `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// UserInfo represents public user data
type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAuthResponse builds an AuthResponse from the auth service result
func NewAuthResponse(res *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User: &UserInfo{
			ID:        res.User.ID,
			Email:     res.User.Email,
			Username:  res.User.Username,
			Role:      res.User.Role,
			CreatedAt: res.User.CreatedAt,
		},
		Tokens: res.TokenPair,
	}
}

// JobResponse represents a job with its escrow entry and dispute
type JobResponse struct {
	*models.Job
	Escrow  *models.EscrowEntry `json:"escrow,omitempty"`
	Dispute *models.Dispute     `json:"dispute,omitempty"`
}

// NewJobResponse creates a JobResponse from a loaded job
func NewJobResponse(job *models.Job) *JobResponse {
	return &JobResponse{
		Job:     job,
		Escrow:  job.Escrow,
		Dispute: job.Dispute,
	}
}

// JobListResponse represents a paginated jobs list
type JobListResponse struct {
	Data       []models.Job `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// MyJobsResponse represents the jobs a user participates in, by role
type MyJobsResponse struct {
	AsRequirer []models.Job `json:"as_requirer"`
	AsProvider []models.Job `json:"as_provider"`
}

// BalanceResponse represents a wallet balance
type BalanceResponse struct {
	Available int64 `json:"available"`
	Frozen    int64 `json:"frozen"`
}

// TransactionListResponse represents a wallet transaction history page
type TransactionListResponse struct {
	Data       []models.Transaction `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// EscrowAuditResponse represents the escrow entry with its event history
type EscrowAuditResponse struct {
	Entry  *models.EscrowEntry  `json:"entry"`
	Events []models.EscrowEvent `json:"events"`
}

// NotificationListResponse represents a notifications page with unread count
type NotificationListResponse struct {
	Data        []models.Notification `json:"data"`
	UnreadCount int                   `json:"unread_count"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

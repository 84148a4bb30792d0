package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/dto"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/handlers/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
)

// JobHandler предоставляет HTTP слой жизненного цикла работы.
type JobHandler struct {
	jobs   *service.JobService
	escrow *service.EscrowService
}

// NewJobHandler создаёт хэндлер.
func NewJobHandler(jobs *service.JobService, escrow *service.EscrowService) *JobHandler {
	return &JobHandler{jobs: jobs, escrow: escrow}
}

// Create обрабатывает POST /jobs.
func (h *JobHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deadline, err := req.ParseDeadline()
	if err != nil {
		common.RespondBadRequest(c, "deadline_at должен быть в формате RFC3339")
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), service.CreateJobInput{
		RequirerID:  userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Skills:      req.Skills,
		BaseAmount:  req.BaseAmount,
		DeadlineAt:  deadline,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewJobResponse(job))
}

// Get обрабатывает GET /jobs/:jobId.
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// List обрабатывает GET /jobs — открытые работы с фильтрами.
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	jobs, err := h.jobs.ListOpenJobs(c.Request.Context(), repository.JobListParams{
		Category: c.Query("category"),
		Skill:    c.Query("skill"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobListResponse{
		Data: jobs,
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: len(jobs) == limit,
		},
	})
}

// ListMine обрабатывает GET /jobs/my.
func (h *JobHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	asRequirer, asProvider, err := h.jobs.ListMyJobs(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MyJobsResponse{
		AsRequirer: asRequirer,
		AsProvider: asProvider,
	})
}

// Accept обрабатывает POST /jobs/:jobId/accept.
func (h *JobHandler) Accept(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	// Тело опционально: без него работа принимается на исходных условиях.
	var req dto.AcceptJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	job, err := h.jobs.AcceptJob(c.Request.Context(), jobID, userID, req.AgreedAmount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// Complete обрабатывает POST /jobs/:jobId/complete.
func (h *JobHandler) Complete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CompleteJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	job, err := h.jobs.CompleteJob(c.Request.Context(), jobID, userID, notes, req.EvidenceRefs)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// Satisfy обрабатывает POST /jobs/:jobId/satisfy.
func (h *JobHandler) Satisfy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SatisfyJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.SubmitSatisfaction(c.Request.Context(), jobID, userID, req.Rating)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// Cancel обрабатывает POST /jobs/:jobId/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CancelJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	job, err := h.jobs.CancelJob(c.Request.Context(), jobID, userID, req.MutualAgreement)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// EscrowAudit обрабатывает GET /jobs/:jobId/escrow — запись эскроу и журнал событий.
func (h *JobHandler) EscrowAudit(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.escrow.Entry(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	events, err := h.escrow.Audit(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowAuditResponse{Entry: entry, Events: events})
}

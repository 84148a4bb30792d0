package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/dto"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/handlers/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
)

// DisputeHandler предоставляет HTTP слой споров.
type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Open обрабатывает POST /jobs/:jobId/dispute.
func (h *DisputeHandler) Open(c *gin.Context) {
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

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Open(c.Request.Context(), jobID, userID, service.OpenDisputeInput{
		Reason:             req.Reason,
		Description:        req.Description,
		ProposedResolution: req.ProposedResolution,
		EvidenceRefs:       req.EvidenceRefs,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Resolve обрабатывает POST /jobs/:jobId/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), jobID, userID, role, service.ResolveInput{
		Outcome:          req.Outcome,
		ProviderShareBps: req.ProviderShareBps,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// GetByJob обрабатывает GET /jobs/:jobId/dispute.
func (h *DisputeHandler) GetByJob(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetByJob(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMine обрабатывает GET /disputes/my.
func (h *DisputeHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	disputes, err := h.disputes.ListMyDisputes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

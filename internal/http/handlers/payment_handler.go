package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/dto"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/handlers/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
)

// PaymentHandler предоставляет HTTP слой кошелька.
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// GetBalance обрабатывает GET /payments/balance.
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.payments.GetBalance(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		Available: balance.Available,
		Frozen:    balance.Frozen,
	})
}

// Deposit обрабатывает POST /payments/deposit.
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма должна быть положительной")
		return
	}

	transaction, err := h.payments.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// ListTransactions обрабатывает GET /payments/transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	transactions, err := h.payments.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TransactionListResponse{
		Data: transactions,
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: len(transactions) == limit,
		},
	})
}

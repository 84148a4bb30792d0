package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestJobHandler_Create_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{jobs: nil}
	r.POST("/jobs", handler.Create)

	req, _ := http.NewRequest("POST", "/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandler_Get_InvalidJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{jobs: nil}
	r.GET("/jobs/:jobId", handler.Get)

	req, _ := http.NewRequest("GET", "/jobs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobHandler_Accept_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{jobs: nil}
	r.POST("/jobs/:jobId/accept", handler.Accept)

	req, _ := http.NewRequest("POST", "/jobs/7b8e1fb1-17e7-43ac-bd91-f6a387d54f03/accept", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandler_Satisfy_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{jobs: nil}
	r.POST("/jobs/:jobId/satisfy", handler.Satisfy)

	req, _ := http.NewRequest("POST", "/jobs/7b8e1fb1-17e7-43ac-bd91-f6a387d54f03/satisfy", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandler_Cancel_InvalidJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{jobs: nil}
	r.POST("/jobs/:jobId/cancel", handler.Cancel)

	req, _ := http.NewRequest("POST", "/jobs/123/cancel", nil)
	w := httptest.NewRecorder()

	// userID в контексте отсутствует, поэтому отказ приходит раньше разбора UUID.
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandler_EscrowAudit_InvalidJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &JobHandler{escrow: nil}
	r.GET("/jobs/:jobId/escrow", handler.EscrowAudit)

	req, _ := http.NewRequest("GET", "/jobs/invalid/escrow", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_GetBalance_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PaymentHandler{payments: nil}
	r.GET("/payments/balance", handler.GetBalance)

	req, _ := http.NewRequest("GET", "/payments/balance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandler_Deposit_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PaymentHandler{payments: nil}
	r.POST("/payments/deposit", handler.Deposit)

	req, _ := http.NewRequest("POST", "/payments/deposit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

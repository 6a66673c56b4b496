// internal/handlers/quota/quota_handler.go
package quota

import (
	"net/http"

	"fluencr-service/internal/middleware"
	"fluencr-service/internal/pkg/response"
	service "fluencr-service/internal/service/quota"

	"github.com/gin-gonic/gin"
)

type QuotaHandler struct {
	quotaService *service.QuotaService
}

func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

func (h *QuotaHandler) GetQuota(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	q, err := h.quotaService.CheckEligibility(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load quota", err)
		return
	}

	response.Success(c, http.StatusOK, "quota retrieved", gin.H{
		"trialInfo":   q,
		"can_consume": q.CanConsume(),
	})
}

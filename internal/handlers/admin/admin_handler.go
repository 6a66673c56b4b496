// internal/handlers/admin/admin_handler.go
package admin

import (
	"net/http"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/entitlement"
	"fluencr-service/internal/middleware"
	"fluencr-service/internal/pkg/response"
	auditsvc "fluencr-service/internal/service/audit"
	entitlementsvc "fluencr-service/internal/service/entitlement"
	quotasvc "fluencr-service/internal/service/quota"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	quotaService       *quotasvc.QuotaService
	entitlementService *entitlementsvc.EntitlementService
	auditService       *auditsvc.AuditService
	logger             *zap.Logger
}

func NewAdminHandler(
	quotaService *quotasvc.QuotaService,
	entitlementService *entitlementsvc.EntitlementService,
	auditService *auditsvc.AuditService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		quotaService:       quotaService,
		entitlementService: entitlementService,
		auditService:       auditService,
		logger:             logger,
	}
}

type SetPremiumRequest struct {
	IsPremium *bool `json:"isPremium" binding:"required"`
}

// ========== Quota ==========

// ResetQuota restores the initial trial allowance of an account.
func (h *AdminHandler) ResetQuota(c *gin.Context) {
	accountID, ok := h.targetAccount(c)
	if !ok {
		return
	}

	result, err := h.quotaService.AdminReset(c.Request.Context(), middleware.GetActor(c), accountID)
	if err != nil {
		response.FromError(c, "failed to reset quota", err)
		return
	}

	response.Success(c, http.StatusOK, "quota reset", result)
}

func (h *AdminHandler) SetPremium(c *gin.Context) {
	accountID, ok := h.targetAccount(c)
	if !ok {
		return
	}

	var req SetPremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.quotaService.GrantPremium(c.Request.Context(), middleware.GetActor(c), accountID, *req.IsPremium)
	if err != nil {
		response.FromError(c, "failed to update premium flag", err)
		return
	}

	response.Success(c, http.StatusOK, "premium flag updated", result)
}

// ========== Subscription ==========

func (h *AdminHandler) UpdateSubscription(c *gin.Context) {
	accountID, ok := h.targetAccount(c)
	if !ok {
		return
	}

	var req entitlement.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	actor := middleware.GetActor(c)
	view, err := h.entitlementService.Update(c.Request.Context(), actor.Source+":"+actor.ID, accountID, req.ToSubscription())
	if err != nil {
		response.FromError(c, "failed to update subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription updated", view)
}

// ClearSubscription deletes the stored subscription. The next load starts
// a fresh trial.
func (h *AdminHandler) ClearSubscription(c *gin.Context) {
	accountID, ok := h.targetAccount(c)
	if !ok {
		return
	}

	actor := middleware.GetActor(c)
	view, err := h.entitlementService.Update(c.Request.Context(), actor.Source+":"+actor.ID, accountID, nil)
	if err != nil {
		response.FromError(c, "failed to clear subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cleared", view)
}

// ========== Audit ==========

func (h *AdminHandler) ListAudit(c *gin.Context) {
	var filters audit.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid filters", err)
		return
	}

	events, err := h.auditService.List(c.Request.Context(), filters)
	if err != nil {
		response.FromError(c, "failed to list audit events", err)
		return
	}

	response.Success(c, http.StatusOK, "audit events retrieved", gin.H{
		"events": events,
		"total":  len(events),
	})
}

func (h *AdminHandler) targetAccount(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid account ID", err)
		return "", false
	}
	return id.String(), true
}

// internal/handlers/relationship/relationship_handler.go
package relationship

import (
	"errors"
	"net/http"

	"fluencr-service/internal/domain/relationship"
	"fluencr-service/internal/middleware"
	"fluencr-service/internal/pkg/response"
	service "fluencr-service/internal/service/relationship"

	"github.com/gin-gonic/gin"
)

type RelationshipHandler struct {
	lifecycleService *service.LifecycleService
}

func NewRelationshipHandler(lifecycleService *service.LifecycleService) *RelationshipHandler {
	return &RelationshipHandler{lifecycleService: lifecycleService}
}

// ========== Contacts ==========

func (h *RelationshipHandler) ListContacts(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var filters relationship.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid filters", err)
		return
	}

	result, err := h.lifecycleService.ListRecords(c.Request.Context(), accountID, filters)
	if err != nil {
		response.FromError(c, "failed to list contacts", err)
		return
	}

	response.Success(c, http.StatusOK, "contacts retrieved", result)
}

func (h *RelationshipHandler) TrackContact(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.TrackContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.lifecycleService.TrackContact(c.Request.Context(), accountID, &req)
	if err != nil {
		response.FromError(c, "failed to track contact", err)
		return
	}

	response.Success(c, http.StatusCreated, "contact tracked", result)
}

func (h *RelationshipHandler) GetContact(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	result, err := h.lifecycleService.GetRecord(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.FromError(c, "contact not found", err)
		return
	}

	response.Success(c, http.StatusOK, "contact retrieved", result)
}

func (h *RelationshipHandler) RemoveContact(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	if err := h.lifecycleService.RemoveContact(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.FromError(c, "failed to remove contact", err)
		return
	}

	response.Success(c, http.StatusOK, "contact removed", nil)
}

func (h *RelationshipHandler) GetProgression(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	result, err := h.lifecycleService.Progression(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to compute progression", err)
		return
	}

	response.Success(c, http.StatusOK, "progression retrieved", result)
}

// GetPolicy exposes the thresholds behind status suggestions.
func (h *RelationshipHandler) GetPolicy(c *gin.Context) {
	response.Success(c, http.StatusOK, "policy retrieved", h.lifecycleService.Policy())
}

// ========== Lifecycle ==========

func (h *RelationshipHandler) AdvanceStatus(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	to, err := relationship.ParseStatus(req.Status)
	if err != nil {
		response.ValidationError(c, "invalid status", err)
		return
	}

	result, err := h.lifecycleService.AdvanceStatus(c.Request.Context(), accountID, c.Param("id"), to)
	if err != nil {
		var te *relationship.TransitionError
		if errors.As(err, &te) {
			response.FromError(c, "status change not allowed", err, gin.H{
				"from":    te.From,
				"to":      te.To,
				"allowed": te.Allowed,
			})
			return
		}
		response.FromError(c, "failed to change status", err)
		return
	}

	response.Success(c, http.StatusOK, "status updated", result)
}

func (h *RelationshipHandler) SetFollowUp(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.SetFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.lifecycleService.SetFollowUpDate(c.Request.Context(), accountID, c.Param("id"), req.FollowUpDate)
	if err != nil {
		response.FromError(c, "failed to set follow-up date", err)
		return
	}

	response.Success(c, http.StatusOK, "follow-up date updated", result)
}

func (h *RelationshipHandler) SetStrength(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.SetStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.lifecycleService.SetStrength(c.Request.Context(), accountID, c.Param("id"), *req.Strength)
	if err != nil {
		response.FromError(c, "failed to set relationship strength", err)
		return
	}

	response.Success(c, http.StatusOK, "relationship strength updated", result)
}

// ========== Interactions ==========

func (h *RelationshipHandler) LogInteraction(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.LogInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.lifecycleService.LogInteraction(c.Request.Context(), accountID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to log interaction", err)
		return
	}

	response.Success(c, http.StatusCreated, "interaction logged", result)
}

func (h *RelationshipHandler) UpdateInteraction(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req relationship.UpdateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.lifecycleService.UpdateInteraction(c.Request.Context(), accountID, c.Param("id"), c.Param("iid"), &req)
	if err != nil {
		response.FromError(c, "failed to update interaction", err)
		return
	}

	response.Success(c, http.StatusOK, "interaction updated", result)
}

func (h *RelationshipHandler) DeleteInteraction(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	result, err := h.lifecycleService.DeleteInteraction(c.Request.Context(), accountID, c.Param("id"), c.Param("iid"))
	if err != nil {
		response.FromError(c, "failed to delete interaction", err)
		return
	}

	response.Success(c, http.StatusOK, "interaction deleted", result)
}

// internal/handlers/entitlement/entitlement_handler.go
package entitlement

import (
	"net/http"

	"fluencr-service/internal/middleware"
	"fluencr-service/internal/pkg/response"
	service "fluencr-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
)

type EntitlementHandler struct {
	entitlementService *service.EntitlementService
}

func NewEntitlementHandler(entitlementService *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlementService: entitlementService}
}

// GetEntitlement returns the subscription and the flags derived from it.
// The first call for an account starts its trial.
func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	view, err := h.entitlementService.Current(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load entitlement", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlement retrieved", view)
}

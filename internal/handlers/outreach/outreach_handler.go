// internal/handlers/outreach/outreach_handler.go
package outreach

import (
	"net/http"

	"fluencr-service/internal/domain/outreach"
	"fluencr-service/internal/middleware"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/response"
	service "fluencr-service/internal/service/outreach"

	"github.com/gin-gonic/gin"
)

type OutreachHandler struct {
	outreachService *service.OutreachService
}

func NewOutreachHandler(outreachService *service.OutreachService) *OutreachHandler {
	return &OutreachHandler{outreachService: outreachService}
}

// GenerateMessage drafts an outreach email and spends one trial unless the
// account is premium.
func (h *OutreachHandler) GenerateMessage(c *gin.Context) {
	accountID := middleware.MustGetAccountID(c)

	var req outreach.GenerateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.outreachService.GenerateMessage(c.Request.Context(), accountID, &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrQuotaExhausted) {
			response.FromError(c, "No AI trials remaining. Upgrade to premium for unlimited AI message generation.", err, gin.H{
				"upgrade_required": true,
			})
			return
		}
		response.FromError(c, "failed to generate message", err)
		return
	}

	response.Success(c, http.StatusOK, "message generated", result)
}

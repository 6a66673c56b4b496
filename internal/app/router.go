// internal/app/router.go
package app

import (
	"net/http"

	"fluencr-service/internal/domain/entitlement"
	adminHandler "fluencr-service/internal/handlers/admin"
	billingHandler "fluencr-service/internal/handlers/billing"
	entitlementHandler "fluencr-service/internal/handlers/entitlement"
	outreachHandler "fluencr-service/internal/handlers/outreach"
	quotaHandler "fluencr-service/internal/handlers/quota"
	relationshipHandler "fluencr-service/internal/handlers/relationship"
	wsHandler "fluencr-service/internal/handlers/websocket"
	"fluencr-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	EntitlementHandler  *entitlementHandler.EntitlementHandler
	QuotaHandler        *quotaHandler.QuotaHandler
	OutreachHandler     *outreachHandler.OutreachHandler
	RelationshipHandler *relationshipHandler.RelationshipHandler
	AdminHandler        *adminHandler.AdminHandler
	BillingHandler      *billingHandler.BillingHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	Features            middleware.FeatureChecker
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Health & Metrics ====================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws", h.AuthMiddleware.AuthWebSocket(), h.WSHandler.HandleConnection)

	api := r.Group("/api/v1")

	// ==================== Billing Provider ====================
	api.POST("/billing/webhook", h.BillingHandler.StripeWebhook)

	authed := api.Group("")
	authed.Use(h.AuthMiddleware.Auth())

	// ==================== Entitlement & Quota ====================
	{
		authed.GET("/entitlement", h.EntitlementHandler.GetEntitlement)
		authed.GET("/quota", h.QuotaHandler.GetQuota)
		authed.POST("/ai/generate-message", h.OutreachHandler.GenerateMessage)
		authed.GET("/policy", h.RelationshipHandler.GetPolicy)
	}

	// ==================== Contacts ====================
	contacts := authed.Group("/contacts")
	contacts.Use(middleware.RequireFeature(h.Features, entitlement.FeatureAccessCRM))
	{
		contacts.GET("", h.RelationshipHandler.ListContacts)
		contacts.POST("", h.RelationshipHandler.TrackContact)
		contacts.GET("/:id", h.RelationshipHandler.GetContact)
		contacts.DELETE("/:id", h.RelationshipHandler.RemoveContact)
		contacts.GET("/:id/progression", h.RelationshipHandler.GetProgression)
		contacts.PUT("/:id/status", h.RelationshipHandler.AdvanceStatus)
		contacts.PUT("/:id/follow-up", h.RelationshipHandler.SetFollowUp)
		contacts.PUT("/:id/strength", h.RelationshipHandler.SetStrength)
		contacts.POST("/:id/interactions", h.RelationshipHandler.LogInteraction)
		contacts.PUT("/:id/interactions/:iid", h.RelationshipHandler.UpdateInteraction)
		contacts.DELETE("/:id/interactions/:iid", h.RelationshipHandler.DeleteInteraction)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.POST("/accounts/:id/quota/reset", h.AdminHandler.ResetQuota)
		admin.PUT("/accounts/:id/quota/premium", h.AdminHandler.SetPremium)
		admin.PUT("/accounts/:id/subscription", h.AdminHandler.UpdateSubscription)
		admin.DELETE("/accounts/:id/subscription", h.AdminHandler.ClearSubscription)
		admin.GET("/audit", h.AdminHandler.ListAudit)
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}

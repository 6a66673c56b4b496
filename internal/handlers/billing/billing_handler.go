// internal/handlers/billing/billing_handler.go
package billing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fluencr-service/internal/domain/entitlement"
	"fluencr-service/internal/pkg/response"
	service "fluencr-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"
)

const (
	maxWebhookBody = 65536
	actorBilling   = "billing:stripe"
	metaAccountID  = "account_id"
)

type BillingHandler struct {
	entitlementService *service.EntitlementService
	webhookSecret      string
	logger             *zap.Logger
}

func NewBillingHandler(entitlementService *service.EntitlementService, webhookSecret string, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		entitlementService: entitlementService,
		webhookSecret:      webhookSecret,
		logger:             logger,
	}
}

// StripeWebhook applies subscription lifecycle events to the stored
// subscription of the account named in the subscription metadata.
func (h *BillingHandler) StripeWebhook(c *gin.Context) {
	if h.webhookSecret == "" {
		response.Error(c, http.StatusServiceUnavailable, "billing webhook not configured", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "error reading request body", err)
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe signature verification failed", zap.Error(err), zap.String("ip", c.ClientIP()))
		response.Error(c, http.StatusBadRequest, "signature verification failed", nil)
		return
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		response.Success(c, http.StatusOK, "ignored", gin.H{"event_id": event.ID})
		return
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		response.Error(c, http.StatusBadRequest, "failed to parse subscription", err)
		return
	}

	accountID, err := uuid.Parse(sub.Metadata[metaAccountID])
	if err != nil {
		// Acknowledge so Stripe does not retry an event we can never apply.
		h.logger.Warn("stripe subscription without account id",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", sub.ID),
		)
		response.Success(c, http.StatusOK, "ignored", gin.H{"event_id": event.ID})
		return
	}

	next, err := toSubscription(&sub, event.Type == "customer.subscription.deleted")
	if err != nil {
		h.logger.Warn("unusable stripe subscription", zap.String("event_id", event.ID), zap.Error(err))
		response.Success(c, http.StatusOK, "ignored", gin.H{"event_id": event.ID})
		return
	}

	view, err := h.entitlementService.Update(c.Request.Context(), actorBilling, accountID.String(), next)
	if err != nil {
		h.logger.Error("failed to apply stripe event",
			zap.String("event_id", event.ID),
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
		response.FromError(c, "failed to apply subscription change", err)
		return
	}

	h.logger.Info("stripe event applied",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("account_id", accountID.String()),
		zap.String("status", string(next.Status)),
	)
	response.Success(c, http.StatusOK, "received", view.Entitlement)
}

// mapStatus folds Stripe's statuses onto the five the entitlement engine knows.
func mapStatus(s stripe.SubscriptionStatus) entitlement.Status {
	switch s {
	case stripe.SubscriptionStatusActive:
		return entitlement.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return entitlement.StatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return entitlement.StatusPastDue
	case stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return entitlement.StatusUnpaid
	default:
		return entitlement.StatusCanceled
	}
}

func toSubscription(sub *stripe.Subscription, deleted bool) (*entitlement.Subscription, error) {
	if sub.ID == "" || sub.CurrentPeriodEnd == 0 {
		return nil, fmt.Errorf("subscription missing id or period end")
	}

	out := &entitlement.Subscription{
		ID:               sub.ID,
		Status:           mapStatus(sub.Status),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		Plan: entitlement.Plan{
			ID:       entitlement.DefaultPlanID,
			Name:     entitlement.DefaultPlanName,
			Price:    entitlement.DefaultPlanPrice,
			Currency: entitlement.DefaultPlanCurrency,
			Interval: entitlement.DefaultPlanInterval,
		},
	}
	if deleted {
		out.Status = entitlement.StatusCanceled
	}
	if sub.TrialEnd != 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		if !t.After(out.CurrentPeriodEnd) {
			out.TrialEnd = &t
		}
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		p := sub.Items.Data[0].Price
		out.Plan.ID = p.ID
		out.Plan.Price = p.UnitAmount
		if p.Nickname != "" {
			out.Plan.Name = p.Nickname
		}
		if p.Currency != "" {
			out.Plan.Currency = string(p.Currency)
		}
		if p.Recurring != nil && p.Recurring.Interval != "" {
			out.Plan.Interval = string(p.Recurring.Interval)
		}
	}
	return out, nil
}

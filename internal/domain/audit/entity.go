// internal/domain/audit/entity.go
package audit

import "time"

type Action string

const (
	ActionSubscriptionRecovered Action = "subscription.recovered"
	ActionSubscriptionMigrated  Action = "subscription.migrated"
	ActionSubscriptionUpdated   Action = "subscription.updated"
	ActionQuotaRecovered        Action = "quota.recovered"
	ActionQuotaReset            Action = "quota.admin_reset"
	ActionPremiumGranted        Action = "quota.premium_granted"
	ActionRelationshipRecovered Action = "relationships.recovered"
)

// Event is one entry of the audit trail.
type Event struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Actor     string            `json:"actor"`
	Action    Action            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type ListFilters struct {
	AccountID string `form:"account_id"`
	Action    string `form:"action"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

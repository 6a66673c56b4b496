// internal/domain/entitlement/dto.go
package entitlement

import "time"

// View is what clients poll: the stored subscription and the flags derived
// from it at ServerTime.
type View struct {
	Subscription *Subscription      `json:"subscription"`
	Entitlement  DerivedEntitlement `json:"entitlement"`
	ServerTime   time.Time          `json:"server_time"`
}

type UpdateSubscriptionRequest struct {
	ID               string     `json:"id" binding:"required"`
	Status           string     `json:"status" binding:"required,oneof=trialing active past_due canceled unpaid"`
	CurrentPeriodEnd time.Time  `json:"current_period_end" binding:"required"`
	TrialEnd         *time.Time `json:"trial_end"`
	Plan             Plan       `json:"plan" binding:"required"`
}

func (r UpdateSubscriptionRequest) ToSubscription() *Subscription {
	return &Subscription{
		ID:               r.ID,
		Status:           Status(r.Status),
		CurrentPeriodEnd: r.CurrentPeriodEnd,
		TrialEnd:         r.TrialEnd,
		Plan:             r.Plan,
	}
}

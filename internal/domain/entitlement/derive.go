// internal/domain/entitlement/derive.go
package entitlement

import (
	"math"
	"time"
)

// DerivedEntitlement is computed on every read and never stored.
type DerivedEntitlement struct {
	IsTrialActive        bool             `json:"is_trial_active"`
	IsSubscriptionActive bool             `json:"is_subscription_active"`
	IsExpired            bool             `json:"is_expired"`
	DaysRemaining        int              `json:"days_remaining"`
	Features             map[Feature]bool `json:"features"`
}

// Can reports whether the derived state unlocks f.
func (d DerivedEntitlement) Can(f Feature) bool {
	return d.Features[f]
}

// Derive computes entitlement flags for sub at now. It is pure and total:
// a nil subscription yields every flag false.
func Derive(sub *Subscription, now time.Time) DerivedEntitlement {
	if sub == nil {
		return DerivedEntitlement{Features: evaluateFeatures(false, false)}
	}

	trial := sub.TrialEnd != nil && sub.TrialEnd.After(now)
	paid := sub.Status == StatusActive && !trial
	expired := !sub.CurrentPeriodEnd.IsZero() && sub.CurrentPeriodEnd.Before(now)

	var days int
	switch {
	case trial:
		days = daysUntil(*sub.TrialEnd, now)
	case paid:
		days = daysUntil(sub.CurrentPeriodEnd, now)
	}

	return DerivedEntitlement{
		IsTrialActive:        trial,
		IsSubscriptionActive: paid,
		IsExpired:            expired,
		DaysRemaining:        days,
		Features:             evaluateFeatures(trial, paid),
	}
}

func daysUntil(boundary, now time.Time) int {
	d := boundary.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

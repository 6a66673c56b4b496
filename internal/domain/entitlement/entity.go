// internal/domain/entitlement/entity.go
package entitlement

import (
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusUnpaid   Status = "unpaid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusUnpaid:
		return true
	}
	return false
}

// Default plan offered to new accounts.
const (
	DefaultPlanID       = "fluencr_pro"
	DefaultPlanName     = "Fluencr Pro"
	DefaultPlanPrice    = 8000
	DefaultPlanCurrency = "eur"
	DefaultPlanInterval = "month"
	DefaultTrialDays    = 7
)

// Plan prices are in minor currency units (cents).
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

type Subscription struct {
	ID               string     `json:"id"`
	Status           Status     `json:"status"`
	CurrentPeriodEnd time.Time  `json:"current_period_end"`
	TrialEnd         *time.Time `json:"trial_end,omitempty"`
	Plan             Plan       `json:"plan"`
}

// Validate checks the invariants a stored subscription must satisfy.
func (s *Subscription) Validate() error {
	if s == nil {
		return nil
	}
	if s.ID == "" {
		return fmt.Errorf("%w: subscription id is required", xerrors.ErrInvalidInput)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown subscription status %q", xerrors.ErrInvalidInput, s.Status)
	}
	if s.CurrentPeriodEnd.IsZero() {
		return fmt.Errorf("%w: current_period_end is required", xerrors.ErrInvalidInput)
	}
	if s.TrialEnd != nil && s.TrialEnd.After(s.CurrentPeriodEnd) {
		return fmt.Errorf("%w: trial_end is after current_period_end", xerrors.ErrInvalidInput)
	}
	if s.Plan.Price < 0 {
		return fmt.Errorf("%w: negative plan price", xerrors.ErrInvalidInput)
	}
	return nil
}

// NewTrial builds the subscription every new account starts with.
func NewTrial(id string, now time.Time, trialDays int) *Subscription {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	end := now.UTC().Add(time.Duration(trialDays) * 24 * time.Hour)
	return &Subscription{
		ID:               id,
		Status:           StatusTrialing,
		CurrentPeriodEnd: end,
		TrialEnd:         &end,
		Plan: Plan{
			ID:       DefaultPlanID,
			Name:     DefaultPlanName,
			Price:    DefaultPlanPrice,
			Currency: DefaultPlanCurrency,
			Interval: DefaultPlanInterval,
		},
	}
}

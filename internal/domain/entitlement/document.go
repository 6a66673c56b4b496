// internal/domain/entitlement/document.go
package entitlement

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

// SchemaVersion is the layout written by EncodeSubscription. Documents below
// version 2 store plan.price in major units.
const SchemaVersion = 2

// LegacyListPrice was the monthly price before the 80 EUR plan.
const LegacyListPrice = 79

type storedSubscription struct {
	SchemaVersion    int        `json:"schema_version"`
	ID               string     `json:"id"`
	Status           Status     `json:"status"`
	CurrentPeriodEnd time.Time  `json:"current_period_end"`
	TrialEnd         *time.Time `json:"trial_end,omitempty"`
	Plan             storedPlan `json:"plan"`
}

type storedPlan struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
	Interval string      `json:"interval"`
}

// EncodeSubscription renders sub in the current schema.
func EncodeSubscription(sub *Subscription) ([]byte, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: nil subscription", xerrors.ErrInvalidInput)
	}
	doc := storedSubscription{
		SchemaVersion:    SchemaVersion,
		ID:               sub.ID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd.UTC(),
		Plan: storedPlan{
			ID:       sub.Plan.ID,
			Name:     sub.Plan.Name,
			Price:    json.Number(strconv.FormatInt(sub.Plan.Price, 10)),
			Currency: sub.Plan.Currency,
			Interval: sub.Plan.Interval,
		},
	}
	if sub.TrialEnd != nil {
		t := sub.TrialEnd.UTC()
		doc.TrialEnd = &t
	}
	return json.Marshal(doc)
}

// DecodeSubscription parses a stored document. migrated is true when the
// document was written under an older schema and must be re-persisted.
// Unparseable or invariant-violating documents return ErrCorruptState.
func DecodeSubscription(raw []byte) (sub *Subscription, migrated bool, err error) {
	var doc storedSubscription
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: %v", xerrors.ErrCorruptState, err)
	}

	price, migrated, err := decodePrice(doc.SchemaVersion, doc.Plan.Price)
	if err != nil {
		return nil, false, err
	}

	sub = &Subscription{
		ID:               doc.ID,
		Status:           doc.Status,
		CurrentPeriodEnd: doc.CurrentPeriodEnd,
		TrialEnd:         doc.TrialEnd,
		Plan: Plan{
			ID:       doc.Plan.ID,
			Name:     doc.Plan.Name,
			Price:    price,
			Currency: doc.Plan.Currency,
			Interval: doc.Plan.Interval,
		},
	}
	if err := sub.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", xerrors.ErrCorruptState, err)
	}
	return sub, migrated, nil
}

func decodePrice(version int, n json.Number) (int64, bool, error) {
	if version >= SchemaVersion {
		v, err := n.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: plan price %q is not an integer", xerrors.ErrCorruptState, n)
		}
		return v, false, nil
	}

	major, err := n.Float64()
	if err != nil {
		return 0, false, fmt.Errorf("%w: plan price %q is not a number", xerrors.ErrCorruptState, n)
	}
	if major == LegacyListPrice {
		major = DefaultPlanPrice / 100
	}
	return int64(math.Round(major * 100)), true, nil
}

// MigrateDocument rewrites raw into the current schema. Documents already at
// SchemaVersion are returned untouched, so running it twice is a no-op.
func MigrateDocument(raw []byte) ([]byte, bool, error) {
	sub, migrated, err := DecodeSubscription(raw)
	if err != nil {
		return nil, false, err
	}
	if !migrated {
		return raw, false, nil
	}
	out, err := EncodeSubscription(sub)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

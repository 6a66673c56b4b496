// internal/domain/relationship/policy.go
package relationship

import (
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

const day = 24 * time.Hour

// Policy holds every threshold the lifecycle uses to suggest a next status
// and to score relationship strength. These are product decisions; the
// defaults below are the documented baseline and can be overridden from a
// YAML policy file.
//
// Outcome rules are fixed: any positive outcome suggests warm, and a
// negative outcome with no positive one suggests cold even when it came
// from a call or meeting.
type Policy struct {
	// A contacted relationship with no contact for this long, after at
	// least MinAttemptsBeforeCold unanswered outreach attempts, is
	// suggested cold.
	ContactedColdAfter    time.Duration `yaml:"contacted_cold_after"`
	MinAttemptsBeforeCold int           `yaml:"min_attempts_before_cold"`

	// A warm relationship with no contact for this long is suggested cold.
	WarmColdAfter time.Duration `yaml:"warm_cold_after"`

	// A partnership with no contact for this long is suggested back to warm.
	PartneredLapseAfter time.Duration `yaml:"partnered_lapse_after"`

	// Progression hints: follow up after this much silence, and nudge for
	// more interactions while strength stays below WeakStrength.
	FollowUpAfter time.Duration `yaml:"follow_up_after"`
	WeakStrength  int           `yaml:"weak_strength"`

	// Interactions older than StrengthHalfLife count half their weight.
	StrengthHalfLife   time.Duration               `yaml:"strength_half_life"`
	Weights            map[InteractionType]float64 `yaml:"weights"`
	OutcomeMultipliers map[Outcome]float64         `yaml:"outcome_multipliers"`
}

func DefaultPolicy() Policy {
	return Policy{
		ContactedColdAfter:    14 * day,
		MinAttemptsBeforeCold: 2,
		WarmColdAfter:         30 * day,
		PartneredLapseAfter:   90 * day,
		FollowUpAfter:         7 * day,
		WeakStrength:          30,
		StrengthHalfLife:      90 * day,
		Weights: map[InteractionType]float64{
			InteractionEmail:         5,
			InteractionMessage:       5,
			InteractionCall:          15,
			InteractionMeeting:       20,
			InteractionContentCollab: 25,
			InteractionCampaign:      30,
			InteractionNote:          2,
			InteractionFileUpload:    2,
		},
		OutcomeMultipliers: map[Outcome]float64{
			OutcomePositive: 1.2,
			OutcomeNegative: 0.5,
		},
	}
}

func (p Policy) Validate() error {
	durations := map[string]time.Duration{
		"contacted_cold_after":  p.ContactedColdAfter,
		"warm_cold_after":       p.WarmColdAfter,
		"partnered_lapse_after": p.PartneredLapseAfter,
		"follow_up_after":       p.FollowUpAfter,
		"strength_half_life":    p.StrengthHalfLife,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: policy %s must be positive", xerrors.ErrInvalidInput, name)
		}
	}
	if p.MinAttemptsBeforeCold < 1 {
		return fmt.Errorf("%w: policy min_attempts_before_cold must be at least 1", xerrors.ErrInvalidInput)
	}
	if p.WeakStrength < MinStrength || p.WeakStrength > MaxStrength {
		return fmt.Errorf("%w: policy weak_strength out of range", xerrors.ErrInvalidInput)
	}
	for t, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", xerrors.ErrInvalidInput, t)
		}
	}
	for o, m := range p.OutcomeMultipliers {
		if m < 0 {
			return fmt.Errorf("%w: negative multiplier for %s", xerrors.ErrInvalidInput, o)
		}
	}
	return nil
}

// internal/domain/relationship/strength.go
package relationship

import (
	"fmt"
	"math"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

const (
	MinStrength = 0
	MaxStrength = 100
)

// ScoreStrength sums the policy weight of every interaction, scaled by its
// outcome multiplier and halved once older than the half-life. The result
// is rounded and clamped to [MinStrength, MaxStrength]. Status changes do
// not count.
func ScoreStrength(p Policy, interactions []Interaction, now time.Time) int {
	var total float64
	for _, in := range interactions {
		if in.Type == InteractionStatusChange {
			continue
		}
		w := p.Weights[in.Type]
		if m, ok := p.OutcomeMultipliers[in.Outcome]; ok {
			w *= m
		}
		if now.Sub(in.Timestamp) > p.StrengthHalfLife {
			w /= 2
		}
		total += w
	}

	score := int(math.Round(total))
	if score < MinStrength {
		return MinStrength
	}
	if score > MaxStrength {
		return MaxStrength
	}
	return score
}

// ValidateStrength rejects manual strength values outside the scale.
func ValidateStrength(v int) error {
	if v < MinStrength || v > MaxStrength {
		return fmt.Errorf("%w: got %d", xerrors.ErrInvalidStrength, v)
	}
	return nil
}

// internal/domain/relationship/status.go
package relationship

import (
	"fmt"

	xerrors "fluencr-service/internal/pkg/errors"
)

type Status string

const (
	StatusSaved     Status = "saved"
	StatusContacted Status = "contacted"
	StatusWarm      Status = "warm"
	StatusCold      Status = "cold"
	StatusPartnered Status = "partnered"
)

// Statuses lists every lifecycle state in pipeline order.
var Statuses = []Status{StatusSaved, StatusContacted, StatusWarm, StatusCold, StatusPartnered}

// transitions is the complete lifecycle graph. A status missing from a
// value list cannot be reached from the key.
var transitions = map[Status][]Status{
	StatusSaved:     {StatusContacted},
	StatusContacted: {StatusWarm, StatusCold, StatusPartnered},
	StatusWarm:      {StatusCold, StatusPartnered},
	StatusCold:      {StatusContacted, StatusWarm},
	StatusPartnered: {StatusWarm},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown relationship status %q", xerrors.ErrInvalidInput, s)
	}
	return st, nil
}

// AllowedTransitions returns the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError reports a rejected status change. It matches
// xerrors.ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move relationship from %s to %s (allowed: %v)", e.From, e.To, e.Allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == xerrors.ErrInvalidTransition
}

// ValidateTransition returns a *TransitionError when to is not reachable from from.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Allowed: AllowedTransitions(from)}
	}
	return nil
}

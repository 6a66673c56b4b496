// internal/domain/quota/entity.go
package quota

import (
	"encoding/json"
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

// InitialTrials is what a new account gets and what an admin reset restores.
const InitialTrials = 5

// Quota field names keep the camelCase of the stored document.
type Quota struct {
	RemainingTrials int        `json:"remainingTrials"`
	IsPremium       bool       `json:"isPremium"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
}

func New() *Quota {
	return &Quota{RemainingTrials: InitialTrials}
}

// CanConsume reports whether one more metered use is allowed.
func (q *Quota) CanConsume() bool {
	return q.IsPremium || q.RemainingTrials > 0
}

// Consume takes one unit. Premium accounts are neither decremented nor
// stamped: LastUsedAt marks the last metered trial.
func (q *Quota) Consume(now time.Time) error {
	if !q.CanConsume() {
		return xerrors.ErrQuotaExhausted
	}
	if !q.IsPremium {
		q.RemainingTrials--
		t := now.UTC()
		q.LastUsedAt = &t
	}
	return nil
}

// Reset restores the initial allowance regardless of the current count.
func (q *Quota) Reset() {
	q.RemainingTrials = InitialTrials
}

func Encode(q *Quota) ([]byte, error) {
	return json.Marshal(q)
}

// Decode parses a stored quota; bad JSON or a negative count is ErrCorruptState.
func Decode(raw []byte) (*Quota, error) {
	var q Quota
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrCorruptState, err)
	}
	if q.RemainingTrials < 0 {
		return nil, fmt.Errorf("%w: remainingTrials is negative", xerrors.ErrCorruptState)
	}
	return &q, nil
}

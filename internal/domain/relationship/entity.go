// internal/domain/relationship/entity.go
package relationship

import (
	"encoding/json"
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

// Record is the lifecycle state of one tracked contact.
type Record struct {
	ContactID       string        `json:"contact_id"`
	Status          Status        `json:"status"`
	Strength        int           `json:"relationship_strength"`
	LastContactedAt *time.Time    `json:"last_contacted_at,omitempty"`
	FollowUpDate    *time.Time    `json:"follow_up_date,omitempty"`
	Interactions    []Interaction `json:"interactions"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func NewRecord(contactID string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		ContactID:    contactID,
		Status:       StatusSaved,
		Interactions: []Interaction{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance moves the record to status to and appends exactly one
// status_change interaction with the given id.
func (r *Record) Advance(to Status, interactionID string, now time.Time) error {
	if err := ValidateTransition(r.Status, to); err != nil {
		return err
	}
	now = now.UTC()
	r.Interactions = append(r.Interactions, Interaction{
		ID:        interactionID,
		Type:      InteractionStatusChange,
		Timestamp: now,
		Metadata: map[string]string{
			MetaFromStatus: string(r.Status),
			MetaToStatus:   string(to),
		},
	})
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Log appends in and refreshes last_contacted_at and strength.
func (r *Record) Log(p Policy, in Interaction, now time.Time) error {
	if in.Type == InteractionStatusChange {
		return fmt.Errorf("%w: status_change interactions are system generated", xerrors.ErrInvalidInput)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = now
	}
	in.Timestamp = in.Timestamp.UTC()
	r.Interactions = append(r.Interactions, in)
	r.refresh(p, now)
	return nil
}

// UpdateInteraction applies an explicit edit. Status changes are immutable.
func (r *Record) UpdateInteraction(p Policy, id string, patch InteractionPatch, now time.Time) (*Interaction, error) {
	i, err := r.editableIndex(id)
	if err != nil {
		return nil, err
	}
	if patch.Type != nil && *patch.Type == InteractionStatusChange {
		return nil, fmt.Errorf("%w: cannot turn an interaction into a status change", xerrors.ErrInvalidInput)
	}
	patch.apply(&r.Interactions[i])
	r.refresh(p, now)
	out := r.Interactions[i]
	return &out, nil
}

// DeleteInteraction removes a logged interaction. Status changes are immutable.
func (r *Record) DeleteInteraction(p Policy, id string, now time.Time) error {
	i, err := r.editableIndex(id)
	if err != nil {
		return err
	}
	r.Interactions = append(r.Interactions[:i], r.Interactions[i+1:]...)
	r.refresh(p, now)
	return nil
}

// SetStrength overrides the score by hand. It stands until the next
// interaction edit recomputes it.
func (r *Record) SetStrength(v int, now time.Time) error {
	if err := ValidateStrength(v); err != nil {
		return err
	}
	r.Strength = v
	r.UpdatedAt = now.UTC()
	return nil
}

func (r *Record) SetFollowUpDate(at *time.Time, now time.Time) {
	if at != nil {
		t := at.UTC()
		at = &t
	}
	r.FollowUpDate = at
	r.UpdatedAt = now.UTC()
}

func (r *Record) editableIndex(id string) (int, error) {
	for i, in := range r.Interactions {
		if in.ID != id {
			continue
		}
		if in.Type == InteractionStatusChange {
			return -1, fmt.Errorf("%w: status_change interactions cannot be edited", xerrors.ErrInvalidInput)
		}
		return i, nil
	}
	return -1, fmt.Errorf("interaction %s: %w", id, xerrors.ErrNotFound)
}

func (r *Record) refresh(p Policy, now time.Time) {
	var last *time.Time
	for i := range r.Interactions {
		in := r.Interactions[i]
		if !in.Type.IsContact() {
			continue
		}
		if last == nil || in.Timestamp.After(*last) {
			ts := in.Timestamp
			last = &ts
		}
	}
	r.LastContactedAt = last
	r.Strength = ScoreStrength(p, r.Interactions, now)
	r.UpdatedAt = now.UTC()
}

func (r *Record) validate() error {
	if r.ContactID == "" {
		return fmt.Errorf("record without contact id")
	}
	if _, ok := transitions[r.Status]; !ok {
		return fmt.Errorf("record %s has unknown status %q", r.ContactID, r.Status)
	}
	if err := ValidateStrength(r.Strength); err != nil {
		return fmt.Errorf("record %s: %v", r.ContactID, err)
	}
	return nil
}

// Book is the stored document holding every record of one account.
type Book struct {
	Records map[string]*Record `json:"records"`
}

func NewBook() *Book {
	return &Book{Records: map[string]*Record{}}
}

func EncodeBook(b *Book) ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBook parses a stored book; bad JSON or invalid records return
// ErrCorruptState.
func DecodeBook(raw []byte) (*Book, error) {
	var b Book
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrCorruptState, err)
	}
	if b.Records == nil {
		b.Records = map[string]*Record{}
	}
	for id, r := range b.Records {
		if r == nil {
			return nil, fmt.Errorf("%w: null record %s", xerrors.ErrCorruptState, id)
		}
		if r.ContactID == "" {
			r.ContactID = id
		}
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrCorruptState, err)
		}
		if r.Interactions == nil {
			r.Interactions = []Interaction{}
		}
	}
	return &b, nil
}

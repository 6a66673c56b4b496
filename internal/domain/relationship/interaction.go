// internal/domain/relationship/interaction.go
package relationship

import (
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

type InteractionType string

const (
	InteractionEmail         InteractionType = "email"
	InteractionMessage       InteractionType = "message"
	InteractionCall          InteractionType = "call"
	InteractionMeeting       InteractionType = "meeting"
	InteractionContentCollab InteractionType = "content_collab"
	InteractionCampaign      InteractionType = "campaign"
	InteractionFileUpload    InteractionType = "file_upload"
	InteractionNote          InteractionType = "note"
	// InteractionStatusChange is written by the lifecycle itself and
	// cannot be logged, edited or deleted by callers.
	InteractionStatusChange InteractionType = "status_change"
)

func ParseInteractionType(s string) (InteractionType, error) {
	t := InteractionType(s)
	switch t {
	case InteractionEmail, InteractionMessage, InteractionCall, InteractionMeeting,
		InteractionContentCollab, InteractionCampaign, InteractionFileUpload, InteractionNote:
		return t, nil
	case InteractionStatusChange:
		return "", fmt.Errorf("%w: status_change interactions are system generated", xerrors.ErrInvalidInput)
	}
	return "", fmt.Errorf("%w: unknown interaction type %q", xerrors.ErrInvalidInput, s)
}

// IsContact reports whether the interaction touches the contact and so
// moves last_contacted_at. Notes and uploads are internal bookkeeping.
func (t InteractionType) IsContact() bool {
	switch t {
	case InteractionEmail, InteractionMessage, InteractionCall, InteractionMeeting,
		InteractionContentCollab, InteractionCampaign:
		return true
	}
	return false
}

// isOutreach is an attempt to reach the contact that does not by itself
// prove engagement.
func (t InteractionType) isOutreach() bool {
	return t == InteractionEmail || t == InteractionMessage || t == InteractionCall
}

func (t InteractionType) isCollaboration() bool {
	return t == InteractionContentCollab || t == InteractionCampaign
}

func (t InteractionType) isConversation() bool {
	return t == InteractionMeeting || t == InteractionCall
}

type Outcome string

const (
	OutcomePositive Outcome = "positive"
	OutcomeNeutral  Outcome = "neutral"
	OutcomeNegative Outcome = "negative"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case "", OutcomePositive, OutcomeNeutral, OutcomeNegative:
		return o, nil
	}
	return "", fmt.Errorf("%w: unknown outcome %q", xerrors.ErrInvalidInput, s)
}

type Interaction struct {
	ID        string            `json:"id"`
	Type      InteractionType   `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Outcome   Outcome           `json:"outcome,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Content   string            `json:"content,omitempty"`
	FileURL   string            `json:"file_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Metadata keys stamped on status_change interactions.
const (
	MetaFromStatus = "from"
	MetaToStatus   = "to"
)

// InteractionPatch carries an explicit edit of a logged interaction. Nil
// fields are left untouched.
type InteractionPatch struct {
	Type      *InteractionType
	Timestamp *time.Time
	Outcome   *Outcome
	Subject   *string
	Content   *string
	FileURL   *string
	Metadata  map[string]string
}

func (p InteractionPatch) apply(in *Interaction) {
	if p.Type != nil {
		in.Type = *p.Type
	}
	if p.Timestamp != nil {
		in.Timestamp = p.Timestamp.UTC()
	}
	if p.Outcome != nil {
		in.Outcome = *p.Outcome
	}
	if p.Subject != nil {
		in.Subject = *p.Subject
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.FileURL != nil {
		in.FileURL = *p.FileURL
	}
	if p.Metadata != nil {
		in.Metadata = p.Metadata
	}
}

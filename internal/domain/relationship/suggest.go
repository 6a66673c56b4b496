// internal/domain/relationship/suggest.go
package relationship

import (
	"fmt"
	"time"
)

// Suggestion is advisory only; nothing is changed until AdvanceStatus.
type Suggestion struct {
	Next   *Status `json:"next_status"`
	Reason string  `json:"reason"`
}

func suggest(s Status, reason string) Suggestion {
	return Suggestion{Next: &s, Reason: reason}
}

func stay(reason string) Suggestion {
	return Suggestion{Reason: reason}
}

// signals summarises the interactions logged since the record entered its
// current status. A call or meeting with a negative outcome is a rejection,
// not a conversation.
type signals struct {
	collaboration bool
	conversation  bool
	positive      bool
	negative      bool
	attempts      int
}

func readSignals(interactions []Interaction) signals {
	var s signals
	for _, in := range sinceLastStatusChange(interactions) {
		switch {
		case in.Type.isCollaboration():
			s.collaboration = true
		case in.Type.isConversation() && in.Outcome != OutcomeNegative:
			s.conversation = true
		}
		switch in.Outcome {
		case OutcomePositive:
			s.positive = true
		case OutcomeNegative:
			s.negative = true
		}
		if in.Type.isOutreach() && in.Outcome != OutcomePositive {
			s.attempts++
		}
	}
	return s
}

// sinceLastStatusChange returns the interactions appended after the most
// recent status_change entry.
func sinceLastStatusChange(interactions []Interaction) []Interaction {
	for i := len(interactions) - 1; i >= 0; i-- {
		if interactions[i].Type == InteractionStatusChange {
			return interactions[i+1:]
		}
	}
	return interactions
}

// SuggestNextStatus recommends the next lifecycle step for a record in
// status current. It is pure; every threshold comes from p.
func SuggestNextStatus(p Policy, current Status, interactions []Interaction, lastContactedAt *time.Time, now time.Time) Suggestion {
	sig := readSignals(interactions)
	silent := func(after time.Duration) bool {
		return lastContactedAt != nil && now.Sub(*lastContactedAt) >= after
	}

	switch current {
	case StatusSaved:
		return suggest(StatusContacted, "send the first outreach")

	case StatusContacted:
		switch {
		case sig.collaboration:
			return suggest(StatusPartnered, "a collaboration or campaign is already under way")
		case sig.conversation || sig.positive:
			return suggest(StatusWarm, "the contact engaged with a call, meeting or positive reply")
		case sig.negative:
			return suggest(StatusCold, "the contact responded negatively")
		case silent(p.ContactedColdAfter) && sig.attempts >= p.MinAttemptsBeforeCold:
			return suggest(StatusCold, fmt.Sprintf("no response to %d outreach attempts in %s", sig.attempts, humanDays(p.ContactedColdAfter)))
		}
		return stay("waiting for a response to the outreach")

	case StatusWarm:
		switch {
		case sig.collaboration:
			return suggest(StatusPartnered, "a collaboration or campaign is already under way")
		case silent(p.WarmColdAfter):
			return suggest(StatusCold, fmt.Sprintf("no contact in %s", humanDays(p.WarmColdAfter)))
		}
		return stay("keep nurturing the relationship toward a collaboration")

	case StatusCold:
		switch {
		case sig.conversation || sig.positive:
			return suggest(StatusWarm, "the contact re-engaged with a call, meeting or positive reply")
		case sig.negative:
			return stay("the contact declined again")
		case sig.attempts > 0:
			return suggest(StatusContacted, "a new outreach was sent")
		}
		return stay("re-engage with a fresh outreach")

	case StatusPartnered:
		if silent(p.PartneredLapseAfter) {
			return suggest(StatusWarm, fmt.Sprintf("no contact with the partner in %s", humanDays(p.PartneredLapseAfter)))
		}
		return stay("the partnership is active")
	}

	return stay("unknown status")
}

func humanDays(d time.Duration) string {
	n := int(d / day)
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

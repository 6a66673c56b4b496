// internal/domain/relationship/progression.go
package relationship

import (
	"sort"
	"strings"
	"time"
)

var statusDescriptions = map[Status]string{
	StatusSaved:     "Influencer saved to your list",
	StatusContacted: "Initial outreach sent",
	StatusWarm:      "Positive response received",
	StatusCold:      "No response or declined",
	StatusPartnered: "Partnership established",
}

// BuildProgression assembles the suggestion, score and follow-up hints for r.
func BuildProgression(p Policy, r *Record, now time.Time) Progression {
	prog := Progression{
		ContactID:          r.ContactID,
		Status:             r.Status,
		AllowedTransitions: AllowedTransitions(r.Status),
		Suggestion:         SuggestNextStatus(p, r.Status, r.Interactions, r.LastContactedAt, now),
		Strength:           r.Strength,
		InteractionCount:   countLogged(r.Interactions),
		Suggestions:        []string{},
	}
	if n := len(r.Interactions); n > 0 {
		last := r.Interactions[n-1]
		prog.LastInteraction = &last
	}
	if r.LastContactedAt != nil {
		d := int(now.Sub(*r.LastContactedAt) / day)
		if d < 0 {
			d = 0
		}
		prog.DaysSinceLastContact = &d
	}

	if prog.Suggestion.Next != nil {
		prog.Suggestions = append(prog.Suggestions, "Next step: "+statusDescriptions[*prog.Suggestion.Next])
	}
	if prog.Strength < p.WeakStrength {
		prog.Suggestions = append(prog.Suggestions, "Consider more frequent interactions to strengthen the relationship")
	}
	if r.LastContactedAt != nil && now.Sub(*r.LastContactedAt) > p.FollowUpAfter {
		prog.Suggestions = append(prog.Suggestions, "Time for a follow-up - relationships need regular nurturing")
	}
	if r.FollowUpDate != nil && !r.FollowUpDate.After(now) {
		prog.Suggestions = append(prog.Suggestions, "A scheduled follow-up is due")
	}
	if prog.InteractionCount == 0 {
		prog.Suggestions = append(prog.Suggestions, "Start building the relationship with your first interaction")
	}
	return prog
}

func countLogged(interactions []Interaction) int {
	n := 0
	for _, in := range interactions {
		if in.Type != InteractionStatusChange {
			n++
		}
	}
	return n
}

// Filter returns the records of b matching f, sorted as f asks. The
// default order is most recently updated first.
func Filter(b *Book, f ListFilters) []*Record {
	out := make([]*Record, 0, len(b.Records))
	for _, r := range b.Records {
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		out = append(out, r)
	}

	desc := !strings.EqualFold(f.SortOrder, "asc")
	less := func(a, b *Record) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	switch f.SortBy {
	case "strength":
		less = func(a, b *Record) bool { return a.Strength < b.Strength }
	case "follow_up_date":
		less = func(a, b *Record) bool {
			switch {
			case a.FollowUpDate == nil:
				return false
			case b.FollowUpDate == nil:
				return true
			}
			return a.FollowUpDate.Before(*b.FollowUpDate)
		}
		// Soonest follow-up first unless asked otherwise.
		desc = strings.EqualFold(f.SortOrder, "desc")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

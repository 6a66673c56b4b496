package relationship

import (
	"testing"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreStrength(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name         string
		interactions []Interaction
		want         int
	}{
		{"empty", nil, 0},
		{"email and meeting", []Interaction{
			{Type: InteractionEmail, Timestamp: refNow},
			{Type: InteractionMeeting, Timestamp: refNow},
		}, 25},
		{"positive call", []Interaction{{Type: InteractionCall, Outcome: OutcomePositive, Timestamp: refNow}}, 18},
		{"negative meeting", []Interaction{{Type: InteractionMeeting, Outcome: OutcomeNegative, Timestamp: refNow}}, 10},
		{"old campaign halves", []Interaction{{Type: InteractionCampaign, Timestamp: at(100 * day)}}, 15},
		{"status changes ignored", []Interaction{statusChange(refNow), {Type: InteractionNote, Timestamp: refNow}}, 2},
		{"clamped at 100", []Interaction{
			{Type: InteractionCampaign, Timestamp: refNow},
			{Type: InteractionCampaign, Timestamp: refNow},
			{Type: InteractionCampaign, Timestamp: refNow},
			{Type: InteractionCampaign, Timestamp: refNow},
		}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreStrength(p, tt.interactions, refNow))
		})
	}
}

func TestLogStampsLastContactedForContactTypes(t *testing.T) {
	p := DefaultPolicy()
	r := NewRecord("c1", refNow)

	require.NoError(t, r.Log(p, Interaction{ID: "n1", Type: InteractionNote}, refNow))
	assert.Nil(t, r.LastContactedAt)
	assert.Equal(t, 2, r.Strength)

	require.NoError(t, r.Log(p, Interaction{ID: "e1", Type: InteractionEmail}, refNow))
	require.NotNil(t, r.LastContactedAt)
	assert.Equal(t, refNow, *r.LastContactedAt)
	assert.Equal(t, 7, r.Strength)
}

func TestLogRejectsStatusChange(t *testing.T) {
	r := NewRecord("c1", refNow)
	err := r.Log(DefaultPolicy(), Interaction{ID: "x", Type: InteractionStatusChange}, refNow)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Empty(t, r.Interactions)
}

func TestStatusChangeEntriesAreImmutable(t *testing.T) {
	p := DefaultPolicy()
	r := NewRecord("c1", refNow)
	require.NoError(t, r.Advance(StatusContacted, "sc1", refNow))

	subject := "edited"
	_, err := r.UpdateInteraction(p, "sc1", InteractionPatch{Subject: &subject}, refNow)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	err = r.DeleteInteraction(p, "sc1", refNow)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Len(t, r.Interactions, 1)
}

func TestUpdateAndDeleteInteraction(t *testing.T) {
	p := DefaultPolicy()
	r := NewRecord("c1", refNow)
	require.NoError(t, r.Log(p, Interaction{ID: "m1", Type: InteractionMeeting, Timestamp: at(day)}, refNow))

	positive := OutcomePositive
	updated, err := r.UpdateInteraction(p, "m1", InteractionPatch{Outcome: &positive}, refNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomePositive, updated.Outcome)
	assert.Equal(t, 24, r.Strength)

	require.NoError(t, r.DeleteInteraction(p, "m1", refNow))
	assert.Empty(t, r.Interactions)
	assert.Nil(t, r.LastContactedAt)
	assert.Equal(t, 0, r.Strength)

	assert.ErrorIs(t, r.DeleteInteraction(p, "m1", refNow), xerrors.ErrNotFound)
}

func TestSetStrengthRejectsOutOfRange(t *testing.T) {
	r := NewRecord("c1", refNow)

	for _, v := range []int{-1, 101, 1000} {
		err := r.SetStrength(v, refNow)
		assert.ErrorIs(t, err, xerrors.ErrInvalidStrength)
	}
	assert.Equal(t, 0, r.Strength)

	require.NoError(t, r.SetStrength(100, refNow))
	assert.Equal(t, 100, r.Strength)
}

func TestDecodeBook(t *testing.T) {
	r := NewRecord("c1", refNow)
	b := NewBook()
	b.Records[r.ContactID] = r

	raw, err := EncodeBook(b)
	require.NoError(t, err)
	got, err := DecodeBook(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, got.Records["c1"].Status)

	for name, bad := range map[string]string{
		"bad json":       `{"records":`,
		"unknown status": `{"records":{"c1":{"status":"lukewarm","relationship_strength":0}}}`,
		"strength":       `{"records":{"c1":{"status":"warm","relationship_strength":140}}}`,
		"null record":    `{"records":{"c1":null}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBook([]byte(bad))
			assert.ErrorIs(t, err, xerrors.ErrCorruptState)
		})
	}
}

func TestBuildProgression(t *testing.T) {
	p := DefaultPolicy()
	r := NewRecord("c1", at(20*day))
	require.NoError(t, r.Advance(StatusContacted, "sc1", at(20*day)))
	require.NoError(t, r.Log(p, Interaction{ID: "e1", Type: InteractionEmail, Timestamp: at(10 * day)}, at(10*day)))

	prog := BuildProgression(p, r, refNow)

	assert.Equal(t, StatusContacted, prog.Status)
	assert.Equal(t, 1, prog.InteractionCount)
	require.NotNil(t, prog.DaysSinceLastContact)
	assert.Equal(t, 10, *prog.DaysSinceLastContact)
	assert.Nil(t, prog.Suggestion.Next)
	assert.Contains(t, prog.Suggestions, "Consider more frequent interactions to strengthen the relationship")
	assert.Contains(t, prog.Suggestions, "Time for a follow-up - relationships need regular nurturing")
	assert.ElementsMatch(t, []Status{StatusWarm, StatusCold, StatusPartnered}, prog.AllowedTransitions)
}

func TestFilter(t *testing.T) {
	b := NewBook()
	soon := refNow.Add(day)
	later := refNow.Add(5 * day)
	b.Records["a"] = &Record{ContactID: "a", Status: StatusWarm, Strength: 40, UpdatedAt: refNow, FollowUpDate: &later}
	b.Records["b"] = &Record{ContactID: "b", Status: StatusWarm, Strength: 80, UpdatedAt: refNow.Add(-time.Hour), FollowUpDate: &soon}
	b.Records["c"] = &Record{ContactID: "c", Status: StatusCold, Strength: 10, UpdatedAt: refNow.Add(time.Hour)}

	ids := func(rs []*Record) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ContactID)
		}
		return out
	}

	assert.Equal(t, []string{"c", "a", "b"}, ids(Filter(b, ListFilters{})))
	assert.Equal(t, []string{"a", "b"}, ids(Filter(b, ListFilters{Status: "warm"})))
	assert.Equal(t, []string{"b", "a", "c"}, ids(Filter(b, ListFilters{SortBy: "strength"})))
	assert.Equal(t, []string{"b", "a", "c"}, ids(Filter(b, ListFilters{SortBy: "follow_up_date"})))
}

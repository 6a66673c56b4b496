package relationship

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/relationship"
	wstypes "fluencr-service/internal/domain/websocket"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"
	"fluencr-service/internal/repository/memory"
	"fluencr-service/internal/repository/redisstore"
	auditsvc "fluencr-service/internal/service/audit"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const account = "3d2c1b0a-9f8e-4d7c-8b6a-5f4e3d2c1b0a"

type fixture struct {
	svc    *LifecycleService
	store  repository.DocumentStore
	clock  clockwork.FakeClock
	events *auditsvc.MemoryStore
}

func newFixture(t *testing.T, store repository.DocumentStore, retries int) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC))
	events := auditsvc.NewMemoryStore(100)
	logger := zap.NewNop()
	svc := NewLifecycleService(
		store, clock, relationship.DefaultPolicy(),
		auditsvc.NewAuditService(events, clock, logger),
		wstypes.NopNotifier{}, retries, logger,
	)
	return &fixture{svc: svc, store: store, clock: clock, events: events}
}

func (f *fixture) track(t *testing.T, contactID string) {
	t.Helper()
	_, err := f.svc.TrackContact(context.Background(), account, &relationship.TrackContactRequest{ContactID: contactID})
	require.NoError(t, err)
}

func countStatusChanges(r *relationship.Record) int {
	n := 0
	for _, in := range r.Interactions {
		if in.Type == relationship.InteractionStatusChange {
			n++
		}
	}
	return n
}

func TestTrackContact(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()

	r, err := f.svc.TrackContact(ctx, account, &relationship.TrackContactRequest{ContactID: " ig-123 "})
	require.NoError(t, err)
	assert.Equal(t, "ig-123", r.ContactID)
	assert.Equal(t, relationship.StatusSaved, r.Status)
	assert.Equal(t, 0, r.Strength)

	_, err = f.svc.TrackContact(ctx, account, &relationship.TrackContactRequest{ContactID: "ig-123"})
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	_, err = f.svc.TrackContact(ctx, account, &relationship.TrackContactRequest{ContactID: "  "})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestAdvanceWarmToPartneredAppendsOneAuditEntry(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	_, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusContacted)
	require.NoError(t, err)
	before, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusWarm)
	require.NoError(t, err)
	n := len(before.Interactions)

	r, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusPartnered)
	require.NoError(t, err)

	assert.Equal(t, relationship.StatusPartnered, r.Status)
	require.Len(t, r.Interactions, n+1)
	last := r.Interactions[n]
	assert.Equal(t, relationship.InteractionStatusChange, last.Type)
	assert.Equal(t, "warm", last.Metadata[relationship.MetaFromStatus])
	assert.Equal(t, "partnered", last.Metadata[relationship.MetaToStatus])
	assert.NotEmpty(t, last.ID)

	stored, err := f.svc.GetRecord(ctx, account, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, countStatusChanges(stored))
}

func TestAdvanceSavedToPartneredRejected(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	_, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusPartnered)

	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)
	var te *relationship.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []relationship.Status{relationship.StatusContacted}, te.Allowed)

	r, err := f.svc.GetRecord(ctx, account, "c1")
	require.NoError(t, err)
	assert.Equal(t, relationship.StatusSaved, r.Status)
	assert.Empty(t, r.Interactions)
}

func TestAdvanceUnknownContact(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)

	_, err := f.svc.AdvanceStatus(context.Background(), account, "ghost", relationship.StatusContacted)

	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestRemoveContactThenLogFails(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	require.NoError(t, f.svc.RemoveContact(ctx, account, "c1"))

	_, err := f.svc.LogInteraction(ctx, account, "c1", &relationship.LogInteractionRequest{Type: "email"})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.svc.GetRecord(ctx, account, "c1")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.RemoveContact(ctx, account, "c1"), xerrors.ErrNotFound)

	list, err := f.svc.ListRecords(ctx, account, relationship.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
}

func TestLogInteractionUpdatesContactAndStrength(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	r, err := f.svc.LogInteraction(ctx, account, "c1", &relationship.LogInteractionRequest{Type: "note", Subject: "intro"})
	require.NoError(t, err)
	assert.Nil(t, r.LastContactedAt)
	assert.Equal(t, 2, r.Strength)

	r, err = f.svc.LogInteraction(ctx, account, "c1", &relationship.LogInteractionRequest{Type: "meeting", Outcome: "positive"})
	require.NoError(t, err)
	require.NotNil(t, r.LastContactedAt)
	assert.Equal(t, f.clock.Now().UTC(), *r.LastContactedAt)
	assert.Equal(t, 26, r.Strength)
}

func TestLogInteractionSanitizesText(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	f.track(t, "c1")

	r, err := f.svc.LogInteraction(context.Background(), account, "c1", &relationship.LogInteractionRequest{
		Type:    "email",
		Subject: `<b>Hi</b><script>alert(1)</script>`,
		Content: `<p>Hello</p><img src=x onerror="alert(1)">`,
	})
	require.NoError(t, err)

	in := r.Interactions[0]
	assert.Equal(t, "Hi", in.Subject)
	assert.Contains(t, in.Content, "<p>Hello</p>")
	assert.NotContains(t, in.Content, "onerror")
}

func TestLogInteractionRejectsBadInput(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	for _, req := range []*relationship.LogInteractionRequest{
		{Type: "carrier_pigeon"},
		{Type: "status_change"},
		{Type: "email", Outcome: "ecstatic"},
	} {
		_, err := f.svc.LogInteraction(ctx, account, "c1", req)
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput, req.Type)
	}
}

func TestStatusChangeCannotBeEdited(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")
	r, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusContacted)
	require.NoError(t, err)
	id := r.Interactions[0].ID

	subject := "rewritten"
	_, err = f.svc.UpdateInteraction(ctx, account, "c1", id, &relationship.UpdateInteractionRequest{Subject: &subject})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.DeleteInteraction(ctx, account, "c1", id)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestUpdateAndDeleteInteraction(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")
	r, err := f.svc.LogInteraction(ctx, account, "c1", &relationship.LogInteractionRequest{Type: "call"})
	require.NoError(t, err)
	id := r.Interactions[0].ID
	assert.Equal(t, 15, r.Strength)

	outcome := "negative"
	r, err = f.svc.UpdateInteraction(ctx, account, "c1", id, &relationship.UpdateInteractionRequest{Outcome: &outcome})
	require.NoError(t, err)
	assert.Equal(t, relationship.OutcomeNegative, r.Interactions[0].Outcome)
	assert.Equal(t, 8, r.Strength)

	r, err = f.svc.DeleteInteraction(ctx, account, "c1", id)
	require.NoError(t, err)
	assert.Empty(t, r.Interactions)
	assert.Nil(t, r.LastContactedAt)

	_, err = f.svc.DeleteInteraction(ctx, account, "c1", id)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSetStrength(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")

	for _, v := range []int{-5, 101} {
		_, err := f.svc.SetStrength(ctx, account, "c1", v)
		assert.ErrorIs(t, err, xerrors.ErrInvalidStrength)
	}

	r, err := f.svc.SetStrength(ctx, account, "c1", 80)
	require.NoError(t, err)
	assert.Equal(t, 80, r.Strength)

	stored, err := f.svc.GetRecord(ctx, account, "c1")
	require.NoError(t, err)
	assert.Equal(t, 80, stored.Strength)
}

func TestSetFollowUpDate(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")
	due := f.clock.Now().Add(72 * time.Hour).UTC()

	r, err := f.svc.SetFollowUpDate(ctx, account, "c1", &due)
	require.NoError(t, err)
	require.NotNil(t, r.FollowUpDate)
	assert.Equal(t, due, *r.FollowUpDate)

	r, err = f.svc.SetFollowUpDate(ctx, account, "c1", nil)
	require.NoError(t, err)
	assert.Nil(t, r.FollowUpDate)
}

func TestProgressionSuggestsWarmAfterMeeting(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "c1")
	_, err := f.svc.AdvanceStatus(ctx, account, "c1", relationship.StatusContacted)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.LogInteraction(ctx, account, "c1", &relationship.LogInteractionRequest{Type: "meeting"})
	require.NoError(t, err)

	prog, err := f.svc.Progression(ctx, account, "c1")

	require.NoError(t, err)
	require.NotNil(t, prog.Suggestion.Next)
	assert.Equal(t, relationship.StatusWarm, *prog.Suggestion.Next)
	assert.Equal(t, 1, prog.InteractionCount)
}

func TestListRecordsFiltersByStatus(t *testing.T) {
	f := newFixture(t, memory.NewStore(), 3)
	ctx := context.Background()
	f.track(t, "a")
	f.track(t, "b")
	_, err := f.svc.AdvanceStatus(ctx, account, "b", relationship.StatusContacted)
	require.NoError(t, err)

	list, err := f.svc.ListRecords(ctx, account, relationship.ListFilters{Status: "contacted"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "b", list.Records[0].ContactID)

	_, err = f.svc.ListRecords(ctx, account, relationship.ListFilters{Status: "lukewarm"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestCorruptBookIsQuarantinedAndRecovered(t *testing.T) {
	store := memory.NewStore()
	f := newFixture(t, store, 3)
	ctx := context.Background()
	garbage := []byte(`{"records":{"c1":{"status":"lukewarm"}}}`)
	_, err := store.Put(ctx, repository.Key(repository.ConcernRelationships, account), garbage, 0)
	require.NoError(t, err)

	list, err := f.svc.ListRecords(ctx, account, relationship.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)

	events, err := f.events.List(ctx, audit.ListFilters{AccountID: account})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionRelationshipRecovered, events[0].Action)

	doc, err := store.Get(ctx, events[0].Details["quarantine_key"])
	require.NoError(t, err)
	assert.Equal(t, garbage, doc.Data)

	f.track(t, "c1")
	r, err := f.svc.GetRecord(ctx, account, "c1")
	require.NoError(t, err)
	assert.Equal(t, relationship.StatusSaved, r.Status)
}

func TestCorruptBookRecoveredEvenWhenCallFails(t *testing.T) {
	store := memory.NewStore()
	f := newFixture(t, store, 3)
	ctx := context.Background()
	key := repository.Key(repository.ConcernRelationships, account)
	garbage := []byte(`{not json`)
	_, err := store.Put(ctx, key, garbage, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.LogInteraction(ctx, account, "ig-1", &relationship.LogInteractionRequest{Type: "email"})
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	}

	doc, err := store.Get(ctx, key)
	require.NoError(t, err)
	book, err := relationship.DecodeBook(doc.Data)
	require.NoError(t, err)
	assert.Empty(t, book.Records)

	events, err := f.events.List(ctx, audit.ListFilters{AccountID: account})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionRelationshipRecovered, events[0].Action)

	quarantined := repository.Key(concernQuarantine, account) + ":v1"
	assert.Equal(t, quarantined, events[0].Details["quarantine_key"])
	copyDoc, err := store.Get(ctx, quarantined)
	require.NoError(t, err)
	assert.Equal(t, garbage, copyDoc.Data)
	assert.Equal(t, int64(1), copyDoc.Version)
}

func TestRecoverBookReusesQuarantineCopy(t *testing.T) {
	store := memory.NewStore()
	f := newFixture(t, store, 3)
	ctx := context.Background()
	key := repository.Key(repository.ConcernRelationships, account)
	quarantined := repository.Key(concernQuarantine, account) + ":v1"

	_, err := store.Put(ctx, quarantined, []byte(`{not json`), 0)
	require.NoError(t, err)
	_, err = store.Put(ctx, key, []byte(`{not json`), 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.recoverBook(ctx, account))
	require.NoError(t, f.svc.recoverBook(ctx, account))

	copyDoc, err := store.Get(ctx, quarantined)
	require.NoError(t, err)
	assert.Equal(t, int64(1), copyDoc.Version)

	events, err := f.events.List(ctx, audit.ListFilters{AccountID: account})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestConcurrentLogsAreNotLost(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newFixture(t, redisstore.NewStore(client), 50)
	f.track(t, "c1")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.LogInteraction(context.Background(), account, "c1", &relationship.LogInteractionRequest{
				Type:    "note",
				Subject: fmt.Sprintf("note %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	r, err := f.svc.GetRecord(context.Background(), account, "c1")
	require.NoError(t, err)
	assert.Len(t, r.Interactions, writers)
}

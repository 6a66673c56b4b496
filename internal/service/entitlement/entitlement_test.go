package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/entitlement"
	wstypes "fluencr-service/internal/domain/websocket"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"
	"fluencr-service/internal/repository/memory"
	auditsvc "fluencr-service/internal/service/audit"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const account = "7f6c1c2e-4b0a-4d8e-9a51-3f0e2d1c9b77"

type fixture struct {
	svc    *EntitlementService
	store  repository.DocumentStore
	clock  clockwork.FakeClock
	events *auditsvc.MemoryStore
	logs   *observer.ObservedLogs
	pushed []wstypes.EventType
}

type recordingNotifier struct{ f *fixture }

func (n recordingNotifier) NotifyAccount(_ string, t wstypes.EventType, _ interface{}) {
	n.f.pushed = append(n.f.pushed, t)
}

func newFixture(t *testing.T, store repository.DocumentStore) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	events := auditsvc.NewMemoryStore(100)

	f := &fixture{store: store, clock: clock, events: events, logs: logs}
	f.svc = NewEntitlementService(
		store, clock,
		auditsvc.NewAuditService(events, clock, logger),
		recordingNotifier{f},
		Options{MaxWriteRetries: 3},
		logger,
	)
	return f
}

func key() string { return repository.Key(repository.ConcernSubscription, account) }

func TestLoadOrInitializeMissing(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	ctx := context.Background()

	sub, err := f.svc.LoadOrInitialize(ctx, account)
	require.NoError(t, err)

	assert.Equal(t, entitlement.StatusTrialing, sub.Status)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), *sub.TrialEnd)
	assert.Equal(t, int64(8000), sub.Plan.Price)

	entries := f.logs.FilterMessage("subscription initialized").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "missing", entries[0].ContextMap()["reason"])

	again, err := f.svc.LoadOrInitialize(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID, "second load reads the stored trial")
	assert.Equal(t, 1, f.logs.FilterMessage("subscription initialized").Len())
}

func TestLoadOrInitializeCorrupt(t *testing.T) {
	store := memory.NewStore()
	_, err := store.Put(context.Background(), key(), []byte(`{"id": "sub_1", "status": `), 0)
	require.NoError(t, err)
	f := newFixture(t, store)

	sub, err := f.svc.LoadOrInitialize(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, entitlement.StatusTrialing, sub.Status)

	entries := f.logs.FilterMessage("subscription initialized").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "corrupt", entries[0].ContextMap()["reason"])

	events, err := f.events.List(context.Background(), audit.ListFilters{AccountID: account})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSubscriptionRecovered, events[0].Action)

	doc, err := store.Get(context.Background(), key())
	require.NoError(t, err)
	stored, migrated, err := entitlement.DecodeSubscription(doc.Data)
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, sub.ID, stored.ID)
}

func TestLoadOrInitializeMigratesLegacyOnce(t *testing.T) {
	store := memory.NewStore()
	legacy := `{"id":"sub_old","status":"active","current_period_end":"2025-04-01T00:00:00.000Z",
		"plan":{"id":"fluencr_pro","name":"Fluencr Pro","price":79,"currency":"eur","interval":"month"}}`
	_, err := store.Put(context.Background(), key(), []byte(legacy), 0)
	require.NoError(t, err)
	f := newFixture(t, store)

	sub, err := f.svc.LoadOrInitialize(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), sub.Plan.Price)

	first, err := store.Get(context.Background(), key())
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Version)

	_, err = f.svc.LoadOrInitialize(context.Background(), account)
	require.NoError(t, err)
	second, err := store.Get(context.Background(), key())
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.Version, second.Version, "migrated document is not rewritten")
	assert.Equal(t, 1, f.logs.FilterMessage("subscription migrated").Len())
}

func TestCurrentDerivesAtClockNow(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	ctx := context.Background()

	view, err := f.svc.Current(ctx, account)
	require.NoError(t, err)
	assert.True(t, view.Entitlement.IsTrialActive)
	assert.Equal(t, 7, view.Entitlement.DaysRemaining)

	f.clock.Advance(8 * 24 * time.Hour)
	view, err = f.svc.Current(ctx, account)
	require.NoError(t, err)
	assert.False(t, view.Entitlement.IsTrialActive)
	assert.True(t, view.Entitlement.IsExpired)
	assert.Equal(t, 0, view.Entitlement.DaysRemaining)

	assert.ErrorIs(t, f.svc.Require(ctx, account, entitlement.FeatureAccessCRM), xerrors.ErrForbidden)
}

func TestUpdateReplacesAndClears(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	ctx := context.Background()
	now := f.clock.Now()

	paid := &entitlement.Subscription{
		ID:               "sub_paid",
		Status:           entitlement.StatusActive,
		CurrentPeriodEnd: now.Add(23 * 24 * time.Hour),
		Plan:             entitlement.Plan{ID: "fluencr_pro", Name: "Fluencr Pro", Price: 8000, Currency: "eur", Interval: "month"},
	}
	view, err := f.svc.Update(ctx, "admin-1", account, paid)
	require.NoError(t, err)
	assert.True(t, view.Entitlement.IsSubscriptionActive)
	assert.Equal(t, 23, view.Entitlement.DaysRemaining)
	require.NoError(t, f.svc.Require(ctx, account, entitlement.FeatureIntentDiscovery))

	view, err = f.svc.Update(ctx, "admin-1", account, nil)
	require.NoError(t, err)
	assert.Nil(t, view.Subscription)
	_, err = f.store.Get(ctx, key())
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeEntitlementUpdated, wstypes.EventTypeEntitlementUpdated}, f.pushed)

	events, err := f.events.List(ctx, audit.ListFilters{AccountID: account, Action: string(audit.ActionSubscriptionUpdated)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "admin-1", events[0].Actor)
}

func TestStaleWriterCannotOverwriteAfterClear(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	ctx := context.Background()

	_, err := f.svc.LoadOrInitialize(ctx, account)
	require.NoError(t, err)
	stale, err := f.store.Get(ctx, key())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "admin-1", account, nil)
	require.NoError(t, err)
	fresh, err := f.svc.LoadOrInitialize(ctx, account)
	require.NoError(t, err)

	_, err = f.store.Put(ctx, key(), stale.Data, stale.Version)
	assert.ErrorIs(t, err, xerrors.ErrVersionConflict)

	current, err := f.svc.LoadOrInitialize(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, current.ID)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	now := f.clock.Now()
	trialEnd := now.Add(10 * 24 * time.Hour)

	_, err := f.svc.Update(context.Background(), "admin-1", account, &entitlement.Subscription{
		ID:               "sub_bad",
		Status:           entitlement.StatusTrialing,
		CurrentPeriodEnd: now.Add(24 * time.Hour),
		TrialEnd:         &trialEnd,
	})

	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Empty(t, f.pushed)
}

type downStore struct{ repository.DocumentStore }

func (downStore) Get(context.Context, string) (*repository.Document, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestPersistenceFailureSurfaces(t *testing.T) {
	f := newFixture(t, repository.WithTimeout(downStore{}, time.Second))

	_, err := f.svc.LoadOrInitialize(context.Background(), account)

	assert.ErrorIs(t, err, xerrors.ErrPersistenceIO)
	assert.Equal(t, 0, f.logs.FilterMessage("subscription initialized").Len())
}

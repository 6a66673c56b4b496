package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"fluencr-service/internal/domain/audit"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordLogsAndStores(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore(10)
	svc := NewAuditService(store, clock, zap.New(core))

	svc.Record(context.Background(), "acct-1", "admin-7", audit.ActionQuotaReset, map[string]string{"previous": "0"})

	events, err := svc.List(context.Background(), audit.ListFilters{AccountID: "acct-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "admin-7", events[0].Actor)
	assert.Equal(t, clock.Now(), events[0].CreatedAt)
	assert.NotEmpty(t, events[0].ID)

	entries := logs.FilterMessage("audit event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "quota.admin_reset", entries[0].ContextMap()["action"])
	assert.Equal(t, "0", entries[0].ContextMap()["previous"])
}

type failingStore struct{ MemoryStore }

func (*failingStore) Create(context.Context, *audit.Event) error { return errors.New("db down") }

func TestRecordSurvivesStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := NewAuditService(&failingStore{}, clockwork.NewRealClock(), zap.New(core))

	svc.Record(context.Background(), "acct-1", "system", audit.ActionSubscriptionRecovered, nil)

	assert.Equal(t, 1, logs.FilterMessage("audit event").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to persist audit event").Len())
}

func TestMemoryStoreCapacityAndFilters(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	for i, acct := range []string{"a", "b", "a", "a"} {
		require.NoError(t, store.Create(ctx, &audit.Event{ID: string(rune('0' + i)), AccountID: acct, Action: audit.ActionQuotaReset}))
	}

	all, err := store.List(ctx, audit.ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID, "newest first")

	onlyA, err := store.List(ctx, audit.ListFilters{AccountID: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "3", onlyA[0].ID)
}

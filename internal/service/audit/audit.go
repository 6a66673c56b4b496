// internal/service/audit/audit.go
package audit

import (
	"context"
	"sync"

	"fluencr-service/internal/domain/audit"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Recorder is what the engines depend on to leave an audit trail.
type Recorder interface {
	Record(ctx context.Context, accountID, actor string, action audit.Action, details map[string]string)
}

// EventStore persists audit events.
type EventStore interface {
	Create(ctx context.Context, e *audit.Event) error
	List(ctx context.Context, filters audit.ListFilters) ([]audit.Event, error)
}

type AuditService struct {
	store  EventStore
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewAuditService(store EventStore, clock clockwork.Clock, logger *zap.Logger) *AuditService {
	return &AuditService{store: store, clock: clock, logger: logger}
}

// Record writes the event to the log and then to the event store. A store
// failure is logged, not returned: the audited operation already happened.
func (s *AuditService) Record(ctx context.Context, accountID, actor string, action audit.Action, details map[string]string) {
	e := &audit.Event{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		Actor:     actor,
		Action:    action,
		Details:   details,
		CreatedAt: s.clock.Now().UTC(),
	}

	fields := []zap.Field{
		zap.String("audit_id", e.ID),
		zap.String("account_id", accountID),
		zap.String("actor", actor),
		zap.String("action", string(action)),
	}
	for k, v := range details {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Info("audit event", fields...)

	if err := s.store.Create(ctx, e); err != nil {
		s.logger.Error("failed to persist audit event", zap.String("audit_id", e.ID), zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, filters audit.ListFilters) ([]audit.Event, error) {
	return s.store.List(ctx, filters)
}

// MemoryStore keeps the most recent events in process memory, for
// deployments without Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	events   []audit.Event
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{capacity: capacity}
}

func (m *MemoryStore) Create(_ context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, *e)
	if over := len(m.events) - m.capacity; over > 0 {
		m.events = m.events[over:]
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, filters audit.ListFilters) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	out := []audit.Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if filters.AccountID != "" && e.AccountID != filters.AccountID {
			continue
		}
		if filters.Action != "" && string(e.Action) != filters.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

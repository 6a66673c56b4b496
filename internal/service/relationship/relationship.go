// internal/service/relationship/relationship.go
package relationship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/relationship"
	wstypes "fluencr-service/internal/domain/websocket"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/metrics"
	"fluencr-service/internal/repository"
	auditsvc "fluencr-service/internal/service/audit"

	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const concernQuarantine = "relationships-corrupt"

var errCorruptBook = fmt.Errorf("relationships book: %w", xerrors.ErrCorruptState)

type LifecycleService struct {
	store      repository.DocumentStore
	clock      clockwork.Clock
	policy     relationship.Policy
	audit      auditsvc.Recorder
	notifier   wstypes.Notifier
	metrics    *metrics.Metrics
	maxRetries int
	strict     *bluemonday.Policy
	ugc        *bluemonday.Policy
	logger     *zap.Logger
}

func NewLifecycleService(
	store repository.DocumentStore,
	clock clockwork.Clock,
	policy relationship.Policy,
	recorder auditsvc.Recorder,
	notifier wstypes.Notifier,
	maxRetries int,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:      store,
		clock:      clock,
		policy:     policy,
		audit:      recorder,
		notifier:   notifier,
		metrics:    metrics.Get(),
		maxRetries: maxRetries,
		strict:     bluemonday.StrictPolicy(),
		ugc:        bluemonday.UGCPolicy(),
		logger:     logger,
	}
}

// Policy returns the thresholds in force.
func (s *LifecycleService) Policy() relationship.Policy {
	return s.policy
}

// TrackContact starts tracking contactID in the saved state.
func (s *LifecycleService) TrackContact(ctx context.Context, accountID string, req *relationship.TrackContactRequest) (*relationship.Record, error) {
	contactID := strings.TrimSpace(req.ContactID)
	if contactID == "" {
		return nil, fmt.Errorf("%w: contact_id is required", xerrors.ErrInvalidInput)
	}

	var created *relationship.Record
	err := s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		if _, ok := b.Records[contactID]; ok {
			return fmt.Errorf("contact %s: %w", contactID, xerrors.ErrConflict)
		}
		created = relationship.NewRecord(contactID, now)
		if req.FollowUpDate != nil {
			created.SetFollowUpDate(req.FollowUpDate, now)
		}
		b.Records[contactID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contact tracked", zap.String("account_id", accountID), zap.String("contact_id", contactID))
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, created)
	return created, nil
}

func (s *LifecycleService) GetRecord(ctx context.Context, accountID, contactID string) (*relationship.Record, error) {
	b, err := s.read(ctx, accountID)
	if err != nil {
		return nil, err
	}
	r, ok := b.Records[contactID]
	if !ok {
		return nil, notFound(contactID)
	}
	return r, nil
}

func (s *LifecycleService) ListRecords(ctx context.Context, accountID string, filters relationship.ListFilters) (*relationship.ListResponse, error) {
	if filters.Status != "" {
		if _, err := relationship.ParseStatus(filters.Status); err != nil {
			return nil, err
		}
	}
	b, err := s.read(ctx, accountID)
	if err != nil {
		return nil, err
	}
	records := relationship.Filter(b, filters)
	return &relationship.ListResponse{Records: records, Total: len(records)}, nil
}

// Progression returns the suggestion and hints for one contact at the
// clock's now.
func (s *LifecycleService) Progression(ctx context.Context, accountID, contactID string) (*relationship.Progression, error) {
	r, err := s.GetRecord(ctx, accountID, contactID)
	if err != nil {
		return nil, err
	}
	prog := relationship.BuildProgression(s.policy, r, s.clock.Now())
	return &prog, nil
}

// AdvanceStatus moves a contact along the lifecycle. Edges outside the
// transition table fail with a *relationship.TransitionError.
func (s *LifecycleService) AdvanceStatus(ctx context.Context, accountID, contactID string, to relationship.Status) (*relationship.Record, error) {
	var updated *relationship.Record
	var from relationship.Status
	err := s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		from = r.Status
		if err := r.Advance(to, ulid.Make().String(), now); err != nil {
			return err
		}
		updated = r
		return nil
	})

	var te *relationship.TransitionError
	if errors.As(err, &te) {
		s.metrics.TransitionRejected(string(te.From))
		s.logger.Info("status transition rejected",
			zap.String("account_id", accountID),
			zap.String("contact_id", contactID),
			zap.String("from", string(te.From)),
			zap.String("to", string(te.To)),
		)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.TransitionApplied(string(to))
	s.logger.Info("status advanced",
		zap.String("account_id", accountID),
		zap.String("contact_id", contactID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

// LogInteraction appends an interaction and refreshes last contact and
// strength. The record must already be tracked.
func (s *LifecycleService) LogInteraction(ctx context.Context, accountID, contactID string, req *relationship.LogInteractionRequest) (*relationship.Record, error) {
	in, err := s.buildInteraction(req)
	if err != nil {
		return nil, err
	}

	var updated *relationship.Record
	err = s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		if err := r.Log(s.policy, in, now); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interaction logged",
		zap.String("account_id", accountID),
		zap.String("contact_id", contactID),
		zap.String("interaction_id", in.ID),
		zap.String("type", string(in.Type)),
		zap.Int("strength", updated.Strength),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

// UpdateInteraction edits a logged interaction. Status changes are immutable.
func (s *LifecycleService) UpdateInteraction(ctx context.Context, accountID, contactID, interactionID string, req *relationship.UpdateInteractionRequest) (*relationship.Record, error) {
	patch, err := s.buildPatch(req)
	if err != nil {
		return nil, err
	}

	var updated *relationship.Record
	err = s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		if _, err := r.UpdateInteraction(s.policy, interactionID, patch, now); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interaction updated",
		zap.String("account_id", accountID),
		zap.String("contact_id", contactID),
		zap.String("interaction_id", interactionID),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

func (s *LifecycleService) DeleteInteraction(ctx context.Context, accountID, contactID, interactionID string) (*relationship.Record, error) {
	var updated *relationship.Record
	err := s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		if err := r.DeleteInteraction(s.policy, interactionID, now); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interaction deleted",
		zap.String("account_id", accountID),
		zap.String("contact_id", contactID),
		zap.String("interaction_id", interactionID),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

func (s *LifecycleService) SetFollowUpDate(ctx context.Context, accountID, contactID string, at *time.Time) (*relationship.Record, error) {
	var updated *relationship.Record
	err := s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		r.SetFollowUpDate(at, now)
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

// SetStrength overrides the computed score. Values outside [0,100] fail
// with ErrInvalidStrength and are never clamped.
func (s *LifecycleService) SetStrength(ctx context.Context, accountID, contactID string, strength int) (*relationship.Record, error) {
	if err := relationship.ValidateStrength(strength); err != nil {
		return nil, err
	}

	var updated *relationship.Record
	err := s.update(ctx, accountID, func(b *relationship.Book, now time.Time) error {
		r, ok := b.Records[contactID]
		if !ok {
			return notFound(contactID)
		}
		updated = r
		return r.SetStrength(strength, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("strength overridden",
		zap.String("account_id", accountID),
		zap.String("contact_id", contactID),
		zap.Int("strength", strength),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipUpdated, updated)
	return updated, nil
}

// RemoveContact deletes the record and its history. Later calls for the
// same contact fail with ErrNotFound.
func (s *LifecycleService) RemoveContact(ctx context.Context, accountID, contactID string) error {
	err := s.update(ctx, accountID, func(b *relationship.Book, _ time.Time) error {
		if _, ok := b.Records[contactID]; !ok {
			return notFound(contactID)
		}
		delete(b.Records, contactID)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("contact removed", zap.String("account_id", accountID), zap.String("contact_id", contactID))
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeRelationshipRemoved, wstypes.RelationshipRemovedData{ContactID: contactID})
	return nil
}

func (s *LifecycleService) buildInteraction(req *relationship.LogInteractionRequest) (relationship.Interaction, error) {
	t, err := relationship.ParseInteractionType(req.Type)
	if err != nil {
		return relationship.Interaction{}, err
	}
	outcome, err := relationship.ParseOutcome(req.Outcome)
	if err != nil {
		return relationship.Interaction{}, err
	}

	in := relationship.Interaction{
		ID:       ulid.Make().String(),
		Type:     t,
		Outcome:  outcome,
		Subject:  s.strict.Sanitize(req.Subject),
		Content:  s.ugc.Sanitize(req.Content),
		FileURL:  req.FileURL,
		Metadata: req.Metadata,
	}
	if req.Timestamp != nil {
		in.Timestamp = req.Timestamp.UTC()
	}
	return in, nil
}

func (s *LifecycleService) buildPatch(req *relationship.UpdateInteractionRequest) (relationship.InteractionPatch, error) {
	patch := relationship.InteractionPatch{
		Timestamp: req.Timestamp,
		FileURL:   req.FileURL,
		Metadata:  req.Metadata,
	}
	if req.Type != nil {
		t, err := relationship.ParseInteractionType(*req.Type)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if req.Outcome != nil {
		o, err := relationship.ParseOutcome(*req.Outcome)
		if err != nil {
			return patch, err
		}
		patch.Outcome = &o
	}
	if req.Subject != nil {
		v := s.strict.Sanitize(*req.Subject)
		patch.Subject = &v
	}
	if req.Content != nil {
		v := s.ugc.Sanitize(*req.Content)
		patch.Content = &v
	}
	return patch, nil
}

// read loads the account's book without writing. A corrupt book is
// recovered first.
func (s *LifecycleService) read(ctx context.Context, accountID string) (*relationship.Book, error) {
	key := repository.Key(repository.ConcernRelationships, accountID)

	for attempt := 0; attempt < 2; attempt++ {
		doc, err := s.store.Get(ctx, key)
		if errors.Is(err, xerrors.ErrNotFound) {
			return relationship.NewBook(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load relationships: %w", err)
		}

		b, err := relationship.DecodeBook(doc.Data)
		if err == nil {
			return b, nil
		}
		if err := s.recoverBook(ctx, accountID); err != nil {
			return nil, err
		}
	}
	return nil, errCorruptBook
}

// update runs fn against the stored book under compare-and-swap. A corrupt
// book is recovered and committed before fn sees it, so a failing fn never
// leaves the corruption in place.
func (s *LifecycleService) update(ctx context.Context, accountID string, fn func(*relationship.Book, time.Time) error) error {
	err := s.apply(ctx, accountID, fn)
	if errors.Is(err, errCorruptBook) {
		if err := s.recoverBook(ctx, accountID); err != nil {
			return err
		}
		err = s.apply(ctx, accountID, fn)
	}
	if err != nil && xerrors.IsPersistence(err) {
		s.logger.Error("failed to write relationships", zap.String("account_id", accountID), zap.Error(err))
	}
	return err
}

func (s *LifecycleService) apply(ctx context.Context, accountID string, fn func(*relationship.Book, time.Time) error) error {
	key := repository.Key(repository.ConcernRelationships, accountID)

	_, err := repository.Mutate(ctx, s.store, key, s.maxRetries, func(cur *repository.Document) ([]byte, error) {
		b := relationship.NewBook()
		if cur != nil {
			decoded, err := relationship.DecodeBook(cur.Data)
			if err != nil {
				return nil, errCorruptBook
			}
			b = decoded
		}

		if err := fn(b, s.clock.Now().UTC()); err != nil {
			return nil, err
		}
		return relationship.EncodeBook(b)
	}, s.onRetry)
	return err
}

// recoverBook copies a corrupt book to a quarantine key named after the
// corrupt version and replaces it with an empty book. Repeated attempts on
// the same version reuse the same quarantine copy.
func (s *LifecycleService) recoverBook(ctx context.Context, accountID string) error {
	key := repository.Key(repository.ConcernRelationships, accountID)
	var quarantined string
	var cause error

	_, err := repository.Mutate(ctx, s.store, key, s.maxRetries, func(cur *repository.Document) ([]byte, error) {
		quarantined, cause = "", nil
		if cur == nil {
			return nil, nil
		}
		_, err := relationship.DecodeBook(cur.Data)
		if err == nil {
			return nil, nil
		}

		cause = err
		quarantined = fmt.Sprintf("%s:v%d", repository.Key(concernQuarantine, accountID), cur.Version)
		if _, err := s.store.Put(ctx, quarantined, cur.Data, 0); err != nil && !errors.Is(err, xerrors.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to quarantine corrupt relationships: %w", err)
		}
		return relationship.EncodeBook(relationship.NewBook())
	}, s.onRetry)
	if err != nil {
		if xerrors.IsPersistence(err) {
			s.logger.Error("failed to recover relationships", zap.String("account_id", accountID), zap.Error(err))
		}
		return err
	}
	if cause == nil {
		return nil
	}

	s.metrics.StateRecovered(repository.ConcernRelationships, "corrupt")
	s.logger.Warn("relationships initialized",
		zap.String("account_id", accountID),
		zap.String("reason", "corrupt"),
		zap.String("quarantine_key", quarantined),
		zap.Error(cause),
	)
	s.audit.Record(ctx, accountID, "system", audit.ActionRelationshipRecovered, map[string]string{
		"reason":         cause.Error(),
		"quarantine_key": quarantined,
	})
	return nil
}

func (s *LifecycleService) onRetry(int) {
	s.metrics.WriteRetry(repository.ConcernRelationships)
}

func notFound(contactID string) error {
	return fmt.Errorf("contact %s: %w", contactID, xerrors.ErrNotFound)
}

// internal/service/entitlement/entitlement.go
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/entitlement"
	wstypes "fluencr-service/internal/domain/websocket"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/metrics"
	"fluencr-service/internal/repository"
	auditsvc "fluencr-service/internal/service/audit"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ActorSystem marks audit entries the service writes on its own.
const ActorSystem = "system"

type Options struct {
	TrialDays       int
	MaxWriteRetries int
}

type EntitlementService struct {
	store    repository.DocumentStore
	clock    clockwork.Clock
	audit    auditsvc.Recorder
	notifier wstypes.Notifier
	metrics  *metrics.Metrics
	opts     Options
	logger   *zap.Logger
}

func NewEntitlementService(
	store repository.DocumentStore,
	clock clockwork.Clock,
	recorder auditsvc.Recorder,
	notifier wstypes.Notifier,
	opts Options,
	logger *zap.Logger,
) *EntitlementService {
	if opts.TrialDays <= 0 {
		opts.TrialDays = entitlement.DefaultTrialDays
	}
	return &EntitlementService{
		store:    store,
		clock:    clock,
		audit:    recorder,
		notifier: notifier,
		metrics:  metrics.Get(),
		opts:     opts,
		logger:   logger,
	}
}

type loadOutcome struct {
	sub      *entitlement.Subscription
	reason   string
	cause    error
	migrated bool
}

// LoadOrInitialize returns the account's subscription. A missing document
// starts a default trial; a corrupt one is replaced by a default trial and
// reported; a legacy one is migrated and written back before returning.
func (s *EntitlementService) LoadOrInitialize(ctx context.Context, accountID string) (*entitlement.Subscription, error) {
	key := repository.Key(repository.ConcernSubscription, accountID)
	var out loadOutcome

	_, err := repository.Mutate(ctx, s.store, key, s.opts.MaxWriteRetries, func(cur *repository.Document) ([]byte, error) {
		out = loadOutcome{}
		if cur == nil {
			out.reason = "missing"
			out.sub = entitlement.NewTrial(ulid.Make().String(), s.clock.Now(), s.opts.TrialDays)
			return entitlement.EncodeSubscription(out.sub)
		}

		sub, migrated, err := entitlement.DecodeSubscription(cur.Data)
		switch {
		case errors.Is(err, xerrors.ErrCorruptState):
			out.reason = "corrupt"
			out.cause = err
			out.sub = entitlement.NewTrial(ulid.Make().String(), s.clock.Now(), s.opts.TrialDays)
			return entitlement.EncodeSubscription(out.sub)
		case err != nil:
			return nil, err
		}

		out.sub = sub
		if !migrated {
			return nil, nil
		}
		out.migrated = true
		return entitlement.EncodeSubscription(sub)
	}, s.onRetry)
	if err != nil {
		s.logger.Error("failed to load subscription", zap.String("account_id", accountID), zap.Error(err))
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	s.report(ctx, accountID, out)
	return out.sub, nil
}

func (s *EntitlementService) report(ctx context.Context, accountID string, out loadOutcome) {
	switch {
	case out.reason == "missing":
		s.metrics.StateRecovered(repository.ConcernSubscription, out.reason)
		s.logger.Info("subscription initialized",
			zap.String("account_id", accountID),
			zap.String("reason", out.reason),
			zap.String("subscription_id", out.sub.ID),
		)

	case out.reason == "corrupt":
		s.metrics.StateRecovered(repository.ConcernSubscription, out.reason)
		s.logger.Warn("subscription initialized",
			zap.String("account_id", accountID),
			zap.String("reason", out.reason),
			zap.String("subscription_id", out.sub.ID),
			zap.Error(out.cause),
		)
		s.audit.Record(ctx, accountID, ActorSystem, audit.ActionSubscriptionRecovered, map[string]string{
			"reason": out.cause.Error(),
		})

	case out.migrated:
		s.metrics.SubscriptionMigrated()
		s.logger.Info("subscription migrated",
			zap.String("account_id", accountID),
			zap.Int("schema_version", entitlement.SchemaVersion),
			zap.Int64("price", out.sub.Plan.Price),
		)
		s.audit.Record(ctx, accountID, ActorSystem, audit.ActionSubscriptionMigrated, map[string]string{
			"schema_version": fmt.Sprint(entitlement.SchemaVersion),
		})
	}
}

// Current loads the subscription and derives flags at the clock's now.
func (s *EntitlementService) Current(ctx context.Context, accountID string) (*entitlement.View, error) {
	sub, err := s.LoadOrInitialize(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.view(sub), nil
}

// Update replaces the stored subscription wholesale on behalf of actor. A
// nil subscription clears it.
func (s *EntitlementService) Update(ctx context.Context, actor, accountID string, sub *entitlement.Subscription) (*entitlement.View, error) {
	key := repository.Key(repository.ConcernSubscription, accountID)

	if sub == nil {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to clear subscription: %w", err)
		}
		s.logger.Info("subscription cleared", zap.String("account_id", accountID))
		s.audit.Record(ctx, accountID, actor, audit.ActionSubscriptionUpdated, map[string]string{"change": "cleared"})
		view := s.view(nil)
		s.notifier.NotifyAccount(accountID, wstypes.EventTypeEntitlementUpdated, view)
		return view, nil
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	data, err := entitlement.EncodeSubscription(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subscription: %w", err)
	}

	_, err = repository.Mutate(ctx, s.store, key, s.opts.MaxWriteRetries, func(*repository.Document) ([]byte, error) {
		return data, nil
	}, s.onRetry)
	if err != nil {
		s.logger.Error("failed to update subscription", zap.String("account_id", accountID), zap.Error(err))
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logger.Info("subscription updated",
		zap.String("account_id", accountID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
	)
	s.audit.Record(ctx, accountID, actor, audit.ActionSubscriptionUpdated, map[string]string{
		"change":          "replaced",
		"subscription_id": sub.ID,
		"status":          string(sub.Status),
	})
	view := s.view(sub)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeEntitlementUpdated, view)
	return view, nil
}

// Require returns ErrForbidden unless the account is entitled to feature.
func (s *EntitlementService) Require(ctx context.Context, accountID string, feature entitlement.Feature) error {
	view, err := s.Current(ctx, accountID)
	if err != nil {
		return err
	}
	if !view.Entitlement.Can(feature) {
		return fmt.Errorf("%w: %s requires an active trial or subscription", xerrors.ErrForbidden, feature)
	}
	return nil
}

func (s *EntitlementService) view(sub *entitlement.Subscription) *entitlement.View {
	now := s.clock.Now()
	return &entitlement.View{
		Subscription: sub,
		Entitlement:  entitlement.Derive(sub, now),
		ServerTime:   now.UTC(),
	}
}

func (s *EntitlementService) onRetry(attempt int) {
	s.metrics.WriteRetry(repository.ConcernSubscription)
	s.logger.Debug("retrying subscription write", zap.Int("attempt", attempt))
}

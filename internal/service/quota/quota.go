// internal/service/quota/quota.go
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/auth"
	"fluencr-service/internal/domain/quota"
	wstypes "fluencr-service/internal/domain/websocket"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/metrics"
	"fluencr-service/internal/repository"
	auditsvc "fluencr-service/internal/service/audit"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type QuotaService struct {
	store      repository.DocumentStore
	clock      clockwork.Clock
	audit      auditsvc.Recorder
	notifier   wstypes.Notifier
	metrics    *metrics.Metrics
	maxRetries int
	logger     *zap.Logger
}

func NewQuotaService(
	store repository.DocumentStore,
	clock clockwork.Clock,
	recorder auditsvc.Recorder,
	notifier wstypes.Notifier,
	maxRetries int,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		store:      store,
		clock:      clock,
		audit:      recorder,
		notifier:   notifier,
		metrics:    metrics.Get(),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// CheckEligibility returns the account's quota, creating the default
// allowance on first use.
func (s *QuotaService) CheckEligibility(ctx context.Context, accountID string) (*quota.Quota, error) {
	q, err := s.mutate(ctx, accountID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check quota: %w", err)
	}
	return q, nil
}

// Consume takes one metered use. It fails with ErrQuotaExhausted once a
// non-premium account has no trials left.
func (s *QuotaService) Consume(ctx context.Context, accountID string) (*quota.Quota, error) {
	q, err := s.mutate(ctx, accountID, func(q *quota.Quota) error {
		return q.Consume(s.clock.Now())
	})
	if errors.Is(err, xerrors.ErrQuotaExhausted) {
		s.metrics.QuotaExhausted()
		s.logger.Info("quota exhausted", zap.String("account_id", accountID))
		return nil, err
	}
	if err != nil {
		s.logger.Error("failed to consume quota", zap.String("account_id", accountID), zap.Error(err))
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}

	s.metrics.QuotaConsumed(q.IsPremium)
	s.logger.Info("quota consumed",
		zap.String("account_id", accountID),
		zap.Int("remaining_trials", q.RemainingTrials),
		zap.Bool("is_premium", q.IsPremium),
	)
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeQuotaUpdated, q)
	return q, nil
}

// GrantPremium sets or clears unlimited use. Admin only.
func (s *QuotaService) GrantPremium(ctx context.Context, actor auth.Actor, accountID string, premium bool) (*quota.Quota, error) {
	if err := s.authorize(actor, "premium"); err != nil {
		return nil, err
	}

	q, err := s.mutate(ctx, accountID, func(q *quota.Quota) error {
		q.IsPremium = premium
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant premium: %w", err)
	}

	s.audit.Record(ctx, accountID, actorLabel(actor), audit.ActionPremiumGranted, map[string]string{
		"is_premium": strconv.FormatBool(premium),
	})
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeQuotaUpdated, q)
	return q, nil
}

// AdminReset restores InitialTrials regardless of the current count. Admin only.
func (s *QuotaService) AdminReset(ctx context.Context, actor auth.Actor, accountID string) (*quota.Quota, error) {
	if err := s.authorize(actor, "reset"); err != nil {
		return nil, err
	}

	previous := 0
	q, err := s.mutate(ctx, accountID, func(q *quota.Quota) error {
		previous = q.RemainingTrials
		q.Reset()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset quota: %w", err)
	}

	s.audit.Record(ctx, accountID, actorLabel(actor), audit.ActionQuotaReset, map[string]string{
		"previous_remaining": strconv.Itoa(previous),
		"remaining":          strconv.Itoa(q.RemainingTrials),
		"source":             actor.Source,
	})
	s.notifier.NotifyAccount(accountID, wstypes.EventTypeQuotaUpdated, q)
	return q, nil
}

func (s *QuotaService) authorize(actor auth.Actor, action string) error {
	allowed := actor.ID != "" && actor.IsAdmin()
	s.metrics.QuotaAdminAction(action, allowed)
	if !allowed {
		s.logger.Warn("privileged quota action refused",
			zap.String("actor", actor.ID),
			zap.String("action", action),
			zap.Strings("roles", actor.Roles),
		)
		return fmt.Errorf("%w: quota %s requires an admin role", xerrors.ErrForbidden, action)
	}
	return nil
}

// mutate loads the quota (recovering a missing or corrupt document), applies
// change, and stores the result. A nil change only persists a recovered
// default.
func (s *QuotaService) mutate(ctx context.Context, accountID string, change func(*quota.Quota) error) (*quota.Quota, error) {
	key := repository.Key(repository.ConcernQuota, accountID)
	var result *quota.Quota
	var recovered string
	var cause error

	_, err := repository.Mutate(ctx, s.store, key, s.maxRetries, func(cur *repository.Document) ([]byte, error) {
		recovered, cause = "", nil
		q := quota.New()
		if cur == nil {
			recovered = "missing"
		} else if decoded, err := quota.Decode(cur.Data); err != nil {
			recovered, cause = "corrupt", err
		} else {
			q = decoded
		}

		if change != nil {
			if err := change(q); err != nil {
				return nil, err
			}
		}
		result = q
		if change == nil && recovered == "" {
			return nil, nil
		}
		return quota.Encode(q)
	}, func(attempt int) {
		s.metrics.WriteRetry(repository.ConcernQuota)
	})
	if err != nil {
		return nil, err
	}

	if recovered != "" {
		s.metrics.StateRecovered(repository.ConcernQuota, recovered)
		if cause != nil {
			s.logger.Warn("quota initialized", zap.String("account_id", accountID), zap.String("reason", recovered), zap.Error(cause))
			s.audit.Record(ctx, accountID, "system", audit.ActionQuotaRecovered, map[string]string{"reason": cause.Error()})
		} else {
			s.logger.Info("quota initialized", zap.String("account_id", accountID), zap.String("reason", recovered))
		}
	}
	return result, nil
}

func actorLabel(a auth.Actor) string {
	if a.Source == "" {
		return a.ID
	}
	return a.Source + ":" + a.ID
}

// internal/app/services.go
package app

import (
	"context"
	"fmt"

	"fluencr-service/internal/config"
	"fluencr-service/internal/db"
	wstypes "fluencr-service/internal/domain/websocket"
	"fluencr-service/internal/pkg/ratelimit"
	"fluencr-service/internal/repository"
	"fluencr-service/internal/repository/memory"
	"fluencr-service/internal/repository/postgres"
	"fluencr-service/internal/repository/redisstore"
	auditsvc "fluencr-service/internal/service/audit"
	entitlementsvc "fluencr-service/internal/service/entitlement"
	outreachsvc "fluencr-service/internal/service/outreach"
	quotasvc "fluencr-service/internal/service/quota"
	relationshipsvc "fluencr-service/internal/service/relationship"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Infra holds the backing stores selected by configuration.
type Infra struct {
	Store   repository.DocumentStore
	Events  auditsvc.EventStore
	Limiter ratelimit.Limiter
	Redis   redis.UniversalClient

	closers []func()
}

// Close releases connections in reverse order of opening.
func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

// OpenInfra connects the store backend named by cfg.StoreBackend. Audit
// events go to Postgres whenever DATABASE_URL is set.
func OpenInfra(ctx context.Context, cfg config.AppConfig, clock clockwork.Clock, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{}
	var store repository.DocumentStore

	if cfg.DatabaseURL != "" || cfg.StoreBackend == config.BackendPostgres {
		pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, pool.Close)

		if err := postgres.NewDB(pool).EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, err
		}
		infra.Events = postgres.NewAuditRepository(pool)
		if cfg.StoreBackend == config.BackendPostgres {
			store = postgres.NewDocumentRepository(pool)
		}
		logger.Info("connected to PostgreSQL")
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := db.NewRedis(ctx, db.RedisConfig{
			Addresses: []string{cfg.RedisAddr},
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
			PoolSize:  cfg.RedisPoolSize,
		})
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.closers = append(infra.closers, func() { client.Close() })
		infra.Redis = client
		store = redisstore.NewStore(client)
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	case config.BackendPostgres:
	case config.BackendMemory:
		store = memory.NewStore()
		logger.Warn("using in-memory store, state is lost on restart")
	default:
		infra.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	infra.Store = repository.WithTimeout(store, cfg.StoreTimeout)
	if infra.Events == nil {
		infra.Events = auditsvc.NewMemoryStore(1000)
	}
	if infra.Redis != nil {
		infra.Limiter = ratelimit.NewRedisLimiter(infra.Redis)
	} else {
		infra.Limiter = ratelimit.NewMemoryLimiter(clock)
	}
	return infra, nil
}

type Services struct {
	Audit       *auditsvc.AuditService
	Entitlement *entitlementsvc.EntitlementService
	Quota       *quotasvc.QuotaService
	Lifecycle   *relationshipsvc.LifecycleService
	Outreach    *outreachsvc.OutreachService
}

func NewServices(cfg config.AppConfig, infra *Infra, clock clockwork.Clock, notifier wstypes.Notifier, logger *zap.Logger) (*Services, error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	audit := auditsvc.NewAuditService(infra.Events, clock, logger)
	quota := quotasvc.NewQuotaService(infra.Store, clock, audit, notifier, cfg.MaxWriteRetries, logger)

	return &Services{
		Audit: audit,
		Entitlement: entitlementsvc.NewEntitlementService(infra.Store, clock, audit, notifier, entitlementsvc.Options{
			TrialDays:       cfg.TrialDays,
			MaxWriteRetries: cfg.MaxWriteRetries,
		}, logger),
		Quota:     quota,
		Lifecycle: relationshipsvc.NewLifecycleService(infra.Store, clock, policy, audit, notifier, cfg.MaxWriteRetries, logger),
		Outreach: outreachsvc.NewOutreachService(infra.Limiter, quota, outreachsvc.Options{
			RateLimit:  cfg.AIRateLimit,
			RateWindow: cfg.AIRateLimitWindow,
		}, logger),
	}, nil
}

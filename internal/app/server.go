// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fluencr-service/internal/config"
	adminHandler "fluencr-service/internal/handlers/admin"
	billingHandler "fluencr-service/internal/handlers/billing"
	entitlementHandler "fluencr-service/internal/handlers/entitlement"
	outreachHandler "fluencr-service/internal/handlers/outreach"
	quotaHandler "fluencr-service/internal/handlers/quota"
	relationshipHandler "fluencr-service/internal/handlers/relationship"
	wsHandler "fluencr-service/internal/handlers/websocket"
	"fluencr-service/internal/middleware"
	"fluencr-service/internal/pkg/jwt"
	"fluencr-service/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg    config.AppConfig
	logger *zap.Logger
	clock  clockwork.Clock
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger, clock: clockwork.NewRealClock()}
}

// Start serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	// ----- Stores -----
	infra, err := OpenInfra(ctx, s.cfg, s.clock, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer infra.Close()

	// ----- Token verification -----
	verifier, err := jwt.Build(ctx, s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to build token verifier: %w", err)
	}

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(s.logger)

	// ----- Services -----
	services, err := NewServices(s.cfg, infra, s.clock, hub, s.logger)
	if err != nil {
		return err
	}

	engine := NewEngine(s.cfg, s.logger, BuildHandlers(s.cfg, services, hub, verifier, s.logger))

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr), zap.String("store", s.cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// BuildHandlers wires every HTTP handler to its service.
func BuildHandlers(cfg config.AppConfig, services *Services, hub *websocket.Hub, verifier jwt.TokenVerifier, logger *zap.Logger) *Handlers {
	return &Handlers{
		EntitlementHandler:  entitlementHandler.NewEntitlementHandler(services.Entitlement),
		QuotaHandler:        quotaHandler.NewQuotaHandler(services.Quota),
		OutreachHandler:     outreachHandler.NewOutreachHandler(services.Outreach),
		RelationshipHandler: relationshipHandler.NewRelationshipHandler(services.Lifecycle),
		AdminHandler:        adminHandler.NewAdminHandler(services.Quota, services.Entitlement, services.Audit, logger),
		BillingHandler:      billingHandler.NewBillingHandler(services.Entitlement, cfg.StripeWebhookSecret, logger),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, cfg.CORSOrigins, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(verifier),
		Features:            services.Entitlement,
	}
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.AppConfig, logger *zap.Logger, h *Handlers) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	SetupRouter(engine, h)
	return engine
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	c.MaxAge = 12 * time.Hour
	return c
}

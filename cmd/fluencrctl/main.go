package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fluencr-service/internal/app"
	"fluencr-service/internal/config"
	"fluencr-service/internal/domain/auth"
	wstypes "fluencr-service/internal/domain/websocket"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	accountID string
	operator  string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "fluencrctl",
	Short: "Operator tooling for the fluencr service",
	Long: `fluencrctl talks to the same stores as the API server and applies
operator actions (quota resets, premium grants) with a CLI actor recorded
in the audit trail.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store activity to stderr")
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// toolkit bundles the services a command works against.
type toolkit struct {
	services *app.Services
	infra    *app.Infra
}

func (r *toolkit) Close() { r.infra.Close() }

var openToolkit = func(ctx context.Context) (*toolkit, error) {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	cfg := config.Load()
	clock := clockwork.NewRealClock()

	infra, err := app.OpenInfra(ctx, cfg, clock, logger)
	if err != nil {
		return nil, err
	}
	services, err := app.NewServices(cfg, infra, clock, wstypes.NopNotifier{}, logger)
	if err != nil {
		infra.Close()
		return nil, err
	}
	return &toolkit{services: services, infra: infra}, nil
}

func requireAccount() (string, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return "", fmt.Errorf("--account must be a UUID: %w", err)
	}
	return id.String(), nil
}

// operatorActor is the identity recorded for CLI-initiated changes.
func operatorActor() (auth.Actor, error) {
	if operator == "" {
		return auth.Actor{}, fmt.Errorf("--operator is required")
	}
	return auth.Actor{
		ID:     operator,
		Roles:  []string{auth.RoleSuperAdmin},
		Source: auth.SourceCLI,
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

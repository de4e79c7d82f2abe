// Package main runs the token launchpad HTTP API:
//   - transaction builders for creating and minting Token-2022 tokens
//   - balance, airdrop and transaction relay endpoints
//   - health, metrics and build statistics
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"solana-token-launchpad/internal/api"
	"solana-token-launchpad/internal/config"
	"solana-token-launchpad/internal/launch"
	"solana-token-launchpad/internal/logging"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/solanarpc"
	"solana-token-launchpad/internal/storage"
	chstore "solana-token-launchpad/internal/storage/clickhouse"
	"solana-token-launchpad/internal/storage/memory"
	"solana-token-launchpad/internal/storage/migrations"
	pgstore "solana-token-launchpad/internal/storage/postgres"
)

const (
	wsDialTimeout   = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// A second signal kills the process.
	context.AfterFunc(ctx, stop)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the token launchpad HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), ".env")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// allStores holds the ledger and analytics stores.
type allStores struct {
	launches    storage.LaunchStore
	pins        storage.PinStore
	buildEvents storage.BuildEventStore
}

// createStores opens PostgreSQL and ClickHouse and applies migrations, or
// returns in-memory stores.
func createStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.UseMemory {
		return &allStores{
			launches:    memory.NewLaunchStore(),
			pins:        memory.NewPinStore(),
			buildEvents: memory.NewBuildEventStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		launches:    pgstore.NewLaunchStore(pool),
		pins:        pgstore.NewPinStore(pool),
		buildEvents: chstore.NewBuildEventStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// serviceConfig maps settings onto the launch service. A zero airdrop rate
// disables the limiter.
func serviceConfig(cfg *config.Config) launch.Config {
	sc := launch.DefaultConfig()
	if cfg.AirdropRate > 0 {
		sc.AirdropRate = rate.Every(cfg.AirdropRate)
	} else {
		sc.AirdropRate = rate.Inf
	}
	sc.AirdropBurst = cfg.AirdropBurst
	sc.ConfirmTimeout = cfg.ConfirmTimeout
	return sc
}

// dialWS connects to the PubSub endpoint. Without it confirmations are
// polled over HTTP.
func dialWS(ctx context.Context, endpoint string, log zerolog.Logger) *solanarpc.WSClientImpl {
	dialCtx, cancel := context.WithTimeout(ctx, wsDialTimeout)
	defer cancel()

	wsCfg := solanarpc.DefaultWSConfig()
	wsCfg.Logger = log
	ws, err := solanarpc.NewWSClient(dialCtx, endpoint, &wsCfg)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("websocket unavailable, polling for confirmations")
		return nil
	}
	return ws
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("rpc", cfg.RPCEndpoint).
		Str("listen", cfg.ListenAddr).
		Bool("memory", cfg.UseMemory).
		Msg("starting launchpad server")

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	deps := launch.Deps{
		RPC:      solanarpc.NewHTTPClient(cfg.RPCEndpoint),
		Pinner:   pinning.NewUploader(pinning.NewClient(cfg.PinataJWT, cfg.PinataGateway), log),
		Launches: stores.launches,
		Pins:     stores.pins,
		Logger:   log,
	}
	if ws := dialWS(ctx, cfg.WSEndpoint, log); ws != nil {
		defer ws.Close()
		deps.WS = ws
	}
	svc := launch.NewService(deps, serviceConfig(cfg))

	events := api.NewEventRecorder(stores.buildEvents, log, api.EventRecorderOptions{})
	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(api.Options{
			Service: svc,
			Events:  events,
			Stats:   stores.buildEvents,
			Logger:  log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Submissions wait for confirmation before answering.
		WriteTimeout: cfg.ConfirmTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Build events outlive the listener so requests drained during shutdown are kept.
	eventsCtx, stopEvents := context.WithCancel(context.WithoutCancel(ctx))
	defer stopEvents()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := events.Run(eventsCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("build events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down, send the signal again to force exit")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		defer stopEvents()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

// Package main maintains pins whose token transaction was never built.
//
// Usage:
//
//	pins orphans --older-than 1h
//	pins unpin --older-than 24h --dry-run
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-token-launchpad/internal/config"
	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/logging"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/storage"
	"solana-token-launchpad/internal/storage/migrations"
	pgstore "solana-token-launchpad/internal/storage/postgres"
)

// defaultOlderThan leaves recent uploads alone; their transaction may still be in flight.
const defaultOlderThan = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what a subcommand needs, opened from the resolved config.
type env struct {
	pins     storage.PinStore
	unpinner unpinner
	log      zerolog.Logger
	close    func()
}

type openFunc func(ctx context.Context, cfg *config.Config) (*env, error)

func newRootCmd(out io.Writer) *cobra.Command {
	return newRootCmdWith(out, openEnv)
}

func newRootCmdWith(out io.Writer, open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "pins",
		Short:        "Inspect and remove orphaned IPFS pins",
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	var olderThan time.Duration
	var dryRun bool

	setup := func(cmd *cobra.Command) (*env, error) {
		cfg, err := config.Load(cmd.Flags(), ".env")
		if err != nil {
			return nil, err
		}
		if cfg.PostgresDSN == "" {
			return nil, errors.New("--postgres-dsn is required")
		}
		if olderThan < 0 {
			return nil, errors.New("--older-than must not be negative")
		}
		return open(cmd.Context(), cfg)
	}

	orphans := &cobra.Command{
		Use:   "orphans",
		Short: "List pins not attached to any launch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return listOrphans(cmd.Context(), e.pins, time.Now(), olderThan, out)
		},
	}

	unpin := &cobra.Command{
		Use:   "unpin",
		Short: "Unpin orphaned pins from Pinata and forget them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			sum, err := unpinOrphans(cmd.Context(), e.pins, e.unpinner, unpinOptions{
				now:       time.Now(),
				olderThan: olderThan,
				dryRun:    dryRun,
			}, out, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "orphans: %d, unpinned: %d, already gone: %d, failed: %d\n",
				sum.found, sum.unpinned, sum.gone, sum.failed)
			if sum.failed > 0 {
				return fmt.Errorf("%d pins could not be removed", sum.failed)
			}
			return nil
		},
	}
	unpin.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be unpinned without changing anything")

	for _, cmd := range []*cobra.Command{orphans, unpin} {
		cmd.Flags().DurationVar(&olderThan, "older-than", defaultOlderThan, "Only consider pins created at least this long ago")
		root.AddCommand(cmd)
	}
	return root
}

// openEnv connects to PostgreSQL and Pinata.
func openEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &env{
		pins:     pgstore.NewPinStore(pool),
		unpinner: pinning.NewUploader(pinning.NewClient(cfg.PinataJWT, cfg.PinataGateway), log),
		log:      log,
		close:    pool.Close,
	}, nil
}

func orphansBefore(ctx context.Context, pins storage.PinStore, now time.Time, olderThan time.Duration) ([]*domain.Pin, error) {
	cutoff := now.Add(-olderThan).UnixMilli()
	list, err := pins.ListOrphans(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	return list, nil
}

func listOrphans(ctx context.Context, pins storage.PinStore, now time.Time, olderThan time.Duration, out io.Writer) error {
	list, err := orphansBefore(ctx, pins, now, olderThan)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CID\tKIND\tNAME\tAGE\tURL")
	for _, p := range list {
		age := now.Sub(time.UnixMilli(p.CreatedAt)).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.CID, p.Kind, p.Name, age, p.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d orphaned pins\n", len(list))
	return nil
}

type unpinner interface {
	Unpin(ctx context.Context, cid string) error
}

type unpinOptions struct {
	now       time.Time
	olderThan time.Duration
	dryRun    bool
}

type unpinSummary struct {
	found    int
	unpinned int
	gone     int // no longer pinned on Pinata; row removed
	failed   int
}

// unpinOrphans removes each orphan from Pinata, then deletes its row. A
// pin Pinata no longer knows is treated as removed. Each orphan is counted
// once, as failed unless both steps succeed.
func unpinOrphans(ctx context.Context, pins storage.PinStore, pinata unpinner, opts unpinOptions, out io.Writer, log zerolog.Logger) (unpinSummary, error) {
	var sum unpinSummary
	list, err := orphansBefore(ctx, pins, opts.now, opts.olderThan)
	if err != nil {
		return sum, err
	}
	sum.found = len(list)

	for _, p := range list {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if opts.dryRun {
			fmt.Fprintf(out, "would unpin %s (%s %s)\n", p.CID, p.Kind, p.Name)
			continue
		}

		err := pinata.Unpin(ctx, p.CID)
		gone := pinning.IsNotPinned(err)
		if err != nil && !gone {
			sum.failed++
			log.Error().Err(err).Str("cid", p.CID).Msg("unpin failed")
			continue
		}

		if err := pins.Delete(ctx, p.CID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			sum.failed++
			log.Error().Err(err).Str("cid", p.CID).Msg("delete pin row")
			continue
		}
		if gone {
			sum.gone++
		} else {
			sum.unpinned++
		}
		fmt.Fprintf(out, "unpinned %s\n", p.CID)
	}
	return sum, nil
}

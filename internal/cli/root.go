// Package cli is the mosaicctl admin command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gabrielkrapp/mosaic/internal/adapter/store"
	"github.com/gabrielkrapp/mosaic/internal/app"
	"github.com/gabrielkrapp/mosaic/internal/lease"
	"github.com/gabrielkrapp/mosaic/internal/platform/config"
	"github.com/gabrielkrapp/mosaic/internal/platform/logging"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

type environment struct {
	loadConfig func() (*config.Config, error)
	openStore  func(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*store.Handle, error)
	clock      clockwork.Clock
}

func defaultEnvironment() environment {
	return environment{
		loadConfig: config.Load,
		openStore: func(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*store.Handle, error) {
			return store.Open(ctx, cfg, clock, nil)
		},
		clock: clockwork.NewRealClock(),
	}
}

func Execute(ctx context.Context) error {
	return newRootCommand(defaultEnvironment()).ExecuteContext(ctx)
}

func newRootCommand(env environment) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "mosaicctl",
		Short:         "Inspect and maintain the mosaic lease store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(os.Stderr, level, "text"))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLayoutCommand(),
		newListCommand(env),
		newMigrateCommand(env),
	)
	return root
}

// session is an open store plus the services built on it.
type session struct {
	repo   *lease.Repository
	svc    *app.Service
	handle *store.Handle
}

func (s *session) Close() {
	if err := s.handle.Close(); err != nil {
		slog.Warn("Failed to close lease store", "error", err)
	}
}

func openSession(ctx context.Context, env environment) (*session, error) {
	cfg, err := env.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	handle, err := env.openStore(ctx, cfg, env.clock)
	if err != nil {
		return nil, err
	}

	repo := lease.NewRepository(handle.Store, env.clock, lease.WithKeyPrefix(cfg.LeaseKeyPrefix))
	svc := app.NewService(repo, lease.NewReconciler(repo), env.clock, cfg.MaxLeaseDuration(), nil)
	return &session{repo: repo, svc: svc, handle: handle}, nil
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/galho-seco-gateway/internal/adapters/remote/socket"
	"github.com/bnema/galho-seco-gateway/internal/application"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var worldFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway until interrupted",
		Long: "Connects to the configured server and keeps owned characters in sync.\n" +
			"Edits to config.toml apply without a restart: a new server address or world\n" +
			"title reconnects and registers again, a new interval reschedules the sweep.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, app, worldFile)
		},
	}

	cmd.Flags().StringVar(&worldFile, "world", "", "World file backing the session (default: $GSG_WORLD_FILE)")

	return cmd
}

func runServe(ctx context.Context, app *app, worldFile string) error {
	logger := app.logger

	engine, worldPath, err := app.loadEngine(worldFile)
	if err != nil {
		return err
	}
	settings, err := app.settings.Get(ctx)
	if err != nil {
		return err
	}

	executor := application.NewExecutor(engine, app.accounts, application.ExecutorOptions{
		Animator:      engine.Animator(),
		SettleTimeout: app.runtime.SettleTimeout,
		Logger:        logger,
	})
	dispatcher := application.NewDispatcher(executor, logger)
	manager := socket.NewManager(dispatcher, app.accounts, socket.Options{
		MaxReconnectAttempts: app.runtime.MaxReconnectAttempts,
		ReconnectDelay:       app.runtime.ReconnectDelay,
		Logger:               logger,
	})

	gateway := application.NewGateway(application.GatewayDeps{
		Feed:       engine,
		Connector:  manager,
		Sync:       app.newSyncService(engine),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err := gateway.Start(ctx, settings); err != nil {
		return err
	}
	defer gateway.Stop()

	if err := app.settings.Watch(func(updated domain.Settings) {
		if err := gateway.Reconfigure(updated); err != nil {
			logger.Warn("apply settings change", "error", err)
		}
	}); err != nil {
		logger.Warn("settings file not watched, restart to apply changes", "error", err)
	}
	if err := engine.WatchWorld(ctx, worldPath); err != nil {
		logger.Warn("world file not watched", "path", worldPath, "error", err)
	}

	logger.Info("serving", "world", engine.Title(), "path", worldPath)
	<-ctx.Done()
	logger.Info("shutting down")

	return nil
}

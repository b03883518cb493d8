package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/adapters/engine/memory"
	"github.com/bnema/galho-seco-gateway/internal/adapters/remote/push"
	statusadapter "github.com/bnema/galho-seco-gateway/internal/adapters/render/status"
	tomlrepo "github.com/bnema/galho-seco-gateway/internal/adapters/repo/toml"
	chainstore "github.com/bnema/galho-seco-gateway/internal/adapters/secrets/chain"
	"github.com/bnema/galho-seco-gateway/internal/application"
	"github.com/bnema/galho-seco-gateway/internal/config"
	"github.com/bnema/galho-seco-gateway/internal/logging"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/spf13/viper"
)

var errWorldFileRequired = errors.New("world file required: set GSG_WORLD_FILE or pass --world")

type app struct {
	accounts       *application.AccountService
	settings       *tomlrepo.SettingsRepository
	secretStore    ports.SecretStore
	runtime        config.Serve
	logger         *slog.Logger
	statusRenderer func([]application.AccountStatus, statusadapter.RenderOptions) (string, error)
	httpClient     *http.Client
}

func wireApp(logOutput io.Writer) (*app, error) {
	runtime, err := config.LoadServe()
	if err != nil {
		return nil, fmt.Errorf("load runtime config: %w", err)
	}

	logger, err := logging.New(logOutput, runtime.LogLevel, runtime.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	cfg := viper.New()
	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}
	settings, err := tomlrepo.NewSettingsRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, tomlrepo.ConfigDir, "secrets"), logger)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		accounts:       application.NewAccountService(repo, secretStore, logger),
		settings:       settings,
		secretStore:    secretStore,
		runtime:        runtime,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		httpClient:     http.DefaultClient,
	}, nil
}

// loadEngine opens the world file named by the flag, or by GSG_WORLD_FILE
// when the flag is empty.
func (a *app) loadEngine(worldFlag string) (*memory.Engine, string, error) {
	path := strings.TrimSpace(worldFlag)
	if path == "" {
		path = a.runtime.WorldFile
	}
	if path == "" {
		return nil, "", errWorldFileRequired
	}

	engine, err := memory.Load(path, memory.Options{Logger: a.logger})
	if err != nil {
		return nil, "", fmt.Errorf("load world %s: %w", path, err)
	}

	return engine, path, nil
}

func (a *app) newSyncService(engine *memory.Engine) *application.SyncService {
	return application.NewSyncService(engine, engine, a.accounts, a.pusher(), a.logger)
}

func (a *app) pusher() push.Client {
	return push.Client{HTTPClient: a.httpClient, RequestTimeout: a.runtime.PushTimeout}
}

package toml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	serverAddressKey  = "server.address"
	updateIntervalKey = "sync.update_interval"
	worldTitleKey     = "world.title"
)

// SettingsRepository keeps the gateway settings in config.toml next to the
// accounts path setting.
type SettingsRepository struct {
	cfg *viper.Viper
	mu  sync.Mutex
}

var (
	_ ports.SettingsRepository = (*SettingsRepository)(nil)
	_ ports.SettingsWatcher    = (*SettingsRepository)(nil)
)

func NewSettingsRepository(cfg *viper.Viper) (*SettingsRepository, error) {
	cfg, err := prepareConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &SettingsRepository{cfg: cfg}, nil
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current(), nil
}

func (r *SettingsRepository) current() domain.Settings {
	return domain.Settings{
		ServerAddress:  strings.TrimSpace(r.cfg.GetString(serverAddressKey)),
		UpdateInterval: r.cfg.GetFloat64(updateIntervalKey),
		WorldTitle:     r.cfg.GetString(worldTitleKey),
	}
}

func (r *SettingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if settings.UpdateInterval < 0 {
		return fmt.Errorf("update interval must not be negative, got %v", settings.UpdateInterval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg.Set(serverAddressKey, strings.TrimSpace(settings.ServerAddress))
	r.cfg.Set(updateIntervalKey, settings.UpdateInterval)
	r.cfg.Set(worldTitleKey, settings.WorldTitle)

	path, err := r.configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), accountsDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := r.cfg.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Watch calls onChange with the reloaded settings every time config.toml is
// written. The file must exist.
func (r *SettingsRepository) Watch(onChange func(domain.Settings)) error {
	if r.cfg.ConfigFileUsed() == "" {
		path, err := r.configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("watch config file: %w", err)
		}
		r.cfg.SetConfigFile(path)
		if err := r.cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	r.cfg.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		r.mu.Lock()
		settings := r.current()
		r.mu.Unlock()
		onChange(settings)
	})
	r.cfg.WatchConfig()

	return nil
}

func (r *SettingsRepository) configPath() (string, error) {
	if used := r.cfg.ConfigFileUsed(); used != "" {
		return used, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, ConfigDir, configName+"."+configType), nil
}

package ports

import (
	"context"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// SettingsWatcher reports settings changes made outside the running process.
type SettingsWatcher interface {
	Watch(onChange func(domain.Settings)) error
}

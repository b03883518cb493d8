package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func (s fileSchema) validateUniqueIDs() error {
	seen := make(map[string]struct{}, len(s.Accounts))
	for _, account := range s.Accounts {
		if _, ok := seen[account.ID]; ok {
			return fmt.Errorf("duplicate account id %q in accounts file", account.ID)
		}
		seen[account.ID] = struct{}{}
	}

	return nil
}

type accountSchema struct {
	ID        string `toml:"id"`
	Label     string `toml:"label,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	APIKeyRef string `toml:"api_key_ref,omitempty"`
}

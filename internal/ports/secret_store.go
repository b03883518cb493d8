package ports

import "context"

// SecretStore holds API keys referenced from the accounts file, keyed like
// "gsg/<account id>/api_key".
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

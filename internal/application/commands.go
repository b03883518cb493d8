package application

import "github.com/bnema/galho-seco-gateway/internal/domain"

// SetAPIKeyCommand links an account or replaces its key. With
// UseSecretStore the key goes to the secret store and the accounts file
// keeps only a reference.
type SetAPIKeyCommand struct {
	ID             domain.AccountID
	Label          string
	APIKey         string
	UseSecretStore bool
}

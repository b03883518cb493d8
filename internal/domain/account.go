package domain

import "strings"

type AccountID string

// Account is the persisted form of a linked account. The API key is either
// stored inline or referenced in a secret store through SecretRef.
type Account struct {
	ID        AccountID
	Label     string
	APIKey    string
	SecretRef string
}

type KeySource string

const (
	KeySourceNone        KeySource = "none"
	KeySourceInline      KeySource = "inline"
	KeySourceSecretStore KeySource = "secret_store"
)

func (a Account) KeySource() KeySource {
	switch {
	case strings.TrimSpace(a.SecretRef) != "":
		return KeySourceSecretStore
	case strings.TrimSpace(a.APIKey) != "":
		return KeySourceInline
	default:
		return KeySourceNone
	}
}

// LinkedAccount is the resolved, read-only view handed to the gateway for a
// single operation.
type LinkedAccount struct {
	ID     AccountID
	APIKey string
}

func (a LinkedAccount) Usable() bool {
	return strings.TrimSpace(string(a.ID)) != "" && strings.TrimSpace(a.APIKey) != ""
}

// APIKeys returns the non-empty keys in account order.
func APIKeys(accounts []LinkedAccount) []string {
	keys := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if strings.TrimSpace(account.APIKey) == "" {
			continue
		}
		keys = append(keys, account.APIKey)
	}

	return keys
}

// FindLinkedAccount returns the first account with the given id.
func FindLinkedAccount(accounts []LinkedAccount, id AccountID) (LinkedAccount, bool) {
	for _, account := range accounts {
		if account.ID == id {
			return account, true
		}
	}

	return LinkedAccount{}, false
}

// User is a session-engine user an account id resolves to.
type User struct {
	ID   AccountID
	Name string
}

// SecretKeyFor is the secret-store key holding an account's API key.
func SecretKeyFor(id AccountID) string {
	return "gsg/" + strings.TrimSpace(string(id)) + "/api_key"
}

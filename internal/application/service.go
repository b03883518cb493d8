package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

var ErrAPIKeyRequired = errors.New("api key is required")

// AccountService manages linked accounts and resolves their API keys.
type AccountService struct {
	repo   ports.AccountRepository
	store  ports.SecretStore
	logger *slog.Logger
}

var _ ports.LinkedAccountSource = (*AccountService)(nil)

func NewAccountService(repo ports.AccountRepository, store ports.SecretStore, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

func (s *AccountService) SetAPIKey(ctx context.Context, cmd SetAPIKeyCommand) error {
	if strings.TrimSpace(cmd.APIKey) == "" {
		return ErrAPIKeyRequired
	}

	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: cmd.ID}
	}
	originalAccount := account
	previousSecretRef := account.SecretRef

	if cmd.Label != "" {
		account.Label = cmd.Label
	}

	newSecretRef := ""
	if cmd.UseSecretStore {
		newSecretRef = domain.SecretKeyFor(cmd.ID)
		if err := s.store.Put(ctx, newSecretRef, cmd.APIKey); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
		account.APIKey = ""
		account.SecretRef = newSecretRef
	} else {
		account.APIKey = cmd.APIKey
		account.SecretRef = ""
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if newSecretRef != "" && newSecretRef != previousSecretRef {
			if rollbackErr := s.store.Delete(ctx, newSecretRef); rollbackErr != nil {
				return fmt.Errorf("save account and rollback stored key: %w", errors.Join(err, rollbackErr))
			}
		}

		return fmt.Errorf("save account: %w", err)
	}

	if previousSecretRef == "" || previousSecretRef == newSecretRef {
		return nil
	}
	if err := s.store.Delete(ctx, previousSecretRef); err != nil {
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			return fmt.Errorf("delete previous api key and restore account: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete previous api key: %w", err)
	}

	return nil
}

// RemoveAccount unlinks the account and deletes its stored key. If the key
// cannot be deleted the account is restored.
func (s *AccountService) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if account.SecretRef == "" {
		return nil
	}
	if err := s.store.Delete(ctx, account.SecretRef); err != nil {
		if restoreErr := s.repo.Save(ctx, account); restoreErr != nil {
			return fmt.Errorf("delete api key and restore account: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete api key: %w", err)
	}

	return nil
}

func (s *AccountService) List(ctx context.Context) ([]AccountView, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	views := make([]AccountView, 0, len(accounts))
	for _, account := range accounts {
		key, err := s.resolveKey(ctx, account)
		if err != nil {
			return nil, err
		}
		views = append(views, AccountView{
			Account:  account,
			Source:   account.KeySource(),
			Resolved: key != "",
		})
	}

	return views, nil
}

// LinkedAccounts resolves every configured account to its id and key. A key
// that cannot be resolved leaves the account in the list without a key.
func (s *AccountService) LinkedAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	linked := make([]domain.LinkedAccount, 0, len(accounts))
	for _, account := range accounts {
		key, err := s.resolveKey(ctx, account)
		if err != nil {
			return nil, err
		}
		linked = append(linked, domain.LinkedAccount{ID: account.ID, APIKey: key})
	}

	return linked, nil
}

func (s *AccountService) resolveKey(ctx context.Context, account domain.Account) (string, error) {
	switch account.KeySource() {
	case domain.KeySourceInline:
		return strings.TrimSpace(account.APIKey), nil
	case domain.KeySourceSecretStore:
		key, err := s.store.Get(ctx, account.SecretRef)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			s.logger.Warn("api key reference does not resolve", "account", account.ID, "ref", account.SecretRef, "error", err)
			return "", nil
		}
		return strings.TrimSpace(key), nil
	default:
		return "", nil
	}
}

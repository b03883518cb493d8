package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tomlrepo "github.com/bnema/galho-seco-gateway/internal/adapters/repo/toml"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountServiceSetAPIKeyInline(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{}, domain.ErrAccountNotFound)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "u1", Label: "Ana", APIKey: "K1"}).Return(nil)

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", Label: "Ana", APIKey: "K1"})
	require.NoError(t, err)
}

func TestAccountServiceSetAPIKeyInSecretStore(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{ID: "u1", Label: "Ana", APIKey: "old"}, nil)
	store.EXPECT().Put(mockAnyContext(), "gsg/u1/api_key", "K1").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "u1", Label: "Ana", SecretRef: "gsg/u1/api_key"}).Return(nil)

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K1", UseSecretStore: true})
	require.NoError(t, err)
}

func TestAccountServiceSetAPIKeyRejectsBlankKey(t *testing.T) {
	service := NewAccountService(mocks.NewMockAccountRepository(t), mocks.NewMockSecretStore(t), discardLogger())

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "  "})
	require.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestAccountServiceSetAPIKeyCompensatesSecretWriteWhenSaveFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	saveErr := errors.New("save failed")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{}, domain.ErrAccountNotFound)
	store.EXPECT().Put(mockAnyContext(), "gsg/u1/api_key", "K1").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "u1", SecretRef: "gsg/u1/api_key"}).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(nil)

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K1", UseSecretStore: true})
	require.ErrorIs(t, err, saveErr)
}

func TestAccountServiceSetAPIKeyJoinsRollbackError(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	saveErr := errors.New("save failed")
	rollbackErr := errors.New("rollback failed")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{}, domain.ErrAccountNotFound)
	store.EXPECT().Put(mockAnyContext(), "gsg/u1/api_key", "K1").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(rollbackErr)

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K1", UseSecretStore: true})
	require.ErrorIs(t, err, saveErr)
	require.ErrorIs(t, err, rollbackErr)
}

func TestAccountServiceSetAPIKeyInlineDeletesPreviousSecret(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{ID: "u1", SecretRef: "gsg/u1/api_key"}, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "u1", APIKey: "K2"}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(nil)

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K2"})
	require.NoError(t, err)
}

func TestAccountServiceSetAPIKeyRestoresAccountWhenPreviousSecretDeleteFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	deleteErr := errors.New("delete failed")
	original := domain.Account{ID: "u1", SecretRef: "gsg/u1/api_key"}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(original, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "u1", APIKey: "K2"}).Return(nil).Once()
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), original).Return(nil).Once()

	err := service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K2"})
	require.ErrorIs(t, err, deleteErr)
}

func TestAccountServiceRemoveAccountDeletesSecret(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(domain.Account{ID: "u1", SecretRef: "gsg/u1/api_key"}, nil)
	repo.EXPECT().Delete(mockAnyContext(), domain.AccountID("u1")).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(nil)

	require.NoError(t, service.RemoveAccount(context.Background(), "u1"))
}

func TestAccountServiceRemoveAccountRestoresWhenSecretDeleteFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	deleteErr := errors.New("delete failed")
	account := domain.Account{ID: "u1", SecretRef: "gsg/u1/api_key"}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u1")).Return(account, nil)
	repo.EXPECT().Delete(mockAnyContext(), domain.AccountID("u1")).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "gsg/u1/api_key").Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), account).Return(nil)

	err := service.RemoveAccount(context.Background(), "u1")
	require.ErrorIs(t, err, deleteErr)
}

func TestAccountServiceRemoveMissingAccount(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewAccountService(repo, mocks.NewMockSecretStore(t), discardLogger())

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("u9")).Return(domain.Account{}, domain.ErrAccountNotFound)

	err := service.RemoveAccount(context.Background(), "u9")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountServiceLinkedAccountsResolvesReferences(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().List(mockAnyContext()).Return([]domain.Account{
		{ID: "u1", APIKey: "K1"},
		{ID: "u2", SecretRef: "gsg/u2/api_key"},
		{ID: "u3", SecretRef: "gsg/u3/api_key"},
		{ID: "u4"},
	}, nil)
	store.EXPECT().Get(mockAnyContext(), "gsg/u2/api_key").Return("K2\n", nil)
	store.EXPECT().Get(mockAnyContext(), "gsg/u3/api_key").Return("", domain.ErrSecretNotFound)

	linked, err := service.LinkedAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.LinkedAccount{
		{ID: "u1", APIKey: "K1"},
		{ID: "u2", APIKey: "K2"},
		{ID: "u3"},
		{ID: "u4"},
	}, linked)
	assert.Equal(t, []string{"K1", "K2"}, domain.APIKeys(linked))
}

func TestAccountServiceLinkedAccountsReturnsListError(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewAccountService(repo, mocks.NewMockSecretStore(t), discardLogger())

	listErr := errors.New("list failed")
	repo.EXPECT().List(mockAnyContext()).Return(nil, listErr)

	_, err := service.LinkedAccounts(context.Background())
	require.ErrorIs(t, err, listErr)
}

func TestAccountServiceListReportsKeySource(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, discardLogger())

	repo.EXPECT().List(mockAnyContext()).Return([]domain.Account{
		{ID: "u1", APIKey: "K1"},
		{ID: "u2", SecretRef: "gsg/u2/api_key"},
	}, nil)
	store.EXPECT().Get(mockAnyContext(), "gsg/u2/api_key").Return("", domain.ErrSecretNotFound)

	views, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, domain.KeySourceInline, views[0].Source)
	assert.True(t, views[0].Resolved)
	assert.Equal(t, domain.KeySourceSecretStore, views[1].Source)
	assert.False(t, views[1].Resolved)
}

func TestAccountServiceWithTOMLRepository(t *testing.T) {
	config := viper.New()
	config.Set("accounts.path", filepath.Join(t.TempDir(), "accounts.toml"))
	repo, err := tomlrepo.NewRepository(config)
	require.NoError(t, err)

	service := NewAccountService(repo, mocks.NewMockSecretStore(t), discardLogger())

	require.NoError(t, service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u1", APIKey: "K1"}))
	require.NoError(t, service.SetAPIKey(context.Background(), SetAPIKeyCommand{ID: "u2", Label: "Bruno", APIKey: "K2"}))
	require.NoError(t, service.RemoveAccount(context.Background(), "u1"))

	linked, err := service.LinkedAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.LinkedAccount{{ID: "u2", APIKey: "K2"}}, linked)
}

func mockAnyContext() interface{} {
	return mock.Anything
}

package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPostsBatchWithBearerKey(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/foundry/characters", r.URL.Path)
		assert.Equal(t, "Bearer K1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	batch := domain.UpsertBatch{
		UserID: "u1",
		Characters: []domain.CharacterSnapshot{{
			ID:     "e1",
			Name:   "Iara",
			Kind:   domain.KindCharacter,
			System: map[string]any{"attributes": map[string]any{"hp": map[string]any{"value": 7.0}}},
			Items: []domain.Item{{
				ID:     "i1",
				Name:   "Adaga",
				Type:   "weapon",
				System: map[string]any{"quantity": 1.0},
			}},
			Effects: []domain.Effect{{ID: "fx1", Name: "Bless", Changes: []domain.EffectChange{{Key: "system.bonuses.abilities.save", Mode: 2, Value: "1d4"}}}},
		}},
	}

	require.NoError(t, client.Upsert(context.Background(), server.URL, "K1", batch))

	assert.Equal(t, "u1", got["userId"])
	assert.NotContains(t, got, "username")
	characters := got["characters"].([]any)
	require.Len(t, characters, 1)
	character := characters[0].(map[string]any)
	assert.Equal(t, "e1", character["id"])
	assert.Equal(t, "character", character["type"])
	items := character["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].(map[string]any)["_id"])
	effects := character["effects"].([]any)
	require.Len(t, effects, 1)
	assert.Equal(t, "Bless", effects[0].(map[string]any)["name"])
}

func TestUpsertSendsUsernameForPerEventPush(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	require.NoError(t, client.Upsert(context.Background(), server.URL, "K1", domain.UpsertBatch{
		Username:   "Ana",
		Characters: []domain.CharacterSnapshot{{ID: "e1", Kind: domain.KindCharacter}},
	}))

	assert.Equal(t, "Ana", got["username"])
	assert.NotContains(t, got, "userId")
	character := got["characters"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{}, character["system"])
	assert.Equal(t, []any{}, character["items"])
}

func TestUpsertFallsBackToUserIDWithoutDisplayName(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	require.NoError(t, client.Upsert(context.Background(), server.URL, "K1", domain.UpsertBatch{
		UserID:     "u1",
		Characters: []domain.CharacterSnapshot{{ID: "e1", Kind: domain.KindCharacter}},
	}))

	assert.Equal(t, "u1", got["userId"])
	assert.NotContains(t, got, "username")
}

func TestUpsertCarriesItemActivities(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	require.NoError(t, client.Upsert(context.Background(), server.URL, "K1", domain.UpsertBatch{
		UserID: "u1",
		Characters: []domain.CharacterSnapshot{{
			ID:   "e1",
			Kind: domain.KindCharacter,
			Items: []domain.Item{
				{
					ID:     "spell1",
					Type:   "spell",
					System: map[string]any{"level": 1.0},
					Activities: []domain.Activity{
						{ID: "act-fire", Type: domain.ActivityAttack, Name: "Raio de Fogo", AttackBonus: 5, Damage: "1d10"},
					},
				},
				{ID: "i2", Type: "loot"},
			},
		}},
	}))

	items := got["characters"].([]any)[0].(map[string]any)["items"].([]any)
	require.Len(t, items, 2)

	activities := items[0].(map[string]any)["activities"].([]any)
	require.Len(t, activities, 1)
	assert.Equal(t, map[string]any{
		"_id":         "act-fire",
		"type":        "attack",
		"name":        "Raio de Fogo",
		"attackBonus": 5.0,
		"damage":      "1d10",
	}, activities[0])
	assert.Equal(t, []any{}, items[1].(map[string]any)["activities"])
}

func TestDeleteSendsCharacterID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer K2", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"character":"e9"}`, string(body))
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	require.NoError(t, client.Delete(context.Background(), server.URL, "K2", domain.DeleteNotice{Character: "e9"}))
}

func TestUpsertReturnsStatusErrorOnNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client()}
	err := client.Upsert(context.Background(), server.URL, "bad", domain.UpsertBatch{UserID: "u1"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "invalid api key", statusErr.Body)
	assert.ErrorContains(t, err, "push characters")
}

func TestUpsertTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := Client{HTTPClient: server.Client(), RequestTimeout: 20 * time.Millisecond}
	err := client.Upsert(context.Background(), server.URL, "K1", domain.UpsertBatch{UserID: "u1"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "send request")
}

func TestSendRejectsMissingConfiguration(t *testing.T) {
	t.Parallel()

	client := Client{}

	err := client.Upsert(context.Background(), "https://sheets.example", " ", domain.UpsertBatch{})
	require.ErrorIs(t, err, domain.ErrConfigurationIncomplete)

	err = client.Delete(context.Background(), "", "K1", domain.DeleteNotice{Character: "e1"})
	require.ErrorIs(t, err, domain.ErrConfigurationIncomplete)
}

func TestCharactersURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		address string
		want    string
		wantErr string
	}{
		{name: "https", address: "https://sheets.example", want: "https://sheets.example/api/v1/foundry/characters"},
		{name: "no scheme", address: "sheets.example", want: "https://sheets.example/api/v1/foundry/characters"},
		{name: "trailing slash", address: "http://localhost:8080/", want: "http://localhost:8080/api/v1/foundry/characters"},
		{name: "base path", address: "https://host/galho", want: "https://host/galho/api/v1/foundry/characters"},
		{name: "websocket scheme", address: "wss://host", wantErr: "must use http or https"},
		{name: "empty", address: "  ", wantErr: "server address is empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CharactersURL(tc.address)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

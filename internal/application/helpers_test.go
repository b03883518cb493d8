package application

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/adapters/engine/memory"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticAccounts []domain.LinkedAccount

func (a staticAccounts) LinkedAccounts(context.Context) ([]domain.LinkedAccount, error) {
	return a, nil
}

// recordingSender keeps every frame it is asked to send, JSON-encoded.
type recordingSender struct {
	mu     sync.Mutex
	frames []json.RawMessage
	sent   chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan struct{}, 16)}
}

func (s *recordingSender) Send(_ context.Context, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.frames = append(s.frames, data)
	s.mu.Unlock()

	select {
	case s.sent <- struct{}{}:
	default:
	}
	return nil
}

func (s *recordingSender) Frames() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]json.RawMessage, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *recordingSender) decoded(t *testing.T, i int) map[string]any {
	t.Helper()

	frames := s.Frames()
	require.Greater(t, len(frames), i)
	var out map[string]any
	require.NoError(t, json.Unmarshal(frames[i], &out))
	return out
}

const testWorldTitle = "Mesa de Quinta"

func testWorld(modules ...string) memory.World {
	return memory.World{
		Title:   testWorldTitle,
		Seed:    42,
		Modules: modules,
		Users: []domain.User{
			{ID: "u1", Name: "Ana"},
			{ID: "u2", Name: "Bruno"},
		},
		Entities: []domain.Entity{
			{
				ID:       "e1",
				Name:     "Iara",
				Kind:     domain.KindCharacter,
				Portrait: "iara.webp",
				System: map[string]any{
					"abilities": map[string]any{
						"str": map[string]any{"value": 8.0},
						"dex": map[string]any{"value": 16.0, "proficient": 1.0},
						"con": map[string]any{"mod": 2.0, "save": map[string]any{"value": 4.0}},
					},
					"skills": map[string]any{"ste": map[string]any{"value": 2.0}},
					"attributes": map[string]any{
						"prof": 2.0,
						"hp":   map[string]any{"value": 10.0, "max": 20.0, "temp": 0.0},
						"hd":   map[string]any{"value": 2.0, "max": 3.0, "denomination": "d8"},
					},
					"spells": map[string]any{"spell1": map[string]any{"value": 2.0, "max": 2.0}},
				},
				Items: []domain.Item{
					{
						ID:     "i1",
						Name:   "Adaga",
						Type:   "weapon",
						System: map[string]any{"quantity": 1.0},
						Activities: []domain.Activity{
							{ID: "a0", Type: domain.ActivityUtility, Name: "Throw"},
							{ID: "a1", Type: domain.ActivityAttack, Name: "Stab", AttackBonus: 5, Damage: "1d4 + 3"},
						},
					},
					{
						ID:     "s1",
						Name:   "Guiding Bolt",
						Type:   "spell",
						System: map[string]any{"level": 1.0},
						Activities: []domain.Activity{
							{ID: "sa", Type: domain.ActivityAttack, Name: "Bolt", AttackBonus: 4, Damage: "4d6"},
						},
					},
					{
						ID:         "s2",
						Name:       "Shield",
						Type:       "spell",
						System:     map[string]any{"level": 1.0},
						Activities: []domain.Activity{{ID: "sh", Type: domain.ActivityUtility, Name: "Ward"}},
					},
					{ID: "b1", Name: "Bedroll", Type: "loot", System: map[string]any{}},
				},
				Ownership: map[domain.AccountID]domain.PermissionLevel{"u1": domain.PermissionOwner, "u2": domain.PermissionObserver},
			},
			{
				ID:        "e2",
				Name:      "Tito",
				Kind:      domain.KindCharacter,
				System:    map[string]any{"attributes": map[string]any{"hp": map[string]any{"value": 7.0, "max": 7.0}}},
				Ownership: map[domain.AccountID]domain.PermissionLevel{"u1": domain.PermissionOwner, "u2": domain.PermissionOwner},
			},
			{
				ID:        "n1",
				Name:      "Goblin",
				Kind:      "npc",
				System:    map[string]any{},
				Ownership: map[domain.AccountID]domain.PermissionLevel{"u1": domain.PermissionOwner},
			},
		},
	}
}

func newTestEngine(modules ...string) *memory.Engine {
	return memory.New(testWorld(modules...), memory.Options{
		Logger:         discardLogger(),
		AnimationDelay: 5 * time.Millisecond,
	})
}

func hpOf(t *testing.T, engine *memory.Engine, id domain.EntityID) (float64, float64) {
	t.Helper()

	entity, err := engine.GetEntity(context.Background(), id)
	require.NoError(t, err)
	value, _ := domain.NumberAt(entity.System, "attributes", "hp", "value")
	temp, _ := domain.NumberAt(entity.System, "attributes", "hp", "temp")
	return value, temp
}

// Package memory is an in-process session engine. It holds a world loaded
// from a JSON file, evaluates a small dnd5e-flavoured rule set, runs a
// single combat tracker and publishes entity changes to subscribers.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

const (
	defaultFeedBuffer     = 256
	defaultAnimationDelay = 1500 * time.Millisecond
)

type Options struct {
	Logger *slog.Logger
	// AnimationDelay is how long a dice animation takes when the animation
	// module is enabled.
	AnimationDelay time.Duration
	FeedBuffer     int
}

type Engine struct {
	mu sync.Mutex

	title    string
	order    []domain.EntityID
	entities map[domain.EntityID]domain.Entity
	users    map[domain.AccountID]domain.User
	combat   *domain.Combat
	chat     []domain.ChatRecord
	nextID   int

	subscribers map[int]chan domain.ChangeEvent
	nextSub     int
	feedBuffer  int

	roller   *Roller
	animator *Animator
	logger   *slog.Logger
}

var _ ports.SessionEngine = (*Engine)(nil)

func New(world World, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AnimationDelay <= 0 {
		opts.AnimationDelay = defaultAnimationDelay
	}
	if opts.FeedBuffer <= 0 {
		opts.FeedBuffer = defaultFeedBuffer
	}
	seed := world.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		title:       world.Title,
		entities:    make(map[domain.EntityID]domain.Entity, len(world.Entities)),
		users:       make(map[domain.AccountID]domain.User, len(world.Users)),
		subscribers: map[int]chan domain.ChangeEvent{},
		feedBuffer:  opts.FeedBuffer,
		roller:      NewRoller(seed),
		animator:    NewAnimator(world.ModuleActive(DiceAnimationModule), opts.AnimationDelay),
		logger:      opts.Logger,
	}
	for _, user := range world.Users {
		e.users[user.ID] = user
	}
	for _, entity := range world.Entities {
		e.order = append(e.order, entity.ID)
		e.entities[entity.ID] = cloneEntity(entity)
	}

	return e
}

func Load(path string, opts Options) (*Engine, error) {
	world, err := ReadWorld(path)
	if err != nil {
		return nil, err
	}

	return New(world, opts), nil
}

func (e *Engine) Title() string {
	return e.title
}

func (e *Engine) Animator() *Animator {
	return e.animator
}

// ChatLog returns the records posted so far, oldest first.
func (e *Engine) ChatLog() []domain.ChatRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.ChatRecord, len(e.chat))
	copy(out, e.chat)
	return out
}

func (e *Engine) GetEntity(ctx context.Context, id domain.EntityID) (domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entity{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return domain.Entity{}, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	return cloneEntity(entity), nil
}

func (e *Engine) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Entity, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, cloneEntity(e.entities[id]))
	}

	return out, nil
}

// UpdateEntity applies a document-shaped patch: name, img, system (deep
// merged) and items matched by _id.
func (e *Engine) UpdateEntity(ctx context.Context, id domain.EntityID, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	if name, ok := patch["name"].(string); ok {
		entity.Name = name
	}
	if img, ok := patch["img"].(string); ok {
		entity.Portrait = img
	}
	if system, ok := patch["system"].(map[string]any); ok {
		entity.System = domain.MergeMap(entity.System, system)
	}
	if items, ok := patch["items"].([]any); ok {
		for _, raw := range items {
			itemPatch, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			entity.Items = patchItem(entity.Items, itemPatch)
		}
	}

	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return nil
}

func patchItem(items []domain.Item, patch map[string]any) []domain.Item {
	itemID, _ := patch["_id"].(string)
	if itemID == "" {
		return items
	}

	for i := range items {
		if items[i].ID != domain.ItemID(itemID) {
			continue
		}
		if name, ok := patch["name"].(string); ok {
			items[i].Name = name
		}
		if system, ok := patch["system"].(map[string]any); ok {
			items[i].System = domain.MergeMap(items[i].System, system)
		}
		return items
	}

	name, _ := patch["name"].(string)
	kind, _ := patch["type"].(string)
	system, _ := patch["system"].(map[string]any)
	return append(items, domain.Item{ID: domain.ItemID(itemID), Name: name, Type: kind, System: domain.CloneMap(system)})
}

func (e *Engine) UpdateItemSystem(ctx context.Context, entityID domain.EntityID, itemID domain.ItemID, system map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %s: %w", entityID, domain.ErrEntityNotFound)
	}
	for i := range entity.Items {
		if entity.Items[i].ID == itemID {
			entity.Items[i].System = domain.CloneMap(system)
			e.storeLocked(entity, domain.ChangeItemUpdated, itemID)
			return nil
		}
	}

	return fmt.Errorf("item %s on %s: %w", itemID, entityID, domain.ErrItemNotFound)
}

// PutEntity creates or replaces an entity, as a local edit would.
func (e *Engine) PutEntity(entity domain.Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.entities[entity.ID]; !exists {
		e.order = append(e.order, entity.ID)
	}
	e.storeLocked(cloneEntity(entity), domain.ChangeEntityUpdated, "")
}

func (e *Engine) DeleteEntity(id domain.EntityID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}
	delete(e.entities, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	e.publishLocked(domain.ChangeEvent{Kind: domain.ChangeEntityDeleted, Entity: cloneEntity(entity)})
	return nil
}

// PutItem creates or replaces one item on an entity.
func (e *Engine) PutItem(entityID domain.EntityID, item domain.Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %s: %w", entityID, domain.ErrEntityNotFound)
	}

	item.System = domain.CloneMap(item.System)
	kind := domain.ChangeItemCreated
	replaced := false
	for i := range entity.Items {
		if entity.Items[i].ID == item.ID {
			entity.Items[i] = item
			kind = domain.ChangeItemUpdated
			replaced = true
			break
		}
	}
	if !replaced {
		entity.Items = append(entity.Items, item)
	}

	e.storeLocked(entity, kind, item.ID)
	return nil
}

func (e *Engine) DeleteItem(entityID domain.EntityID, itemID domain.ItemID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %s: %w", entityID, domain.ErrEntityNotFound)
	}
	for i := range entity.Items {
		if entity.Items[i].ID == itemID {
			entity.Items = append(entity.Items[:i], entity.Items[i+1:]...)
			e.storeLocked(entity, domain.ChangeItemDeleted, itemID)
			return nil
		}
	}

	return fmt.Errorf("item %s on %s: %w", itemID, entityID, domain.ErrItemNotFound)
}

func (e *Engine) SetOwnership(entityID domain.EntityID, account domain.AccountID, level domain.PermissionLevel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %s: %w", entityID, domain.ErrEntityNotFound)
	}
	if entity.Ownership == nil {
		entity.Ownership = map[domain.AccountID]domain.PermissionLevel{}
	}
	entity.Ownership[account] = level

	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return nil
}

func (e *Engine) GetUser(ctx context.Context, id domain.AccountID) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	user, ok := e.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrUserNotFound)
	}

	return user, nil
}

// Subscribe returns a feed of changes applied after the call. A subscriber
// that falls more than the feed buffer behind loses events.
func (e *Engine) Subscribe(ctx context.Context) <-chan domain.ChangeEvent {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan domain.ChangeEvent, e.feedBuffer)
	e.subscribers[id] = ch
	e.mu.Unlock()

	context.AfterFunc(ctx, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
		close(ch)
	})

	return ch
}

func (e *Engine) storeLocked(entity domain.Entity, kind domain.ChangeKind, itemID domain.ItemID) {
	e.entities[entity.ID] = entity
	e.publishLocked(domain.ChangeEvent{Kind: kind, Entity: cloneEntity(entity), ItemID: itemID})
}

func (e *Engine) publishLocked(event domain.ChangeEvent) {
	for id, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			e.logger.Warn("change feed subscriber is behind, dropping event",
				"subscriber", id, "entity", event.Entity.ID, "kind", event.Kind)
		}
	}
}

func (e *Engine) newIDLocked(prefix string) string {
	e.nextID++
	return prefix + "-" + strconv.Itoa(e.nextID)
}

func cloneEntity(entity domain.Entity) domain.Entity {
	out := entity
	out.System = domain.CloneMap(entity.System)
	if out.System == nil {
		out.System = map[string]any{}
	}

	out.Items = make([]domain.Item, len(entity.Items))
	for i, item := range entity.Items {
		item.System = domain.CloneMap(item.System)
		item.Activities = append([]domain.Activity(nil), item.Activities...)
		out.Items[i] = item
	}

	out.Effects = make([]domain.Effect, len(entity.Effects))
	for i, effect := range entity.Effects {
		effect.Changes = append([]domain.EffectChange(nil), effect.Changes...)
		out.Effects[i] = effect
	}

	out.Ownership = make(map[domain.AccountID]domain.PermissionLevel, len(entity.Ownership))
	for id, level := range entity.Ownership {
		out.Ownership[id] = level
	}

	return out
}

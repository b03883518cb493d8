package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// Apply brings the engine in line with world as a series of local edits:
// new or changed actors are put, actors missing from world are deleted.
// Unchanged actors produce no change events.
func (e *Engine) Apply(world World) {
	e.animator.SetActive(world.ModuleActive(DiceAnimationModule))

	e.mu.Lock()
	e.users = make(map[domain.AccountID]domain.User, len(world.Users))
	for _, user := range world.Users {
		e.users[user.ID] = user
	}
	var changed []domain.Entity
	keep := make(map[domain.EntityID]struct{}, len(world.Entities))
	for _, entity := range world.Entities {
		keep[entity.ID] = struct{}{}
		incoming := cloneEntity(entity)
		existing, ok := e.entities[entity.ID]
		if ok && reflect.DeepEqual(cloneEntity(existing), incoming) {
			continue
		}
		changed = append(changed, incoming)
	}
	var removed []domain.EntityID
	for _, id := range e.order {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	e.mu.Unlock()

	for _, entity := range changed {
		e.PutEntity(entity)
	}
	for _, id := range removed {
		_ = e.DeleteEntity(id)
	}
}

// WatchWorld reloads the world file each time it is written until ctx is
// done. The parent directory is watched so editors that replace the file
// are picked up too.
func (e *Engine) WatchWorld(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create world watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch world file: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				world, err := ReadWorld(target)
				if err != nil {
					e.logger.Warn("reload world file", "path", target, "error", err)
					continue
				}
				e.Apply(world)
				e.logger.Debug("world file reloaded", "path", target, "actors", len(world.Entities))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.logger.Warn("world watcher error", "error", err)
			}
		}
	}()

	return nil
}

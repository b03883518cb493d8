package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

// DiceAnimationModule is the extension id that turns on roll animations.
const DiceAnimationModule = "dice-so-nice"

type worldFile struct {
	Title   string      `json:"title"`
	Seed    int64       `json:"seed"`
	Modules []string    `json:"modules"`
	Users   []userFile  `json:"users"`
	Actors  []actorFile `json:"actors"`
}

type userFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type actorFile struct {
	ID        string         `json:"_id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Img       string         `json:"img"`
	System    map[string]any `json:"system"`
	Items     []itemFile     `json:"items"`
	Effects   []effectFile   `json:"effects"`
	Ownership map[string]int `json:"ownership"`
}

type itemFile struct {
	ID         string         `json:"_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Img        string         `json:"img"`
	System     map[string]any `json:"system"`
	Activities []activityFile `json:"activities"`
}

type activityFile struct {
	ID          string `json:"_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	AttackBonus int    `json:"attackBonus"`
	Damage      string `json:"damage"`
}

type effectFile struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
	Changes  []struct {
		Key   string `json:"key"`
		Mode  int    `json:"mode"`
		Value string `json:"value"`
	} `json:"changes"`
}

// World is the decoded content of a world file.
type World struct {
	Title    string
	Seed     int64
	Modules  []string
	Users    []domain.User
	Entities []domain.Entity
}

func (w World) ModuleActive(id string) bool {
	for _, module := range w.Modules {
		if module == id {
			return true
		}
	}
	return false
}

func ReadWorld(path string) (World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return World{}, fmt.Errorf("read world file: %w", err)
	}

	return ParseWorld(data)
}

func ParseWorld(data []byte) (World, error) {
	var file worldFile
	if err := json.Unmarshal(data, &file); err != nil {
		return World{}, fmt.Errorf("decode world file: %w", err)
	}

	world := World{Title: file.Title, Seed: file.Seed, Modules: file.Modules}
	for _, user := range file.Users {
		world.Users = append(world.Users, domain.User{ID: domain.AccountID(user.ID), Name: user.Name})
	}

	seen := make(map[string]struct{}, len(file.Actors))
	for _, actor := range file.Actors {
		if actor.ID == "" {
			return World{}, fmt.Errorf("decode world file: actor %q has no _id", actor.Name)
		}
		if _, dup := seen[actor.ID]; dup {
			return World{}, fmt.Errorf("decode world file: duplicate actor id %q", actor.ID)
		}
		seen[actor.ID] = struct{}{}
		world.Entities = append(world.Entities, actor.toDomain())
	}

	return world, nil
}

func (a actorFile) toDomain() domain.Entity {
	entity := domain.Entity{
		ID:        domain.EntityID(a.ID),
		Name:      a.Name,
		Kind:      domain.EntityKind(a.Type),
		Portrait:  a.Img,
		System:    a.System,
		Ownership: make(map[domain.AccountID]domain.PermissionLevel, len(a.Ownership)),
	}
	if entity.System == nil {
		entity.System = map[string]any{}
	}
	for id, level := range a.Ownership {
		entity.Ownership[domain.AccountID(id)] = domain.PermissionLevel(level)
	}

	for _, item := range a.Items {
		converted := domain.Item{
			ID:       domain.ItemID(item.ID),
			Name:     item.Name,
			Type:     item.Type,
			Portrait: item.Img,
			System:   item.System,
		}
		for _, activity := range item.Activities {
			converted.Activities = append(converted.Activities, domain.Activity{
				ID:          domain.ActivityID(activity.ID),
				Type:        domain.ActivityType(activity.Type),
				Name:        activity.Name,
				AttackBonus: activity.AttackBonus,
				Damage:      activity.Damage,
			})
		}
		entity.Items = append(entity.Items, converted)
	}

	for _, effect := range a.Effects {
		converted := domain.Effect{ID: effect.ID, Name: effect.Name, Disabled: effect.Disabled}
		for _, change := range effect.Changes {
			converted.Changes = append(converted.Changes, domain.EffectChange{Key: change.Key, Mode: change.Mode, Value: change.Value})
		}
		entity.Effects = append(entity.Effects, converted)
	}

	return entity
}

package domain

import "sort"

type EntityID string
type EntityKind string

const KindCharacter EntityKind = "character"

type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionLimited
	PermissionObserver
	PermissionOwner
)

type Entity struct {
	ID        EntityID
	Name      string
	Kind      EntityKind
	Portrait  string
	System    map[string]any
	Items     []Item
	Effects   []Effect
	Ownership map[AccountID]PermissionLevel
}

func (e Entity) IsCharacter() bool {
	return e.Kind == KindCharacter
}

func (e Entity) OwnedBy(id AccountID) bool {
	return e.Ownership[id] == PermissionOwner
}

// Owners returns the ids holding owner permission, sorted for stable fan-out.
func (e Entity) Owners() []AccountID {
	owners := make([]AccountID, 0, len(e.Ownership))
	for id, level := range e.Ownership {
		if level == PermissionOwner {
			owners = append(owners, id)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	return owners
}

func (e Entity) Item(id ItemID) (Item, bool) {
	for _, item := range e.Items {
		if item.ID == id {
			return item, true
		}
	}

	return Item{}, false
}

type ItemID string

type Item struct {
	ID         ItemID
	Name       string
	Type       string
	Portrait   string
	System     map[string]any
	Activities []Activity
}

func (i Item) Activity(id ActivityID) (Activity, bool) {
	for _, activity := range i.Activities {
		if activity.ID == id {
			return activity, true
		}
	}

	return Activity{}, false
}

func (i Item) FirstActivityOfType(kind ActivityType) (Activity, bool) {
	for _, activity := range i.Activities {
		if activity.Type == kind {
			return activity, true
		}
	}

	return Activity{}, false
}

type ActivityID string
type ActivityType string

const (
	ActivityAttack  ActivityType = "attack"
	ActivityDamage  ActivityType = "damage"
	ActivityHeal    ActivityType = "heal"
	ActivityUtility ActivityType = "utility"
)

type Activity struct {
	ID          ActivityID
	Type        ActivityType
	Name        string
	AttackBonus int
	Damage      string
}

// ActivityRef addresses one activity on one item of one entity.
type ActivityRef struct {
	Entity   EntityID
	Item     ItemID
	Activity ActivityID
}

type Effect struct {
	ID       string
	Name     string
	Disabled bool
	Changes  []EffectChange
}

type EffectChange struct {
	Key   string
	Mode  int
	Value string
}

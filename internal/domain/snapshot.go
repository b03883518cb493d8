package domain

// CharacterSnapshot is the serializable view of an entity pushed to the
// remote service.
type CharacterSnapshot struct {
	ID       EntityID
	Name     string
	Kind     EntityKind
	Portrait string
	System   map[string]any
	Items    []Item
	Effects  []Effect
}

func SnapshotOf(e Entity) CharacterSnapshot {
	items := make([]Item, len(e.Items))
	for i, item := range e.Items {
		item.System = CloneMap(item.System)
		item.Activities = append([]Activity(nil), item.Activities...)
		items[i] = item
	}
	effects := make([]Effect, len(e.Effects))
	copy(effects, e.Effects)

	return CharacterSnapshot{
		ID:       e.ID,
		Name:     e.Name,
		Kind:     e.Kind,
		Portrait: e.Portrait,
		System:   ScrubLegacyFields(e.System),
		Items:    items,
		Effects:  effects,
	}
}

// UpsertBatch is addressed by Username on per-event pushes and by UserID on
// the periodic sweep. A per-event batch also carries UserID so the account
// stays addressable when the user has no display name.
type UpsertBatch struct {
	Username   string
	UserID     AccountID
	Characters []CharacterSnapshot
}

type DeleteNotice struct {
	Character EntityID
}

package domain

type ChangeKind string

const (
	ChangeEntityUpdated ChangeKind = "entity_updated"
	ChangeEntityDeleted ChangeKind = "entity_deleted"
	ChangeItemCreated   ChangeKind = "item_created"
	ChangeItemUpdated   ChangeKind = "item_updated"
	ChangeItemDeleted   ChangeKind = "item_deleted"
)

// ChangeEvent carries the entity as it stood after the change; for
// deletions it is the last known snapshot.
type ChangeEvent struct {
	Kind   ChangeKind
	Entity Entity
	ItemID ItemID
}

func (e ChangeEvent) IsDeletion() bool {
	return e.Kind == ChangeEntityDeleted
}

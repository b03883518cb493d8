package domain

const (
	remoteIDKey = "foundryId"
	localIDKey  = "_id"
)

// PrepareEntityPatch copies an inbound character patch and renames the
// remote id key to the local one, on the patch itself and on each item.
func PrepareEntityPatch(patch map[string]any) map[string]any {
	out := CloneMap(patch)
	if out == nil {
		return nil
	}
	renameID(out)

	items, ok := out["items"].([]any)
	if !ok {
		return out
	}
	for _, raw := range items {
		if item, ok := raw.(map[string]any); ok {
			renameID(item)
		}
	}

	return out
}

func renameID(m map[string]any) {
	id, ok := m[remoteIDKey]
	if !ok {
		return
	}
	if id != nil && id != "" {
		m[localIDKey] = id
	}
	delete(m, remoteIDKey)
}

// PatchID returns the local id carried by a prepared patch.
func PatchID(patch map[string]any) EntityID {
	id, _ := patch[localIDKey].(string)
	return EntityID(id)
}

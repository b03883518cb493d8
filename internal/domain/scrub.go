package domain

// ScrubLegacyFields returns a copy of a resolved attribute block with the
// deprecated per-ability save blocks removed. A save block is legacy when it
// still carries a "value" key. The input is never modified.
func ScrubLegacyFields(system map[string]any) map[string]any {
	out := CloneMap(system)
	abilities, ok := out["abilities"].(map[string]any)
	if !ok {
		return out
	}

	for _, raw := range abilities {
		ability, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		save, ok := ability["save"].(map[string]any)
		if !ok {
			continue
		}
		if _, legacy := save["value"]; legacy {
			delete(ability, "save")
		}
	}

	return out
}

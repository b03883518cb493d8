package domain

type Combat struct {
	ID         string
	Combatants []Combatant
}

type Combatant struct {
	ID         string
	EntityID   EntityID
	Initiative *int
}

func (c Combat) CombatantFor(id EntityID) (Combatant, bool) {
	for _, combatant := range c.Combatants {
		if combatant.EntityID == id {
			return combatant, true
		}
	}

	return Combatant{}, false
}

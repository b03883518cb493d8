package memory

import (
	"context"
	"fmt"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

// The engine tracks at most one active combat.

func (e *Engine) ActiveCombat(ctx context.Context) (domain.Combat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Combat{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.combat == nil {
		return domain.Combat{}, domain.ErrNoCombat
	}

	return cloneCombat(*e.combat), nil
}

func (e *Engine) CreateCombat(ctx context.Context) (domain.Combat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Combat{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.combat = &domain.Combat{ID: e.newIDLocked("combat")}
	return cloneCombat(*e.combat), nil
}

func (e *Engine) CreateCombatant(ctx context.Context, combatID string, entityID domain.EntityID) (domain.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Combatant{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	combat, err := e.combatLocked(combatID)
	if err != nil {
		return domain.Combatant{}, err
	}
	if _, ok := e.entities[entityID]; !ok {
		return domain.Combatant{}, fmt.Errorf("entity %s: %w", entityID, domain.ErrEntityNotFound)
	}

	combatant := domain.Combatant{ID: e.newIDLocked("combatant"), EntityID: entityID}
	combat.Combatants = append(combat.Combatants, combatant)
	return combatant, nil
}

func (e *Engine) SetInitiative(ctx context.Context, combatID string, combatantID string, value int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	combat, err := e.combatLocked(combatID)
	if err != nil {
		return err
	}
	for i := range combat.Combatants {
		if combat.Combatants[i].ID == combatantID {
			initiative := value
			combat.Combatants[i].Initiative = &initiative
			return nil
		}
	}

	return fmt.Errorf("combatant %s not in combat %s", combatantID, combatID)
}

func (e *Engine) combatLocked(id string) (*domain.Combat, error) {
	if e.combat == nil || e.combat.ID != id {
		return nil, fmt.Errorf("combat %s: %w", id, domain.ErrNoCombat)
	}
	return e.combat, nil
}

func cloneCombat(combat domain.Combat) domain.Combat {
	out := domain.Combat{ID: combat.ID, Combatants: make([]domain.Combatant, len(combat.Combatants))}
	for i, combatant := range combat.Combatants {
		if combatant.Initiative != nil {
			initiative := *combatant.Initiative
			combatant.Initiative = &initiative
		}
		out.Combatants[i] = combatant
	}
	return out
}

package ports

import (
	"context"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

// EntityStore is the lookup and mutation surface of the session engine.
type EntityStore interface {
	GetEntity(ctx context.Context, id domain.EntityID) (domain.Entity, error)
	ListEntities(ctx context.Context) ([]domain.Entity, error)
	UpdateEntity(ctx context.Context, id domain.EntityID, patch map[string]any) error
	UpdateItemSystem(ctx context.Context, entityID domain.EntityID, itemID domain.ItemID, system map[string]any) error
}

type Directory interface {
	GetUser(ctx context.Context, id domain.AccountID) (domain.User, error)
}

// RuleEngine evaluates game rules. Roll methods return an empty slice when
// the engine produced no roll.
type RuleEngine interface {
	RollAbilityCheck(ctx context.Context, id domain.EntityID, ability string, opts domain.RollOptions) ([]domain.Roll, error)
	RollSavingThrow(ctx context.Context, id domain.EntityID, ability string, opts domain.RollOptions) ([]domain.Roll, error)
	RollSkill(ctx context.Context, id domain.EntityID, skill string, opts domain.RollOptions) ([]domain.Roll, error)
	RollDeathSave(ctx context.Context, id domain.EntityID, opts domain.RollOptions) ([]domain.Roll, error)
	RollHitDie(ctx context.Context, id domain.EntityID, config map[string]any) ([]domain.Roll, error)

	InitiativeFormula(ctx context.Context, id domain.EntityID) (domain.RollFormula, error)
	EvaluateRoll(ctx context.Context, formula domain.RollFormula) (domain.Roll, error)
	PostChatRecord(ctx context.Context, record domain.ChatRecord) error

	UseActivity(ctx context.Context, ref domain.ActivityRef, config map[string]any) error
	RollAttack(ctx context.Context, ref domain.ActivityRef, config map[string]any) ([]domain.Roll, error)
	RollDamage(ctx context.Context, ref domain.ActivityRef, config map[string]any) ([]domain.Roll, error)

	ApplyDamage(ctx context.Context, id domain.EntityID, amount float64) error
	ApplyTempHP(ctx context.Context, id domain.EntityID, amount float64) error
	ShortRest(ctx context.Context, id domain.EntityID, config map[string]any) error
	LongRest(ctx context.Context, id domain.EntityID, config map[string]any) error
}

type CombatTracker interface {
	ActiveCombat(ctx context.Context) (domain.Combat, error)
	CreateCombat(ctx context.Context) (domain.Combat, error)
	CreateCombatant(ctx context.Context, combatID string, entityID domain.EntityID) (domain.Combatant, error)
	SetInitiative(ctx context.Context, combatID string, combatantID string, value int) error
}

// ChangeFeed delivers entity and item change notifications in the order the
// engine applied them. The channel closes when ctx is done.
type ChangeFeed interface {
	Subscribe(ctx context.Context) <-chan domain.ChangeEvent
}

// DiceAnimator is an optional extension that animates rolls.
type DiceAnimator interface {
	Active() bool
	// NextCompletion registers a one-shot listener for the next finished
	// animation; release drops the listener.
	NextCompletion() (completions <-chan domain.AnimationCompletion, release func())
}

type SessionEngine interface {
	EntityStore
	Directory
	RuleEngine
	CombatTracker
	ChangeFeed
}

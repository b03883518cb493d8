package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/bnema/galho-seco-gateway/internal/settle"
)

const DefaultSettleTimeout = 5 * time.Second

type RollTestRequest struct {
	Entity    domain.EntityID
	Kind      domain.TestKind
	Subject   string
	Advantage domain.Advantage
}

type WeaponRollRequest struct {
	Entity domain.EntityID
	Item   domain.ItemID
	Attack bool
	Config map[string]any
}

type SpellMode int

const (
	SpellCast SpellMode = iota
	SpellAttack
	SpellDamage
)

type SpellRequest struct {
	Ref       domain.ActivityRef
	Mode      SpellMode
	Config    map[string]any
	AtkConfig map[string]any
}

type ExecutorOptions struct {
	// Animator is optional. Without it, or while it is inactive, rolls
	// return without waiting.
	Animator      ports.DiceAnimator
	SettleTimeout time.Duration
	Logger        *slog.Logger
}

// Executor turns routed frames into session engine calls. A missing entity
// or item aborts the operation with no result and no error; other engine
// failures are returned to the dispatcher, which logs them.
type Executor struct {
	engine        ports.SessionEngine
	accounts      ports.LinkedAccountSource
	animator      ports.DiceAnimator
	settleTimeout time.Duration
	logger        *slog.Logger
}

func NewExecutor(engine ports.SessionEngine, accounts ports.LinkedAccountSource, opts ExecutorOptions) *Executor {
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = DefaultSettleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Executor{
		engine:        engine,
		accounts:      accounts,
		animator:      opts.Animator,
		settleTimeout: opts.SettleTimeout,
		logger:        opts.Logger,
	}
}

func (x *Executor) RollTest(ctx context.Context, req RollTestRequest) (*domain.Roll, error) {
	if _, ok, err := x.entity(ctx, req.Entity); !ok {
		return nil, err
	}

	opts := domain.RollOptions{Advantage: req.Advantage}
	var roll func() ([]domain.Roll, error)
	switch req.Kind {
	case domain.TestAbility:
		roll = func() ([]domain.Roll, error) { return x.engine.RollAbilityCheck(ctx, req.Entity, req.Subject, opts) }
	case domain.TestSave:
		roll = func() ([]domain.Roll, error) { return x.engine.RollSavingThrow(ctx, req.Entity, req.Subject, opts) }
	case domain.TestSkill:
		roll = func() ([]domain.Roll, error) { return x.engine.RollSkill(ctx, req.Entity, req.Subject, opts) }
	case domain.TestDeathSave:
		roll = func() ([]domain.Roll, error) { return x.engine.RollDeathSave(ctx, req.Entity, opts) }
	default:
		x.logger.Warn("unknown test type", "entity", req.Entity, "testType", req.Kind)
		return nil, nil
	}

	rolls, err := x.settled(ctx, roll)
	if err != nil {
		return nil, fmt.Errorf("roll %s test: %w", req.Kind, err)
	}

	return firstRoll(rolls), nil
}

// RollInitiative makes sure a combat and a combatant for the entity exist,
// then rolls and records initiative.
func (x *Executor) RollInitiative(ctx context.Context, id domain.EntityID, advantage domain.Advantage) (*domain.Roll, error) {
	if _, ok, err := x.entity(ctx, id); !ok {
		return nil, err
	}

	combat, err := x.engine.ActiveCombat(ctx)
	if errors.Is(err, domain.ErrNoCombat) {
		combat, err = x.engine.CreateCombat(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("prepare combat: %w", err)
	}

	combatant, ok := combat.CombatantFor(id)
	if !ok {
		combatant, err = x.engine.CreateCombatant(ctx, combat.ID, id)
		if err != nil {
			return nil, fmt.Errorf("create combatant: %w", err)
		}
	}

	formula, err := x.engine.InitiativeFormula(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("initiative formula: %w", err)
	}
	formula = formula.WithAdvantage(advantage)

	rolls, err := x.settled(ctx, func() ([]domain.Roll, error) {
		roll, err := x.engine.EvaluateRoll(ctx, formula)
		if err != nil {
			return nil, fmt.Errorf("evaluate initiative: %w", err)
		}
		if err := x.engine.PostChatRecord(ctx, domain.ChatRecord{
			Speaker: id,
			Flavor:  "Initiative",
			Roll:    roll,
			Flags:   map[string]any{domain.FlagInitiativeRoll: true},
		}); err != nil {
			return nil, fmt.Errorf("post initiative roll: %w", err)
		}
		if err := x.engine.SetInitiative(ctx, combat.ID, combatant.ID, roll.Total); err != nil {
			return nil, fmt.Errorf("set initiative: %w", err)
		}
		return []domain.Roll{roll}, nil
	})
	if err != nil {
		return nil, err
	}

	return firstRoll(rolls), nil
}

func (x *Executor) RollHitDie(ctx context.Context, id domain.EntityID, config map[string]any) (*domain.Roll, error) {
	if _, ok, err := x.entity(ctx, id); !ok {
		return nil, err
	}

	rolls, err := x.settled(ctx, func() ([]domain.Roll, error) {
		return x.engine.RollHitDie(ctx, id, config)
	})
	if err != nil {
		return nil, fmt.Errorf("roll hit die: %w", err)
	}

	return firstRoll(rolls), nil
}

// RollWeapon rolls with the item's first attack activity.
func (x *Executor) RollWeapon(ctx context.Context, req WeaponRollRequest) (*domain.Roll, error) {
	entity, ok, err := x.entity(ctx, req.Entity)
	if !ok {
		return nil, err
	}
	item, ok := entity.Item(req.Item)
	if !ok {
		x.logger.Warn("item not found, roll skipped", "entity", req.Entity, "item", req.Item)
		return nil, nil
	}
	activity, ok := item.FirstActivityOfType(domain.ActivityAttack)
	if !ok {
		x.logger.Warn("item has no attack activity, roll skipped", "entity", req.Entity, "item", req.Item)
		return nil, nil
	}

	ref := domain.ActivityRef{Entity: req.Entity, Item: req.Item, Activity: activity.ID}
	rolls, err := x.settled(ctx, func() ([]domain.Roll, error) {
		if req.Attack {
			return x.engine.RollAttack(ctx, ref, req.Config)
		}
		return x.engine.RollDamage(ctx, ref, req.Config)
	})
	if err != nil {
		return nil, fmt.Errorf("roll weapon: %w", err)
	}

	return firstRoll(rolls), nil
}

// CastSpell reports ran=false when the entity, item or activity is missing.
// A cast that ran but produced no roll returns a nil roll with ran=true.
func (x *Executor) CastSpell(ctx context.Context, req SpellRequest) (roll *domain.Roll, ran bool, err error) {
	entity, ok, err := x.entity(ctx, req.Ref.Entity)
	if !ok {
		return nil, false, err
	}
	item, ok := entity.Item(req.Ref.Item)
	if !ok {
		x.logger.Warn("item not found, cast skipped", "entity", req.Ref.Entity, "item", req.Ref.Item)
		return nil, false, nil
	}
	if _, ok := item.Activity(req.Ref.Activity); !ok {
		x.logger.Warn("activity not found, cast skipped", "entity", req.Ref.Entity, "item", req.Ref.Item, "activity", req.Ref.Activity)
		return nil, false, nil
	}

	rolls, err := x.settled(ctx, func() ([]domain.Roll, error) {
		if req.Mode == SpellDamage {
			return x.engine.RollDamage(ctx, req.Ref, req.Config)
		}
		if err := x.engine.UseActivity(ctx, req.Ref, req.Config); err != nil {
			return nil, fmt.Errorf("use activity: %w", err)
		}
		if req.Mode == SpellAttack {
			atkConfig := req.AtkConfig
			if atkConfig == nil {
				atkConfig = map[string]any{}
			}
			return x.engine.RollAttack(ctx, req.Ref, atkConfig)
		}
		return x.engine.RollDamage(ctx, req.Ref, map[string]any{"scaling": req.Config["scaling"]})
	})
	if err != nil {
		return nil, true, fmt.Errorf("cast spell: %w", err)
	}

	return firstRoll(rolls), true, nil
}

// ApplyCharacterPatch applies an inbound character patch when the target
// exists and is synced.
func (x *Executor) ApplyCharacterPatch(ctx context.Context, message map[string]any) error {
	patch := domain.PrepareEntityPatch(message)
	id := domain.PatchID(patch)
	if id == "" {
		x.logger.Warn("character patch without id, ignoring")
		return nil
	}

	entity, ok, err := x.entity(ctx, id)
	if !ok {
		return err
	}
	synced, err := x.synced(ctx, entity)
	if err != nil || !synced {
		return err
	}

	if err := x.engine.UpdateEntity(ctx, id, patch); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	x.logger.Info("character updated from remote", "entity", id)

	return nil
}

// ApplyItemPatch replaces an item's system block when the entity and item
// exist and the entity is synced.
func (x *Executor) ApplyItemPatch(ctx context.Context, id domain.EntityID, patch *ItemPatch) error {
	if patch == nil {
		x.logger.Warn("item patch without item, ignoring", "entity", id)
		return nil
	}

	entity, ok, err := x.entity(ctx, id)
	if !ok {
		return err
	}
	itemID := domain.ItemID(patch.ID)
	if _, ok := entity.Item(itemID); !ok {
		x.logger.Warn("item not found, patch skipped", "entity", id, "item", itemID)
		return nil
	}
	synced, err := x.synced(ctx, entity)
	if err != nil || !synced {
		return err
	}

	if err := x.engine.UpdateItemSystem(ctx, id, itemID, patch.System); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	x.logger.Info("item updated from remote", "entity", id, "item", itemID)

	return nil
}

func (x *Executor) ApplyDamage(ctx context.Context, id domain.EntityID, amount float64) error {
	if _, ok, err := x.entity(ctx, id); !ok {
		return err
	}

	if err := x.engine.ApplyDamage(ctx, id, amount); err != nil {
		return fmt.Errorf("apply damage: %w", err)
	}

	return nil
}

// ApplyHealing heals as negative damage and grants temporary hit points.
// A zero value skips its step.
func (x *Executor) ApplyHealing(ctx context.Context, id domain.EntityID, heal, tempHP float64) error {
	if _, ok, err := x.entity(ctx, id); !ok {
		return err
	}

	if heal != 0 {
		if err := x.engine.ApplyDamage(ctx, id, -heal); err != nil {
			return fmt.Errorf("apply healing: %w", err)
		}
	}
	if tempHP != 0 {
		if err := x.engine.ApplyTempHP(ctx, id, tempHP); err != nil {
			return fmt.Errorf("apply temp hp: %w", err)
		}
	}

	return nil
}

func (x *Executor) Rest(ctx context.Context, id domain.EntityID, long bool, config map[string]any) error {
	if _, ok, err := x.entity(ctx, id); !ok {
		return err
	}

	if long {
		if err := x.engine.LongRest(ctx, id, config); err != nil {
			return fmt.Errorf("long rest: %w", err)
		}
		return nil
	}
	if err := x.engine.ShortRest(ctx, id, config); err != nil {
		return fmt.Errorf("short rest: %w", err)
	}

	return nil
}

// entity looks up the target. ok=false with a nil error means it does not
// exist and the caller should stop quietly.
func (x *Executor) entity(ctx context.Context, id domain.EntityID) (domain.Entity, bool, error) {
	entity, err := x.engine.GetEntity(ctx, id)
	if err == nil {
		return entity, true, nil
	}
	if errors.Is(err, domain.ErrEntityNotFound) {
		x.logger.Warn("entity not found, operation skipped", "entity", id)
		return domain.Entity{}, false, nil
	}

	return domain.Entity{}, false, fmt.Errorf("get entity: %w", err)
}

func (x *Executor) synced(ctx context.Context, entity domain.Entity) (bool, error) {
	accounts, err := x.accounts.LinkedAccounts(ctx)
	if err != nil {
		return false, fmt.Errorf("list linked accounts: %w", err)
	}
	if !IsSynced(entity, accounts) {
		x.logger.Debug("entity not synced, remote patch ignored", "entity", entity.ID)
		return false, nil
	}

	return true, nil
}

// settled runs roll and, when it produced something and the animation
// extension is active, waits for the next animation to finish or for the
// settle timeout. The listener is registered before rolling so a fast
// animation cannot be missed.
func (x *Executor) settled(ctx context.Context, roll func() ([]domain.Roll, error)) ([]domain.Roll, error) {
	if x.animator == nil || !x.animator.Active() {
		return roll()
	}

	completions, release := x.animator.NextCompletion()
	defer release()

	rolls, err := roll()
	if err != nil || len(rolls) == 0 {
		return rolls, err
	}

	if _, ok := settle.First(ctx, completions, x.settleTimeout); !ok {
		x.logger.Debug("dice animation did not finish in time", "timeout", x.settleTimeout)
	}

	return rolls, nil
}

func firstRoll(rolls []domain.Roll) *domain.Roll {
	if len(rolls) == 0 {
		return nil
	}

	roll := rolls[0]
	return &roll
}

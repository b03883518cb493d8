package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

var ErrNoSpellSlots = errors.New("no spell slots left")

const (
	defaultProficiency = 2
	defaultHitDie      = "d8"
)

var skillAbilities = map[string]string{
	"acr": "dex", "ani": "wis", "arc": "int", "ath": "str", "dec": "cha", "his": "int",
	"ins": "wis", "itm": "cha", "inv": "int", "med": "wis", "nat": "int", "prc": "wis",
	"prf": "cha", "per": "cha", "rel": "int", "slt": "dex", "ste": "dex", "sur": "wis",
}

func (e *Engine) RollAbilityCheck(ctx context.Context, id domain.EntityID, ability string, opts domain.RollOptions) ([]domain.Roll, error) {
	return e.rollD20(ctx, id, opts, func(system map[string]any) (int, string) {
		return abilityMod(system, ability), "Ability Check (" + ability + ")"
	})
}

func (e *Engine) RollSavingThrow(ctx context.Context, id domain.EntityID, ability string, opts domain.RollOptions) ([]domain.Roll, error) {
	return e.rollD20(ctx, id, opts, func(system map[string]any) (int, string) {
		bonus := abilityMod(system, ability)
		if proficient, _ := domain.NumberAt(system, "abilities", ability, "proficient"); proficient >= 1 {
			bonus += proficiency(system)
		}
		return bonus, "Saving Throw (" + ability + ")"
	})
}

func (e *Engine) RollSkill(ctx context.Context, id domain.EntityID, skill string, opts domain.RollOptions) ([]domain.Roll, error) {
	return e.rollD20(ctx, id, opts, func(system map[string]any) (int, string) {
		ability := skillAbilities[skill]
		if skills, ok := system["skills"].(map[string]any); ok {
			if entry, ok := skills[skill].(map[string]any); ok {
				if configured, ok := entry["ability"].(string); ok && configured != "" {
					ability = configured
				}
			}
		}
		multiplier, _ := domain.NumberAt(system, "skills", skill, "value")
		bonus := abilityMod(system, ability) + int(math.Floor(multiplier*float64(proficiency(system))))
		return bonus, "Skill Check (" + skill + ")"
	})
}

// RollDeathSave tracks successes and failures under attributes.death. A
// natural 20 brings the character back with 1 HP.
func (e *Engine) RollDeathSave(ctx context.Context, id domain.EntityID, opts domain.RollOptions) ([]domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	formula := domain.RollFormula{Formula: "1d20"}.WithAdvantage(opts.Advantage)
	roll, err := e.roller.Evaluate(formula.Formula, nil)
	if err != nil {
		return nil, err
	}
	roll.Flavor = "Death Saving Throw"

	success, _ := domain.NumberAt(entity.System, "attributes", "death", "success")
	failure, _ := domain.NumberAt(entity.System, "attributes", "death", "failure")
	switch {
	case roll.Total >= 20:
		success, failure = 0, 0
		setNumber(entity.System, 1, "attributes", "hp", "value")
	case roll.Total >= 10:
		success++
	case roll.Total <= 1:
		failure += 2
	default:
		failure++
	}
	setNumber(entity.System, math.Min(success, 3), "attributes", "death", "success")
	setNumber(entity.System, math.Min(failure, 3), "attributes", "death", "failure")

	e.recordRollLocked(id, roll, nil)
	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return []domain.Roll{roll}, nil
}

// RollHitDie spends one hit die. config may name the die with
// "denomination"; an exhausted pool produces no roll.
func (e *Engine) RollHitDie(ctx context.Context, id domain.EntityID, config map[string]any) ([]domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	roll, ok, err := e.spendHitDieLocked(&entity, stringValue(config, "denomination"))
	if err != nil || !ok {
		return []domain.Roll{}, err
	}

	e.recordRollLocked(id, roll, nil)
	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return []domain.Roll{roll}, nil
}

func (e *Engine) spendHitDieLocked(entity *domain.Entity, denomination string) (domain.Roll, bool, error) {
	remaining, tracked := domain.NumberAt(entity.System, "attributes", "hd", "value")
	if tracked && remaining <= 0 {
		return domain.Roll{}, false, nil
	}

	if denomination == "" {
		denomination = stringAt(entity.System, "attributes", "hd", "denomination")
	}
	if denomination == "" {
		denomination = defaultHitDie
	}

	formula := "1" + denomination + fmtBonus(abilityMod(entity.System, "con"))
	roll, err := e.roller.Evaluate(formula, nil)
	if err != nil {
		return domain.Roll{}, false, err
	}
	roll.Flavor = "Hit Die"

	hp, _ := domain.NumberAt(entity.System, "attributes", "hp", "value")
	hpMax, hasMax := domain.NumberAt(entity.System, "attributes", "hp", "max")
	hp += math.Max(0, float64(roll.Total))
	if hasMax {
		hp = math.Min(hp, hpMax)
	}
	setNumber(entity.System, hp, "attributes", "hp", "value")
	if tracked {
		setNumber(entity.System, remaining-1, "attributes", "hd", "value")
	}

	return roll, true, nil
}

func (e *Engine) InitiativeFormula(ctx context.Context, id domain.EntityID) (domain.RollFormula, error) {
	if err := ctx.Err(); err != nil {
		return domain.RollFormula{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return domain.RollFormula{}, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	bonus := abilityMod(entity.System, "dex")
	if extra, ok := domain.NumberAt(entity.System, "attributes", "init", "bonus"); ok {
		bonus += int(extra)
	}

	return domain.RollFormula{Formula: "1d20" + fmtBonus(bonus), Data: domain.CloneMap(entity.System)}, nil
}

func (e *Engine) EvaluateRoll(ctx context.Context, formula domain.RollFormula) (domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return domain.Roll{}, err
	}

	return e.roller.Evaluate(formula.Formula, formula.Data)
}

func (e *Engine) PostChatRecord(ctx context.Context, record domain.ChatRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.appendChatLocked(record)
	return nil
}

// UseActivity posts the activity card. Leveled spells consume a slot of
// their level unless config sets "consume" to false; config "slot" names
// another slot key such as "spell3".
func (e *Engine) UseActivity(ctx context.Context, ref domain.ActivityRef, config map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, item, activity, err := e.resolveLocked(ref)
	if err != nil {
		return err
	}

	if item.Type == "spell" && consumes(config) {
		level, _ := domain.NumberAt(item.System, "level")
		slot := stringValue(config, "slot")
		if slot == "" && level > 0 {
			slot = "spell" + strconv.Itoa(int(level))
		}
		if slot != "" {
			left, _ := domain.NumberAt(entity.System, "spells", slot, "value")
			if left <= 0 {
				return fmt.Errorf("use %s: %w", activity.Name, ErrNoSpellSlots)
			}
			setNumber(entity.System, left-1, "spells", slot, "value")
		}
	}

	e.appendChatLocked(domain.ChatRecord{Speaker: ref.Entity, Flavor: item.Name + ": " + activity.Name})
	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return nil
}

func (e *Engine) RollAttack(ctx context.Context, ref domain.ActivityRef, config map[string]any) ([]domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, item, activity, err := e.resolveLocked(ref)
	if err != nil {
		return nil, err
	}

	formula := domain.RollFormula{Formula: "1d20" + fmtBonus(activity.AttackBonus)}.WithAdvantage(advantageFromConfig(config))
	roll, err := e.roller.Evaluate(formula.Formula, nil)
	if err != nil {
		return nil, err
	}
	roll.Flavor = item.Name + " - Attack Roll"

	e.recordRollLocked(ref.Entity, roll, nil)
	return []domain.Roll{roll}, nil
}

// RollDamage rolls the activity's damage formula. A numeric "scaling" in
// config adds that many dice to the first dice term.
func (e *Engine) RollDamage(ctx context.Context, ref domain.ActivityRef, config map[string]any) ([]domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, item, activity, err := e.resolveLocked(ref)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(activity.Damage) == "" {
		return []domain.Roll{}, nil
	}

	scaling, _ := domain.NumberAt(config, "scaling")
	roll, err := e.roller.Evaluate(ScaleFormula(activity.Damage, int(scaling)), entity.System)
	if err != nil {
		return nil, err
	}
	roll.Flavor = item.Name + " - Damage Roll"

	e.recordRollLocked(ref.Entity, roll, nil)
	return []domain.Roll{roll}, nil
}

// ApplyDamage subtracts amount from temporary HP first, then from HP.
// Negative amounts heal up to the maximum.
func (e *Engine) ApplyDamage(ctx context.Context, id domain.EntityID, amount float64) error {
	return e.mutate(ctx, id, func(system map[string]any) {
		hp, _ := domain.NumberAt(system, "attributes", "hp", "value")
		hpMax, hasMax := domain.NumberAt(system, "attributes", "hp", "max")

		if amount < 0 {
			hp -= amount
			if hasMax {
				hp = math.Min(hp, hpMax)
			}
			setNumber(system, hp, "attributes", "hp", "value")
			return
		}

		temp, _ := domain.NumberAt(system, "attributes", "hp", "temp")
		absorbed := math.Min(temp, amount)
		setNumber(system, temp-absorbed, "attributes", "hp", "temp")
		setNumber(system, math.Max(0, hp-(amount-absorbed)), "attributes", "hp", "value")
	})
}

// ApplyTempHP keeps the larger of the current and the new temporary HP.
func (e *Engine) ApplyTempHP(ctx context.Context, id domain.EntityID, amount float64) error {
	return e.mutate(ctx, id, func(system map[string]any) {
		temp, _ := domain.NumberAt(system, "attributes", "hp", "temp")
		setNumber(system, math.Max(temp, amount), "attributes", "hp", "temp")
	})
}

// ShortRest spends hit dice while HP is below maximum when config sets
// "autoHD".
func (e *Engine) ShortRest(ctx context.Context, id domain.EntityID, config map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	if auto, _ := config["autoHD"].(bool); auto {
		for {
			hp, _ := domain.NumberAt(entity.System, "attributes", "hp", "value")
			hpMax, ok := domain.NumberAt(entity.System, "attributes", "hp", "max")
			if !ok || hp >= hpMax {
				break
			}
			roll, spent, err := e.spendHitDieLocked(&entity, "")
			if err != nil {
				return err
			}
			if !spent {
				break
			}
			e.recordRollLocked(id, roll, nil)
		}
	}

	e.appendChatLocked(domain.ChatRecord{Speaker: id, Flavor: "Short Rest"})
	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return nil
}

// LongRest restores HP, half the hit dice and every spell slot, and clears
// temporary HP and death saves.
func (e *Engine) LongRest(ctx context.Context, id domain.EntityID, config map[string]any) error {
	if err := e.mutate(ctx, id, func(system map[string]any) {
		if hpMax, ok := domain.NumberAt(system, "attributes", "hp", "max"); ok {
			setNumber(system, hpMax, "attributes", "hp", "value")
		}
		setNumber(system, 0, "attributes", "hp", "temp")
		setNumber(system, 0, "attributes", "death", "success")
		setNumber(system, 0, "attributes", "death", "failure")

		if hdMax, ok := domain.NumberAt(system, "attributes", "hd", "max"); ok {
			hd, _ := domain.NumberAt(system, "attributes", "hd", "value")
			setNumber(system, math.Min(hdMax, hd+math.Max(1, math.Floor(hdMax/2))), "attributes", "hd", "value")
		}

		if spells, ok := system["spells"].(map[string]any); ok {
			for _, raw := range spells {
				slot, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if slotMax, ok := domain.NumberAt(slot, "max"); ok {
					slot["value"] = slotMax
				}
			}
		}
	}); err != nil {
		return err
	}

	return e.PostChatRecord(ctx, domain.ChatRecord{Speaker: id, Flavor: "Long Rest"})
}

func (e *Engine) rollD20(ctx context.Context, id domain.EntityID, opts domain.RollOptions, bonusFor func(system map[string]any) (int, string)) ([]domain.Roll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}

	bonus, flavor := bonusFor(entity.System)
	formula := domain.RollFormula{Formula: "1d20" + fmtBonus(bonus)}.WithAdvantage(opts.Advantage)
	roll, err := e.roller.Evaluate(formula.Formula, nil)
	if err != nil {
		return nil, err
	}
	roll.Flavor = flavor

	e.recordRollLocked(id, roll, nil)
	return []domain.Roll{roll}, nil
}

func (e *Engine) mutate(ctx context.Context, id domain.EntityID, apply func(system map[string]any)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, domain.ErrEntityNotFound)
	}
	if entity.System == nil {
		entity.System = map[string]any{}
	}
	apply(entity.System)

	e.storeLocked(entity, domain.ChangeEntityUpdated, "")
	return nil
}

func (e *Engine) resolveLocked(ref domain.ActivityRef) (domain.Entity, domain.Item, domain.Activity, error) {
	entity, ok := e.entities[ref.Entity]
	if !ok {
		return domain.Entity{}, domain.Item{}, domain.Activity{}, fmt.Errorf("entity %s: %w", ref.Entity, domain.ErrEntityNotFound)
	}
	item, ok := entity.Item(ref.Item)
	if !ok {
		return domain.Entity{}, domain.Item{}, domain.Activity{}, fmt.Errorf("item %s on %s: %w", ref.Item, ref.Entity, domain.ErrItemNotFound)
	}
	activity, ok := item.Activity(ref.Activity)
	if !ok {
		return domain.Entity{}, domain.Item{}, domain.Activity{}, fmt.Errorf("activity %s on %s: %w", ref.Activity, ref.Item, domain.ErrActivityNotFound)
	}

	return entity, item, activity, nil
}

func (e *Engine) recordRollLocked(speaker domain.EntityID, roll domain.Roll, flags map[string]any) {
	e.appendChatLocked(domain.ChatRecord{Speaker: speaker, Flavor: roll.Flavor, Roll: roll, Flags: flags})
}

func (e *Engine) appendChatLocked(record domain.ChatRecord) {
	e.chat = append(e.chat, record)
	if len(record.Roll.Terms) > 0 {
		e.animator.animate(e.newIDLocked("message"))
	}
}

func abilityMod(system map[string]any, ability string) int {
	if mod, ok := domain.NumberAt(system, "abilities", ability, "mod"); ok {
		return int(mod)
	}
	if value, ok := domain.NumberAt(system, "abilities", ability, "value"); ok {
		return int(math.Floor((value - 10) / 2))
	}
	return 0
}

func proficiency(system map[string]any) int {
	if prof, ok := domain.NumberAt(system, "attributes", "prof"); ok {
		return int(prof)
	}
	return defaultProficiency
}

func advantageFromConfig(config map[string]any) domain.Advantage {
	if adv, _ := config["advantage"].(bool); adv {
		return domain.AdvantageAdvantage
	}
	if dis, _ := config["disadvantage"].(bool); dis {
		return domain.AdvantageDisadvantage
	}
	return domain.AdvantageNormal
}

func consumes(config map[string]any) bool {
	consume, ok := config["consume"].(bool)
	return !ok || consume
}

func fmtBonus(n int) string {
	switch {
	case n > 0:
		return " + " + strconv.Itoa(n)
	case n < 0:
		return " - " + strconv.Itoa(-n)
	default:
		return ""
	}
}

func stringValue(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringAt(m map[string]any, path ...string) string {
	current := m
	for i, key := range path {
		if i == len(path)-1 {
			return stringValue(current, key)
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}

// setNumber writes value at path, creating intermediate maps.
func setNumber(m map[string]any, value float64, path ...string) {
	current := m
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

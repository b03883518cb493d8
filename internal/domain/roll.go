package domain

import (
	"strings"
)

type Advantage int

const (
	AdvantageNormal Advantage = iota
	AdvantageAdvantage
	AdvantageDisadvantage
)

// ParseAdvantage maps the wire value to an advantage state. Unrecognized
// values fall back to a normal roll.
func ParseAdvantage(raw string) Advantage {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vantagem", "advantage":
		return AdvantageAdvantage
	case "desvantagem", "disadvantage":
		return AdvantageDisadvantage
	default:
		return AdvantageNormal
	}
}

func (a Advantage) String() string {
	switch a {
	case AdvantageAdvantage:
		return "advantage"
	case AdvantageDisadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

type TestKind string

const (
	TestAbility   TestKind = "atributo"
	TestSave      TestKind = "savingThrow"
	TestSkill     TestKind = "habilidade"
	TestDeathSave TestKind = "deathSave"
)

type RollOptions struct {
	Advantage Advantage
	Config    map[string]any
}

type DieResult struct {
	Result int
	Active bool
}

type DieTerm struct {
	Number   int
	Faces    int
	Modifier string
	Results  []DieResult
}

type Roll struct {
	Formula string
	Total   int
	Terms   []DieTerm
	Flavor  string
}

type RollFormula struct {
	Formula string
	Data    map[string]any
}

// WithAdvantage rewrites the first single d20 of the formula into a keep-high
// or keep-low pair.
func (f RollFormula) WithAdvantage(a Advantage) RollFormula {
	switch a {
	case AdvantageAdvantage:
		f.Formula = strings.Replace(f.Formula, "1d20", "2d20kh", 1)
	case AdvantageDisadvantage:
		f.Formula = strings.Replace(f.Formula, "1d20", "2d20kl", 1)
	}

	return f
}

type ChatRecord struct {
	Speaker EntityID
	Flavor  string
	Roll    Roll
	Flags   map[string]any
}

const FlagInitiativeRoll = "core.initiativeRoll"

type AnimationCompletion struct {
	MessageID string
}

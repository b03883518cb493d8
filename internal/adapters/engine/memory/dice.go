package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

var (
	ErrEmptyFormula = errors.New("roll formula is empty")
	ErrInvalidTerm  = errors.New("invalid roll term")
)

var (
	diceTermPattern     = regexp.MustCompile(`^(\d*)d(\d+)(kh|kl)?(\d*)$`)
	variableTermPattern = regexp.MustCompile(`^@([A-Za-z0-9_.]+)$`)
	firstDicePattern    = regexp.MustCompile(`(\d*)d(\d+)`)
)

// Roller evaluates dice formulas such as "2d20kh + @abilities.dex.mod + 1".
// Supported terms are NdS with an optional keep-high or keep-low suffix,
// integer constants and @path references into the roll data.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

func (r *Roller) Evaluate(formula string, data map[string]any) (domain.Roll, error) {
	compact := strings.ReplaceAll(formula, " ", "")
	if compact == "" {
		return domain.Roll{}, ErrEmptyFormula
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roll := domain.Roll{}
	parts := make([]string, 0, 4)
	sign := 1
	start := 0
	for i := 0; i <= len(compact); i++ {
		if i < len(compact) && compact[i] != '+' && compact[i] != '-' {
			continue
		}

		token := compact[start:i]
		if token == "" {
			if i == 0 && i < len(compact) {
				sign = signOf(compact[i])
				start = i + 1
				continue
			}
			return domain.Roll{}, fmt.Errorf("%w: dangling operator in %q", ErrInvalidTerm, formula)
		}

		value, rendered, term, err := r.evaluateTerm(token, data)
		if err != nil {
			return domain.Roll{}, err
		}
		if term != nil {
			roll.Terms = append(roll.Terms, *term)
		}
		roll.Total += sign * value
		parts = appendPart(parts, sign, rendered)

		if i < len(compact) {
			sign = signOf(compact[i])
		}
		start = i + 1
	}

	roll.Formula = strings.Join(parts, " ")
	return roll, nil
}

func (r *Roller) evaluateTerm(token string, data map[string]any) (int, string, *domain.DieTerm, error) {
	if n, err := strconv.Atoi(token); err == nil {
		return n, token, nil, nil
	}

	if match := variableTermPattern.FindStringSubmatch(token); match != nil {
		value, _ := domain.NumberAt(data, strings.Split(match[1], ".")...)
		n := int(value)
		return n, strconv.Itoa(n), nil, nil
	}

	match := diceTermPattern.FindStringSubmatch(token)
	if match == nil {
		return 0, "", nil, fmt.Errorf("%w: %q", ErrInvalidTerm, token)
	}

	number := 1
	if match[1] != "" {
		number, _ = strconv.Atoi(match[1])
	}
	faces, _ := strconv.Atoi(match[2])
	if number <= 0 || faces <= 0 {
		return 0, "", nil, fmt.Errorf("%w: %q", ErrInvalidTerm, token)
	}

	term := domain.DieTerm{Number: number, Faces: faces, Results: make([]domain.DieResult, number)}
	for i := range term.Results {
		term.Results[i] = domain.DieResult{Result: r.rng.Intn(faces) + 1, Active: true}
	}

	if match[3] != "" {
		keep := 1
		if match[4] != "" {
			keep, _ = strconv.Atoi(match[4])
		}
		term.Modifier = match[3] + match[4]
		applyKeep(term.Results, match[3] == "kh", keep)
	}

	total := 0
	for _, result := range term.Results {
		if result.Active {
			total += result.Result
		}
	}

	return total, token, &term, nil
}

// applyKeep deactivates every die outside the kept highest or lowest set.
func applyKeep(results []domain.DieResult, high bool, keep int) {
	if keep >= len(results) {
		return
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if high {
			return results[order[a]].Result > results[order[b]].Result
		}
		return results[order[a]].Result < results[order[b]].Result
	})

	for rank, idx := range order {
		results[idx].Active = rank < keep
	}
}

// ScaleFormula adds extra dice to the first dice term, the way upcast spells
// and cantrips grow their damage.
func ScaleFormula(formula string, extra int) string {
	if extra <= 0 {
		return formula
	}

	replaced := false
	return firstDicePattern.ReplaceAllStringFunc(formula, func(term string) string {
		if replaced {
			return term
		}
		replaced = true
		match := firstDicePattern.FindStringSubmatch(term)
		number := 1
		if match[1] != "" {
			number, _ = strconv.Atoi(match[1])
		}
		return strconv.Itoa(number+extra) + "d" + match[2]
	})
}

func signOf(op byte) int {
	if op == '-' {
		return -1
	}
	return 1
}

func appendPart(parts []string, sign int, rendered string) []string {
	switch {
	case len(parts) == 0 && sign < 0:
		return append(parts, "-"+rendered)
	case len(parts) == 0:
		return append(parts, rendered)
	case sign < 0:
		return append(parts, "-", rendered)
	default:
		return append(parts, "+", rendered)
	}
}

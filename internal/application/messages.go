package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

// Frame is the decoded form of any inbound socket message. Only the fields
// relevant to Type are set.
type Frame struct {
	RequestID   string          `json:"requestId,omitempty"`
	Type        string          `json:"type"`
	CharID      string          `json:"charId,omitempty"`
	ItemID      string          `json:"itemId,omitempty"`
	ActivityID  string          `json:"activityId,omitempty"`
	TestType    string          `json:"testType,omitempty"`
	RollSubject string          `json:"rollSubject,omitempty"`
	Advantage   string          `json:"advantage,omitempty"`
	Damage      FlexNumber      `json:"damage,omitempty"`
	HealData    *HealData       `json:"healData,omitempty"`
	Config      map[string]any  `json:"config,omitempty"`
	AtkConfig   map[string]any  `json:"atkConfig,omitempty"`
	Message     map[string]any  `json:"message,omitempty"`
	Item        *ItemPatch      `json:"item,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type HealData struct {
	Heal   FlexNumber `json:"heal"`
	TempHP FlexNumber `json:"tempHp"`
}

type ItemPatch struct {
	ID     string         `json:"_id"`
	System map[string]any `json:"system"`
}

// FlexNumber accepts a JSON number, a numeric string or null. Anything that
// does not parse decodes to zero.
type FlexNumber float64

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode number string: %w", err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = FlexNumber(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	*n = FlexNumber(value)
	return nil
}

// Reply answers one call frame. Payload is omitted when the operation
// produced nothing.
type Reply struct {
	RequestID string `json:"requestId"`
	Payload   any    `json:"payload,omitempty"`
}

// outboundCall is a gateway-originated request waiting for a reply frame.
type outboundCall struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
}

type rollPayload struct {
	Class     string        `json:"class"`
	Formula   string        `json:"formula"`
	Total     int           `json:"total"`
	Evaluated bool          `json:"evaluated"`
	Terms     []termPayload `json:"terms"`
	Options   rollOptions   `json:"options"`
}

type rollOptions struct {
	Flavor string `json:"flavor,omitempty"`
}

type termPayload struct {
	Class     string          `json:"class"`
	Number    int             `json:"number"`
	Faces     int             `json:"faces"`
	Modifiers []string        `json:"modifiers"`
	Results   []resultPayload `json:"results"`
}

type resultPayload struct {
	Result int  `json:"result"`
	Active bool `json:"active"`
}

func encodeRoll(roll domain.Roll) rollPayload {
	terms := make([]termPayload, 0, len(roll.Terms))
	for _, term := range roll.Terms {
		modifiers := []string{}
		if term.Modifier != "" {
			modifiers = append(modifiers, term.Modifier)
		}
		results := make([]resultPayload, 0, len(term.Results))
		for _, result := range term.Results {
			results = append(results, resultPayload{Result: result.Result, Active: result.Active})
		}
		terms = append(terms, termPayload{
			Class:     "Die",
			Number:    term.Number,
			Faces:     term.Faces,
			Modifiers: modifiers,
			Results:   results,
		})
	}

	return rollPayload{
		Class:     "Roll",
		Formula:   roll.Formula,
		Total:     roll.Total,
		Evaluated: true,
		Terms:     terms,
		Options:   rollOptions{Flavor: roll.Flavor},
	}
}

package push

import "github.com/bnema/galho-seco-gateway/internal/domain"

type upsertBody struct {
	Username   string          `json:"username,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Characters []characterBody `json:"characters"`
}

type deleteBody struct {
	Character string `json:"character"`
}

type characterBody struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Img     string         `json:"img,omitempty"`
	System  map[string]any `json:"system"`
	Items   []itemBody     `json:"items"`
	Effects []effectBody   `json:"effects"`
}

type itemBody struct {
	ID         string         `json:"_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Img        string         `json:"img,omitempty"`
	System     map[string]any `json:"system"`
	Activities []activityBody `json:"activities"`
}

// activityBody carries the ids the remote side sends back in weapon and
// spell commands.
type activityBody struct {
	ID          string `json:"_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	AttackBonus int    `json:"attackBonus"`
	Damage      string `json:"damage,omitempty"`
}

type effectBody struct {
	ID       string             `json:"_id"`
	Name     string             `json:"name"`
	Disabled bool               `json:"disabled"`
	Changes  []effectChangeBody `json:"changes"`
}

type effectChangeBody struct {
	Key   string `json:"key"`
	Mode  int    `json:"mode"`
	Value string `json:"value"`
}

func toCharacterBody(snapshot domain.CharacterSnapshot) characterBody {
	body := characterBody{
		ID:      string(snapshot.ID),
		Name:    snapshot.Name,
		Type:    string(snapshot.Kind),
		Img:     snapshot.Portrait,
		System:  nonNilMap(snapshot.System),
		Items:   make([]itemBody, 0, len(snapshot.Items)),
		Effects: make([]effectBody, 0, len(snapshot.Effects)),
	}

	for _, item := range snapshot.Items {
		activities := make([]activityBody, 0, len(item.Activities))
		for _, activity := range item.Activities {
			activities = append(activities, activityBody{
				ID:          string(activity.ID),
				Type:        string(activity.Type),
				Name:        activity.Name,
				AttackBonus: activity.AttackBonus,
				Damage:      activity.Damage,
			})
		}
		body.Items = append(body.Items, itemBody{
			ID:         string(item.ID),
			Name:       item.Name,
			Type:       item.Type,
			Img:        item.Portrait,
			System:     nonNilMap(item.System),
			Activities: activities,
		})
	}

	for _, effect := range snapshot.Effects {
		changes := make([]effectChangeBody, 0, len(effect.Changes))
		for _, change := range effect.Changes {
			changes = append(changes, effectChangeBody{Key: change.Key, Mode: change.Mode, Value: change.Value})
		}
		body.Effects = append(body.Effects, effectBody{
			ID:       effect.ID,
			Name:     effect.Name,
			Disabled: effect.Disabled,
			Changes:  changes,
		})
	}

	return body
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

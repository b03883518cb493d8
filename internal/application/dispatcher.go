package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/bnema/galho-seco-gateway/internal/settle"
	"github.com/google/uuid"
)

// Inbound frame types.
const (
	TypeRollTest        = "roll-test"
	TypeRollInitiative  = "roll-initiative"
	TypeRollHitDice     = "roll-HitDice"
	TypeRollAttack      = "roll-Attack"
	TypeRollDamage      = "roll-Damage"
	TypeCastSpellAttack = "cast-spell-attack"
	TypeCastSpell       = "cast-spell"
	TypeCastSpellDamage = "cast-spell-damage"

	TypeCharacterUpdated = "characterUpdated"
	TypeItemUpdated      = "itemUpdated"
	TypeApplyDamage      = "apply-damage"
	TypeApplyHealTempHP  = "apply-heal-tempHp"
	TypeShortRest        = "shortRest"
	TypeLongRest         = "longRest"
)

const DefaultCallTimeout = 30 * time.Second

var ErrCallTimeout = errors.New("call timed out")

type frameKind int

const (
	kindCall frameKind = iota + 1
	kindNotify
)

type route struct {
	kind   frameKind
	call   func(ctx context.Context, frame Frame) (any, error)
	notify func(ctx context.Context, frame Frame) error
}

// Dispatcher demultiplexes inbound frames. A frame whose requestId matches a
// pending outbound call completes it; any other frame with a requestId is a
// call answered with exactly one Reply; frames without one are
// notifications.
type Dispatcher struct {
	routes      map[string]route
	logger      *slog.Logger
	callTimeout time.Duration

	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

var _ ports.FrameHandler = (*Dispatcher)(nil)

func NewDispatcher(executor *Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		routes:      buildRoutes(executor),
		logger:      logger,
		callTimeout: DefaultCallTimeout,
		pending:     map[string]chan json.RawMessage{},
	}
}

func buildRoutes(x *Executor) map[string]route {
	weapon := func(attack bool) route {
		return route{kind: kindCall, call: func(ctx context.Context, f Frame) (any, error) {
			return rollResult(x.RollWeapon(ctx, WeaponRollRequest{
				Entity: domain.EntityID(f.CharID),
				Item:   domain.ItemID(f.ItemID),
				Attack: attack,
				Config: f.Config,
			}))
		}}
	}
	spell := func(mode SpellMode) route {
		return route{kind: kindCall, call: func(ctx context.Context, f Frame) (any, error) {
			roll, ran, err := x.CastSpell(ctx, SpellRequest{
				Ref: domain.ActivityRef{
					Entity:   domain.EntityID(f.CharID),
					Item:     domain.ItemID(f.ItemID),
					Activity: domain.ActivityID(f.ActivityID),
				},
				Mode:      mode,
				Config:    f.Config,
				AtkConfig: f.AtkConfig,
			})
			if err != nil || !ran {
				return nil, err
			}
			if roll == nil {
				return struct{}{}, nil
			}
			return encodeRoll(*roll), nil
		}}
	}
	rest := func(long bool) route {
		return route{kind: kindNotify, notify: func(ctx context.Context, f Frame) error {
			return x.Rest(ctx, domain.EntityID(f.CharID), long, f.Config)
		}}
	}

	return map[string]route{
		TypeRollTest: {kind: kindCall, call: func(ctx context.Context, f Frame) (any, error) {
			return rollResult(x.RollTest(ctx, RollTestRequest{
				Entity:    domain.EntityID(f.CharID),
				Kind:      domain.TestKind(f.TestType),
				Subject:   f.RollSubject,
				Advantage: domain.ParseAdvantage(f.Advantage),
			}))
		}},
		TypeRollInitiative: {kind: kindCall, call: func(ctx context.Context, f Frame) (any, error) {
			return rollResult(x.RollInitiative(ctx, domain.EntityID(f.CharID), domain.ParseAdvantage(f.Advantage)))
		}},
		TypeRollHitDice: {kind: kindCall, call: func(ctx context.Context, f Frame) (any, error) {
			return rollResult(x.RollHitDie(ctx, domain.EntityID(f.CharID), f.Config))
		}},
		TypeRollAttack:      weapon(true),
		TypeRollDamage:      weapon(false),
		TypeCastSpellAttack: spell(SpellAttack),
		TypeCastSpell:       spell(SpellCast),
		TypeCastSpellDamage: spell(SpellDamage),

		TypeCharacterUpdated: {kind: kindNotify, notify: func(ctx context.Context, f Frame) error {
			return x.ApplyCharacterPatch(ctx, f.Message)
		}},
		TypeItemUpdated: {kind: kindNotify, notify: func(ctx context.Context, f Frame) error {
			return x.ApplyItemPatch(ctx, domain.EntityID(f.CharID), f.Item)
		}},
		TypeApplyDamage: {kind: kindNotify, notify: func(ctx context.Context, f Frame) error {
			return x.ApplyDamage(ctx, domain.EntityID(f.CharID), float64(f.Damage))
		}},
		TypeApplyHealTempHP: {kind: kindNotify, notify: func(ctx context.Context, f Frame) error {
			var heal, temp float64
			if f.HealData != nil {
				heal, temp = float64(f.HealData.Heal), float64(f.HealData.TempHP)
			}
			return x.ApplyHealing(ctx, domain.EntityID(f.CharID), heal, temp)
		}},
		TypeShortRest: rest(false),
		TypeLongRest:  rest(true),
	}
}

func rollResult(roll *domain.Roll, err error) (any, error) {
	if err != nil || roll == nil {
		return nil, err
	}

	return encodeRoll(*roll), nil
}

func (d *Dispatcher) HandleFrame(ctx context.Context, raw json.RawMessage, sender ports.FrameSender) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		d.logger.Warn("decode frame", "error", err)
		// A call must still be answered even when its body is unreadable.
		var envelope struct {
			RequestID string `json:"requestId"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.RequestID != "" {
			d.reply(ctx, sender, envelope.RequestID, nil)
		}
		return
	}

	if frame.RequestID == "" {
		d.handleNotification(ctx, frame)
		return
	}
	if d.complete(frame) {
		return
	}
	d.handleCall(ctx, frame, sender)
}

func (d *Dispatcher) handleCall(ctx context.Context, frame Frame, sender ports.FrameSender) {
	logger := d.logger.With("type", frame.Type, "requestId", frame.RequestID)

	var payload any
	r, ok := d.routes[frame.Type]
	switch {
	case !ok:
		logger.Debug("ignoring unknown call type")
	case r.kind != kindCall:
		logger.Warn("notification type sent as a call, not executed")
	default:
		payload = d.runCall(ctx, logger, r, frame)
	}

	d.reply(ctx, sender, frame.RequestID, payload)
}

func (d *Dispatcher) runCall(ctx context.Context, logger *slog.Logger, r route, frame Frame) (payload any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("call panicked", "panic", recovered)
			payload = nil
		}
	}()

	result, err := r.call(ctx, frame)
	if err != nil {
		logger.Error("call failed", "entity", frame.CharID, "error", err)
		return nil
	}

	return result
}

func (d *Dispatcher) reply(ctx context.Context, sender ports.FrameSender, requestID string, payload any) {
	if err := sender.Send(ctx, Reply{RequestID: requestID, Payload: payload}); err != nil {
		d.logger.Error("send reply", "requestId", requestID, "error", err)
	}
}

func (d *Dispatcher) handleNotification(ctx context.Context, frame Frame) {
	logger := d.logger.With("type", frame.Type)

	r, ok := d.routes[frame.Type]
	if !ok {
		logger.Debug("ignoring unknown notification type")
		return
	}
	if r.kind != kindNotify {
		logger.Warn("call type sent without requestId, ignoring")
		return
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("notification panicked", "panic", recovered)
		}
	}()
	if err := r.notify(ctx, frame); err != nil {
		logger.Error("notification failed", "entity", frame.CharID, "error", err)
	}
}

// Call sends a gateway-originated request over sender and waits for the
// reply frame carrying the same requestId.
func (d *Dispatcher) Call(ctx context.Context, sender ports.FrameSender, frameType string, payload any) (json.RawMessage, error) {
	requestID := uuid.NewString()
	replies := make(chan json.RawMessage, 1)

	d.mu.Lock()
	d.pending[requestID] = replies
	d.mu.Unlock()
	defer d.forget(requestID)

	if err := sender.Send(ctx, outboundCall{RequestID: requestID, Type: frameType, Payload: payload}); err != nil {
		return nil, fmt.Errorf("send %s call: %w", frameType, err)
	}

	reply, ok := settle.First(ctx, replies, d.callTimeout)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s call %s: %w", frameType, requestID, ErrCallTimeout)
	}

	return reply, nil
}

// Pending reports how many outbound calls are waiting for a reply.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

func (d *Dispatcher) complete(frame Frame) bool {
	d.mu.Lock()
	replies, ok := d.pending[frame.RequestID]
	if ok {
		delete(d.pending, frame.RequestID)
	}
	d.mu.Unlock()

	if ok {
		replies <- frame.Payload
	}
	return ok
}

func (d *Dispatcher) forget(requestID string) {
	d.mu.Lock()
	delete(d.pending, requestID)
	d.mu.Unlock()
}

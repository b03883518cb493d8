package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/adapters/engine/memory"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/bnema/galho-seco-gateway/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingSender, *memory.Engine) {
	t.Helper()

	executor, engine := newTestExecutor(t)
	return NewDispatcher(executor, discardLogger()), newRecordingSender(), engine
}

func TestDispatcherReplyForMissingEntityHasNoPayload(t *testing.T) {
	t.Parallel()

	dispatcher, sender, _ := newTestDispatcher(t)

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"roll-test","requestId":"r1","charId":"e9","testType":"atributo","rollSubject":"for","advantage":"vantagem"}`), sender)

	frames := sender.Frames()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"requestId":"r1"}`, string(frames[0]))
}

func TestDispatcherRollTestReplyCarriesRoll(t *testing.T) {
	t.Parallel()

	dispatcher, sender, _ := newTestDispatcher(t)

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"roll-test","requestId":"r2","charId":"e1","testType":"atributo","rollSubject":"dex","advantage":"vantagem"}`), sender)

	reply := sender.decoded(t, 0)
	assert.Equal(t, "r2", reply["requestId"])
	payload, ok := reply["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Roll", payload["class"])
	assert.Equal(t, "2d20kh + 3", payload["formula"])
	assert.Equal(t, true, payload["evaluated"])

	terms := payload["terms"].([]any)
	require.Len(t, terms, 1)
	die := terms[0].(map[string]any)
	assert.Equal(t, 20.0, die["faces"])
	assert.Equal(t, []any{"kh"}, die["modifiers"])
	assert.Len(t, die["results"], 2)
}

func TestDispatcherEveryCallGetsExactlyOneReply(t *testing.T) {
	t.Parallel()

	frames := []string{
		`{"type":"roll-initiative","requestId":"a","charId":"e1","advantage":"desvantagem"}`,
		`{"type":"roll-HitDice","requestId":"b","charId":"e1","config":{}}`,
		`{"type":"roll-Attack","requestId":"c","charId":"e1","itemId":"i1","config":{}}`,
		`{"type":"roll-Damage","requestId":"d","charId":"e1","itemId":"b1"}`,
		`{"type":"cast-spell-attack","requestId":"e","charId":"e1","itemId":"s1","activityId":"sa","config":{}}`,
		`{"type":"cast-spell-damage","requestId":"f","charId":"e1","itemId":"s1","activityId":"missing"}`,
		`{"type":"future-type","requestId":"g"}`,
		`{"type":"apply-damage","requestId":"h","charId":"e1","damage":5}`,
		`{"type":"roll-test","requestId":"i","charId":"e1","damage":{"bad":true}}`,
	}

	dispatcher, sender, _ := newTestDispatcher(t)
	for _, frame := range frames {
		dispatcher.HandleFrame(context.Background(), json.RawMessage(frame), sender)
	}

	got := sender.Frames()
	require.Len(t, got, len(frames))
	for i, want := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		var reply Reply
		require.NoError(t, json.Unmarshal(got[i], &reply))
		assert.Equal(t, want, reply.RequestID)
	}
}

func TestDispatcherNotificationTypeWithRequestIDIsNotExecuted(t *testing.T) {
	t.Parallel()

	dispatcher, sender, engine := newTestDispatcher(t)

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"apply-damage","requestId":"r3","charId":"e1","damage":5}`), sender)

	assert.JSONEq(t, `{"requestId":"r3"}`, string(sender.Frames()[0]))
	hp, _ := hpOf(t, engine, "e1")
	assert.Equal(t, 10.0, hp)
}

func TestDispatcherCastSpellWithoutRollRepliesEmptyObject(t *testing.T) {
	t.Parallel()

	dispatcher, sender, _ := newTestDispatcher(t)

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"cast-spell","requestId":"r4","charId":"e1","itemId":"s2","activityId":"sh","config":{}}`), sender)

	assert.JSONEq(t, `{"requestId":"r4","payload":{}}`, string(sender.Frames()[0]))
}

func TestDispatcherNotifications(t *testing.T) {
	t.Parallel()

	dispatcher, sender, engine := newTestDispatcher(t)
	ctx := context.Background()

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"apply-damage","charId":"e1","damage":"4"}`), sender)
	hp, temp := hpOf(t, engine, "e1")
	assert.Equal(t, 6.0, hp)

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"apply-heal-tempHp","charId":"e1","healData":{"heal":2,"tempHp":"3"}}`), sender)
	hp, temp = hpOf(t, engine, "e1")
	assert.Equal(t, 8.0, hp)
	assert.Equal(t, 3.0, temp)

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"characterUpdated","message":{"foundryId":"e1","name":"Iara II"}}`), sender)
	entity, err := engine.GetEntity(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Iara II", entity.Name)

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"itemUpdated","charId":"e1","item":{"_id":"i1","system":{"quantity":2}}}`), sender)
	entity, err = engine.GetEntity(ctx, "e1")
	require.NoError(t, err)
	item, ok := entity.Item("i1")
	require.True(t, ok)
	assert.Equal(t, 2.0, item.System["quantity"])

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"longRest","charId":"e1","config":{}}`), sender)
	hp, temp = hpOf(t, engine, "e1")
	assert.Equal(t, 20.0, hp)
	assert.Equal(t, 0.0, temp)

	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"shortRest","charId":"missing"}`), sender)
	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"some-new-event"}`), sender)
	dispatcher.HandleFrame(ctx, json.RawMessage(`{"type":"roll-test","charId":"e1","testType":"atributo"}`), sender)
	dispatcher.HandleFrame(ctx, json.RawMessage(`not json`), sender)

	assert.Empty(t, sender.Frames())
}

func TestDispatcherRecoversFromPanickingCall(t *testing.T) {
	t.Parallel()

	var engine ports.SessionEngine
	dispatcher := NewDispatcher(NewExecutor(engine, staticAccounts{}, ExecutorOptions{Logger: discardLogger()}), discardLogger())
	sender := newRecordingSender()

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"roll-HitDice","requestId":"r5","charId":"e1"}`), sender)
	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"apply-damage","charId":"e1","damage":1}`), sender)

	require.Len(t, sender.Frames(), 1)
	assert.JSONEq(t, `{"requestId":"r5"}`, string(sender.Frames()[0]))
}

func TestDispatcherCallCompletesOnMatchingReply(t *testing.T) {
	t.Parallel()

	dispatcher, sender, _ := newTestDispatcher(t)

	type result struct {
		payload json.RawMessage
		err     error
	}
	done := make(chan result, 1)
	go func() {
		payload, err := dispatcher.Call(context.Background(), sender, "sync-request", map[string]any{"charId": "e1"})
		done <- result{payload, err}
	}()

	select {
	case <-sender.sent:
	case <-time.After(time.Second):
		t.Fatal("call frame was not sent")
	}
	request := sender.decoded(t, 0)
	assert.Equal(t, "sync-request", request["type"])
	requestID, _ := request["requestId"].(string)
	require.NotEmpty(t, requestID)
	assert.Equal(t, 1, dispatcher.Pending())

	dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"requestId":"`+requestID+`","payload":{"ok":true}}`), sender)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.JSONEq(t, `{"ok":true}`, string(got.payload))
	case <-time.After(time.Second):
		t.Fatal("call did not complete")
	}
	assert.Equal(t, 0, dispatcher.Pending())
	assert.Len(t, sender.Frames(), 1)
}

func TestDispatcherCallTimesOut(t *testing.T) {
	t.Parallel()

	dispatcher, sender, _ := newTestDispatcher(t)
	dispatcher.callTimeout = 10 * time.Millisecond

	_, err := dispatcher.Call(context.Background(), sender, "sync-request", nil)
	require.ErrorIs(t, err, ErrCallTimeout)
	assert.Equal(t, 0, dispatcher.Pending())
}

func TestDispatcherCallSendFailure(t *testing.T) {
	t.Parallel()

	dispatcher, _, _ := newTestDispatcher(t)
	sender := mocks.NewMockFrameSender(t)
	sendErr := errors.New("socket not connected")
	sender.EXPECT().Send(mockAnyContext(), mock.AnythingOfType("application.outboundCall")).Return(sendErr)

	_, err := dispatcher.Call(context.Background(), sender, "sync-request", nil)
	require.ErrorIs(t, err, sendErr)
	assert.Equal(t, 0, dispatcher.Pending())
}

func TestDispatcherReplyWithFailingSenderDoesNotPanic(t *testing.T) {
	t.Parallel()

	dispatcher, _, _ := newTestDispatcher(t)
	sender := mocks.NewMockFrameSender(t)
	sender.EXPECT().Send(mockAnyContext(), Reply{RequestID: "r6"}).Return(errors.New("broken pipe")).Once()

	assert.NotPanics(t, func() {
		dispatcher.HandleFrame(context.Background(), json.RawMessage(`{"type":"roll-test","requestId":"r6","charId":"e9"}`), sender)
	})
}

func TestFlexNumberDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: `7`, want: 7},
		{raw: `"7.5"`, want: 7.5},
		{raw: `" 3 "`, want: 3},
		{raw: `"abc"`, want: 0},
		{raw: `null`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n FlexNumber
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.want, float64(n))
		})
	}

	var n FlexNumber
	require.Error(t, json.Unmarshal([]byte(`{"x":1}`), &n))
}

func TestEncodeRollPayloadShape(t *testing.T) {
	roll := domain.Roll{
		Formula: "2d20kl + 1",
		Total:   9,
		Flavor:  "Stealth",
		Terms: []domain.DieTerm{{
			Number:   2,
			Faces:    20,
			Modifier: "kl",
			Results:  []domain.DieResult{{Result: 8, Active: true}, {Result: 15}},
		}},
	}

	data, err := json.Marshal(encodeRoll(roll))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"class": "Roll",
		"formula": "2d20kl + 1",
		"total": 9,
		"evaluated": true,
		"terms": [{"class": "Die", "number": 2, "faces": 20, "modifiers": ["kl"], "results": [{"result": 8, "active": true}, {"result": 15, "active": false}]}],
		"options": {"flavor": "Stealth"}
	}`, string(data))
}

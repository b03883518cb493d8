package application

import (
	"context"
	"errors"
	"sync"
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

type fakeConnection struct {
	*recordingSender
	address string
	title   string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConnection) Done() <-chan struct{} {
	return c.done
}

func (c *fakeConnection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

type fakeConnector struct {
	mu    sync.Mutex
	conns []*fakeConnection
	err   error
}

func (c *fakeConnector) Connect(_ context.Context, settings domain.Settings) (ports.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	conn := &fakeConnection{
		recordingSender: newRecordingSender(),
		address:         settings.ServerAddress,
		title:           settings.Title(),
		done:            make(chan struct{}),
	}
	c.conns = append(c.conns, conn)
	return conn, nil
}

func (c *fakeConnector) Connections() []*fakeConnection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*fakeConnection, len(c.conns))
	copy(out, c.conns)
	return out
}

type gatewayFixture struct {
	gateway   *Gateway
	engine    *memory.Engine
	pusher    *mocks.MockCharacterPusher
	connector *fakeConnector
}

func newGatewayFixture(t *testing.T) gatewayFixture {
	t.Helper()

	executor, engine := newTestExecutor(t)
	pusher := mocks.NewMockCharacterPusher(t)
	connector := &fakeConnector{}
	accounts := staticAccounts{{ID: "u1", APIKey: "K1"}}

	gateway := NewGateway(GatewayDeps{
		Feed:       engine,
		Connector:  connector,
		Sync:       NewSyncService(engine, engine, accounts, pusher, discardLogger()),
		Dispatcher: NewDispatcher(executor, discardLogger()),
		Logger:     discardLogger(),
	})
	t.Cleanup(gateway.Stop)

	return gatewayFixture{gateway: gateway, engine: engine, pusher: pusher, connector: connector}
}

func TestGatewayStartConnectsAndPushesChanges(t *testing.T) {
	f := newGatewayFixture(t)

	pushed := make(chan domain.UpsertBatch, 1)
	f.pusher.EXPECT().Upsert(mockAnyContext(), testServer, "K1", mock.Anything).
		Run(func(_ context.Context, _ string, _ string, batch domain.UpsertBatch) { pushed <- batch }).
		Return(nil).Once()

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{ServerAddress: " " + testServer + " ", UpdateInterval: 10}))
	require.ErrorIs(t, f.gateway.Start(context.Background(), domain.Settings{}), ErrGatewayStarted)

	conns := f.connector.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, testServer, conns[0].address)
	assert.Equal(t, testServer, f.gateway.Settings().ServerAddress)

	entity, err := f.engine.GetEntity(context.Background(), "e1")
	require.NoError(t, err)
	entity.Name = "Iara, a Brava"
	f.engine.PutEntity(entity)

	select {
	case batch := <-pushed:
		assert.Equal(t, "Ana", batch.Username)
		require.Len(t, batch.Characters, 1)
		assert.Equal(t, "Iara, a Brava", batch.Characters[0].Name)
	case <-time.After(time.Second):
		t.Fatal("change was not pushed")
	}
}

func TestGatewaySweepsOnSchedule(t *testing.T) {
	f := newGatewayFixture(t)

	f.pusher.EXPECT().Upsert(mockAnyContext(), testServer, "K1", mock.MatchedBy(func(batch domain.UpsertBatch) bool {
		return batch.UserID == "u1" && len(batch.Characters) == 2
	})).Return(nil)

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{ServerAddress: testServer, UpdateInterval: fastInterval}))

	assert.Eventually(t, func() bool {
		return !f.gateway.LastSweep().IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestGatewayReconfigureReplacesConnectionOnAddressChange(t *testing.T) {
	f := newGatewayFixture(t)

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{ServerAddress: testServer, UpdateInterval: 10}))
	require.NoError(t, f.gateway.Reconfigure(domain.Settings{ServerAddress: testServer, UpdateInterval: 20}))
	require.Len(t, f.connector.Connections(), 1)

	require.NoError(t, f.gateway.Reconfigure(domain.Settings{ServerAddress: "other.example.com", UpdateInterval: 20}))

	conns := f.connector.Connections()
	require.Len(t, conns, 2)
	assert.True(t, conns[0].Closed())
	assert.False(t, conns[1].Closed())
	assert.Equal(t, "other.example.com", conns[1].address)

	f.gateway.Stop()
	assert.True(t, conns[1].Closed())
	require.ErrorIs(t, f.gateway.Reconfigure(domain.Settings{}), ErrGatewayNotStarted)
}

func TestGatewayReconfigureReconnectsUnderNewWorldTitle(t *testing.T) {
	f := newGatewayFixture(t)

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{ServerAddress: testServer, UpdateInterval: 10}))
	require.NoError(t, f.gateway.Reconfigure(domain.Settings{ServerAddress: testServer, UpdateInterval: 10, WorldTitle: "Mesa de Sexta"}))

	conns := f.connector.Connections()
	require.Len(t, conns, 2)
	assert.Equal(t, domain.DefaultWorldTitle, conns[0].title)
	assert.True(t, conns[0].Closed())
	assert.Equal(t, "Mesa de Sexta", conns[1].title)
	assert.Equal(t, testServer, conns[1].address)
	assert.False(t, conns[1].Closed())
}

func TestGatewayWithoutAddressStaysOffline(t *testing.T) {
	f := newGatewayFixture(t)

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{}))
	assert.Empty(t, f.connector.Connections())

	_, err := f.gateway.Call(context.Background(), "sync-request", nil)
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestGatewayConnectFailureDoesNotStopStart(t *testing.T) {
	f := newGatewayFixture(t)
	f.connector.err = errors.New("dial refused")

	require.NoError(t, f.gateway.Start(context.Background(), domain.Settings{ServerAddress: testServer, UpdateInterval: 10}))

	_, err := f.gateway.Call(context.Background(), "sync-request", nil)
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestGatewayStopsWithContext(t *testing.T) {
	f := newGatewayFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, f.gateway.Start(ctx, domain.Settings{ServerAddress: testServer, UpdateInterval: 10}))
	cancel()

	done := make(chan struct{})
	go func() {
		f.gateway.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after context cancel")
	}
}

func TestGatewayRecordsSweepTimeFromClock(t *testing.T) {
	executor, engine := newTestExecutor(t)
	pusher := mocks.NewMockCharacterPusher(t)
	clock := mocks.NewMockClock(t)
	sweptAt := time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(sweptAt)
	pusher.EXPECT().Upsert(mockAnyContext(), testServer, "K1", mock.Anything).Return(nil)

	gateway := NewGateway(GatewayDeps{
		Feed:       engine,
		Connector:  &fakeConnector{},
		Sync:       NewSyncService(engine, engine, staticAccounts{{ID: "u1", APIKey: "K1"}}, pusher, discardLogger()),
		Dispatcher: NewDispatcher(executor, discardLogger()),
		Clock:      clock,
		Logger:     discardLogger(),
	})
	t.Cleanup(gateway.Stop)

	require.NoError(t, gateway.Start(context.Background(), domain.Settings{ServerAddress: testServer, UpdateInterval: fastInterval}))

	assert.Eventually(t, func() bool {
		return gateway.LastSweep().Equal(sweptAt)
	}, time.Second, 10*time.Millisecond)
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

var (
	ErrGatewayStarted    = errors.New("gateway already started")
	ErrGatewayNotStarted = errors.New("gateway not started")
	ErrNoConnection      = errors.New("no live connection")
)

// Gateway owns the process-wide session: the live connection, the sweep
// scheduler and the loop feeding engine changes and sweep ticks to the sync
// service. Changes and ticks are handled one at a time in arrival order.
type Gateway struct {
	feed       ports.ChangeFeed
	connector  ports.Connector
	sync       *SyncService
	dispatcher *Dispatcher
	scheduler  *Scheduler
	clock      ports.Clock
	logger     *slog.Logger

	mu        sync.Mutex
	settings  domain.Settings
	conn      ports.Connection
	loopCtx   context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	lastSweep time.Time
}

type GatewayDeps struct {
	Feed       ports.ChangeFeed
	Connector  ports.Connector
	Sync       *SyncService
	Dispatcher *Dispatcher
	Scheduler  *Scheduler
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewGateway(deps GatewayDeps) *Gateway {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewScheduler(deps.Clock)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Gateway{
		feed:       deps.Feed,
		connector:  deps.Connector,
		sync:       deps.Sync,
		dispatcher: deps.Dispatcher,
		scheduler:  deps.Scheduler,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// Start opens the connection, arms the sweep timer and starts the event
// loop. The loop ends when ctx is done or Stop is called.
func (g *Gateway) Start(ctx context.Context, settings domain.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		return ErrGatewayStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g.loopCtx = loopCtx
	g.cancel = cancel
	g.done = make(chan struct{})
	g.settings = normalizeSettings(settings)

	if err := g.connectLocked(); err != nil {
		g.logger.Error("connect", "address", g.settings.ServerAddress, "error", err)
	}
	g.scheduler.Start(g.settings)

	events := g.feed.Subscribe(loopCtx)
	go g.loop(loopCtx, events, g.done)

	g.logger.Info("gateway started", "address", g.settings.ServerAddress, "interval", g.scheduler.Interval())
	return nil
}

// Reconfigure applies new settings. An address or world title change
// replaces the connection, so the new session registers under the current
// title; an address or interval change restarts the sweep timer.
func (g *Gateway) Reconfigure(settings domain.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel == nil {
		return ErrGatewayNotStarted
	}

	settings = normalizeSettings(settings)
	previous := g.settings
	g.settings = settings

	if settings.ServerAddress != previous.ServerAddress || settings.Title() != previous.Title() {
		g.closeConnLocked()
		if err := g.connectLocked(); err != nil {
			g.logger.Error("reconnect after settings change", "address", settings.ServerAddress, "error", err)
		}
	}
	if settings.ServerAddress != previous.ServerAddress || settings.SweepInterval() != previous.SweepInterval() {
		g.scheduler.Reconfigure(settings)
		g.logger.Info("sweep rescheduled", "interval", g.scheduler.Interval())
	}

	return nil
}

// Stop closes the connection with a normal closure, disarms the timer and
// waits for the loop to finish.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if g.cancel == nil {
		g.mu.Unlock()
		return
	}
	cancel, done := g.cancel, g.done
	g.closeConnLocked()
	g.scheduler.Stop()
	g.cancel = nil
	g.mu.Unlock()

	cancel()
	<-done
	g.logger.Info("gateway stopped")
}

// Call sends a gateway-originated request over the live connection and
// waits for the remote reply.
func (g *Gateway) Call(ctx context.Context, frameType string, payload any) (json.RawMessage, error) {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()

	if conn == nil {
		return nil, ErrNoConnection
	}

	return g.dispatcher.Call(ctx, conn, frameType, payload)
}

func (g *Gateway) Settings() domain.Settings {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.settings
}

func (g *Gateway) LastSweep() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastSweep
}

func (g *Gateway) loop(ctx context.Context, events <-chan domain.ChangeEvent, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			g.sync.HandleChange(ctx, g.Settings().ServerAddress, event)
		case <-g.scheduler.Ticks():
			g.sweep(ctx)
		}
	}
}

func (g *Gateway) sweep(ctx context.Context) {
	deliveries, err := g.sync.Sweep(ctx, g.Settings().ServerAddress)
	if err != nil {
		if errors.Is(err, domain.ErrConfigurationIncomplete) {
			g.logger.Warn("sweep skipped", "error", err)
		} else {
			g.logger.Error("sweep", "error", err)
		}
		return
	}

	g.mu.Lock()
	g.lastSweep = g.clock.Now()
	g.mu.Unlock()

	g.logger.Debug("sweep finished", "accounts", len(deliveries), "failed", failedDeliveries(deliveries))
}

func (g *Gateway) connectLocked() error {
	if !g.settings.HasServer() {
		g.logger.Warn("server address not configured, not connecting")
		return nil
	}

	conn, err := g.connector.Connect(g.loopCtx, g.settings)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", g.settings.ServerAddress, err)
	}
	g.conn = conn

	return nil
}

func (g *Gateway) closeConnLocked() {
	if g.conn == nil {
		return
	}
	if err := g.conn.Close(); err != nil {
		g.logger.Warn("close connection", "error", err)
	}
	g.conn = nil
}

func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ServerAddress = strings.TrimSpace(settings.ServerAddress)
	return settings
}

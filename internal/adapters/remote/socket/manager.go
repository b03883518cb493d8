// Package socket keeps the gateway's single websocket to the remote server
// open, registering the world on every successful open and reconnecting with
// a bounded retry budget after abnormal closures.
package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectDelay       = 3 * time.Second
	defaultWriteTimeout         = 10 * time.Second
	defaultHandshakeTimeout     = 15 * time.Second

	closeReasonNoKeys = "no api keys configured"
	closeReasonManual = "manual close"
)

var ErrNotConnected = errors.New("socket not connected")

type Options struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	WriteTimeout         time.Duration
	Dialer               *websocket.Dialer
	Logger               *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: defaultHandshakeTimeout,
		}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Manager opens sessions. Frames read from a session are handed to handler
// one at a time, in arrival order.
type Manager struct {
	handler  ports.FrameHandler
	accounts ports.LinkedAccountSource
	opts     Options
}

var _ ports.Connector = (*Manager)(nil)

func NewManager(handler ports.FrameHandler, accounts ports.LinkedAccountSource, opts Options) *Manager {
	return &Manager{
		handler:  handler,
		accounts: accounts,
		opts:     opts.withDefaults(),
	}
}

// Connect starts a session in the background and returns immediately. The
// first dial happens asynchronously, so a refused connection surfaces as
// reconnect attempts rather than as an error here. The session registers
// under the world title the settings carry at this point.
func (m *Manager) Connect(ctx context.Context, settings domain.Settings) (ports.Connection, error) {
	socketURL, err := SocketURL(settings.ServerAddress)
	if err != nil {
		return nil, err
	}

	session := newSession(m, socketURL, settings.Title())
	go session.run(ctx)

	return session, nil
}

// SocketURL derives the websocket address from the configured server
// address: an http(s) scheme is dropped and wss is used. Addresses already
// carrying ws or wss are kept as given.
func SocketURL(serverAddress string) (string, error) {
	address := strings.TrimSpace(serverAddress)
	if address == "" {
		return "", fmt.Errorf("server address is empty: %w", domain.ErrConfigurationIncomplete)
	}
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address, nil
	}

	address = strings.TrimPrefix(address, "https://")
	address = strings.TrimPrefix(address, "http://")

	return "wss://" + address, nil
}

type registerFrame struct {
	Type       string   `json:"type"`
	WorldTitle string   `json:"worldTitle"`
	APIKeys    []string `json:"apiKeys"`
}

package socket

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
	"github.com/gorilla/websocket"
)

// Session is one ConnectionSession: the live socket plus its reconnect
// state. It is the only holder of the raw connection.
type Session struct {
	manager    *Manager
	url        string
	worldTitle string
	logger     *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	attempts int
	closing  bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ ports.Connection = (*Session)(nil)

func newSession(m *Manager, url string, worldTitle string) *Session {
	return &Session{
		manager:    m,
		url:        url,
		worldTitle: worldTitle,
		logger:     m.opts.Logger.With("url", url),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Done is closed once the session stops for good: after a normal closure,
// a manual Close, context cancellation or an exhausted retry budget.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Attempts reports the current reconnect attempt count.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Close suppresses any pending retry and closes the socket with a normal
// closure code.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.attempts = s.manager.opts.MaxReconnectAttempts
		s.closing = true
		conn := s.conn
		s.mu.Unlock()

		close(s.stop)
		if conn != nil {
			err = s.closeConn(conn, websocket.CloseNormalClosure, closeReasonManual)
		}
	})

	return err
}

func (s *Session) Send(ctx context.Context, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	return s.write(ctx, conn, data)
}

func (s *Session) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(s.manager.opts.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

func (s *Session) closeConn(conn *websocket.Conn, code int, reason string) error {
	s.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	writeErr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.manager.opts.WriteTimeout))
	s.writeMu.Unlock()

	closeErr := conn.Close()
	if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
		return fmt.Errorf("send close frame: %w", writeErr)
	}

	return closeErr
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	stopOnCancel := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stopOnCancel()

	for {
		code := s.connectOnce(ctx)
		s.logger.Info("socket disconnected", "code", code)

		if code == websocket.CloseNormalClosure || s.isClosing() {
			return
		}

		attempt, ok := s.nextAttempt()
		if !ok {
			s.logger.Error("reconnect attempts exhausted, giving up",
				"max_attempts", s.manager.opts.MaxReconnectAttempts)
			return
		}

		s.logger.Warn("reconnecting",
			"attempt", attempt,
			"max_attempts", s.manager.opts.MaxReconnectAttempts,
			"delay", s.manager.opts.ReconnectDelay)

		timer := time.NewTimer(s.manager.opts.ReconnectDelay)
		select {
		case <-timer.C:
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

func (s *Session) nextAttempt() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempts >= s.manager.opts.MaxReconnectAttempts {
		return s.attempts, false
	}
	s.attempts++

	return s.attempts, true
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// connectOnce dials, registers and reads until the socket closes, returning
// the close code. Failures that never produced a close frame count as
// abnormal closure.
func (s *Session) connectOnce(ctx context.Context) int {
	dialCtx, cancelDial := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.stop:
			cancelDial()
		case <-dialCtx.Done():
		}
	}()
	conn, resp, err := s.manager.opts.Dialer.DialContext(dialCtx, s.url, nil)
	cancelDial()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.logger.Error("socket dial failed", "error", err)
		return websocket.CloseAbnormalClosure
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return websocket.CloseNormalClosure
	}
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	s.logger.Info("socket connected")

	if code, ok := s.register(ctx, conn); !ok {
		return code
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return s.closeCode(err)
		}
		s.manager.handler.HandleFrame(ctx, json.RawMessage(data), s)
	}
}

func (s *Session) register(ctx context.Context, conn *websocket.Conn) (int, bool) {
	accounts, err := s.manager.accounts.LinkedAccounts(ctx)
	if err != nil {
		s.logger.Error("load linked accounts", "error", err)
	}

	apiKeys := domain.APIKeys(accounts)
	if len(apiKeys) == 0 {
		s.logger.Warn("no api key configured, closing socket", "error", domain.ErrConfigurationIncomplete)
		if err := s.closeConn(conn, websocket.CloseNormalClosure, closeReasonNoKeys); err != nil {
			s.logger.Debug("close socket", "error", err)
		}
		return websocket.CloseNormalClosure, false
	}

	frame := registerFrame{Type: "register-world", WorldTitle: s.worldTitle, APIKeys: apiKeys}
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("encode register frame", "error", err)
		return websocket.CloseAbnormalClosure, false
	}
	if err := s.write(ctx, conn, data); err != nil {
		s.logger.Error("send register frame", "error", err)
		return websocket.CloseAbnormalClosure, false
	}

	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()

	s.logger.Info("world registered", "world", s.worldTitle, "keys", len(apiKeys))
	return 0, true
}

func (s *Session) closeCode(err error) int {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	if s.isClosing() {
		return websocket.CloseNormalClosure
	}

	s.logger.Error("socket read failed", "error", err)
	return websocket.CloseAbnormalClosure
}

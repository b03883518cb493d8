package ports

import (
	"context"
	"encoding/json"

	"github.com/bnema/galho-seco-gateway/internal/domain"
)

// CharacterPusher delivers snapshots to the remote service over HTTP.
type CharacterPusher interface {
	Upsert(ctx context.Context, serverAddress string, apiKey string, batch domain.UpsertBatch) error
	Delete(ctx context.Context, serverAddress string, apiKey string, notice domain.DeleteNotice) error
}

// FrameSender is the only write path to the live socket.
type FrameSender interface {
	Send(ctx context.Context, frame any) error
}

type FrameHandler interface {
	HandleFrame(ctx context.Context, raw json.RawMessage, sender FrameSender)
}

type Connection interface {
	FrameSender
	Close() error
	Done() <-chan struct{}
}

// Connector opens a connection to settings.ServerAddress that registers
// the world under settings.Title().
type Connector interface {
	Connect(ctx context.Context, settings domain.Settings) (Connection, error)
}

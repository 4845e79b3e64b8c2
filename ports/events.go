package ports

import (
	"context"

	"github.com/layer-3/talkie/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishAudio(ctx context.Context, msg core.AudioMessage, recipients int) error
	PublishSession(ctx context.Context, tokenID int64, kind string) error
}

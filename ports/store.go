//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package ports

import (
	"context"
	"time"

	"github.com/layer-3/talkie/core"
)

// Store persists profiles and audio messages
type Store interface {
	UpsertProfile(ctx context.Context, tokenID int64, address string) error
	RecordAudio(ctx context.Context, msg core.AudioMessage) error
	IncrementSent(ctx context.Context, tokenID int64, messageID string) error
	TouchLastActive(ctx context.Context, tokenID int64) error
	LatestAudio(ctx context.Context) (*core.AudioMessage, error)
	FindProfile(ctx context.Context, tokenID int64) (*core.Profile, error)
	AudioByToken(ctx context.Context, tokenID int64, limit int) ([]core.AudioMessage, error)
	CountProfiles(ctx context.Context) (int64, error)
	CountAudio(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// ReplayGuard remembers challenges that already minted a credential
type ReplayGuard interface {
	// MarkUsed records key and reports false if it was already recorded.
	MarkUsed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

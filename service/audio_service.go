package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/hub"
	"github.com/layer-3/talkie/observability"
	"github.com/layer-3/talkie/ports"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxAudioDuration = 30 * time.Second
	DefaultMaxAudioBytes    = 4 << 20
	DefaultCollectionSize   = 5000

	// MaxRecordings caps a recordings listing
	MaxRecordings = 1000

	serviceName = "Yeti Talki API"
)

// Broadcaster fans an audio message out to live sessions
type Broadcaster interface {
	BroadcastAudio(ctx context.Context, msg *core.AudioMessage, sender int64) (hub.BroadcastResult, error)
	Count() int
}

// AudioConfig bounds submissions and describes the collection
type AudioConfig struct {
	MaxDuration    time.Duration
	MaxBytes       int
	CollectionSize int
}

// Health is the liveness report of the service and its collaborators
type Health struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	ChainConnected    bool   `json:"ape_chain_connected"`
	DatabaseConnected bool   `json:"database_connected"`
}

// AudioService accepts audio submissions and serves the community read models
type AudioService struct {
	store       ports.Store
	oracle      ports.Oracle
	broadcaster Broadcaster
	eventPub    ports.EventPublisher
	metrics     *observability.Metrics
	log         *slog.Logger
	cfg         AudioConfig
	now         func() time.Time
}

func NewAudioService(
	store ports.Store,
	oracle ports.Oracle,
	broadcaster Broadcaster,
	eventPub ports.EventPublisher,
	metrics *observability.Metrics,
	log *slog.Logger,
	cfg AudioConfig,
) *AudioService {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxAudioDuration
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxAudioBytes
	}
	if cfg.CollectionSize <= 0 {
		cfg.CollectionSize = DefaultCollectionSize
	}
	return &AudioService{
		store:       store,
		oracle:      oracle,
		broadcaster: broadcaster,
		eventPub:    eventPub,
		metrics:     metrics,
		log:         log,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Submit records an audio clip from the holder of claim and broadcasts it to
// every other live session. Nothing is broadcast unless the clip was stored.
func (s *AudioService) Submit(ctx context.Context, claim core.Claim, audioData string, duration float64) (*core.AudioMessage, error) {
	seconds, err := s.checkDuration(duration)
	if err != nil {
		return nil, err
	}
	if audioData == "" {
		return nil, core.ErrInvalidAudio
	}
	if len(audioData) > s.cfg.MaxBytes {
		return nil, core.ErrPayloadTooLarge
	}

	msg := &core.AudioMessage{
		ID:            uuid.NewString(),
		TokenID:       claim.TokenID,
		WalletAddress: claim.Address,
		AudioData:     audioData,
		Duration:      seconds,
		Timestamp:     s.now().UTC(),
		MessageType:   core.MessageTypeBroadcast,
	}

	if err := s.store.RecordAudio(ctx, *msg); err != nil {
		return nil, fmt.Errorf("failed to record audio message: %w", err)
	}

	if err := s.store.IncrementSent(ctx, claim.TokenID, msg.ID); err != nil {
		s.log.Warn("failed to increment sent counter", "token_id", claim.TokenID, "err", err)
	}
	if err := s.store.TouchLastActive(ctx, claim.TokenID); err != nil {
		s.log.Warn("failed to touch last active", "token_id", claim.TokenID, "err", err)
	}

	result, err := s.broadcaster.BroadcastAudio(ctx, msg, claim.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast audio message: %w", err)
	}
	s.metrics.ObserveAudioDuration(seconds)
	s.log.Info("audio broadcast",
		"message_id", msg.ID, "token_id", claim.TokenID,
		"delivered", result.Delivered, "pruned", len(result.Failed))

	if s.eventPub != nil {
		if err := s.eventPub.PublishAudio(ctx, *msg, result.Delivered); err != nil {
			s.log.Warn("failed to publish audio event", "message_id", msg.ID, "err", err)
		}
	}

	return msg, nil
}

// checkDuration compares the exact duration against the ceiling and returns
// it rounded to milliseconds for storage
func (s *AudioService) checkDuration(duration float64) (float64, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, core.ErrInvalidAudio
	}
	exact := decimal.NewFromFloat(duration)
	if exact.GreaterThan(decimal.NewFromFloat(s.cfg.MaxDuration.Seconds())) {
		return 0, core.ErrPayloadTooLarge
	}
	rounded := exact.Round(3)
	if !rounded.IsPositive() {
		return 0, core.ErrInvalidAudio
	}
	return rounded.InexactFloat64(), nil
}

// MaxDuration returns the submission ceiling
func (s *AudioService) MaxDuration() time.Duration {
	return s.cfg.MaxDuration
}

func (s *AudioService) Latest(ctx context.Context) (*core.AudioMessage, error) {
	return s.store.LatestAudio(ctx)
}

func (s *AudioService) Profile(ctx context.Context, tokenID int64) (*core.Profile, error) {
	return s.store.FindProfile(ctx, tokenID)
}

// Recordings lists the clips recorded by tokenID, oldest first. It returns
// core.ErrNotFound when the token never signed in.
func (s *AudioService) Recordings(ctx context.Context, tokenID int64) ([]core.AudioMessage, error) {
	if _, err := s.store.FindProfile(ctx, tokenID); err != nil {
		return nil, err
	}
	return s.store.AudioByToken(ctx, tokenID, MaxRecordings)
}

func (s *AudioService) Stats(ctx context.Context) (core.Stats, error) {
	profiles, err := s.store.CountProfiles(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to count profiles: %w", err)
	}
	messages, err := s.store.CountAudio(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to count audio messages: %w", err)
	}
	return core.Stats{
		TotalRegisteredNFTs: profiles,
		TotalMessagesSent:   messages,
		CurrentlyOnline:     s.broadcaster.Count(),
		CollectionSize:      s.cfg.CollectionSize,
	}, nil
}

func (s *AudioService) Health(ctx context.Context) Health {
	dbErr := s.store.Ping(ctx)
	if dbErr != nil {
		s.log.Warn("store ping failed", "err", dbErr)
	}
	return Health{
		Status:            "healthy",
		Service:           serviceName,
		ChainConnected:    s.oracle.Connected(ctx),
		DatabaseConnected: dbErr == nil,
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/ports"
)

const (
	AudioTopic   = "talkie.audio"
	SessionTopic = "talkie.session"
)

// AudioEvent announces a broadcast clip. The payload itself is not repeated.
type AudioEvent struct {
	MessageID  string    `json:"message_id"`
	TokenID    int64     `json:"nft_token_id"`
	Address    string    `json:"wallet_address"`
	Duration   float64   `json:"duration"`
	Recipients int       `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionEvent announces a session connect or disconnect
type SessionEvent struct {
	TokenID int64     `json:"nft_token_id"`
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishAudio publishes a broadcast event
func (p *WatermillPublisher) PublishAudio(ctx context.Context, msg core.AudioMessage, recipients int) error {
	return p.publish(ctx, AudioTopic, msg.ID, AudioEvent{
		MessageID:  msg.ID,
		TokenID:    msg.TokenID,
		Address:    msg.WalletAddress,
		Duration:   msg.Duration,
		Recipients: recipients,
		Timestamp:  msg.Timestamp,
	})
}

// PublishSession publishes a session lifecycle event
func (p *WatermillPublisher) PublishSession(ctx context.Context, tokenID int64, kind string) error {
	return p.publish(ctx, SessionTopic, watermill.NewUUID(), SessionEvent{
		TokenID: tokenID,
		Kind:    kind,
		At:      time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event. Used when eventing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAudio(context.Context, core.AudioMessage, int) error { return nil }

func (NopPublisher) PublishSession(context.Context, int64, string) error { return nil }

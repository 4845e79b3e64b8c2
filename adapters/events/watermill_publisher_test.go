package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/talkie/core"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher(t *testing.T) {
	req := require.New(t)
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	audio, err := pubSub.Subscribe(ctx, AudioTopic)
	req.NoError(err)
	sessions, err := pubSub.Subscribe(ctx, SessionTopic)
	req.NoError(err)

	pub := NewWatermillPublisher(pubSub)
	msg := core.AudioMessage{ID: "m-1", TokenID: 42, WalletAddress: "0xabc", AudioData: "AAAA", Duration: 2, Timestamp: time.Now().UTC()}
	req.NoError(pub.PublishAudio(ctx, msg, 3))
	req.NoError(pub.PublishSession(ctx, 42, "connected"))

	select {
	case got := <-audio:
		got.Ack()
		req.Equal("m-1", got.UUID)
		var ev AudioEvent
		req.NoError(json.Unmarshal(got.Payload, &ev))
		req.Equal(int64(42), ev.TokenID)
		req.Equal(3, ev.Recipients)
		req.NotContains(string(got.Payload), "AAAA")
	case <-ctx.Done():
		t.Fatal("audio event not delivered")
	}

	select {
	case got := <-sessions:
		got.Ack()
		var ev SessionEvent
		req.NoError(json.Unmarshal(got.Payload, &ev))
		req.Equal("connected", ev.Kind)
	case <-ctx.Done():
		t.Fatal("session event not delivered")
	}
}

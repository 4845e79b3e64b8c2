package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/hub"
	"github.com/stretchr/testify/require"
)

type peerServer struct {
	peers  chan *Peer
	result chan error
	url    string
}

func newPeerServer(t *testing.T, opts Options) *peerServer {
	t.Helper()
	ps := &peerServer{peers: make(chan *Peer, 1), result: make(chan error, 1)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		peer := NewPeer(conn, opts)
		ps.peers <- peer
		ps.result <- peer.ReadLoop(context.Background())
	}))
	t.Cleanup(srv.Close)
	ps.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ps
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPeerSendWritesJSONEvent(t *testing.T) {
	req := require.New(t)
	ps := newPeerServer(t, Options{})
	client := dial(t, ps.url)
	peer := <-ps.peers

	msg := &core.AudioMessage{ID: "m-1", TokenID: 3, AudioData: "AAAA", Duration: 1.5}
	req.NoError(peer.Send(context.Background(), core.Event{Type: core.EventTypeAudio, Data: msg}))

	var got struct {
		Type string            `json:"type"`
		Data core.AudioMessage `json:"data"`
	}
	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	req.NoError(client.ReadJSON(&got))
	req.Equal(core.EventTypeAudio, got.Type)
	req.Equal("m-1", got.Data.ID)
	req.Equal(int64(3), got.Data.TokenID)
}

func TestPeerAnswersApplicationPing(t *testing.T) {
	req := require.New(t)
	ps := newPeerServer(t, Options{})
	client := dial(t, ps.url)
	<-ps.peers

	req.NoError(client.WriteJSON(map[string]string{"type": "ping"}))
	var got core.Event
	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	req.NoError(client.ReadJSON(&got))
	req.Equal("pong", got.Type)
}

func TestPeerCloseSendsCode(t *testing.T) {
	req := require.New(t)
	ps := newPeerServer(t, Options{})
	client := dial(t, ps.url)
	peer := <-ps.peers

	req.NoError(peer.Close(4003, "session replaced"))
	req.NoError(peer.Close(1000, "again"))

	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	req.ErrorAs(err, &closeErr)
	req.Equal(4003, closeErr.Code)
	req.Equal("session replaced", closeErr.Text)

	select {
	case err := <-ps.result:
		req.Error(err)
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop after close")
	}
}

func TestPeerDetectsSilentClient(t *testing.T) {
	ps := newPeerServer(t, Options{PingInterval: 20 * time.Millisecond, PongWait: 100 * time.Millisecond})
	// The client never reads, so pings go unanswered.
	dial(t, ps.url)
	<-ps.peers

	select {
	case err := <-ps.result:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("silent client was not detected")
	}
}

func TestPeerKeepsResponsiveClient(t *testing.T) {
	ps := newPeerServer(t, Options{PingInterval: 20 * time.Millisecond, PongWait: 100 * time.Millisecond})
	client := dial(t, ps.url)
	peer := <-ps.peers

	// Reading drives the default ping handler, which answers with pongs.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case err := <-ps.result:
		t.Fatalf("responsive client dropped: %v", err)
	case <-time.After(400 * time.Millisecond):
	}
	require.NoError(t, peer.Close(1000, "done"))
}

type staticValidator struct{ tokenID int64 }

func (v staticValidator) ValidateToken(string) (*core.Claim, error) {
	return &core.Claim{TokenID: v.tokenID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestBroadcastSurvivesCancelledSubmitter(t *testing.T) {
	req := require.New(t)
	ps := newPeerServer(t, Options{})
	client := dial(t, ps.url)
	peer := <-ps.peers

	registry := hub.NewRegistry(staticValidator{tokenID: 7}, slog.New(slog.DiscardHandler))
	_, err := registry.Admit(context.Background(), peer, "token")
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg := &core.AudioMessage{ID: "m-1", TokenID: 1, AudioData: "AAAA", Duration: 1}
	result, err := registry.BroadcastAudio(ctx, msg, 1)
	req.NoError(err)
	req.Equal(1, result.Delivered)
	req.Empty(result.Failed)
	req.True(registry.Has(7))

	var got core.Event
	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	req.NoError(client.ReadJSON(&got))
	req.Equal(core.EventTypeAudio, got.Type)

	registry.CloseAll("done")
}

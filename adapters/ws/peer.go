// Package ws adapts gorilla websocket connections to hub.Conn.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/observability"
)

const (
	DefaultPingInterval = 25 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultReadLimit    = 64 << 10

	typePing = "ping"
	typePong = "pong"
)

// Options tunes keepalive and write behaviour of a Peer
type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	Metrics      *observability.Metrics
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = DefaultPongWait
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	return o
}

// Peer is one upgraded websocket connection. Writes are serialised.
type Peer struct {
	conn *websocket.Conn
	opts Options

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func NewPeer(conn *websocket.Conn, opts Options) *Peer {
	return &Peer{
		conn: conn,
		opts: opts.withDefaults(),
		done: make(chan struct{}),
	}
}

// Send writes event as a JSON text frame. The write deadline is the earlier
// of ctx's deadline and the configured write timeout.
func (p *Peer) Send(ctx context.Context, event core.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(p.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := p.conn.WriteJSON(event); err != nil {
		return err
	}
	p.opts.Metrics.ObserveWSMessage("outbound", event.Type)
	return nil
}

// Close sends a close frame with code and reason, then drops the socket.
// Calls after the first are no-ops.
func (p *Peer) Close(code int, reason string) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.opts.WriteTimeout))
		err = p.conn.Close()
	})
	return err
}

// ReadLoop consumes client frames until the connection fails, the peer stops
// answering pings within PongWait, or ctx is cancelled. Application level
// {"type":"ping"} frames are answered with {"type":"pong"}; everything else
// is discarded.
func (p *Peer) ReadLoop(ctx context.Context) error {
	p.conn.SetReadLimit(p.opts.ReadLimit)
	_ = p.conn.SetReadDeadline(time.Now().Add(p.opts.PongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(p.opts.PongWait))
	})

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.pingLoop(loopCtx)

	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		p.opts.Metrics.ObserveWSMessage("inbound", frame.Type)
		if frame.Type == typePing {
			if err := p.Send(loopCtx, core.Event{Type: typePong}); err != nil {
				return err
			}
		}
	}
}

func (p *Peer) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(p.opts.WriteTimeout)
			if err := p.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

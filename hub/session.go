package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/layer-3/talkie/core"
)

// Close codes sent to peers when the registry ends a connection.
const (
	CloseNormal         = 1000
	CloseDeliveryFailed = 1011
	CloseInternalError  = 4000
	CloseInvalidToken   = 4001
	CloseTokenExpired   = 4002
	CloseReplaced       = 4003
)

// Conn is a live duplex connection owned by the registry
type Conn interface {
	Send(ctx context.Context, event core.Event) error
	Close(code int, reason string) error
}

// Session is one admitted connection, keyed by NFT token id
type Session struct {
	TokenID     int64
	Address     string
	ExpiresAt   time.Time
	ConnectedAt time.Time

	conn      Conn
	closeOnce sync.Once
	closed    atomic.Bool
}

func newSession(claim *core.Claim, conn Conn) *Session {
	return &Session{
		TokenID:     claim.TokenID,
		Address:     claim.Address,
		ExpiresAt:   claim.ExpiresAt,
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
	}
}

// Closed reports whether the registry has closed the session's connection
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close(code, reason)
	})
}

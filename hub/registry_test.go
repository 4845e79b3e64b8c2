package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/talkie/core"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu         sync.Mutex
	events     []core.Event
	sendErr    error
	block      chan struct{}
	entered    chan struct{}
	enterOnce  sync.Once
	closeCode  int
	closeCount int
}

func (c *fakeConn) Send(ctx context.Context, event core.Event) error {
	if c.entered != nil {
		c.enterOnce.Do(func() { close(c.entered) })
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
	c.closeCode = code
	return nil
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeConn) closed() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount, c.closeCode
}

// tokens are "<id>" for valid credentials, "expired" and "tampered" otherwise
type fakeValidator struct{}

func (fakeValidator) ValidateToken(token string) (*core.Claim, error) {
	switch token {
	case "expired":
		return nil, core.ErrTokenExpired
	case "tampered":
		return nil, core.ErrInvalidToken
	}
	var id int64
	if _, err := fmt.Sscanf(token, "%d", &id); err != nil {
		return nil, core.ErrInvalidToken
	}
	return &core.Claim{Address: fmt.Sprintf("0x%040d", id), TokenID: id, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
}

func (p *recordingPublisher) PublishAudio(context.Context, core.AudioMessage, int) error { return nil }

func (p *recordingPublisher) PublishSession(_ context.Context, tokenID int64, kind string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, fmt.Sprintf("%d:%s", tokenID, kind))
	return nil
}

func newTestRegistry(opts ...Option) *Registry {
	return NewRegistry(fakeValidator{}, slog.New(slog.DiscardHandler), opts...)
}

func testAudio(tokenID int64) *core.AudioMessage {
	return &core.AudioMessage{
		ID:          "m-1",
		TokenID:     tokenID,
		AudioData:   "AAAA",
		Duration:    2,
		Timestamp:   time.Now().UTC(),
		MessageType: core.MessageTypeBroadcast,
	}
}

func TestAdmitRejectsInvalidCredentials(t *testing.T) {
	r := newTestRegistry()
	for _, token := range []string{"expired", "tampered", "garbage"} {
		t.Run(token, func(t *testing.T) {
			req := require.New(t)
			conn := &fakeConn{}
			sess, err := r.Admit(context.Background(), conn, token)
			req.ErrorIs(err, core.ErrConnectionRefused)
			req.Nil(sess)
			req.Equal(0, r.Count())
		})
	}

	_, err := r.Admit(context.Background(), &fakeConn{}, "expired")
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestAdmitGrowsRegistry(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()

	sess, err := r.Admit(context.Background(), &fakeConn{}, "42")
	req.NoError(err)
	req.Equal(int64(42), sess.TokenID)
	req.Equal(1, r.Count())

	_, err = r.Admit(context.Background(), &fakeConn{}, "7")
	req.NoError(err)
	req.Equal(2, r.Count())
}

func TestAdmitEvictsPreviousSession(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	first, second := &fakeConn{}, &fakeConn{}

	old, err := r.Admit(context.Background(), first, "42")
	req.NoError(err)
	current, err := r.Admit(context.Background(), second, "42")
	req.NoError(err)

	req.Equal(1, r.Count())
	count, code := first.closed()
	req.Equal(1, count)
	req.Equal(CloseReplaced, code)
	req.True(old.Closed())
	req.False(current.Closed())

	// The evicted connection's read loop ends later; it must not drop its successor
	req.False(r.Release(old))
	req.True(r.Has(42))

	_, err = r.BroadcastAudio(context.Background(), testAudio(1), 1)
	req.NoError(err)
	req.Equal(0, first.received())
	req.Equal(1, second.received())
}

func TestConcurrentAdmitSameTokenLastWriterWins(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	const n = 50
	conns := make([]*fakeConn, n)
	var wg sync.WaitGroup
	for i := range conns {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			_, err := r.Admit(context.Background(), c, "7")
			req.NoError(err)
		}(conns[i])
	}
	wg.Wait()

	req.Equal(1, r.Count())
	open := 0
	for _, c := range conns {
		if count, _ := c.closed(); count == 0 {
			open++
		}
	}
	req.Equal(1, open)
}

func TestRemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	conn := &fakeConn{}
	_, err := r.Admit(context.Background(), conn, "9")
	req.NoError(err)

	r.Remove(9)
	r.Remove(9)
	r.Remove(12345)

	req.Equal(0, r.Count())
	count, code := conn.closed()
	req.Equal(1, count)
	req.Equal(CloseNormal, code)
}

func TestBroadcastExcludesSender(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	conns := map[int64]*fakeConn{1: {}, 2: {}, 3: {}}
	for id, c := range conns {
		_, err := r.Admit(context.Background(), c, fmt.Sprint(id))
		req.NoError(err)
	}

	msg := testAudio(1)
	result, err := r.BroadcastAudio(context.Background(), msg, 1)
	req.NoError(err)
	req.Equal(2, result.Attempted)
	req.Equal(2, result.Delivered)
	req.Empty(result.Failed)

	req.Equal(0, conns[1].received())
	for _, id := range []int64{2, 3} {
		req.Equal(1, conns[id].received())
		ev := conns[id].events[0]
		req.Equal(core.EventTypeAudio, ev.Type)
		req.Equal(msg, ev.Data)
	}
}

func TestBroadcastFromSenderWithoutSession(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	conn := &fakeConn{}
	_, err := r.Admit(context.Background(), conn, "2")
	req.NoError(err)

	result, err := r.BroadcastAudio(context.Background(), testAudio(99), 99)
	req.NoError(err)
	req.Equal(1, result.Attempted)
	req.Equal(1, conn.received())
}

func TestBroadcastPrunesFailedRecipients(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	healthy := &fakeConn{}
	dead := &fakeConn{sendErr: errors.New("broken pipe")}
	_, err := r.Admit(context.Background(), &fakeConn{}, "1")
	req.NoError(err)
	_, err = r.Admit(context.Background(), healthy, "2")
	req.NoError(err)
	_, err = r.Admit(context.Background(), dead, "3")
	req.NoError(err)

	result, err := r.BroadcastAudio(context.Background(), testAudio(1), 1)
	req.NoError(err)
	req.Equal(2, result.Attempted)
	req.Equal(1, result.Delivered)
	req.Equal([]int64{3}, result.Failed)

	req.False(r.Has(3))
	req.True(r.Has(1))
	req.True(r.Has(2))
	count, code := dead.closed()
	req.Equal(1, count)
	req.Equal(CloseDeliveryFailed, code)
	req.Equal(1, healthy.received())
}

func TestBroadcastTimesOutSlowRecipient(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(WithSendTimeout(20 * time.Millisecond))
	slow := &fakeConn{block: make(chan struct{})}
	_, err := r.Admit(context.Background(), slow, "5")
	req.NoError(err)

	result, err := r.BroadcastAudio(context.Background(), testAudio(1), 1)
	req.NoError(err)
	req.Equal([]int64{5}, result.Failed)
	req.Equal(0, r.Count())
}

func TestBroadcastDoesNotHoldLockDuringSend(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	slow := &fakeConn{block: make(chan struct{}), entered: make(chan struct{})}
	_, err := r.Admit(context.Background(), slow, "5")
	req.NoError(err)

	done := make(chan BroadcastResult, 1)
	go func() {
		result, _ := r.BroadcastAudio(context.Background(), testAudio(1), 1)
		done <- result
	}()

	select {
	case <-slow.entered:
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the recipient")
	}

	// Registry stays usable while the send is blocked
	admitted := make(chan error, 1)
	go func() {
		_, err := r.Admit(context.Background(), &fakeConn{}, "6")
		admitted <- err
	}()
	select {
	case err := <-admitted:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("admit blocked behind broadcast")
	}
	req.Equal(2, r.Count())

	close(slow.block)
	result := <-done
	req.Equal(1, result.Attempted)
	req.Equal(1, result.Delivered)
	req.Equal(1, slow.received())
	req.True(r.Has(6))
}

func TestBroadcastIgnoresCallerCancellation(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	listeners := []*fakeConn{{}, {}}
	for i, c := range listeners {
		_, err := r.Admit(context.Background(), c, fmt.Sprint(i+2))
		req.NoError(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.BroadcastAudio(ctx, testAudio(1), 1)
	req.NoError(err)
	req.Equal(2, result.Attempted)
	req.Equal(2, result.Delivered)
	req.Empty(result.Failed)
	req.True(r.Has(2))
	req.True(r.Has(3))
	for _, c := range listeners {
		req.Equal(1, c.received())
		count, _ := c.closed()
		req.Equal(0, count)
	}
}

func TestBroadcastRejectsInvalidArtifact(t *testing.T) {
	r := newTestRegistry()
	_, err := r.BroadcastAudio(context.Background(), nil, 1)
	require.ErrorIs(t, err, core.ErrInvalidAudio)

	_, err = r.BroadcastAudio(context.Background(), &core.AudioMessage{ID: "x"}, 1)
	require.ErrorIs(t, err, core.ErrInvalidAudio)
}

func TestSessionEventsArePublished(t *testing.T) {
	req := require.New(t)
	pub := &recordingPublisher{}
	r := newTestRegistry(WithEvents(pub))

	sess, err := r.Admit(context.Background(), &fakeConn{}, "4")
	req.NoError(err)
	req.True(r.Release(sess))

	req.Equal([]string{"4:connected", "4:disconnected"}, pub.kinds)
}

func TestCloseAll(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	_, err := r.Admit(context.Background(), a, "1")
	req.NoError(err)
	_, err = r.Admit(context.Background(), b, "2")
	req.NoError(err)

	r.CloseAll("shutdown")
	req.Equal(0, r.Count())
	countA, _ := a.closed()
	countB, _ := b.closed()
	req.Equal(1, countA)
	req.Equal(1, countB)
}

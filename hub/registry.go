// Package hub holds the live session registry and the broadcast fan-out.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/observability"
	"github.com/layer-3/talkie/ports"
	"github.com/samber/lo"
)

const (
	DefaultSendTimeout   = 10 * time.Second
	defaultNotifyTimeout = 2 * time.Second
)

// Validator decodes a credential presented at admission
type Validator interface {
	ValidateToken(token string) (*core.Claim, error)
}

// BroadcastResult reports what a single fan-out pass did
type BroadcastResult struct {
	Attempted int
	Delivered int
	Failed    []int64
}

// Registry maps token ids to their single live session
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	validator   Validator
	log         *slog.Logger
	metrics     *observability.Metrics
	events      ports.EventPublisher
	sendTimeout time.Duration
}

// Option customises a Registry
type Option func(*Registry)

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithEvents(p ports.EventPublisher) Option {
	return func(r *Registry) { r.events = p }
}

// WithSendTimeout bounds each per-recipient send.
func WithSendTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

func NewRegistry(validator Validator, log *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[int64]*Session),
		validator:   validator,
		log:         log,
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Admit validates token and registers conn as the session for its token id.
// An existing session for the same token id is evicted and its connection closed.
func (r *Registry) Admit(ctx context.Context, conn Conn, token string) (*Session, error) {
	claim, err := r.validator.ValidateToken(token)
	if err != nil {
		r.metrics.ObserveSessionEvent("refused")
		return nil, fmt.Errorf("%w: %w", core.ErrConnectionRefused, err)
	}

	sess := newSession(claim, conn)

	r.mu.Lock()
	prev := r.sessions[claim.TokenID]
	r.sessions[claim.TokenID] = sess
	count := len(r.sessions)
	r.mu.Unlock()

	if prev != nil {
		prev.close(CloseReplaced, "session replaced")
		r.log.Info("session replaced", "token_id", claim.TokenID)
		r.metrics.ObserveSessionEvent("replaced")
	}

	r.metrics.SetActiveSessions(count)
	r.metrics.ObserveSessionEvent("admitted")
	r.log.Info("session admitted", "token_id", claim.TokenID, "address", claim.Address)
	r.notify(ctx, claim.TokenID, "connected")

	return sess, nil
}

// Remove drops the session for tokenID if there is one and closes its connection
func (r *Registry) Remove(tokenID int64) {
	r.mu.Lock()
	sess, ok := r.sessions[tokenID]
	if ok {
		delete(r.sessions, tokenID)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return
	}
	sess.close(CloseNormal, "session removed")
	r.afterRemove(sess, count)
}

// Release removes sess only if it is still the registered session for its
// token id, so a late disconnect of an evicted connection keeps its successor.
func (r *Registry) Release(sess *Session) bool {
	removed := r.detach(sess)
	sess.close(CloseNormal, "session closed")
	return removed
}

// BroadcastAudio delivers msg once to every session except sender's.
// Recipients whose delivery fails are removed after the pass completes.
func (r *Registry) BroadcastAudio(ctx context.Context, msg *core.AudioMessage, sender int64) (BroadcastResult, error) {
	if err := msg.Validate(); err != nil {
		return BroadcastResult{}, err
	}
	event := core.Event{Type: core.EventTypeAudio, Data: msg}

	r.mu.Lock()
	recipients := make([]*Session, 0, len(r.sessions))
	for tokenID, sess := range r.sessions {
		if tokenID != sender {
			recipients = append(recipients, sess)
		}
	}
	r.mu.Unlock()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []*Session
	)
	for _, sess := range recipients {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			// A caller that goes away must not count as a recipient failure
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.sendTimeout)
			defer cancel()

			if err := sess.conn.Send(sendCtx, event); err != nil {
				r.log.Warn("audio delivery failed",
					"token_id", sess.TokenID, "message_id", msg.ID,
					"err", errors.Join(core.ErrDeliveryFailure, err))
				r.metrics.ObserveDelivery("failed")
				mu.Lock()
				failed = append(failed, sess)
				mu.Unlock()
				return
			}
			r.metrics.ObserveDelivery("delivered")
		}(sess)
	}
	wg.Wait()

	for _, sess := range failed {
		if r.detach(sess) {
			r.metrics.ObserveSessionEvent("pruned")
		}
		sess.close(CloseDeliveryFailed, "delivery failed")
	}

	result := BroadcastResult{
		Attempted: len(recipients),
		Delivered: len(recipients) - len(failed),
		Failed:    lo.Map(failed, func(s *Session, _ int) int64 { return s.TokenID }),
	}
	slices.Sort(result.Failed)
	return result, nil
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Has reports whether tokenID currently has a live session
func (r *Registry) Has(tokenID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[tokenID]
	return ok
}

// CloseAll ends every session, used on shutdown
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	all := lo.Values(r.sessions)
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, sess := range all {
		sess.close(CloseNormal, reason)
	}
	r.metrics.SetActiveSessions(0)
}

func (r *Registry) detach(sess *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[sess.TokenID]
	removed := ok && current == sess
	if removed {
		delete(r.sessions, sess.TokenID)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		r.afterRemove(sess, count)
	}
	return removed
}

func (r *Registry) afterRemove(sess *Session, count int) {
	r.metrics.SetActiveSessions(count)
	r.metrics.ObserveSessionEvent("removed")
	r.log.Info("session removed", "token_id", sess.TokenID)
	r.notify(context.Background(), sess.TokenID, "disconnected")
}

func (r *Registry) notify(ctx context.Context, tokenID int64, kind string) {
	if r.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultNotifyTimeout)
	defer cancel()
	if err := r.events.PublishSession(ctx, tokenID, kind); err != nil {
		r.log.Warn("failed to publish session event", "token_id", tokenID, "kind", kind, "err", err)
	}
}

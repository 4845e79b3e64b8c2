package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/talkie/core"
)

// MemoryStore is an in-memory implementation of the Store and ReplayGuard interfaces
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[int64]*core.Profile
	audio    []core.AudioMessage
	used     map[string]time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[int64]*core.Profile),
		used:     make(map[string]time.Time),
	}
}

// UpsertProfile creates the profile on first sight, else refreshes it
func (s *MemoryStore) UpsertProfile(_ context.Context, tokenID int64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if p, ok := s.profiles[tokenID]; ok {
		p.WalletAddress = address
		p.LastActive = now
		return nil
	}
	s.profiles[tokenID] = &core.Profile{
		WalletAddress:      address,
		TokenID:            tokenID,
		FirstLogin:         now,
		LastActive:         now,
		LifetimeRecordings: []string{},
	}
	return nil
}

func (s *MemoryStore) RecordAudio(_ context.Context, msg core.AudioMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, msg)
	return nil
}

func (s *MemoryStore) IncrementSent(_ context.Context, tokenID int64, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[tokenID]
	if !ok {
		return nil
	}
	p.TotalMessagesSent++
	p.LifetimeRecordings = append(p.LifetimeRecordings, messageID)
	p.LastActive = time.Now().UTC()
	return nil
}

func (s *MemoryStore) TouchLastActive(_ context.Context, tokenID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[tokenID]; ok {
		p.LastActive = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) LatestAudio(_ context.Context) (*core.AudioMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.audio) == 0 {
		return nil, core.ErrNotFound
	}
	latest := s.audio[0]
	for _, m := range s.audio[1:] {
		if !m.Timestamp.Before(latest.Timestamp) {
			latest = m
		}
	}
	return &latest, nil
}

func (s *MemoryStore) FindProfile(_ context.Context, tokenID int64) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[tokenID]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := *p
	c.LifetimeRecordings = append([]string(nil), p.LifetimeRecordings...)
	return &c, nil
}

func (s *MemoryStore) AudioByToken(_ context.Context, tokenID int64, limit int) ([]core.AudioMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.AudioMessage
	for _, m := range s.audio {
		if m.TokenID == tokenID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountProfiles(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.profiles)), nil
}

func (s *MemoryStore) CountAudio(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.audio)), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// MarkUsed records key until ttl elapses
func (s *MemoryStore) MarkUsed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.used[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.used[key] = now.Add(ttl)

	// Drop expired entries while we hold the lock
	for k, expiry := range s.used {
		if !now.Before(expiry) {
			delete(s.used, k)
		}
	}
	return true, nil
}

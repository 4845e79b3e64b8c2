package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/layer-3/talkie/core"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store and ReplayGuard interfaces
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "talkie:",
	}
}

func (s *RedisStore) profileKey(tokenID int64) string {
	return s.prefix + "profile:" + strconv.FormatInt(tokenID, 10)
}

func (s *RedisStore) recordingsKey(tokenID int64) string {
	return s.prefix + "recordings:" + strconv.FormatInt(tokenID, 10)
}

func (s *RedisStore) audioKey(id string) string {
	return s.prefix + "audio:" + id
}

func (s *RedisStore) tokenTimelineKey(tokenID int64) string {
	return s.prefix + "timeline:" + strconv.FormatInt(tokenID, 10)
}

func (s *RedisStore) timelineKey() string { return s.prefix + "timeline" }

func (s *RedisStore) profilesKey() string { return s.prefix + "profiles" }

// UpsertProfile creates the profile hash on first sight, else refreshes it
func (s *RedisStore) UpsertProfile(ctx context.Context, tokenID int64, address string) error {
	now := formatTime(time.Now())
	key := s.profileKey(tokenID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "first_login", now)
		pipe.HSetNX(ctx, key, "total_sent", 0)
		pipe.HSet(ctx, key, "wallet_address", address, "last_active", now)
		pipe.SAdd(ctx, s.profilesKey(), tokenID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// RecordAudio stores the message and indexes it by time
func (s *RedisStore) RecordAudio(ctx context.Context, msg core.AudioMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal audio: %w", err)
	}
	score := float64(msg.Timestamp.UnixMilli())

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.audioKey(msg.ID), payload, 0)
		pipe.ZAdd(ctx, s.timelineKey(), redis.Z{Score: score, Member: msg.ID})
		pipe.ZAdd(ctx, s.tokenTimelineKey(msg.TokenID), redis.Z{Score: score, Member: msg.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record audio: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrementSent(ctx context.Context, tokenID int64, messageID string) error {
	key := s.profileKey(tokenID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if exists == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "total_sent", 1)
		pipe.HSet(ctx, key, "last_active", formatTime(time.Now()))
		pipe.RPush(ctx, s.recordingsKey(tokenID), messageID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to increment sent counter: %w", err)
	}
	return nil
}

func (s *RedisStore) TouchLastActive(ctx context.Context, tokenID int64) error {
	key := s.profileKey(tokenID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if exists == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key, "last_active", formatTime(time.Now())).Err(); err != nil {
		return fmt.Errorf("failed to touch profile: %w", err)
	}
	return nil
}

func (s *RedisStore) LatestAudio(ctx context.Context) (*core.AudioMessage, error) {
	ids, err := s.client.ZRevRange(ctx, s.timelineKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	if len(ids) == 0 {
		return nil, core.ErrNotFound
	}
	msgs, err := s.loadAudio(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, core.ErrNotFound
	}
	return &msgs[0], nil
}

func (s *RedisStore) FindProfile(ctx context.Context, tokenID int64) (*core.Profile, error) {
	fields, err := s.client.HGetAll(ctx, s.profileKey(tokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrNotFound
	}
	recordings, err := s.client.LRange(ctx, s.recordingsKey(tokenID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings: %w", err)
	}

	sent, _ := strconv.ParseInt(fields["total_sent"], 10, 64)
	return &core.Profile{
		WalletAddress:      fields["wallet_address"],
		TokenID:            tokenID,
		TotalMessagesSent:  sent,
		FirstLogin:         parseTime(fields["first_login"]),
		LastActive:         parseTime(fields["last_active"]),
		LifetimeRecordings: recordings,
	}, nil
}

func (s *RedisStore) AudioByToken(ctx context.Context, tokenID int64, limit int) ([]core.AudioMessage, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRange(ctx, s.tokenTimelineKey(tokenID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read token timeline: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.loadAudio(ctx, ids)
}

func (s *RedisStore) CountProfiles(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.profilesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (s *RedisStore) CountAudio(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.timelineKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count audio: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MarkUsed records key with SETNX so concurrent logins race safely
func (s *RedisStore) MarkUsed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+"challenge:"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark challenge: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) loadAudio(ctx context.Context, ids []string) ([]core.AudioMessage, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.audioKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}

	out := make([]core.AudioMessage, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var msg core.AudioMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode audio: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/layer-3/talkie/core"
)

// PostgresStore persists profiles and audio messages in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and bootstraps the schema
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			nft_token_id BIGINT PRIMARY KEY,
			wallet_address TEXT NOT NULL,
			total_messages_sent BIGINT NOT NULL DEFAULT 0,
			total_messages_received BIGINT NOT NULL DEFAULT 0,
			lifetime_recordings TEXT[] NOT NULL DEFAULT '{}',
			first_login TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS audio_messages (
			id TEXT PRIMARY KEY,
			nft_token_id BIGINT NOT NULL,
			wallet_address TEXT NOT NULL,
			audio_data TEXT NOT NULL,
			duration DOUBLE PRECISION NOT NULL,
			message_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audio_messages_created ON audio_messages (created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_audio_messages_token_created ON audio_messages (nft_token_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS used_challenges (
			key TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, tokenID int64, address string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_profiles (nft_token_id, wallet_address, first_login, last_active)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (nft_token_id) DO UPDATE SET wallet_address = EXCLUDED.wallet_address, last_active = now()`,
		tokenID, address,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordAudio(ctx context.Context, msg core.AudioMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audio_messages (id, nft_token_id, wallet_address, audio_data, duration, message_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.TokenID, msg.WalletAddress, msg.AudioData, msg.Duration, msg.MessageType, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record audio: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementSent(ctx context.Context, tokenID int64, messageID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_profiles
		 SET total_messages_sent = total_messages_sent + 1,
		     lifetime_recordings = array_append(lifetime_recordings, $2),
		     last_active = now()
		 WHERE nft_token_id = $1`,
		tokenID, messageID,
	)
	if err != nil {
		return fmt.Errorf("increment sent: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchLastActive(ctx context.Context, tokenID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE user_profiles SET last_active = now() WHERE nft_token_id = $1`, tokenID)
	if err != nil {
		return fmt.Errorf("touch profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestAudio(ctx context.Context) (*core.AudioMessage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, nft_token_id, wallet_address, audio_data, duration, message_type, created_at
		 FROM audio_messages ORDER BY created_at DESC LIMIT 1`)
	msg, err := scanAudio(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest audio: %w", err)
	}
	return &msg, nil
}

func (s *PostgresStore) FindProfile(ctx context.Context, tokenID int64) (*core.Profile, error) {
	var p core.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT nft_token_id, wallet_address, total_messages_sent, total_messages_received,
		        lifetime_recordings, first_login, last_active
		 FROM user_profiles WHERE nft_token_id = $1`, tokenID,
	).Scan(&p.TokenID, &p.WalletAddress, &p.TotalMessagesSent, &p.TotalMessagesRecvd,
		&p.LifetimeRecordings, &p.FirstLogin, &p.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) AudioByToken(ctx context.Context, tokenID int64, limit int) ([]core.AudioMessage, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, nft_token_id, wallet_address, audio_data, duration, message_type, created_at
		 FROM audio_messages WHERE nft_token_id = $1 ORDER BY created_at ASC LIMIT $2`,
		tokenID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audio by token: %w", err)
	}
	defer rows.Close()

	var out []core.AudioMessage
	for rows.Next() {
		msg, err := scanAudio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audio: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM user_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountAudio(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM audio_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audio: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// MarkUsed inserts key, or revives it if its previous record has expired
func (s *PostgresStore) MarkUsed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var stored string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO used_challenges (key, expires_at) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at
		 WHERE used_challenges.expires_at < now()
		 RETURNING key`,
		key, time.Now().Add(ttl),
	).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark challenge: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanAudio(row pgx.Row) (core.AudioMessage, error) {
	var m core.AudioMessage
	err := row.Scan(&m.ID, &m.TokenID, &m.WalletAddress, &m.AudioData, &m.Duration, &m.MessageType, &m.Timestamp)
	return m, err
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/internal/eth"
	"github.com/layer-3/talkie/observability"
	"github.com/layer-3/talkie/ports"
)

const (
	DefaultCredentialTTL = 24 * time.Hour
	DefaultOracleTimeout = 10 * time.Second

	challengePrefix = "Yeti Talki Authentication Request"
)

// AuthService issues and validates access credentials
type AuthService struct {
	tokenizer ports.Tokenizer
	oracle    ports.Oracle
	store     ports.Store
	replay    ports.ReplayGuard
	metrics   *observability.Metrics
	log       *slog.Logger
	now       func() time.Time

	credentialTTL time.Duration
	oracleTimeout time.Duration
}

type AuthOption func(*AuthService)

// WithReplayGuard makes every (address, challenge) pair single use
func WithReplayGuard(g ports.ReplayGuard) AuthOption {
	return func(s *AuthService) { s.replay = g }
}

func WithAuthMetrics(m *observability.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

func WithCredentialTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.credentialTTL = ttl
		}
	}
}

func WithOracleTimeout(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.oracleTimeout = d
		}
	}
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	oracle ports.Oracle,
	store ports.Store,
	log *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		tokenizer:     tokenizer,
		oracle:        oracle,
		store:         store,
		log:           log,
		now:           time.Now,
		credentialTTL: DefaultCredentialTTL,
		oracleTimeout: DefaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge returns a fresh message for a wallet to sign
func (s *AuthService) Challenge() (string, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return fmt.Sprintf("%s: %d %s", challengePrefix, s.now().Unix(), hex.EncodeToString(nonceBytes)), nil
}

// Issue proves that address signed message, looks up the NFT it holds and
// mints a credential for the first token returned by the oracle.
func (s *AuthService) Issue(ctx context.Context, address, message, signature string) (*core.Credential, error) {
	ok, err := eth.VerifyPersonalSignature(message, signature, address)
	if err != nil || !ok {
		s.metrics.ObserveAuth("invalid_signature")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
		}
		return nil, core.ErrInvalidSignature
	}

	tokens, err := s.ownedTokens(ctx, address)
	if err != nil {
		s.metrics.ObserveAuth("oracle_unavailable")
		s.log.Error("ownership lookup failed", "address", address, "err", err)
		return nil, err
	}
	if len(tokens) == 0 {
		s.metrics.ObserveAuth("not_authorized")
		return nil, core.ErrNotAuthorized
	}
	tokenID := tokens[0]

	if s.replay != nil {
		fresh, err := s.replay.MarkUsed(ctx, replayKey(address, message), s.credentialTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to record challenge: %w", err)
		}
		if !fresh {
			s.metrics.ObserveAuth("replayed")
			return nil, core.ErrChallengeReused
		}
	}

	now := s.now().UTC()
	claim := core.Claim{
		Address:   address,
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.credentialTTL),
	}
	token, err := s.tokenizer.ClaimToToken(claim)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	// The profile is a read model; a storage failure must not block access.
	if err := s.store.UpsertProfile(ctx, tokenID, address); err != nil {
		s.log.Warn("failed to upsert profile", "token_id", tokenID, "address", address, "err", err)
	}

	s.metrics.ObserveAuth("granted")
	s.log.Info("credential issued", "token_id", tokenID, "address", address)
	return &core.Credential{Token: token, Claim: claim}, nil
}

// ValidateToken decodes a bearer credential. It performs no I/O.
func (s *AuthService) ValidateToken(token string) (*core.Claim, error) {
	claim, err := s.tokenizer.TokenToClaim(token)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(claim.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return claim, nil
}

func (s *AuthService) ownedTokens(ctx context.Context, address string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	tokens, err := s.oracle.OwnedTokens(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrOracleUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}
	return tokens, nil
}

func replayKey(address, message string) string {
	return strings.ToLower(strings.TrimSpace(address)) + "|" + message
}

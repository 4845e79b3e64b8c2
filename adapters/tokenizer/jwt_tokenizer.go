package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/ports"
)

const AudienceAccess = "talkie:access"

const Issuer = "talkie"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	now     func() time.Time
}

// Option customises a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock overrides the time source used for validation.
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, opts ...Option) ports.Tokenizer {
	j := &JWTTokenizer{signKey: signKey, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ClaimToToken signs a claim into a bearer credential
func (j *JWTTokenizer) ClaimToToken(claim core.Claim) (string, error) {
	if strings.TrimSpace(claim.Address) == "" || claim.ExpiresAt.IsZero() {
		return "", core.ErrInvalidToken
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   claim.Address,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(claim.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(claim.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		WalletAddress: claim.Address,
		TokenID:       claim.TokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// TokenToClaim verifies a credential and returns its claim
func (j *JWTTokenizer) TokenToClaim(tokenStr string) (*core.Claim, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	},
		jwt.WithAudience(AudienceAccess),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || claims.WalletAddress == "" {
		return nil, core.ErrInvalidToken
	}

	claim := &core.Claim{
		Address:   claims.WalletAddress,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		claim.IssuedAt = claims.IssuedAt.Time
	}

	return claim, nil
}

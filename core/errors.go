package core

import "errors"

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrNotAuthorized     = errors.New("no qualifying nft owned")
	ErrOracleUnavailable = errors.New("ownership oracle unavailable")
	ErrChallengeReused   = errors.New("challenge already used")
	ErrPayloadTooLarge   = errors.New("audio message too long")
	ErrInvalidAudio      = errors.New("invalid audio message")
	ErrConnectionRefused = errors.New("connection refused")
	ErrDeliveryFailure   = errors.New("delivery failed")
	ErrNotFound          = errors.New("not found")
)

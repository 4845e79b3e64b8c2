package core

import (
	"strings"
	"time"
)

// Claim is the decoded content of a credential
type Claim struct {
	Address   string    // Wallet address that proved ownership
	TokenID   int64     // NFT token id granting access
	IssuedAt  time.Time // When the credential was minted
	ExpiresAt time.Time // When the credential stops being accepted
}

// Credential is a signed claim ready to hand to a client
type Credential struct {
	Token string
	Claim Claim
}

// SameAddress compares wallet addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

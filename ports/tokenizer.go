package ports

import "github.com/layer-3/talkie/core"

// Tokenizer converts between claims and bearer credentials
type Tokenizer interface {
	ClaimToToken(claim core.Claim) (string, error)
	TokenToClaim(token string) (*core.Claim, error)
}

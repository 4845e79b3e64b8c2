package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the wallet and nft pairing
type AccessClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"wallet_address"`
	TokenID       int64  `json:"token_id"`
}

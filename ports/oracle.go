//go:generate go run go.uber.org/mock/mockgen -source=oracle.go -destination=../mocks/mock_oracle.go -package=mocks
package ports

import "context"

// Oracle reports the NFT token ids held by a wallet, in enumeration order
type Oracle interface {
	OwnedTokens(ctx context.Context, address string) ([]int64, error)
	Connected(ctx context.Context) bool
}

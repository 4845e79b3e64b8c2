package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/ports"
)

// erc721ABI holds the enumerable subset of ERC-721 we query
const erc721ABI = `[
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenOfOwnerByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Backend is the part of ethclient.Client the oracle needs
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// ERC721Oracle reads token ownership from an enumerable ERC-721 contract
type ERC721Oracle struct {
	backend   Backend
	contract  common.Address
	abi       abi.ABI
	maxTokens int
}

// NewERC721Oracle creates an oracle for contract. At most maxTokens ids are
// enumerated per wallet.
func NewERC721Oracle(backend Backend, contract string, maxTokens int) (ports.Oracle, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address %q", contract)
	}
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc721 abi: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 1
	}
	return &ERC721Oracle{
		backend:   backend,
		contract:  common.HexToAddress(contract),
		abi:       parsed,
		maxTokens: maxTokens,
	}, nil
}

// OwnedTokens returns the wallet's token ids in tokenOfOwnerByIndex order
func (o *ERC721Oracle) OwnedTokens(ctx context.Context, address string) ([]int64, error) {
	if !common.IsHexAddress(address) {
		return nil, nil
	}
	owner := common.HexToAddress(address)

	balance, err := o.callUint(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, nil
	}

	count := o.maxTokens
	if balance.IsInt64() && balance.Int64() < int64(count) {
		count = int(balance.Int64())
	}

	tokens := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := o.callUint(ctx, "tokenOfOwnerByIndex", owner, big.NewInt(int64(i)))
		if err != nil {
			return nil, err
		}
		if !id.IsInt64() {
			return nil, fmt.Errorf("%w: token id %s out of range", core.ErrOracleUnavailable, id)
		}
		tokens = append(tokens, id.Int64())
	}

	return tokens, nil
}

// Connected reports whether the RPC endpoint answers
func (o *ERC721Oracle) Connected(ctx context.Context) bool {
	_, err := o.backend.ChainID(ctx)
	return err == nil
}

func (o *ERC721Oracle) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := o.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := o.backend.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrOracleUnavailable, method, err)
	}

	values, err := o.abi.Unpack(method, out)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("%w: %s: unexpected response", core.ErrOracleUnavailable, method)
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected response type", core.ErrOracleUnavailable, method)
	}
	return value, nil
}

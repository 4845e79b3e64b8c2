package oracle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/talkie/core"
	"github.com/stretchr/testify/require"
)

const contract = "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"

// fakeChain answers balanceOf/tokenOfOwnerByIndex from an in-memory ledger
type fakeChain struct {
	t       *testing.T
	abi     abi.ABI
	holders map[common.Address][]*big.Int
	err     error
	calls   int
}

func newFakeChain(t *testing.T) *fakeChain {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	require.NoError(t, err)
	return &fakeChain{t: t, abi: parsed, holders: map[common.Address][]*big.Int{}}
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	require.Equal(f.t, common.HexToAddress(contract), *call.To)
	method, err := f.abi.MethodById(call.Data[:4])
	require.NoError(f.t, err)
	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(f.t, err)
	owned := f.holders[args[0].(common.Address)]

	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(big.NewInt(int64(len(owned))))
	case "tokenOfOwnerByIndex":
		return method.Outputs.Pack(owned[args[1].(*big.Int).Int64()])
	}
	return nil, errors.New("unknown method")
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(33139), nil
}

func TestERC721OracleOwnedTokens(t *testing.T) {
	req := require.New(t)
	chain := newFakeChain(t)
	holder := common.HexToAddress("0xABC0000000000000000000000000000000000001")
	chain.holders[holder] = []*big.Int{big.NewInt(42), big.NewInt(7)}

	o, err := NewERC721Oracle(chain, contract, 16)
	req.NoError(err)

	tokens, err := o.OwnedTokens(context.Background(), strings.ToLower(holder.Hex()))
	req.NoError(err)
	req.Equal([]int64{42, 7}, tokens)
	req.True(o.Connected(context.Background()))

	t.Run("wallet without tokens", func(t *testing.T) {
		tokens, err := o.OwnedTokens(context.Background(), "0x0000000000000000000000000000000000000002")
		require.NoError(t, err)
		require.Empty(t, tokens)
	})

	t.Run("invalid address is never queried", func(t *testing.T) {
		before := chain.calls
		tokens, err := o.OwnedTokens(context.Background(), "not-an-address")
		require.NoError(t, err)
		require.Empty(t, tokens)
		require.Equal(t, before, chain.calls)
	})
}

func TestERC721OracleEnumerationLimit(t *testing.T) {
	chain := newFakeChain(t)
	holder := common.HexToAddress("0xABC0000000000000000000000000000000000001")
	chain.holders[holder] = []*big.Int{big.NewInt(3), big.NewInt(4), big.NewInt(5)}

	o, err := NewERC721Oracle(chain, contract, 1)
	require.NoError(t, err)

	tokens, err := o.OwnedTokens(context.Background(), holder.Hex())
	require.NoError(t, err)
	require.Equal(t, []int64{3}, tokens)
	require.Equal(t, 2, chain.calls)
}

func TestERC721OracleFailsClosed(t *testing.T) {
	chain := newFakeChain(t)
	chain.err = errors.New("connection refused")

	o, err := NewERC721Oracle(chain, contract, 16)
	require.NoError(t, err)

	_, err = o.OwnedTokens(context.Background(), "0xABC0000000000000000000000000000000000001")
	require.ErrorIs(t, err, core.ErrOracleUnavailable)
	require.False(t, o.Connected(context.Background()))
}

func TestNewERC721OracleRejectsBadContract(t *testing.T) {
	_, err := NewERC721Oracle(newFakeChain(t), "0x123", 1)
	require.Error(t, err)
}

func TestDevOracle(t *testing.T) {
	req := require.New(t)
	o := NewDevOracle(5000)

	tokens, err := o.OwnedTokens(context.Background(), "0x000000000000000000000000000000000000ffff")
	req.NoError(err)
	req.Equal([]int64{0xffff%5000 + 1}, tokens)

	tokens, err = o.OwnedTokens(context.Background(), "0x1")
	req.NoError(err)
	req.Empty(tokens)
}

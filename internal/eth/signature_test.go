package eth

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func signPersonal(t *testing.T, message string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifyPersonalSignature(t *testing.T) {
	req := require.New(t)
	message := "Auth: 1700000000"
	address, sig := signPersonal(t, message)

	ok, err := VerifyPersonalSignature(message, sig, address)
	req.NoError(err)
	req.True(ok)

	t.Run("address comparison ignores case", func(t *testing.T) {
		ok, err := VerifyPersonalSignature(message, sig, strings.ToLower(address))
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("signature without 0x prefix", func(t *testing.T) {
		ok, err := VerifyPersonalSignature(message, strings.TrimPrefix(sig, "0x"), address)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("different message recovers another signer", func(t *testing.T) {
		ok, err := VerifyPersonalSignature("Auth: 1700000001", sig, address)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("someone else's address", func(t *testing.T) {
		other, _ := signPersonal(t, message)
		ok, err := VerifyPersonalSignature(message, sig, other)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestDecodeSignatureRejectsGarbage(t *testing.T) {
	for name, sig := range map[string]string{
		"not hex":    "0xzz",
		"too short":  "0x1234",
		"bad v byte": "0x" + strings.Repeat("11", 64) + "05",
		"empty":      "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSignature(sig)
			require.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestIsZeroAddress(t *testing.T) {
	req := require.New(t)
	req.True(IsZeroAddress(""))
	req.True(IsZeroAddress("0x0000000000000000000000000000000000000000"))
	req.False(IsZeroAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"))
}

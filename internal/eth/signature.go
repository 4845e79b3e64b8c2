// Package eth wraps the go-ethereum primitives used to prove wallet ownership.
package eth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an r || s || v secp256k1 signature.
const SignatureLength = 65

var ErrMalformedSignature = errors.New("malformed signature")

// DecodeSignature parses a hex signature, with or without 0x prefix, and
// normalises the recovery byte to 0/1.
func DecodeSignature(sigHex string) ([]byte, error) {
	sigHex = strings.TrimSpace(sigHex)
	if !strings.HasPrefix(sigHex, "0x") && !strings.HasPrefix(sigHex, "0X") {
		sigHex = "0x" + sigHex
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: signature must be %d bytes", ErrMalformedSignature, SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return nil, fmt.Errorf("%w: invalid recovery id", ErrMalformedSignature)
	}
	return sig, nil
}

// RecoverPersonalSigner returns the address that produced sigHex over message
// using the personal_sign ("\x19Ethereum Signed Message:\n" prefixed) scheme.
func RecoverPersonalSigner(message, sigHex string) (common.Address, error) {
	sig, err := DecodeSignature(sigHex)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature reports whether address signed message.
func VerifyPersonalSignature(message, sigHex, address string) (bool, error) {
	recovered, err := RecoverPersonalSigner(message, sigHex)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(recovered.Hex(), strings.TrimSpace(address)), nil
}

// IsZeroAddress reports whether addr is empty or the zero address.
func IsZeroAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	return addr == "" || common.HexToAddress(addr) == (common.Address{})
}

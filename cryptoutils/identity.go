package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Identity is a secp256k1 wallet derived from a hex secret. It is immutable
// after construction and is never persisted.
type Identity struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewIdentityFromHex parses a 32-byte hex secret, with or without 0x prefix.
func NewIdentityFromHex(secret string) (*Identity, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(secret), "0x")
	privateKey, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return NewIdentity(privateKey), nil
}

func NewIdentity(privateKey *ecdsa.PrivateKey) *Identity {
	return &Identity{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// GenerateIdentity creates an identity with a random secret.
func GenerateIdentity() (*Identity, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return NewIdentity(privateKey), nil
}

// Address returns the EIP-55 checksummed address.
func (i *Identity) Address() string {
	return i.address.Hex()
}

// SignMessage signs msg exactly as wallet personal_sign does: the text is
// prefixed per EIP-191, hashed with keccak256, and the recovery id is
// shifted to 27/28.
func (i *Identity) SignMessage(msg string) (string, error) {
	if i == nil || i.privateKey == nil {
		return "", ErrInvalidPrivateKey
	}
	signature, err := crypto.Sign(accounts.TextHash([]byte(msg)), i.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(signature), nil
}

// RecoverAddress returns the address that produced signature over msg.
func RecoverAddress(msg string, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pubkey, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return "", fmt.Errorf("could not recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey).Hex(), nil
}

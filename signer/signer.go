package signer

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrInvalidKey is returned when a key is not a valid secret for the curve
	ErrInvalidKey = errors.New("signer: invalid private key")

	// ErrRecoveryFailed is returned when no sender can be derived from a signature
	ErrRecoveryFailed = errors.New("signer: sender recovery failed")
)

// KeySize is the length of a raw private key
const KeySize = 32

// PrivateKey is raw key material handed in by the key store for one call.
type PrivateKey [KeySize]byte

// ParsePrivateKey decodes a 0x-prefixed 32-byte hex key
func ParsePrivateKey(s string) (PrivateKey, error) {
	var key PrivateKey
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return key, fmt.Errorf("%w: key must be a 0x-prefixed hex string", ErrInvalidKey)
	}
	raw, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Hex returns the 0x-prefixed key
func (k PrivateKey) Hex() string {
	return hexutil.Encode(k[:])
}

// Signature is a recoverable signature in its wire layout: r ‖ s followed by
// the recovery metadata (a one-byte recovery id for secp256k1, the 32-byte
// public key for ed25519).
type Signature []byte

func (s Signature) R() []byte {
	if len(s) < 32 {
		return nil
	}
	return s[:32]
}

func (s Signature) S() []byte {
	if len(s) < 64 {
		return nil
	}
	return s[32:64]
}

// Recovery returns the bytes that allow deriving the signer's identity
func (s Signature) Recovery() []byte {
	if len(s) < 64 {
		return nil
	}
	return s[64:]
}

func (s Signature) Hex() string {
	return hexutil.Encode(s)
}

// Signer signs canonical transaction bytes and recovers their sender.
// Implementations hold no key material.
type Signer interface {
	// Hash is the digest actually signed
	Hash(data []byte) common.Hash

	// Sign signs the digest of canonical with key, deterministically
	Sign(canonical []byte, key PrivateKey) (Signature, error)

	// RecoverSender derives the address that produced sig over canonical
	RecoverSender(canonical []byte, sig Signature) (common.Address, error)

	// Address returns the account address of key
	Address(key PrivateKey) (common.Address, error)

	// Crypto names the signature scheme
	Crypto() Crypto
}

// Crypto selects a signature scheme
type Crypto string

const (
	CryptoSecp256k1 Crypto = "secp256k1"
	CryptoEd25519   Crypto = "ed25519"
)

// ForCrypto returns the signer for a scheme with its default hasher
func ForCrypto(c Crypto) (Signer, error) {
	switch Crypto(strings.ToLower(string(c))) {
	case CryptoSecp256k1, "":
		return NewSecp256k1(Keccak256{}), nil
	case CryptoEd25519:
		return NewEd25519(), nil
	}
	return nil, fmt.Errorf("unknown crypto %q, expected %s or %s", c, CryptoSecp256k1, CryptoEd25519)
}

// GenerateKey returns a fresh key that is valid for s
func GenerateKey(s Signer) (PrivateKey, error) {
	for {
		var key PrivateKey
		if _, err := rand.Read(key[:]); err != nil {
			return key, fmt.Errorf("failed to read random key: %w", err)
		}
		if _, err := s.Address(key); err == nil {
			return key, nil
		}
	}
}

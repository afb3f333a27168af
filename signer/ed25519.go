package signer

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Ed25519SignatureSize is sig(64) ‖ pubkey(32)
const Ed25519SignatureSize = ed25519.SignatureSize + ed25519.PublicKeySize

type ed25519Signer struct {
	hasher Hasher
}

// NewEd25519 returns the signer used by blake2b builds of the node.
// The private key is treated as the 32-byte ed25519 seed.
func NewEd25519() Signer {
	return &ed25519Signer{hasher: Blake2b{}}
}

func (s *ed25519Signer) Crypto() Crypto { return CryptoEd25519 }

func (s *ed25519Signer) Hash(data []byte) common.Hash {
	return s.hasher.Hash(data)
}

func (s *ed25519Signer) Sign(canonical []byte, key PrivateKey) (Signature, error) {
	if key == (PrivateKey{}) {
		return nil, fmt.Errorf("%w: zero seed", ErrInvalidKey)
	}
	priv := ed25519.NewKeyFromSeed(key[:])
	digest := s.hasher.Hash(canonical)

	sig := make([]byte, 0, Ed25519SignatureSize)
	sig = append(sig, ed25519.Sign(priv, digest[:])...)
	sig = append(sig, priv.Public().(ed25519.PublicKey)...)
	return Signature(sig), nil
}

func (s *ed25519Signer) RecoverSender(canonical []byte, sig Signature) (common.Address, error) {
	if len(sig) != Ed25519SignatureSize {
		return common.Address{}, fmt.Errorf("%w: signature is %d bytes, want %d", ErrRecoveryFailed, len(sig), Ed25519SignatureSize)
	}
	pub := ed25519.PublicKey(sig.Recovery())
	digest := s.hasher.Hash(canonical)
	if !ed25519.Verify(pub, digest[:], sig[:ed25519.SignatureSize]) {
		return common.Address{}, fmt.Errorf("%w: signature does not verify", ErrRecoveryFailed)
	}
	return s.pubkeyToAddress(pub), nil
}

func (s *ed25519Signer) Address(key PrivateKey) (common.Address, error) {
	if key == (PrivateKey{}) {
		return common.Address{}, fmt.Errorf("%w: zero seed", ErrInvalidKey)
	}
	priv := ed25519.NewKeyFromSeed(key[:])
	return s.pubkeyToAddress(priv.Public().(ed25519.PublicKey)), nil
}

func (s *ed25519Signer) pubkeyToAddress(pub ed25519.PublicKey) common.Address {
	h := s.hasher.Hash(pub)
	return common.BytesToAddress(h[12:])
}

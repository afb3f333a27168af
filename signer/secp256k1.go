package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Secp256k1SignatureSize is r(32) ‖ s(32) ‖ v(1)
const Secp256k1SignatureSize = crypto.SignatureLength

type secp256k1Signer struct {
	hasher Hasher
}

// NewSecp256k1 returns an ECDSA signer. Nonces follow RFC 6979, so signing the
// same bytes with the same key always yields the same signature.
func NewSecp256k1(hasher Hasher) Signer {
	if hasher == nil {
		hasher = Keccak256{}
	}
	return &secp256k1Signer{hasher: hasher}
}

func (s *secp256k1Signer) Crypto() Crypto { return CryptoSecp256k1 }

func (s *secp256k1Signer) Hash(data []byte) common.Hash {
	return s.hasher.Hash(data)
}

func (s *secp256k1Signer) Sign(canonical []byte, key PrivateKey) (Signature, error) {
	priv, err := crypto.ToECDSA(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	digest := s.hasher.Hash(canonical)
	sig, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return Signature(sig), nil
}

func (s *secp256k1Signer) RecoverSender(canonical []byte, sig Signature) (common.Address, error) {
	if len(sig) != Secp256k1SignatureSize {
		return common.Address{}, fmt.Errorf("%w: signature is %d bytes, want %d", ErrRecoveryFailed, len(sig), Secp256k1SignatureSize)
	}
	v := sig[crypto.RecoveryIDOffset]
	r := new(big.Int).SetBytes(sig.R())
	ss := new(big.Int).SetBytes(sig.S())
	if !crypto.ValidateSignatureValues(v, r, ss, true) {
		return common.Address{}, fmt.Errorf("%w: signature values out of range", ErrRecoveryFailed)
	}
	digest := s.hasher.Hash(canonical)
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (s *secp256k1Signer) Address(key PrivateKey) (common.Address, error) {
	priv, err := crypto.ToECDSA(key[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

package signer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Hasher computes the fixed-size digest that gets signed
type Hasher interface {
	Hash(data []byte) common.Hash
	Name() string
}

// Keccak256 is the default digest of the secp256k1 build of the node
type Keccak256 struct{}

func (Keccak256) Hash(data []byte) common.Hash { return crypto.Keccak256Hash(data) }
func (Keccak256) Name() string                 { return "keccak256" }

// Blake2b is blake2b-256 without a key
type Blake2b struct{}

func (Blake2b) Hash(data []byte) common.Hash { return blake2b.Sum256(data) }
func (Blake2b) Name() string                 { return "blake2b" }

package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrMissingField is returned when a required field was not supplied
	ErrMissingField = errors.New("tx: missing field")

	// ErrFieldOutOfRange is returned when a field does not fit its declared width
	ErrFieldOutOfRange = errors.New("tx: field out of range")

	// ErrSignatureMismatch means the recovered sender disagrees with the signing
	// key. It indicates a broken signer or encoding and must abort the operation.
	ErrSignatureMismatch = errors.New("tx: signature does not match sender")
)

const (
	// MaxVersion is the newest transaction layout understood by the builder
	MaxVersion = 2

	// MaxNonceLength bounds the opaque nonce string
	MaxNonceLength = 128
)

// Transaction is an unsigned transaction. It is immutable once built; the
// accessors return copies.
type Transaction struct {
	nonce           string
	to              *common.Address
	value           uint256.Int
	data            []byte
	quota           uint64
	validUntilBlock uint64
	chainID         uint256.Int
	version         uint32
}

func (t *Transaction) Nonce() string           { return t.nonce }
func (t *Transaction) Quota() uint64           { return t.quota }
func (t *Transaction) ValidUntilBlock() uint64 { return t.validUntilBlock }
func (t *Transaction) Version() uint32         { return t.version }
func (t *Transaction) IsCreation() bool        { return t.to == nil }

// To returns the destination, nil for contract creation
func (t *Transaction) To() *common.Address {
	if t.to == nil {
		return nil
	}
	to := *t.to
	return &to
}

func (t *Transaction) Value() *uint256.Int   { return new(uint256.Int).Set(&t.value) }
func (t *Transaction) ChainID() *uint256.Int { return new(uint256.Int).Set(&t.chainID) }
func (t *Transaction) Data() []byte          { return common.CopyBytes(t.data) }

// Fields collects builder input before validation
type Fields struct {
	Nonce           string
	To              *common.Address
	Value           *uint256.Int
	Data            []byte
	Quota           uint64
	ValidUntilBlock uint64
	ChainID         *uint256.Int
	Version         uint32
}

// Option sets one field; options may be given in any order
type Option func(*Fields)

func WithNonce(nonce string) Option { return func(f *Fields) { f.Nonce = nonce } }
func WithQuota(quota uint64) Option { return func(f *Fields) { f.Quota = quota } }
func WithData(data []byte) Option   { return func(f *Fields) { f.Data = common.CopyBytes(data) } }
func WithVersion(v uint32) Option   { return func(f *Fields) { f.Version = v } }

func WithValidUntilBlock(height uint64) Option {
	return func(f *Fields) { f.ValidUntilBlock = height }
}

// WithTo sets the destination; without it the transaction creates a contract
func WithTo(to common.Address) Option {
	return func(f *Fields) { f.To = &to }
}

func WithValue(v *uint256.Int) Option {
	return func(f *Fields) { f.Value = v }
}

func WithChainID(id *uint256.Int) Option {
	return func(f *Fields) { f.ChainID = id }
}

// WithChainIDUint64 is WithChainID for the common small identifiers
func WithChainIDUint64(id uint64) Option {
	return WithChainID(uint256.NewInt(id))
}

// Build validates the supplied fields and returns an immutable transaction.
func Build(opts ...Option) (*Transaction, error) {
	var f Fields
	for _, opt := range opts {
		opt(&f)
	}
	return f.Build()
}

// Build validates f and returns an immutable transaction
func (f Fields) Build() (*Transaction, error) {
	// -- required fields
	if f.Nonce == "" {
		return nil, fmt.Errorf("%w: nonce", ErrMissingField)
	}
	if f.Quota == 0 {
		return nil, fmt.Errorf("%w: quota", ErrMissingField)
	}
	if f.ValidUntilBlock == 0 {
		return nil, fmt.Errorf("%w: valid_until_block", ErrMissingField)
	}
	if f.ChainID == nil {
		return nil, fmt.Errorf("%w: chain_id", ErrMissingField)
	}
	if f.To == nil && len(f.Data) == 0 {
		return nil, fmt.Errorf("%w: data is required for contract creation", ErrMissingField)
	}

	// -- ranges
	if len(f.Nonce) > MaxNonceLength {
		return nil, fmt.Errorf("%w: nonce is %d bytes, max %d", ErrFieldOutOfRange, len(f.Nonce), MaxNonceLength)
	}
	if f.Version > MaxVersion {
		return nil, fmt.Errorf("%w: version %d, max %d", ErrFieldOutOfRange, f.Version, MaxVersion)
	}
	if f.Version == 0 && (!f.ChainID.IsUint64() || f.ChainID.Uint64() > math.MaxUint32) {
		return nil, fmt.Errorf("%w: chain_id %s does not fit 32 bits in version 0", ErrFieldOutOfRange, f.ChainID.Dec())
	}

	t := &Transaction{
		nonce:           f.Nonce,
		data:            common.CopyBytes(f.Data),
		quota:           f.Quota,
		validUntilBlock: f.ValidUntilBlock,
		version:         f.Version,
	}
	if f.To != nil {
		to := *f.To
		t.to = &to
	}
	if f.Value != nil {
		t.value.Set(f.Value)
	}
	t.chainID.Set(f.ChainID)
	return t, nil
}

// Fields returns the builder input that reproduces t
func (t *Transaction) Fields() Fields {
	return Fields{
		Nonce:           t.nonce,
		To:              t.To(),
		Value:           t.Value(),
		Data:            t.Data(),
		Quota:           t.quota,
		ValidUntilBlock: t.validUntilBlock,
		ChainID:         t.ChainID(),
		Version:         t.version,
	}
}

package tx

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/citahub/cita-cli/signer"
)

// Field numbers of the node's UnverifiedTransaction message
const (
	fieldTransaction protowire.Number = 1
	fieldSignature   protowire.Number = 2
	fieldCrypto      protowire.Number = 3
)

// SignedTransaction is a transaction together with its signature and the
// sender recovered from it. It is immutable.
type SignedTransaction struct {
	tx        *Transaction
	signature signer.Signature
	sender    common.Address
	hasher    func([]byte) common.Hash
}

func (s *SignedTransaction) Transaction() *Transaction { return s.tx }
func (s *SignedTransaction) Sender() common.Address    { return s.sender }

func (s *SignedTransaction) Signature() signer.Signature {
	return signer.Signature(common.CopyBytes(s.signature))
}

// Bytes returns the wire form submitted through sendRawTransaction
func (s *SignedTransaction) Bytes() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTransaction, protowire.BytesType)
	b = protowire.AppendBytes(b, Canonicalize(s.tx))
	b = appendBytes(b, fieldSignature, s.signature)
	// crypto is always the default scheme (0) and therefore omitted
	return b
}

// Hex returns Bytes as a 0x-prefixed string
func (s *SignedTransaction) Hex() string {
	return hexutil.Encode(s.Bytes())
}

// Hash is the transaction hash the node reports for this transaction
func (s *SignedTransaction) Hash() common.Hash {
	return s.hasher(s.Bytes())
}

// Finalize attaches sig to t after recovering the sender and checking it
// against expected. A mismatch is never accepted: it means the signer and the
// canonical encoding disagree.
func Finalize(t *Transaction, sig signer.Signature, s signer.Signer, expected common.Address) (*SignedTransaction, error) {
	sender, err := s.RecoverSender(Canonicalize(t), sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureMismatch, err)
	}
	if sender != expected {
		return nil, fmt.Errorf("%w: recovered %s, expected %s", ErrSignatureMismatch, sender.Hex(), expected.Hex())
	}
	return &SignedTransaction{
		tx:        t,
		signature: signer.Signature(common.CopyBytes(sig)),
		sender:    sender,
		hasher:    s.Hash,
	}, nil
}

// Sign runs the canonicalize, sign and finalize steps with one key
func Sign(t *Transaction, s signer.Signer, key signer.PrivateKey) (*SignedTransaction, error) {
	expected, err := s.Address(key)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(Canonicalize(t), key)
	if err != nil {
		return nil, err
	}
	return Finalize(t, sig, s, expected)
}

// DecodeSignedTransaction parses the wire form and recovers its sender
func DecodeSignedTransaction(raw []byte, s signer.Signer) (*SignedTransaction, error) {
	var (
		txBytes []byte
		sig     []byte
		seenTx  bool
	)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, fmt.Errorf("failed to read signed transaction tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]

		switch {
		case num == fieldTransaction && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(raw)
			if m < 0 {
				return nil, fmt.Errorf("failed to read transaction: %w", protowire.ParseError(m))
			}
			txBytes, seenTx = v, true
			raw = raw[m:]
		case num == fieldSignature && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(raw)
			if m < 0 {
				return nil, fmt.Errorf("failed to read signature: %w", protowire.ParseError(m))
			}
			sig = common.CopyBytes(v)
			raw = raw[m:]
		case num == fieldCrypto && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return nil, fmt.Errorf("failed to read crypto: %w", protowire.ParseError(m))
			}
			if v != 0 {
				return nil, fmt.Errorf("%w: unsupported crypto %d", ErrFieldOutOfRange, v)
			}
			raw = raw[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, raw)
			if m < 0 {
				return nil, fmt.Errorf("failed to skip field %d: %w", num, protowire.ParseError(m))
			}
			raw = raw[m:]
		}
	}
	if !seenTx {
		return nil, fmt.Errorf("%w: transaction", ErrMissingField)
	}

	t, err := ParseCanonical(txBytes)
	if err != nil {
		return nil, err
	}
	// the hash and signature cover the canonical bytes only
	if !bytes.Equal(Canonicalize(t), txBytes) {
		return nil, fmt.Errorf("%w: transaction is not in canonical form", ErrFieldOutOfRange)
	}
	sender, err := s.RecoverSender(txBytes, signer.Signature(sig))
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{tx: t, signature: sig, sender: sender, hasher: s.Hash}, nil
}

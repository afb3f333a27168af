package tx

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers of the node's Transaction message. The canonical
// form always emits them in this order and omits zero values.
const (
	fieldTo              protowire.Number = 1
	fieldNonce           protowire.Number = 2
	fieldQuota           protowire.Number = 3
	fieldValidUntilBlock protowire.Number = 4
	fieldData            protowire.Number = 5
	fieldValue           protowire.Number = 6
	fieldChainID         protowire.Number = 7
	fieldVersion         protowire.Number = 8
	fieldToV1            protowire.Number = 9
	fieldChainIDV1       protowire.Number = 10
)

// Canonicalize returns the byte layout that is hashed and signed. Logically
// equal transactions always produce identical bytes.
func Canonicalize(t *Transaction) []byte {
	var b []byte

	// version 0 carries the destination as hex text and a 32-bit chain id,
	// later versions carry raw bytes
	if t.version == 0 && t.to != nil {
		b = appendString(b, fieldTo, strings.TrimPrefix(strings.ToLower(t.to.Hex()), "0x"))
	}
	b = appendString(b, fieldNonce, t.nonce)
	b = appendVarint(b, fieldQuota, t.quota)
	b = appendVarint(b, fieldValidUntilBlock, t.validUntilBlock)
	b = appendBytes(b, fieldData, t.data)
	value := t.value.Bytes32()
	b = appendBytes(b, fieldValue, value[:])
	if t.version == 0 {
		b = appendVarint(b, fieldChainID, t.chainID.Uint64())
	}
	b = appendVarint(b, fieldVersion, uint64(t.version))
	if t.version > 0 {
		if t.to != nil {
			b = appendBytes(b, fieldToV1, t.to.Bytes())
		}
		chainID := t.chainID.Bytes32()
		b = appendBytes(b, fieldChainIDV1, chainID[:])
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// ParseCanonical decodes bytes produced by Canonicalize. Unknown fields are
// skipped; the result is validated like any built transaction.
func ParseCanonical(data []byte) (*Transaction, error) {
	var (
		f     Fields
		toHex string
		toV1  []byte
	)
	f.ChainID = new(uint256.Int)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("failed to read transaction tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldTo, fieldNonce, fieldData, fieldValue, fieldToV1, fieldChainIDV1:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("transaction field %d has wire type %d, want bytes", num, typ)
			}
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("failed to read transaction field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
			if err := setBytesField(&f, num, v, &toHex, &toV1); err != nil {
				return nil, err
			}
		case fieldQuota, fieldValidUntilBlock, fieldChainID, fieldVersion:
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("transaction field %d has wire type %d, want varint", num, typ)
			}
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("failed to read transaction field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
			switch num {
			case fieldQuota:
				f.Quota = v
			case fieldValidUntilBlock:
				f.ValidUntilBlock = v
			case fieldChainID:
				f.ChainID = uint256.NewInt(v)
			case fieldVersion:
				if v > MaxVersion {
					return nil, fmt.Errorf("%w: version %d", ErrFieldOutOfRange, v)
				}
				f.Version = uint32(v)
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("failed to skip transaction field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	switch {
	case f.Version == 0 && toHex != "":
		if !common.IsHexAddress(toHex) {
			return nil, fmt.Errorf("%w: to %q is not an address", ErrFieldOutOfRange, toHex)
		}
		to := common.HexToAddress(toHex)
		f.To = &to
	case f.Version > 0 && len(toV1) > 0:
		if len(toV1) != common.AddressLength {
			return nil, fmt.Errorf("%w: to_v1 is %d bytes", ErrFieldOutOfRange, len(toV1))
		}
		to := common.BytesToAddress(toV1)
		f.To = &to
	}
	return f.Build()
}

func setBytesField(f *Fields, num protowire.Number, v []byte, toHex *string, toV1 *[]byte) error {
	switch num {
	case fieldTo:
		*toHex = string(v)
	case fieldNonce:
		f.Nonce = string(v)
	case fieldData:
		f.Data = common.CopyBytes(v)
	case fieldValue:
		if len(v) > 32 {
			return fmt.Errorf("%w: value is %d bytes", ErrFieldOutOfRange, len(v))
		}
		f.Value = new(uint256.Int).SetBytes(v)
	case fieldToV1:
		*toV1 = common.CopyBytes(v)
	case fieldChainIDV1:
		if len(v) > 32 {
			return fmt.Errorf("%w: chain_id_v1 is %d bytes", ErrFieldOutOfRange, len(v))
		}
		f.ChainID = new(uint256.Int).SetBytes(v)
	}
	return nil
}

package cita

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/citahub/cita-cli/rpc"
)

// ErrNotHex is returned when a value must carry a 0x prefix and does not
var ErrNotHex = errors.New("must be a 0x-prefixed hexadecimal string")

// IsHex checks for the 0x or 0X prefix only; the digits are validated by the
// specific parser
func IsHex(s string) error {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return ErrNotHex
	}
	return nil
}

// ParseUint64 reads 0x hex or decimal
func ParseUint64(s string) (uint64, error) {
	if IsHex(s) == nil {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseHeight accepts latest, earliest or a number in either base
func ParseHeight(s string) (rpc.Height, error) {
	return rpc.ParseHeight(s)
}

// ParseU256 reads 0x hex (leading zeros allowed) or decimal
func ParseU256(s string) (*uint256.Int, error) {
	n, ok := new(big.Int), false
	if IsHex(s) == nil {
		n, ok = n.SetString(s[2:], 16)
	} else {
		n, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("value %q can't parse into u256", s)
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("value %q can't parse into u256", s)
	}
	return v, nil
}

// ParseAddress requires 0x followed by exactly 40 hex digits
func ParseAddress(s string) (common.Address, error) {
	if err := IsHex(s); err != nil {
		return common.Address{}, err
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil || len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.BytesToAddress(b), nil
}

// ParseH256 requires 0x followed by exactly 64 hex digits
func ParseH256(s string) (common.Hash, error) {
	if err := IsHex(s); err != nil {
		return common.Hash{}, err
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid H256 %q", s)
	}
	return common.BytesToHash(b), nil
}

// ParseHexBytes decodes 0x hex of any even length, including "0x"
func ParseHexBytes(s string) ([]byte, error) {
	if err := IsHex(s); err != nil {
		return nil, err
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

package tx

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/citahub/cita-cli/abi"
)

// AmendAddress is the system contract that rewrites chain state when called
// by the super admin. The transaction value selects the amend kind.
var AmendAddress = common.HexToAddress("0xffffffffffffffffffffffffffffffffff010002")

// AmendKind is the value field of an amend transaction
type AmendKind uint64

const (
	AmendABI     AmendKind = 1
	AmendCode    AmendKind = 2
	AmendKVH256  AmendKind = 3
	AmendBalance AmendKind = 5
)

func (k AmendKind) String() string {
	switch k {
	case AmendABI:
		return "abi"
	case AmendCode:
		return "code"
	case AmendKVH256:
		return "kv-h256"
	case AmendBalance:
		return "balance"
	}
	return fmt.Sprintf("amend(%d)", uint64(k))
}

// Amend is the value and payload of a transaction to AmendAddress. The
// caller adds nonce, quota, validity window and chain id.
type Amend struct {
	Kind AmendKind
	Data []byte
}

// AmendCodePayload replaces the code of address
func AmendCodePayload(address common.Address, code []byte) Amend {
	return Amend{Kind: AmendCode, Data: concat(address.Bytes(), code)}
}

// AmendABIPayload replaces the stored ABI of address; the JSON text is
// ABI-encoded as a single string argument.
func AmendABIPayload(address common.Address, abiJSON string) (Amend, error) {
	encoded, err := abi.Encode([]abi.Value{abi.StringValue{Value: abiJSON}})
	if err != nil {
		return Amend{}, fmt.Errorf("failed to encode abi content: %w", err)
	}
	return Amend{Kind: AmendABI, Data: concat(address.Bytes(), encoded)}, nil
}

// KV is one storage slot assignment
type KV struct {
	Key   common.Hash
	Value common.Hash
}

// AmendH256KVPayload writes storage slots of address
func AmendH256KVPayload(address common.Address, kvs []KV) (Amend, error) {
	if len(kvs) == 0 {
		return Amend{}, fmt.Errorf("%w: at least one key/value pair", ErrMissingField)
	}
	data := address.Bytes()
	for _, kv := range kvs {
		data = concat(data, kv.Key.Bytes(), kv.Value.Bytes())
	}
	return Amend{Kind: AmendKVH256, Data: data}, nil
}

// AmendBalancePayload sets the balance of address
func AmendBalancePayload(address common.Address, balance *uint256.Int) Amend {
	b := balance.Bytes32()
	return Amend{Kind: AmendBalance, Data: concat(address.Bytes(), b[:])}
}

// H256KVCallData is the call data that reads one storage slot through the
// amend contract
func H256KVCallData(address common.Address, key common.Hash) []byte {
	return concat(address.Bytes(), key.Bytes())
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

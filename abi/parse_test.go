package abi

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := map[string]string{
		"uint":                  "uint256",
		"int":                   "int256",
		"uint8":                 "uint8",
		"bytes32":               "bytes32",
		"address[]":             "address[]",
		"uint8[2][]":            "uint8[2][]",
		"(uint256,string)":      "(uint256,string)",
		"(bool,(bytes,int8))[]": "(bool,(bytes,int8))[]",
		"()":                    "()",
	}
	for in, want := range cases {
		typ, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, typ.String())
	}

	nested, err := ParseType("uint8[2][]")
	require.NoError(t, err)
	assert.Equal(t, -1, nested.Length)
	assert.Equal(t, 2, nested.Elem.Length)
}

func TestParseType_Invalid(t *testing.T) {
	for _, in := range []string{"uint7", "uint264", "bytes0", "bytes33", "foo", "uint8[", "uint8[0]", "(uint8", "uint8]"} {
		_, err := ParseType(in)
		assert.ErrorIs(t, err, ErrInvalidType, in)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(Uint(256), "0x10")
	require.NoError(t, err)
	assert.True(t, Equal(NewUint64(256, 16), v))

	v, err = ParseValue(Int(32), "-5")
	require.NoError(t, err)
	assert.True(t, Equal(NewInt(32, big.NewInt(-5)), v))

	v, err = ParseValue(Address(), "0x627306090abab3a6e1400e9345bc60c78a8bef57")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57"), v.(AddressValue).Value)

	v, err = ParseValue(FixedBytes(4), "0xab")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0, 0, 0}, v.(FixedBytesValue).Value)

	typ, err := ParseType("uint8[]")
	require.NoError(t, err)
	v, err = ParseValue(typ, `[1, "0x2", 3]`)
	require.NoError(t, err)
	assert.True(t, Equal(NewDynamicArray(Uint(8), NewUint64(8, 1), NewUint64(8, 2), NewUint64(8, 3)), v))

	typ, err = ParseType("(bool,string)")
	require.NoError(t, err)
	v, err = ParseValue(typ, `[true, "hi"]`)
	require.NoError(t, err)
	assert.True(t, Equal(NewTuple(BoolValue{Value: true}, StringValue{Value: "hi"}), v))
}

func TestParseValue_Invalid(t *testing.T) {
	cases := []struct {
		typ string
		in  string
	}{
		{"uint8", "256"},
		{"uint8", "-1"},
		{"int8", "200"},
		{"bool", "maybe"},
		{"address", "0x1234"},
		{"bytes2", "0x010203"},
		{"bytes", "zz"},
		{"uint8[2]", "[1]"},
		{"uint8[]", "1,2"},
		{"(bool,bool)", "[true]"},
	}
	for _, c := range cases {
		typ, err := ParseType(c.typ)
		require.NoError(t, err)
		_, err = ParseValue(typ, c.in)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%s %s", c.typ, c.in)
	}
}

package tx

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var testTo = common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")

func baseOptions() []Option {
	return []Option{
		WithNonce("f3c1d1c2-2b7e-4d7c-9f64-2e2c7b5a0e11"),
		WithTo(testTo),
		WithQuota(1_000_000),
		WithValidUntilBlock(188),
		WithChainIDUint64(1),
		WithData([]byte{0xde, 0xad, 0xbe, 0xef}),
		WithValue(uint256.NewInt(1000)),
	}
}

func TestBuild_MissingFields(t *testing.T) {
	cases := map[string][]Option{
		"nonce":             {WithTo(testTo), WithQuota(1), WithValidUntilBlock(1), WithChainIDUint64(1)},
		"quota":             {WithNonce("n"), WithTo(testTo), WithValidUntilBlock(1), WithChainIDUint64(1)},
		"valid_until_block": {WithNonce("n"), WithTo(testTo), WithQuota(1), WithChainIDUint64(1)},
		"chain_id":          {WithNonce("n"), WithTo(testTo), WithQuota(1), WithValidUntilBlock(1)},
		"creation data":     {WithNonce("n"), WithQuota(1), WithValidUntilBlock(1), WithChainIDUint64(1)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(opts...)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestBuild_OutOfRange(t *testing.T) {
	long := string(bytes.Repeat([]byte("n"), MaxNonceLength+1))
	_, err := Build(append(baseOptions(), WithNonce(long))...)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)

	_, err = Build(append(baseOptions(), WithVersion(MaxVersion+1))...)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)

	_, err = Build(append(baseOptions(), WithChainIDUint64(1<<32))...)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)

	// the same chain id is fine once it travels as 32 bytes
	_, err = Build(append(baseOptions(), WithChainIDUint64(1<<32), WithVersion(1))...)
	assert.NoError(t, err)
}

func TestBuild_ContractCreation(t *testing.T) {
	tx, err := Build(
		WithNonce("n"),
		WithQuota(10),
		WithValidUntilBlock(5),
		WithChainIDUint64(1),
		WithData([]byte{0x60, 0x80}),
	)
	require.NoError(t, err)
	assert.True(t, tx.IsCreation())
	assert.Nil(t, tx.To())
	assert.True(t, tx.Value().IsZero())
}

func TestTransaction_Immutable(t *testing.T) {
	data := []byte{1, 2, 3}
	value := uint256.NewInt(7)
	tx, err := Build(append(baseOptions(), WithData(data), WithValue(value))...)
	require.NoError(t, err)

	data[0] = 0xff
	value.SetUint64(8)
	assert.Equal(t, []byte{1, 2, 3}, tx.Data())
	assert.Equal(t, uint64(7), tx.Value().Uint64())

	tx.Data()[0] = 0xff
	tx.Value().SetUint64(9)
	*tx.To() = common.Address{}
	assert.Equal(t, []byte{1, 2, 3}, tx.Data())
	assert.Equal(t, uint64(7), tx.Value().Uint64())
	assert.Equal(t, testTo, *tx.To())
}

func TestCanonicalize_IndependentOfOptionOrder(t *testing.T) {
	opts := baseOptions()
	first, err := Build(opts...)
	require.NoError(t, err)

	reversed := make([]Option, len(opts))
	for i, o := range opts {
		reversed[len(opts)-1-i] = o
	}
	second, err := Build(reversed...)
	require.NoError(t, err)

	assert.Equal(t, Canonicalize(first), Canonicalize(second))
}

func TestCanonicalize_DiffersOnAnyField(t *testing.T) {
	base, err := Build(baseOptions()...)
	require.NoError(t, err)
	want := Canonicalize(base)

	for name, opt := range map[string]Option{
		"nonce":   WithNonce("other"),
		"quota":   WithQuota(2),
		"valid":   WithValidUntilBlock(189),
		"chain":   WithChainIDUint64(2),
		"data":    WithData([]byte{1}),
		"value":   WithValue(uint256.NewInt(1001)),
		"to":      WithTo(common.HexToAddress("0x01")),
		"version": WithVersion(1),
	} {
		tx, err := Build(append(baseOptions(), opt)...)
		require.NoError(t, err, name)
		assert.NotEqual(t, want, Canonicalize(tx), name)
	}
}

func TestCanonicalize_Layout(t *testing.T) {
	tx, err := Build(
		WithNonce("1"),
		WithTo(testTo),
		WithQuota(300),
		WithValidUntilBlock(2),
		WithChainIDUint64(5),
	)
	require.NoError(t, err)
	b := Canonicalize(tx)

	num, typ, n := protowire.ConsumeTag(b)
	require.Greater(t, n, 0)
	assert.Equal(t, fieldTo, num)
	assert.Equal(t, protowire.BytesType, typ)
	to, m := protowire.ConsumeString(b[n:])
	require.Greater(t, m, 0)
	assert.Equal(t, "627306090abab3a6e1400e9345bc60c78a8bef57", to)

	// value is always written, version 0 is omitted
	var seen []protowire.Number
	for rest := b; len(rest) > 0; {
		num, typ, n := protowire.ConsumeTag(rest)
		require.Greater(t, n, 0)
		seen = append(seen, num)
		m := protowire.ConsumeFieldValue(num, typ, rest[n:])
		require.Greater(t, m, 0)
		rest = rest[n+m:]
	}
	assert.Equal(t, []protowire.Number{fieldTo, fieldNonce, fieldQuota, fieldValidUntilBlock, fieldValue, fieldChainID}, seen)
}

func TestParseCanonical_RoundTrip(t *testing.T) {
	for _, version := range []uint32{0, 1, 2} {
		tx, err := Build(append(baseOptions(), WithVersion(version))...)
		require.NoError(t, err)

		parsed, err := ParseCanonical(Canonicalize(tx))
		require.NoError(t, err)
		assert.Equal(t, tx.Fields(), parsed.Fields(), "version %d", version)
		assert.Equal(t, Canonicalize(tx), Canonicalize(parsed))
	}
}

func TestParseCanonical_Rejects(t *testing.T) {
	_, err := ParseCanonical([]byte{0xff})
	assert.Error(t, err)

	// nonce encoded as varint
	bad := protowire.AppendTag(nil, fieldNonce, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 1)
	_, err = ParseCanonical(bad)
	assert.Error(t, err)

	// well formed but missing everything
	_, err = ParseCanonical(nil)
	assert.ErrorIs(t, err, ErrMissingField)
}

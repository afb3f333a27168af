package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// test key from the go-ethereum documentation
const testKeyHex = "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08"

func testKey(t *testing.T) PrivateKey {
	t.Helper()
	key, err := ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	return key
}

func allSigners() []Signer {
	return []Signer{
		NewSecp256k1(Keccak256{}),
		NewSecp256k1(Blake2b{}),
		NewEd25519(),
	}
}

func TestParsePrivateKey(t *testing.T) {
	key := testKey(t)
	assert.Equal(t, testKeyHex, key.Hex())

	for _, bad := range []string{
		"4f3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08",
		"0x4f3e",
		"0xzz3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08",
		"",
	} {
		_, err := ParsePrivateKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestSigner_Deterministic(t *testing.T) {
	key := testKey(t)
	msg := []byte("canonical transaction bytes")
	for _, s := range allSigners() {
		first, err := s.Sign(msg, key)
		require.NoError(t, err)
		second, err := s.Sign(msg, key)
		require.NoError(t, err)
		assert.Equal(t, first, second, s.Crypto())
	}
}

func TestSigner_SenderConsistency(t *testing.T) {
	messages := [][]byte{{}, []byte("a"), make([]byte, 1024)}
	for _, s := range allSigners() {
		for i := 0; i < 5; i++ {
			key, err := GenerateKey(s)
			require.NoError(t, err)
			addr, err := s.Address(key)
			require.NoError(t, err)

			for _, msg := range messages {
				sig, err := s.Sign(msg, key)
				require.NoError(t, err)
				recovered, err := s.RecoverSender(msg, sig)
				require.NoError(t, err)
				assert.Equal(t, addr, recovered)
			}
		}
	}
}

func TestSecp256k1_MatchesEthereumAddress(t *testing.T) {
	key := testKey(t)
	s := NewSecp256k1(nil)

	addr, err := s.Address(key)
	require.NoError(t, err)

	priv, err := crypto.ToECDSA(key[:])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), addr)

	sig, err := s.Sign([]byte("x"), key)
	require.NoError(t, err)
	assert.Len(t, sig, Secp256k1SignatureSize)
	assert.Len(t, sig.R(), 32)
	assert.Len(t, sig.S(), 32)
	assert.Contains(t, []byte{0, 1}, sig.Recovery()[0])
}

func TestSigner_InvalidKey(t *testing.T) {
	var zero PrivateKey
	var overOrder PrivateKey
	for i := range overOrder {
		overOrder[i] = 0xff
	}

	for _, s := range allSigners() {
		_, err := s.Sign([]byte("x"), zero)
		assert.ErrorIs(t, err, ErrInvalidKey, s.Crypto())
		_, err = s.Address(zero)
		assert.ErrorIs(t, err, ErrInvalidKey, s.Crypto())
	}

	_, err := NewSecp256k1(nil).Sign([]byte("x"), overOrder)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSigner_RecoveryFailed(t *testing.T) {
	key := testKey(t)
	msg := []byte("payload")
	for _, s := range allSigners() {
		sig, err := s.Sign(msg, key)
		require.NoError(t, err)

		_, err = s.RecoverSender(msg, sig[:len(sig)-1])
		assert.ErrorIs(t, err, ErrRecoveryFailed, s.Crypto())

		// zeroed r and s are never valid
		broken := append(Signature(nil), sig...)
		for i := 0; i < 64; i++ {
			broken[i] = 0
		}
		_, err = s.RecoverSender(msg, broken)
		assert.ErrorIs(t, err, ErrRecoveryFailed, s.Crypto())
	}
}

func TestSecp256k1_TamperedMessageRecoversOtherSender(t *testing.T) {
	key := testKey(t)
	s := NewSecp256k1(Keccak256{})
	addr, err := s.Address(key)
	require.NoError(t, err)

	sig, err := s.Sign([]byte("original"), key)
	require.NoError(t, err)
	recovered, err := s.RecoverSender([]byte("tampered"), sig)
	if err == nil {
		assert.NotEqual(t, addr, recovered)
	}
}

func TestEd25519_TamperedMessageFails(t *testing.T) {
	key := testKey(t)
	s := NewEd25519()
	sig, err := s.Sign([]byte("original"), key)
	require.NoError(t, err)
	_, err = s.RecoverSender([]byte("tampered"), sig)
	assert.ErrorIs(t, err, ErrRecoveryFailed)
}

func TestHashers(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash(nil), Keccak256{}.Hash(nil))
	// blake2b-256 of the empty input
	assert.Equal(t,
		common.HexToHash("0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"),
		Blake2b{}.Hash(nil))
}

func TestForCrypto(t *testing.T) {
	s, err := ForCrypto("SECP256K1")
	require.NoError(t, err)
	assert.Equal(t, CryptoSecp256k1, s.Crypto())

	s, err = ForCrypto(CryptoEd25519)
	require.NoError(t, err)
	assert.Equal(t, CryptoEd25519, s.Crypto())

	_, err = ForCrypto("sm2")
	assert.Error(t, err)
}

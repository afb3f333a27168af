package cita

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/citahub/cita-cli/abi"
	internalmocks "github.com/citahub/cita-cli/internal/mocks"
	"github.com/citahub/cita-cli/rpc"
	"github.com/citahub/cita-cli/signer"
	"github.com/citahub/cita-cli/tx"
)

const testKeyHex = "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08"

func testAccountAndConfig(t *testing.T) (*Account, *config) {
	t.Helper()
	key, err := signer.ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	acc, err := NewAccount("main", key, signer.NewSecp256k1(nil))
	require.NoError(t, err)
	cfg := &config{
		rpcURL:   "http://localhost:1337",
		crypto:   signer.CryptoSecp256k1,
		accounts: []*Account{acc},
	}
	return acc, cfg
}

func testClient(t *testing.T, node *internalmocks.NodeClient) (*citaClient, *Account) {
	t.Helper()
	acc, cfg := testAccountAndConfig(t)
	logger, _ := test.NewNullLogger()
	return newClient(node, signer.NewSecp256k1(nil), acc, cfg, logger), acc
}

func v0Meta() *rpc.MetaData {
	return &rpc.MetaData{ChainID: 1, ChainName: "test-chain", Version: 0}
}

func TestCitaClient_GetBalance(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	want := uint256.NewInt(42)
	node.On("GetBalance", mock.Anything, acc.Address, rpc.Latest).Return(want, nil)

	bal, err := c.GetBalance(context.Background(), acc.Address)
	assert.NoError(t, err)
	assert.Equal(t, want, bal)
	node.AssertExpectations(t)
}

func TestCitaClient_GetBalance_Error(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	node.On("GetBalance", mock.Anything, acc.Address, rpc.Latest).Return(nil, errors.New("fail"))

	_, err := c.GetBalance(context.Background(), acc.Address)
	assert.Error(t, err)
	node.AssertExpectations(t)
}

func TestCitaClient_Close(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	node.On("Close").Return(nil)
	c.Close()
	node.AssertExpectations(t)
}

func TestCitaClient_SignTransaction_FillsDefaults(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(v0Meta(), nil).Once()
	node.On("BlockNumber", mock.Anything).Return(uint64(100), nil)

	to := common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	signed, err := c.SignTransaction(context.Background(), &Transaction{To: &to, Value: uint256.NewInt(7)})
	require.NoError(t, err)

	got := signed.Transaction()
	assert.Equal(t, acc.Address, signed.Sender())
	assert.NotEmpty(t, got.Nonce())
	assert.Equal(t, uint64(DEFAULT_QUOTA), got.Quota())
	assert.Equal(t, uint64(100+DEFAULT_VALID_BLOCKS), got.ValidUntilBlock())
	assert.Equal(t, uint64(1), got.ChainID().Uint64())
	assert.Equal(t, uint32(0), got.Version())
	assert.Equal(t, to, *got.To())

	// metadata is cached and nonces differ per transaction
	again, err := c.SignTransaction(context.Background(), &Transaction{To: &to})
	require.NoError(t, err)
	assert.NotEqual(t, got.Nonce(), again.Transaction().Nonce())
	node.AssertExpectations(t)
}

func TestCitaClient_SignTransaction_ExplicitFields(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	meta := &rpc.MetaData{Version: 1}
	meta.ChainIDV1.SetUint64(5)
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(meta, nil)

	signed, err := c.SignTransaction(context.Background(), &Transaction{
		Data:            []byte{0x60, 0x80},
		Quota:           1_000_000,
		ValidUntilBlock: 999,
		Nonce:           "fixed",
	})
	require.NoError(t, err)

	got := signed.Transaction()
	assert.True(t, got.IsCreation())
	assert.Equal(t, "fixed", got.Nonce())
	assert.Equal(t, uint64(1_000_000), got.Quota())
	assert.Equal(t, uint64(999), got.ValidUntilBlock())
	assert.Equal(t, uint32(1), got.Version())
	assert.Equal(t, uint64(5), got.ChainID().Uint64())
	node.AssertNotCalled(t, "BlockNumber", mock.Anything)
}

func TestCitaClient_SignTransaction_Errors(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	c.config.(*config).chainId = 2
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(v0Meta(), nil)

	_, err := c.SignTransaction(context.Background(), &Transaction{Data: []byte{1}})
	assert.ErrorContains(t, err, "expected chain ID 2")

	readOnly := newClient(node, signer.NewSecp256k1(nil), nil, c.config, logrus.New())
	_, err = readOnly.SignTransaction(context.Background(), &Transaction{Data: []byte{1}})
	assert.ErrorIs(t, err, ErrNoSigningAccount)
}

func TestCitaClient_ChainIDBeyondUint64(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	c.config.(*config).chainId = 5
	meta := &rpc.MetaData{Version: 1}
	// 2^64 + 5 truncates to 5
	meta.ChainIDV1.Lsh(uint256.NewInt(1), 64)
	meta.ChainIDV1.AddUint64(&meta.ChainIDV1.Int, 5)
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(meta, nil)

	_, err := c.SignTransaction(context.Background(), &Transaction{Data: []byte{1}})
	assert.ErrorContains(t, err, "expected chain ID 5, got 18446744073709551621")
}

func TestCitaClient_SendTransaction(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(v0Meta(), nil)

	to := common.HexToAddress("0x01")
	signed, err := c.SignTransaction(context.Background(), &Transaction{To: &to, ValidUntilBlock: 10})
	require.NoError(t, err)

	node.On("SendRawTransaction", mock.Anything, signed.Bytes()).
		Return(&rpc.SendResult{Hash: signed.Hash(), Status: "OK"}, nil)
	receipt, err := c.SendTransaction(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, signed.Hash(), receipt.TxHash)
	assert.Equal(t, StatusPending, receipt.Status)
	assert.Equal(t, acc.Address, receipt.From)
	assert.Equal(t, to, *receipt.To)
	node.AssertExpectations(t)
}

func TestCitaClient_SendTransaction_Error(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(v0Meta(), nil)
	node.On("SendRawTransaction", mock.Anything, mock.Anything).
		Return(nil, &rpc.RemoteError{Code: -32006, Message: "InvalidNonce"})

	_, err := c.Transact(context.Background(), &Transaction{Data: []byte{1}, ValidUntilBlock: 10})
	var rerr *rpc.RemoteError
	assert.ErrorAs(t, err, &rerr)
}

func signedFixture(t *testing.T, c *citaClient) *tx.SignedTransaction {
	t.Helper()
	to := common.HexToAddress("0x02")
	unsigned, err := tx.Build(tx.WithNonce("n"), tx.WithTo(to), tx.WithQuota(1), tx.WithValidUntilBlock(1), tx.WithChainIDUint64(1))
	require.NoError(t, err)
	signed, err := tx.Sign(unsigned, c.signer, *c.account.PrivateKey)
	require.NoError(t, err)
	return signed
}

func TestCitaClient_GetTransactionReceipt(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	signed := signedFixture(t, c)
	hash := signed.Hash()

	failure := "Reverted"
	node.On("GetTransactionReceipt", mock.Anything, hash).Return(&rpc.Receipt{
		TransactionHash: hash,
		BlockNumber:     12,
		QuotaUsed:       21000,
		ErrorMessage:    &failure,
	}, nil)
	node.On("GetTransaction", mock.Anything, hash).Return(&rpc.TransactionResult{Hash: hash, Content: signed.Bytes()}, nil)

	receipt, err := c.GetTransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, receipt.Status)
	assert.Equal(t, "Reverted", receipt.ErrorMessage)
	assert.Equal(t, uint64(12), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.QuotaUsed)
	assert.Equal(t, acc.Address, receipt.From)
	assert.Equal(t, common.HexToAddress("0x02"), *receipt.To)
	node.AssertExpectations(t)
}

func TestCitaClient_GetTransactionReceipt_Pending(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	node.On("GetTransactionReceipt", mock.Anything, common.Hash{1}).Return(nil, nil)

	_, err := c.GetTransactionReceipt(context.Background(), common.Hash{1})
	assert.ErrorIs(t, err, ErrPending)
}

func TestCitaClient_WaitForTransaction(t *testing.T) {
	t.Setenv(envTransactionTicker, "1")
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	signed := signedFixture(t, c)
	hash := signed.Hash()

	node.On("GetTransactionReceipt", mock.Anything, hash).Return(nil, nil).Once()
	node.On("GetTransactionReceipt", mock.Anything, hash).Return(&rpc.Receipt{TransactionHash: hash, BlockNumber: 3}, nil)
	node.On("GetTransaction", mock.Anything, hash).Return(&rpc.TransactionResult{Hash: hash, Content: signed.Bytes()}, nil)

	receipt, err := c.WaitForTransaction(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, receipt.Status)
	assert.Equal(t, uint64(3), receipt.BlockNumber)
}

func TestCitaClient_WaitForTransaction_Canceled(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.WaitForTransaction(ctx, common.Hash{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCitaClient_AmendBalance(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	target := common.HexToAddress("0x03")
	node.On("GetMetaData", mock.Anything, rpc.Latest).Return(v0Meta(), nil)
	node.On("BlockNumber", mock.Anything).Return(uint64(1), nil)

	var sent *tx.SignedTransaction
	node.On("SendRawTransaction", mock.Anything, mock.MatchedBy(func(raw []byte) bool {
		decoded, err := tx.DecodeSignedTransaction(raw, c.signer)
		if err != nil {
			return false
		}
		sent = decoded
		return true
	})).Return(&rpc.SendResult{Status: "OK"}, nil)

	_, err := c.AmendBalance(context.Background(), target, uint256.NewInt(1000))
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, acc.Address, sent.Sender())
	assert.Equal(t, tx.AmendAddress, *sent.Transaction().To())
	assert.Equal(t, uint64(tx.AmendBalance), sent.Transaction().Value().Uint64())
	assert.Equal(t, tx.AmendBalancePayload(target, uint256.NewInt(1000)).Data, sent.Transaction().Data())
}

func TestCitaClient_GetH256KV(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	target := common.HexToAddress("0x03")
	key := common.HexToHash("0x01")
	want := common.HexToHash("0xff")

	node.On("ContractCall", mock.Anything, mock.MatchedBy(func(req rpc.CallRequest) bool {
		return req.To == tx.AmendAddress &&
			*req.From == acc.Address &&
			string(req.Data) == string(tx.H256KVCallData(target, key))
	}), rpc.Latest).Return(want.Bytes(), nil)
	node.On("ContractCall", mock.Anything, mock.Anything, rpc.HeightOf(100)).Return(common.HexToHash("0x0a").Bytes(), nil)

	got, err := c.GetH256KV(context.Background(), target, key, rpc.Latest)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = c.GetH256KV(context.Background(), target, key, rpc.HeightOf(100))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0a"), got)
	node.AssertCalled(t, "ContractCall", mock.Anything, mock.Anything, rpc.Height("0x64"))
}

func TestCitaClient_GetAbi(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, _ := testClient(t, node)
	content := `[{"type":"function","name":"f"}]`
	encoded, err := abi.Encode([]abi.Value{abi.StringValue{Value: content}})
	require.NoError(t, err)
	node.On("GetAbi", mock.Anything, common.Address{1}, rpc.Latest).Return(encoded, nil)
	node.On("GetAbi", mock.Anything, common.Address{2}, rpc.Latest).Return([]byte{}, nil)

	got, err := c.GetAbi(context.Background(), common.Address{1})
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = c.GetAbi(context.Background(), common.Address{2})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCitaClient_CallContract(t *testing.T) {
	node := &internalmocks.NodeClient{}
	c, acc := testClient(t, node)
	balanceOf := abi.Function{
		Name:    "balanceOf",
		Inputs:  []abi.Argument{{Name: "owner", Type: abi.Address()}},
		Outputs: []abi.Argument{{Type: abi.Uint(256)}},
	}
	out, err := abi.Encode([]abi.Value{abi.NewUint(256, big.NewInt(99))})
	require.NoError(t, err)
	node.On("ContractCall", mock.Anything, mock.Anything, rpc.Latest).Return(out, nil)

	values, err := c.CallContract(context.Background(), common.Address{9}, balanceOf, []abi.Value{abi.AddressValue{Value: acc.Address}})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.True(t, abi.Equal(abi.NewUint(256, big.NewInt(99)), values[0]))

	call := node.Calls[0].Arguments.Get(1).(rpc.CallRequest)
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, []byte(call.Data[:4]))
}

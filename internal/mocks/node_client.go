package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"

	"github.com/citahub/cita-cli/rpc"
)

// NodeClient is a testify mock of cita.NodeClient
type NodeClient struct {
	mock.Mock
}

func (m *NodeClient) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *NodeClient) GetMetaData(ctx context.Context, height rpc.Height) (*rpc.MetaData, error) {
	args := m.Called(ctx, height)
	meta, _ := args.Get(0).(*rpc.MetaData)
	return meta, args.Error(1)
}

func (m *NodeClient) GetBalance(ctx context.Context, address common.Address, height rpc.Height) (*uint256.Int, error) {
	args := m.Called(ctx, address, height)
	balance, _ := args.Get(0).(*uint256.Int)
	return balance, args.Error(1)
}

func (m *NodeClient) GetAbi(ctx context.Context, address common.Address, height rpc.Height) ([]byte, error) {
	args := m.Called(ctx, address, height)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Error(1)
}

func (m *NodeClient) SendRawTransaction(ctx context.Context, raw []byte) (*rpc.SendResult, error) {
	args := m.Called(ctx, raw)
	res, _ := args.Get(0).(*rpc.SendResult)
	return res, args.Error(1)
}

func (m *NodeClient) GetTransaction(ctx context.Context, hash common.Hash) (*rpc.TransactionResult, error) {
	args := m.Called(ctx, hash)
	res, _ := args.Get(0).(*rpc.TransactionResult)
	return res, args.Error(1)
}

func (m *NodeClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*rpc.Receipt, error) {
	args := m.Called(ctx, hash)
	receipt, _ := args.Get(0).(*rpc.Receipt)
	return receipt, args.Error(1)
}

func (m *NodeClient) ContractCall(ctx context.Context, req rpc.CallRequest, height rpc.Height) ([]byte, error) {
	args := m.Called(ctx, req, height)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *NodeClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

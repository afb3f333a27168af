package rpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/citahub/cita-cli/abi"
)

// Height selects a block: "latest", "earliest" or a 0x quantity
type Height string

const (
	Latest   Height = "latest"
	Earliest Height = "earliest"
)

// HeightOf returns the quantity form of n
func HeightOf(n uint64) Height {
	return Height(hexutil.EncodeUint64(n))
}

// ParseHeight accepts latest, earliest, a decimal number or 0x hex
func ParseHeight(s string) (Height, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", string(Latest):
		return Latest, nil
	case string(Earliest):
		return Earliest, nil
	}
	var (
		n   uint64
		err error
	)
	if has0x(s) {
		n, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		n, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return "", fmt.Errorf("invalid height %q: %w", s, err)
	}
	return HeightOf(n), nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (c *Client) PeerCount(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "peerCount"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SendRawTransaction submits the wire form of a signed transaction
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (*SendResult, error) {
	var res SendResult
	if err := c.Call(ctx, &res, "sendRawTransaction", raw); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetTransaction returns nil without error for an unknown hash
func (c *Client) GetTransaction(ctx context.Context, hash common.Hash) (*TransactionResult, error) {
	var res *TransactionResult
	if err := c.Call(ctx, &res, "getTransaction", hash); err != nil {
		return nil, err
	}
	return res, nil
}

// GetTransactionReceipt returns nil without error while the transaction is
// not yet in a block
func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var res *Receipt
	if err := c.Call(ctx, &res, "getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetBlockByNumber(ctx context.Context, height Height, fullTransactions bool) (*Block, error) {
	var res *Block
	if err := c.Call(ctx, &res, "getBlockByNumber", height, fullTransactions); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetMetaData(ctx context.Context, height Height) (*MetaData, error) {
	var res MetaData
	if err := c.Call(ctx, &res, "getMetaData", height); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetBalance(ctx context.Context, address common.Address, height Height) (*uint256.Int, error) {
	var res U256
	if err := c.Call(ctx, &res, "getBalance", address, height); err != nil {
		return nil, err
	}
	return &res.Int, nil
}

func (c *Client) GetCode(ctx context.Context, address common.Address, height Height) ([]byte, error) {
	var res hexutil.Bytes
	if err := c.Call(ctx, &res, "getCode", address, height); err != nil {
		return nil, err
	}
	return res, nil
}

// GetAbi returns the stored ABI of a contract as it was amended, still in
// its ABI-encoded form
func (c *Client) GetAbi(ctx context.Context, address common.Address, height Height) ([]byte, error) {
	var res hexutil.Bytes
	if err := c.Call(ctx, &res, "getAbi", address, height); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetTransactionCount(ctx context.Context, address common.Address, height Height) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "getTransactionCount", address, height); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (c *Client) GetStorageAt(ctx context.Context, address common.Address, key common.Hash, height Height) (common.Hash, error) {
	var res common.Hash
	if err := c.Call(ctx, &res, "getStorageAt", address, key, height); err != nil {
		return common.Hash{}, err
	}
	return res, nil
}

// ContractCall executes a read-only call and returns the raw output
func (c *Client) ContractCall(ctx context.Context, req CallRequest, height Height) ([]byte, error) {
	var res hexutil.Bytes
	if err := c.Call(ctx, &res, "call", req, height); err != nil {
		return nil, err
	}
	return res, nil
}

// ContractCallDecoded is ContractCall followed by ABI decoding of the output
func (c *Client) ContractCallDecoded(ctx context.Context, req CallRequest, height Height, outputs []abi.Type) ([]abi.Value, error) {
	out, err := c.ContractCall(ctx, req, height)
	if err != nil {
		return nil, err
	}
	values, err := abi.Decode(outputs, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode call output: %w", err)
	}
	return values, nil
}

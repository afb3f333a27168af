package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/abi"
	"github.com/citahub/cita-cli/cita"
	"github.com/citahub/cita-cli/rpc"
)

var (
	heightFlag = &cli.StringFlag{
		Name:  "height",
		Value: "latest",
		Usage: "Block height, decimal, 0x hex, latest or earliest",
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Required: true,
		Usage:    "Account or contract address",
	}
	hashFlag = &cli.StringFlag{
		Name:     "hash",
		Required: true,
		Usage:    "Transaction hash",
	}
)

func RPCCommand() *cli.Command {
	return &cli.Command{
		Name:  "rpc",
		Usage: "Raw CITA JSON-RPC methods",
		Subcommands: []*cli.Command{
			{
				Name:   "blockNumber",
				Usage:  "Current block height",
				Action: blockNumber,
			},
			{
				Name:   "peerCount",
				Usage:  "Number of connected peers",
				Action: peerCount,
			},
			{
				Name:   "getMetaData",
				Usage:  "Chain metadata",
				Flags:  []cli.Flag{heightFlag},
				Action: getMetaData,
			},
			{
				Name:   "getBalance",
				Usage:  "Account balance",
				Flags:  []cli.Flag{addressFlag, heightFlag},
				Action: getBalance,
			},
			{
				Name:   "getTransaction",
				Usage:  "Transaction by hash",
				Flags:  []cli.Flag{hashFlag},
				Action: getTransaction,
			},
			{
				Name:   "getTransactionReceipt",
				Usage:  "Receipt by transaction hash",
				Flags:  []cli.Flag{hashFlag},
				Action: getTransactionReceipt,
			},
			{
				Name:  "getBlockByNumber",
				Usage: "Block by height",
				Flags: []cli.Flag{
					heightFlag,
					&cli.BoolFlag{Name: "with-txs", Usage: "Include full transactions"},
				},
				Action: getBlockByNumber,
			},
			{
				Name:   "getCode",
				Usage:  "Contract code",
				Flags:  []cli.Flag{addressFlag, heightFlag},
				Action: getCode,
			},
			{
				Name:   "getAbi",
				Usage:  "Contract ABI stored on chain",
				Flags:  []cli.Flag{addressFlag, heightFlag},
				Action: getAbi,
			},
			{
				Name:   "getTransactionCount",
				Usage:  "Number of transactions sent from an address",
				Flags:  []cli.Flag{addressFlag, heightFlag},
				Action: getTransactionCount,
			},
			{
				Name:  "getStorageAt",
				Usage: "Contract storage slot",
				Flags: []cli.Flag{
					addressFlag,
					&cli.StringFlag{Name: "key", Required: true, Usage: "Storage key (H256)"},
					heightFlag,
				},
				Action: getStorageAt,
			},
			{
				Name:  "call",
				Usage: "Read-only contract call",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Caller address"},
					&cli.StringFlag{Name: "to", Required: true, Usage: "Contract address"},
					&cli.StringFlag{Name: "data", Value: "0x", Usage: "Call data"},
					heightFlag,
				},
				Action: call,
			},
			{
				Name:  "sendRawTransaction",
				Usage: "Submit a signed transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "raw", Required: true, Usage: "Signed transaction bytes"},
				},
				Action: sendRawTransaction,
			},
		},
	}
}

// withNode dials the node, runs fn and prints its result
func withNode(c *cli.Context, fn func(node *rpc.Client) (interface{}, error)) error {
	env := envFrom(c)
	node, err := env.node(c.Context)
	if err != nil {
		return err
	}
	defer node.Close()

	result, err := fn(node)
	if err != nil {
		return err
	}
	return env.printer.Print(result)
}

func blockNumber(c *cli.Context) error {
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.BlockNumber(c.Context)
	})
}

func peerCount(c *cli.Context) error {
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.PeerCount(c.Context)
	})
}

func getMetaData(c *cli.Context) error {
	height, err := cita.ParseHeight(c.String("height"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetMetaData(c.Context, height)
	})
}

func getBalance(c *cli.Context) error {
	address, height, err := addressAndHeight(c)
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		balance, err := node.GetBalance(c.Context, address, height)
		if err != nil {
			return nil, err
		}
		return map[string]string{"balance": balance.Dec(), "hex": balance.Hex()}, nil
	})
}

func getTransaction(c *cli.Context) error {
	hash, err := cita.ParseH256(c.String("hash"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetTransaction(c.Context, hash)
	})
}

func getTransactionReceipt(c *cli.Context) error {
	hash, err := cita.ParseH256(c.String("hash"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetTransactionReceipt(c.Context, hash)
	})
}

func getBlockByNumber(c *cli.Context) error {
	height, err := cita.ParseHeight(c.String("height"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetBlockByNumber(c.Context, height, c.Bool("with-txs"))
	})
}

func getCode(c *cli.Context) error {
	address, height, err := addressAndHeight(c)
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		code, err := node.GetCode(c.Context, address, height)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(code), nil
	})
}

func getAbi(c *cli.Context) error {
	address, height, err := addressAndHeight(c)
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		raw, err := node.GetAbi(c.Context, address, height)
		if err != nil || len(raw) == 0 {
			return "", err
		}
		values, err := abi.Decode([]abi.Type{abi.String()}, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode abi content: %w", err)
		}
		return values[0].(abi.StringValue).Value, nil
	})
}

func getTransactionCount(c *cli.Context) error {
	address, height, err := addressAndHeight(c)
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetTransactionCount(c.Context, address, height)
	})
}

func getStorageAt(c *cli.Context) error {
	address, height, err := addressAndHeight(c)
	if err != nil {
		return err
	}
	key, err := cita.ParseH256(c.String("key"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.GetStorageAt(c.Context, address, key, height)
	})
}

func call(c *cli.Context) error {
	to, err := cita.ParseAddress(c.String("to"))
	if err != nil {
		return err
	}
	data, err := cita.ParseHexBytes(c.String("data"))
	if err != nil {
		return err
	}
	height, err := cita.ParseHeight(c.String("height"))
	if err != nil {
		return err
	}
	req := rpc.CallRequest{To: to, Data: data}
	if c.IsSet("from") {
		from, err := cita.ParseAddress(c.String("from"))
		if err != nil {
			return err
		}
		req.From = &from
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		out, err := node.ContractCall(c.Context, req, height)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(out), nil
	})
}

func sendRawTransaction(c *cli.Context) error {
	raw, err := cita.ParseHexBytes(c.String("raw"))
	if err != nil {
		return err
	}
	return withNode(c, func(node *rpc.Client) (interface{}, error) {
		return node.SendRawTransaction(c.Context, raw)
	})
}

func addressAndHeight(c *cli.Context) (address common.Address, height rpc.Height, err error) {
	if address, err = cita.ParseAddress(c.String("address")); err != nil {
		return address, height, err
	}
	height, err = cita.ParseHeight(c.String("height"))
	return address, height, err
}

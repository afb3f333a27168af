package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/cita"
	"github.com/citahub/cita-cli/tx"
)

// DEFAULT_AMEND_QUOTA is the quota of amend transactions unless --quota or
// CITA_QUOTA says otherwise
const DEFAULT_AMEND_QUOTA = 1_000_000

// amendConfig overrides the quota and expected chain id of a Config
type amendConfig struct {
	cita.Config
	quota   uint64
	chainID uint64
}

func (c amendConfig) Quota() uint64 {
	if c.quota != 0 {
		return c.quota
	}
	if _, ok := os.LookupEnv("CITA_QUOTA"); ok {
		return c.Config.Quota()
	}
	return DEFAULT_AMEND_QUOTA
}

func (c amendConfig) ChainID() uint64 {
	if c.chainID != 0 {
		return c.chainID
	}
	return c.Config.ChainID()
}

func AmendCommand() *cli.Command {
	common := func(flags ...cli.Flag) []cli.Flag {
		return append(flags,
			addressFlag,
			&cli.StringFlag{Name: "admin-private", Required: true, Usage: "Private key of the super admin"},
			&cli.StringFlag{Name: "quota", Usage: "Transaction quota"},
			&cli.StringFlag{Name: "chain-id", Usage: "Expected chain id"},
			waitFlag,
		)
	}

	return &cli.Command{
		Name:  "amend",
		Usage: "Amend contract code, ABI, H256 key/value pairs or balances",
		Subcommands: []*cli.Command{
			{
				Name:  "code",
				Usage: "Amend contract code",
				Flags: common(
					&cli.StringFlag{Name: "content", Required: true, Usage: "Contract code"},
				),
				Action: amendCode,
			},
			{
				Name:  "abi",
				Usage: "Amend contract ABI",
				Flags: common(
					&cli.StringFlag{Name: "content", Usage: "ABI json"},
					&cli.PathFlag{Name: "path", Usage: "ABI json file"},
				),
				Action: amendABI,
			},
			{
				Name:  "set-h256",
				Usage: "Amend H256 key/value pairs",
				Flags: common(
					&cli.StringSliceFlag{Name: "kv", Required: true, Usage: "Alternating keys and values, --kv key --kv value"},
				),
				Action: amendSetH256,
			},
			{
				Name:  "get-h256",
				Usage: "Read an H256 value",
				Flags: []cli.Flag{
					addressFlag,
					&cli.StringFlag{Name: "key", Required: true, Usage: "Key of the pair"},
					heightFlag,
				},
				Action: amendGetH256,
			},
			{
				Name:  "balance",
				Usage: "Amend account balance",
				Flags: common(
					&cli.StringFlag{Name: "balance", Required: true, Usage: "New balance, decimal or 0x hex"},
				),
				Action: amendBalance,
			},
		},
	}
}

// adminClient connects with the --admin-private key and the command's overrides
func adminClient(c *cli.Context) (cita.Client, error) {
	env := envFrom(c)
	cfg := amendConfig{Config: env.config}
	var err error
	if c.IsSet("quota") {
		if cfg.quota, err = cita.ParseUint64(c.String("quota")); err != nil {
			return nil, fmt.Errorf("invalid quota: %w", err)
		}
	}
	if c.IsSet("chain-id") {
		if cfg.chainID, err = cita.ParseUint64(c.String("chain-id")); err != nil {
			return nil, fmt.Errorf("invalid chain id: %w", err)
		}
	}
	env.config = cfg

	account, err := env.account(c, "admin-private")
	if err != nil {
		return nil, err
	}
	return env.client(c.Context, account)
}

func amendCode(c *cli.Context) error {
	address, err := cita.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}
	code, err := cita.ParseHexBytes(c.String("content"))
	if err != nil {
		return err
	}
	client, err := adminClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.AmendCode(c.Context, address, code)
	if err != nil {
		return err
	}
	return envFrom(c).finish(c, client, receipt)
}

func amendABI(c *cli.Context) error {
	address, err := cita.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}
	content := c.String("content")
	switch {
	case content != "" && c.IsSet("path"):
		return fmt.Errorf("--content and --path are mutually exclusive")
	case c.IsSet("path"):
		raw, err := os.ReadFile(c.Path("path"))
		if err != nil {
			return fmt.Errorf("failed to read ABI file: %w", err)
		}
		content = string(raw)
	case content == "":
		return fmt.Errorf("one of --content or --path is required")
	}

	client, err := adminClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.AmendABI(c.Context, address, content)
	if err != nil {
		return err
	}
	return envFrom(c).finish(c, client, receipt)
}

func amendSetH256(c *cli.Context) error {
	address, err := cita.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}
	raw := c.StringSlice("kv")
	if len(raw)%2 != 0 {
		return fmt.Errorf("--kv expects key and value pairs, got %d values", len(raw))
	}
	kvs := make([]tx.KV, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		key, err := cita.ParseH256(raw[i])
		if err != nil {
			return err
		}
		value, err := cita.ParseH256(raw[i+1])
		if err != nil {
			return err
		}
		kvs = append(kvs, tx.KV{Key: key, Value: value})
	}

	client, err := adminClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.AmendH256KV(c.Context, address, kvs)
	if err != nil {
		return err
	}
	return envFrom(c).finish(c, client, receipt)
}

func amendGetH256(c *cli.Context) error {
	env := envFrom(c)
	address, err := cita.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}
	key, err := cita.ParseH256(c.String("key"))
	if err != nil {
		return err
	}
	height, err := cita.ParseHeight(c.String("height"))
	if err != nil {
		return err
	}

	client, err := env.client(c.Context, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	value, err := client.GetH256KV(c.Context, address, key, height)
	if err != nil {
		return err
	}
	return env.printer.Print(value)
}

func amendBalance(c *cli.Context) error {
	address, err := cita.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}
	balance, err := cita.ParseU256(c.String("balance"))
	if err != nil {
		return err
	}
	client, err := adminClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.AmendBalance(c.Context, address, balance)
	if err != nil {
		return err
	}
	return envFrom(c).finish(c, client, receipt)
}

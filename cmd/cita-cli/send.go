package main

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/cita"
)

var (
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "Label of a configured account, the first one by default",
	}
	waitFlag = &cli.BoolFlag{
		Name:  "wait",
		Usage: "Wait for the receipt",
	}
)

func SendCommand() *cli.Command {
	return &cli.Command{
		Name:    "send",
		Aliases: []string{"transfer"},
		Usage:   "Sign and send a transaction, a missing --to creates a contract",
		Flags: []cli.Flag{
			accountFlag,
			&cli.StringFlag{Name: "private-key", Usage: "Sign with this key instead of a configured account"},
			&cli.StringFlag{Name: "to", Usage: "Destination address"},
			&cli.StringFlag{Name: "value", Usage: "Value to transfer, decimal or 0x hex"},
			&cli.StringFlag{Name: "data", Usage: "Call data or contract code"},
			&cli.StringFlag{Name: "quota", Usage: "Quota limit"},
			&cli.StringFlag{Name: "valid-until-block", Usage: "Last block the transaction is valid in"},
			&cli.StringFlag{Name: "nonce", Usage: "Transaction nonce, a random uuid by default"},
			&cli.UintFlag{Name: "version", Usage: "Transaction version, taken from the node by default"},
			waitFlag,
		},
		Action: send,
	}
}

func send(c *cli.Context) error {
	env := envFrom(c)

	t := &cita.Transaction{Nonce: c.String("nonce")}
	var err error
	if c.IsSet("to") {
		to, err := cita.ParseAddress(c.String("to"))
		if err != nil {
			return err
		}
		t.To = &to
	}
	if c.IsSet("value") {
		if t.Value, err = cita.ParseU256(c.String("value")); err != nil {
			return err
		}
	}
	if c.IsSet("data") {
		if t.Data, err = cita.ParseHexBytes(c.String("data")); err != nil {
			return err
		}
	}
	if c.IsSet("quota") {
		if t.Quota, err = cita.ParseUint64(c.String("quota")); err != nil {
			return err
		}
	}
	if c.IsSet("valid-until-block") {
		if t.ValidUntilBlock, err = cita.ParseUint64(c.String("valid-until-block")); err != nil {
			return err
		}
	}
	if c.IsSet("version") {
		v := uint32(c.Uint("version"))
		t.Version = &v
	}

	account, err := env.account(c, "private-key")
	if err != nil {
		return err
	}
	client, err := env.client(c.Context, account)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.Transact(c.Context, t)
	if err != nil {
		return err
	}
	return env.finish(c, client, receipt)
}

// finish prints the pending receipt or, with --wait, the final one
func (e *environment) finish(c *cli.Context, client cita.Client, receipt *cita.TransactionReceipt) error {
	if !c.Bool("wait") {
		return e.printer.Print(receipt)
	}
	logrus.WithField("hash", receipt.TxHash.Hex()).Info("Waiting for receipt")
	final, err := client.WaitForTransaction(c.Context, receipt.TxHash)
	if err != nil {
		return err
	}
	return e.printer.Print(final)
}

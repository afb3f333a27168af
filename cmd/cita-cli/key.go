package main

import (
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/signer"
)

type keyPair struct {
	Crypto     signer.Crypto `json:"crypto"`
	PrivateKey string        `json:"private_key"`
	Address    string        `json:"address"`
}

func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Create keys and derive addresses",
		Subcommands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Generate a new private key",
				Action: keyCreate,
			},
			{
				Name:  "from-private",
				Usage: "Derive the address of a private key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "private-key", Required: true, Usage: "0x hex private key"},
				},
				Action: keyFromPrivate,
			},
		},
	}
}

func keyCreate(c *cli.Context) error {
	env := envFrom(c)
	s, err := signer.ForCrypto(env.config.Crypto())
	if err != nil {
		return err
	}
	key, err := signer.GenerateKey(s)
	if err != nil {
		return err
	}
	return printKey(c, s, key)
}

func keyFromPrivate(c *cli.Context) error {
	env := envFrom(c)
	s, err := signer.ForCrypto(env.config.Crypto())
	if err != nil {
		return err
	}
	key, err := signer.ParsePrivateKey(c.String("private-key"))
	if err != nil {
		return err
	}
	return printKey(c, s, key)
}

func printKey(c *cli.Context, s signer.Signer, key signer.PrivateKey) error {
	addr, err := s.Address(key)
	if err != nil {
		return err
	}
	return envFrom(c).printer.Print(keyPair{
		Crypto:     s.Crypto(),
		PrivateKey: key.Hex(),
		Address:    addr.Hex(),
	})
}

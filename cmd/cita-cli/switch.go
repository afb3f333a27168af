package main

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/cita"
	"github.com/citahub/cita-cli/signer"
)

func SwitchCommand() *cli.Command {
	return &cli.Command{
		Name:  "switch",
		Usage: "Change and save session settings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Node url"},
			&cli.StringFlag{Name: "crypto", Usage: "secp256k1 or ed25519"},
			&cli.StringFlag{Name: "chain-id", Usage: "Expected chain id, 0 trusts the node"},
			&cli.BoolFlag{Name: "debug", Usage: "Debug logging"},
			&cli.BoolFlag{Name: "color", Usage: "Colored output"},
		},
		Action: switchSession,
	}
}

func switchSession(c *cli.Context) error {
	env := envFrom(c)
	session := env.session

	if c.IsSet("url") {
		session.URL = c.String("url")
	}
	if c.IsSet("crypto") {
		s, err := signer.ForCrypto(signer.Crypto(c.String("crypto")))
		if err != nil {
			return err
		}
		session.Crypto = string(s.Crypto())
	}
	if c.IsSet("chain-id") {
		id, err := cita.ParseUint64(c.String("chain-id"))
		if err != nil {
			return err
		}
		session.ChainID = id
	}
	if c.IsSet("debug") {
		session.Debug = c.Bool("debug")
	}
	if c.IsSet("color") {
		color := c.Bool("color")
		session.Color = &color
	}

	if err := session.Save(env.sessionPath); err != nil {
		return err
	}
	logrus.WithField("path", env.sessionPath).Info("Session saved")
	return env.printer.Print(session)
}

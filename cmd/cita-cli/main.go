package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "cita-cli",
		Usage:  "Command line client for CITA nodes",
		Flags:  globalFlags(),
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			RPCCommand(),
			SendCommand(),
			AmendCommand(),
			ABICommand(),
			KeyCommand(),
			SwitchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/citahub/cita-cli/cita"
	"github.com/citahub/cita-cli/rpc"
	"github.com/citahub/cita-cli/signer"
)

const envKey = "environment"

// environment is shared by all commands of one invocation
type environment struct {
	sessionPath string
	session     *cita.Session
	config      cita.Config
	printer     *printer
	metrics     *rpc.Metrics
	server      *http.Server
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "CITA node url (http, https, ws or wss)",
		},
		&cli.StringFlag{
			Name:  "crypto",
			Usage: "Signature scheme, secp256k1 or ed25519",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log rpc traffic",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.StringFlag{
			Name:  "session",
			Usage: "Session file (default ~/.cita-cli/session.yaml)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Value: ".env",
			Usage: "dotenv file loaded before reading the environment",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve prometheus metrics on this address while the command runs",
		},
	}
}

func setup(c *cli.Context) error {
	// a missing default .env is fine, an explicit one must exist
	if err := godotenv.Load(c.String("env-file")); err != nil && c.IsSet("env-file") {
		return fmt.Errorf("error loading env file: %w", err)
	}

	// command line flags win over the environment
	if c.IsSet("url") {
		os.Setenv("CITA_RPC_URL", c.String("url"))
	}
	if c.IsSet("crypto") {
		os.Setenv("CITA_CRYPTO", c.String("crypto"))
	}
	if c.Bool("debug") {
		os.Setenv("CITA_DEBUG", "true")
	}

	path := c.String("session")
	if path == "" {
		var err error
		if path, err = cita.DefaultSessionPath(); err != nil {
			return err
		}
	}
	session, err := cita.LoadSession(path)
	if err != nil {
		return err
	}

	cfg, err := cita.NewConfiguration(session)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if c.Bool("no-color") || !session.ColorEnabled() {
		color.NoColor = true
	}

	env := &environment{
		sessionPath: path,
		session:     session,
		config:      cfg,
		printer:     newPrinter(c.App.Writer),
	}
	if addr := c.String("metrics-addr"); addr != "" {
		env.serveMetrics(addr)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[envKey] = env
	return nil
}

func teardown(c *cli.Context) error {
	env, ok := c.App.Metadata[envKey].(*environment)
	if !ok || env.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return env.server.Shutdown(ctx)
}

func envFrom(c *cli.Context) *environment {
	return c.App.Metadata[envKey].(*environment)
}

func (e *environment) serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	e.metrics = rpc.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logrus.WithField("addr", addr).Info("Serving metrics")
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server failed")
		}
	}()
}

func (e *environment) rpcOptions() []rpc.Option {
	if e.metrics == nil {
		return nil
	}
	return []rpc.Option{rpc.WithObserver(e.metrics)}
}

// node dials a raw rpc client
func (e *environment) node(ctx context.Context) (*rpc.Client, error) {
	opts := append([]rpc.Option{rpc.WithLogger(logrus.WithField("component", "rpc"))}, e.rpcOptions()...)
	return cita.DialNode(ctx, e.config, opts...)
}

// client dials the high-level client; account may be nil for queries
func (e *environment) client(ctx context.Context, account *cita.Account) (cita.Client, error) {
	return cita.NewClient(ctx, account, e.config, e.rpcOptions()...)
}

// account resolves --private-key first and the configured --account label
// otherwise
func (e *environment) account(c *cli.Context, keyFlag string) (*cita.Account, error) {
	if raw := c.String(keyFlag); raw != "" {
		key, err := signer.ParsePrivateKey(raw)
		if err != nil {
			return nil, err
		}
		s, err := signer.ForCrypto(e.config.Crypto())
		if err != nil {
			return nil, err
		}
		return cita.NewAccount(keyFlag, key, s)
	}
	return e.config.Account(c.String("account"))
}

package cita

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/citahub/cita-cli/rpc"
	"github.com/citahub/cita-cli/signer"
)

const (
	envRpcURL  = "CITA_RPC_URL"
	envChainID = "CITA_CHAIN_ID"
	envCrypto  = "CITA_CRYPTO"
	envDebug   = "CITA_DEBUG"

	// -- accounts and private keys
	envAccountsList         = "CITA_ACCOUNTS"
	envAccountPrivateKeyFmt = "CITA_ACCOUNT_%s_PRIVATE_KEY"
	envAccountAddressFmt    = "CITA_ACCOUNT_%s_ADDRESS"

	// -- transaction defaults
	envQuota       = "CITA_QUOTA"
	envValidBlocks = "CITA_VALID_BLOCKS"

	// -- timeouts
	envRPCTimeout         = "CITA_RPC_TIMEOUT_SECONDS"
	envTransactionTimeout = "CITA_TRANSACTION_TIMEOUT_SECONDS"
	envTransactionTicker  = "CITA_TRANSACTION_TICKER_SECONDS"

	// -- tls
	envTLSCAFile     = "CITA_TLS_CA_FILE"
	envTLSServerName = "CITA_TLS_SERVER_NAME"
	envTLSInsecure   = "CITA_TLS_INSECURE"

	DEFAULT_RPC_URL      = "http://127.0.0.1:1337"
	DEFAULT_QUOTA        = 10_000_000
	DEFAULT_VALID_BLOCKS = 88

	DEFAULT_RPC_TIMEOUT_SECONDS         = 30
	DEFAULT_TRANSACTION_TIMEOUT_SECONDS = 300 // 5 minutes
	DEFAULT_TRANSACTION_TICKER_SECONDS  = 3
)

// Config is the resolved client configuration
type Config interface {
	RPCURL() string
	// ChainID is the expected chain id; 0 trusts the node
	ChainID() uint64
	Crypto() signer.Crypto
	Accounts() []*Account
	Account(label string) (*Account, error)
	Quota() uint64
	ValidBlocks() uint64
	RPCTimeoutSeconds() int
	TransactionTimeoutSeconds() int
	TransactionTickerSeconds() int
	TLS() *rpc.TLSConfig
	Debug() bool
}

type config struct {
	rpcURL   string
	chainId  uint64
	crypto   signer.Crypto
	accounts []*Account
	debug    bool
}

// NewConfiguration reads the environment on top of an optional session file.
// Environment values win.
func NewConfiguration(session *Session) (Config, error) {
	c := &config{rpcURL: DEFAULT_RPC_URL, crypto: signer.CryptoSecp256k1}
	if session != nil {
		if session.URL != "" {
			c.rpcURL = session.URL
		}
		if session.Crypto != "" {
			c.crypto = signer.Crypto(session.Crypto)
		}
		c.chainId = session.ChainID
		c.debug = session.Debug
	}

	if v := os.Getenv(envRpcURL); v != "" {
		c.rpcURL = v
	}
	if v := os.Getenv(envChainID); v != "" {
		id, err := ParseUint64(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envChainID, err)
		}
		c.chainId = id
	}
	if v := os.Getenv(envCrypto); v != "" {
		c.crypto = signer.Crypto(v)
	}
	if v := os.Getenv(envDebug); v != "" {
		c.debug, _ = strconv.ParseBool(v)
	}

	s, err := signer.ForCrypto(c.crypto)
	if err != nil {
		return nil, err
	}
	c.crypto = s.Crypto()

	accounts, err := loadAccountsFromEnv(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	c.accounts = accounts
	return c, nil
}

func (c *config) RPCURL() string        { return c.rpcURL }
func (c *config) ChainID() uint64       { return c.chainId }
func (c *config) Crypto() signer.Crypto { return c.crypto }
func (c *config) Accounts() []*Account  { return c.accounts }
func (c *config) Debug() bool           { return c.debug }

// Account looks an account up by label, case-insensitively. An empty label
// selects the first configured account.
func (c *config) Account(label string) (*Account, error) {
	if len(c.accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured in %s", envAccountsList)
	}
	if label == "" {
		return c.accounts[0], nil
	}
	for _, a := range c.accounts {
		if strings.EqualFold(a.Label, label) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("account %q not found", label)
}

// Quota returns the default quota of new transactions (default: 10 000 000)
func (c *config) Quota() uint64 {
	return envUint64(envQuota, DEFAULT_QUOTA)
}

// ValidBlocks is added to the current height to get valid_until_block
// (default: 88)
func (c *config) ValidBlocks() uint64 {
	return envUint64(envValidBlocks, DEFAULT_VALID_BLOCKS)
}

func (c *config) RPCTimeoutSeconds() int {
	return envSeconds(envRPCTimeout, DEFAULT_RPC_TIMEOUT_SECONDS)
}

// TransactionTimeoutSeconds returns the receipt wait in seconds (default: 300)
func (c *config) TransactionTimeoutSeconds() int {
	return envSeconds(envTransactionTimeout, DEFAULT_TRANSACTION_TIMEOUT_SECONDS)
}

// TransactionTickerSeconds returns the receipt poll interval in seconds (default: 3)
func (c *config) TransactionTickerSeconds() int {
	return envSeconds(envTransactionTicker, DEFAULT_TRANSACTION_TICKER_SECONDS)
}

// TLS returns nil when no TLS option is set
func (c *config) TLS() *rpc.TLSConfig {
	caFile := os.Getenv(envTLSCAFile)
	serverName := os.Getenv(envTLSServerName)
	insecure, _ := strconv.ParseBool(os.Getenv(envTLSInsecure))
	if caFile == "" && serverName == "" && !insecure {
		return nil
	}
	return &rpc.TLSConfig{CAFile: caFile, ServerName: serverName, InsecureSkipVerify: insecure}
}

func envUint64(key string, def uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := ParseUint64(s)
	if err != nil || v == 0 {
		return def
	}
	return v
}

func envSeconds(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func loadAccountsFromEnv(s signer.Signer) ([]*Account, error) {
	labels := os.Getenv(envAccountsList)
	if labels == "" {
		return nil, nil
	}

	var accounts []*Account
	for _, label := range strings.Split(labels, ",") {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		privHex := os.Getenv(fmt.Sprintf(envAccountPrivateKeyFmt, strings.ToUpper(label)))
		addrHex := os.Getenv(fmt.Sprintf(envAccountAddressFmt, strings.ToUpper(label)))

		switch {
		case privHex != "":
			// signing account
			key, err := signer.ParsePrivateKey(privHex)
			if err != nil {
				return nil, fmt.Errorf("invalid private key for %s: %w", label, err)
			}
			account, err := NewAccount(label, key, s)
			if err != nil {
				return nil, fmt.Errorf("invalid private key for %s: %w", label, err)
			}
			if addrHex != "" {
				addr, err := ParseAddress(addrHex)
				if err != nil || addr != account.Address {
					return nil, fmt.Errorf("address of %s does not match its private key", label)
				}
			}
			accounts = append(accounts, account)
		case addrHex != "":
			// watch-only account, usable for queries
			addr, err := ParseAddress(addrHex)
			if err != nil {
				return nil, fmt.Errorf("invalid address for %s: %w", label, err)
			}
			accounts = append(accounts, &Account{Address: addr, Label: label, Crypto: s.Crypto()})
		default:
			return nil, fmt.Errorf("no private key or address found for account[%s] in environment variables", label)
		}
	}
	return accounts, nil
}

package cita

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/citahub/cita-cli/abi"
	"github.com/citahub/cita-cli/rpc"
	"github.com/citahub/cita-cli/signer"
	"github.com/citahub/cita-cli/tx"
)

var (
	// ErrPending is returned for a transaction that is not yet in a block
	ErrPending = errors.New("transaction not found or pending")

	// ErrNoSigningAccount is returned by operations that need a private key
	ErrNoSigningAccount = errors.New("no signing account")
)

type Client interface {
	// SignTransaction fills missing fields from the node and signs with the
	// client's account
	SignTransaction(ctx context.Context, t *Transaction) (*tx.SignedTransaction, error)

	// SendTransaction submits a signed transaction and returns a pending receipt
	SendTransaction(ctx context.Context, signed *tx.SignedTransaction) (*TransactionReceipt, error)

	// Transact signs and sends
	Transact(ctx context.Context, t *Transaction) (*TransactionReceipt, error)

	// WaitForTransaction polls until the transaction is in a block
	WaitForTransaction(ctx context.Context, hash common.Hash) (*TransactionReceipt, error)

	// GetTransactionReceipt returns ErrPending until the transaction is in a block
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*TransactionReceipt, error)

	GetBalance(ctx context.Context, address common.Address) (*uint256.Int, error)

	// CallContract runs fn read-only against to and decodes its outputs
	CallContract(ctx context.Context, to common.Address, fn abi.Function, args []abi.Value) ([]abi.Value, error)

	// GetAbi returns the ABI JSON stored for a contract, empty when none
	GetAbi(ctx context.Context, address common.Address) (string, error)

	// Amend operations rewrite chain state and require the admin key
	AmendCode(ctx context.Context, address common.Address, code []byte) (*TransactionReceipt, error)
	AmendABI(ctx context.Context, address common.Address, abiJSON string) (*TransactionReceipt, error)
	AmendH256KV(ctx context.Context, address common.Address, kvs []tx.KV) (*TransactionReceipt, error)
	AmendBalance(ctx context.Context, address common.Address, balance *uint256.Int) (*TransactionReceipt, error)
	GetH256KV(ctx context.Context, address common.Address, key common.Hash, height rpc.Height) (common.Hash, error)

	// Account is nil for a read-only client
	Account() *Account

	Close()
}

// NodeClient is the part of the node API the client depends on
type NodeClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetMetaData(ctx context.Context, height rpc.Height) (*rpc.MetaData, error)
	GetBalance(ctx context.Context, address common.Address, height rpc.Height) (*uint256.Int, error)
	GetAbi(ctx context.Context, address common.Address, height rpc.Height) ([]byte, error)
	SendRawTransaction(ctx context.Context, raw []byte) (*rpc.SendResult, error)
	GetTransaction(ctx context.Context, hash common.Hash) (*rpc.TransactionResult, error)
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*rpc.Receipt, error)
	ContractCall(ctx context.Context, req rpc.CallRequest, height rpc.Height) ([]byte, error)
	Close() error
}

// Ensure *rpc.Client implements NodeClient
var _ NodeClient = (*rpc.Client)(nil)

type citaClient struct {
	client  NodeClient
	signer  signer.Signer
	account *Account
	config  Config
	log     logrus.FieldLogger

	metaMu sync.Mutex
	meta   *rpc.MetaData
}

// NewClient connects to the configured node and checks its chain id. account
// may be nil for read-only use.
func NewClient(ctx context.Context, account *Account, cfg Config, opts ...rpc.Option) (Client, error) {
	log := logrus.WithField("component", "cita")

	s, err := signer.ForCrypto(cfg.Crypto())
	if err != nil {
		return nil, err
	}
	if account != nil && account.Crypto != "" && account.Crypto != s.Crypto() {
		return nil, fmt.Errorf("account %s uses %s, client uses %s", account.Label, account.Crypto, s.Crypto())
	}

	log.WithField("url", cfg.RPCURL()).Info("Connecting to CITA RPC")
	node, err := DialNode(ctx, cfg, append([]rpc.Option{rpc.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, err
	}

	c := newClient(node, s, account, cfg, log)
	meta, err := c.metaData(ctx)
	if err != nil {
		_ = node.Close()
		return nil, err
	}

	fields := logrus.Fields{"chain_id": meta.ChainID, "chain_name": meta.ChainName, "version": meta.Version}
	if account != nil {
		fields["account"] = account.Address.Hex()
	}
	log.WithFields(fields).Info("Connected to CITA network")
	return c, nil
}

// DialNode opens a raw RPC client with the configured timeout and TLS
// settings. opts are applied last.
func DialNode(ctx context.Context, cfg Config, opts ...rpc.Option) (*rpc.Client, error) {
	base := []rpc.Option{rpc.WithTimeout(time.Duration(cfg.RPCTimeoutSeconds()) * time.Second)}
	if tlsCfg := cfg.TLS(); tlsCfg != nil {
		base = append(base, rpc.WithTLS(*tlsCfg))
	}
	node, err := rpc.Dial(ctx, cfg.RPCURL(), append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CITA network: %w", err)
	}
	return node, nil
}

func newClient(node NodeClient, s signer.Signer, account *Account, cfg Config, log logrus.FieldLogger) *citaClient {
	return &citaClient{client: node, signer: s, account: account, config: cfg, log: log}
}

func (c *citaClient) Account() *Account { return c.account }

// metaData fetches the chain description once and checks the chain id
func (c *citaClient) metaData(ctx context.Context) (*rpc.MetaData, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	if c.meta != nil {
		return c.meta, nil
	}

	meta, err := c.client.GetMetaData(ctx, rpc.Latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain metadata: %w", err)
	}
	if want := c.config.ChainID(); want != 0 {
		got := uint64(meta.ChainID)
		if meta.Version > 0 {
			if !meta.ChainIDV1.IsUint64() {
				return nil, fmt.Errorf("expected chain ID %d, got %s", want, meta.ChainIDV1.Dec())
			}
			got = meta.ChainIDV1.Uint64()
		}
		if got != want {
			return nil, fmt.Errorf("expected chain ID %d, got %d", want, got)
		}
	}
	c.meta = meta
	return meta, nil
}

func (c *citaClient) SignTransaction(ctx context.Context, t *Transaction) (*tx.SignedTransaction, error) {
	if c.account == nil || !c.account.CanSign() {
		return nil, ErrNoSigningAccount
	}
	log := c.log.WithField("from", c.account.Address.Hex())
	log.Info("Starting transaction signing process")

	meta, err := c.metaData(ctx)
	if err != nil {
		return nil, err
	}

	opts := []tx.Option{tx.WithData(t.Data)}
	if t.To != nil {
		opts = append(opts, tx.WithTo(*t.To))
	}
	if t.Value != nil {
		opts = append(opts, tx.WithValue(t.Value))
	}

	nonce := t.Nonce
	if nonce == "" {
		nonce = uuid.NewString()
	}
	opts = append(opts, tx.WithNonce(nonce))

	quota := t.Quota
	if quota == 0 {
		quota = c.config.Quota()
	}
	opts = append(opts, tx.WithQuota(quota))

	validUntil := t.ValidUntilBlock
	if validUntil == 0 {
		height, err := c.client.BlockNumber(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to get block number")
			return nil, fmt.Errorf("failed to get block number: %w", err)
		}
		validUntil = height + c.config.ValidBlocks()
	}
	opts = append(opts, tx.WithValidUntilBlock(validUntil))

	version := meta.Version
	if t.Version != nil {
		version = *t.Version
	}
	opts = append(opts, tx.WithVersion(version))
	if version == 0 {
		opts = append(opts, tx.WithChainIDUint64(uint64(meta.ChainID)))
	} else {
		opts = append(opts, tx.WithChainID(new(uint256.Int).Set(&meta.ChainIDV1.Int)))
	}

	unsigned, err := tx.Build(opts...)
	if err != nil {
		log.WithError(err).Error("Failed to build transaction")
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	signed, err := tx.Sign(unsigned, c.signer, *c.account.PrivateKey)
	if err != nil {
		log.WithError(err).Error("Failed to sign transaction")
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	log.WithFields(logrus.Fields{
		"hash":              signed.Hash().Hex(),
		"quota":             quota,
		"valid_until_block": validUntil,
		"version":           version,
	}).Info("Transaction signed successfully")
	return signed, nil
}

func (c *citaClient) SendTransaction(ctx context.Context, signed *tx.SignedTransaction) (*TransactionReceipt, error) {
	hash := signed.Hash()
	c.log.WithField("hash", hash.Hex()).Info("Sending transaction to network")

	res, err := c.client.SendRawTransaction(ctx, signed.Bytes())
	if err != nil {
		c.log.WithError(err).Error("Failed to send transaction")
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	if res.Hash != hash {
		c.log.WithFields(logrus.Fields{"local": hash.Hex(), "node": res.Hash.Hex()}).
			Warn("Node reported a different transaction hash")
		hash = res.Hash
	}

	c.log.WithFields(logrus.Fields{"hash": hash.Hex(), "status": res.Status}).Info("Transaction sent successfully")
	return &TransactionReceipt{
		TxHash: hash,
		Status: StatusPending,
		From:   signed.Sender(),
		To:     signed.Transaction().To(),
	}, nil
}

func (c *citaClient) Transact(ctx context.Context, t *Transaction) (*TransactionReceipt, error) {
	signed, err := c.SignTransaction(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.SendTransaction(ctx, signed)
}

func (c *citaClient) WaitForTransaction(ctx context.Context, hash common.Hash) (*TransactionReceipt, error) {
	timeout := time.Duration(c.config.TransactionTimeoutSeconds()) * time.Second
	tickerInterval := time.Duration(c.config.TransactionTickerSeconds()) * time.Second

	timeoutChan := time.After(timeout)
	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutChan:
			return nil, fmt.Errorf("transaction timeout: %s", hash.Hex())
		case <-ticker.C:
			receipt, err := c.GetTransactionReceipt(ctx, hash)
			if err == nil {
				return receipt, nil
			}
			if !errors.Is(err, ErrPending) {
				c.log.WithError(err).WithField("hash", hash.Hex()).Warn("Failed to poll receipt")
			}
		}
	}
}

func (c *citaClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*TransactionReceipt, error) {
	receipt, err := c.client.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, ErrPending
	}

	// the sender and destination come from the transaction itself
	found, err := c.client.GetTransaction(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if found == nil {
		return nil, ErrPending
	}
	signed, err := found.Decode(c.signer)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	out := &TransactionReceipt{
		TxHash:          receipt.TransactionHash,
		Status:          StatusSuccess,
		BlockNumber:     uint64(receipt.BlockNumber),
		QuotaUsed:       uint64(receipt.QuotaUsed),
		From:            signed.Sender(),
		To:              signed.Transaction().To(),
		ContractAddress: receipt.ContractAddress,
		Logs:            receipt.Logs,
	}
	if !receipt.Succeeded() {
		out.Status = StatusFailed
		out.ErrorMessage = *receipt.ErrorMessage
	}
	return out, nil
}

func (c *citaClient) GetBalance(ctx context.Context, address common.Address) (*uint256.Int, error) {
	balance, err := c.client.GetBalance(ctx, address, rpc.Latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (c *citaClient) callRequest(to common.Address, data []byte) rpc.CallRequest {
	req := rpc.CallRequest{To: to, Data: data}
	if c.account != nil {
		from := c.account.Address
		req.From = &from
	}
	return req
}

func (c *citaClient) CallContract(ctx context.Context, to common.Address, fn abi.Function, args []abi.Value) ([]abi.Value, error) {
	data, err := fn.EncodeCall(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call to %s: %w", fn.Name, err)
	}
	out, err := c.client.ContractCall(ctx, c.callRequest(to, data), rpc.Latest)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", fn.Name, err)
	}
	values, err := fn.DecodeOutput(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode output of %s: %w", fn.Name, err)
	}
	return values, nil
}

func (c *citaClient) GetAbi(ctx context.Context, address common.Address) (string, error) {
	raw, err := c.client.GetAbi(ctx, address, rpc.Latest)
	if err != nil {
		return "", fmt.Errorf("failed to get abi: %w", err)
	}
	if len(raw) == 0 {
		return "", nil
	}
	values, err := abi.Decode([]abi.Type{abi.String()}, raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode abi content: %w", err)
	}
	return values[0].(abi.StringValue).Value, nil
}

func (c *citaClient) amend(ctx context.Context, a tx.Amend, address common.Address) (*TransactionReceipt, error) {
	c.log.WithFields(logrus.Fields{"kind": a.Kind.String(), "address": address.Hex()}).Info("Amending chain state")
	to := tx.AmendAddress
	t := Transaction{
		To:    &to,
		Value: uint256.NewInt(uint64(a.Kind)),
		Data:  a.Data,
	}
	return c.Transact(ctx, &t)
}

func (c *citaClient) AmendCode(ctx context.Context, address common.Address, code []byte) (*TransactionReceipt, error) {
	return c.amend(ctx, tx.AmendCodePayload(address, code), address)
}

func (c *citaClient) AmendABI(ctx context.Context, address common.Address, abiJSON string) (*TransactionReceipt, error) {
	a, err := tx.AmendABIPayload(address, abiJSON)
	if err != nil {
		return nil, err
	}
	return c.amend(ctx, a, address)
}

func (c *citaClient) AmendH256KV(ctx context.Context, address common.Address, kvs []tx.KV) (*TransactionReceipt, error) {
	a, err := tx.AmendH256KVPayload(address, kvs)
	if err != nil {
		return nil, err
	}
	return c.amend(ctx, a, address)
}

func (c *citaClient) AmendBalance(ctx context.Context, address common.Address, balance *uint256.Int) (*TransactionReceipt, error) {
	return c.amend(ctx, tx.AmendBalancePayload(address, balance), address)
}

func (c *citaClient) GetH256KV(ctx context.Context, address common.Address, key common.Hash, height rpc.Height) (common.Hash, error) {
	out, err := c.client.ContractCall(ctx, c.callRequest(tx.AmendAddress, tx.H256KVCallData(address, key)), height)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read h256 value: %w", err)
	}
	return common.BytesToHash(out), nil
}

// Close closes the node connection
func (c *citaClient) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

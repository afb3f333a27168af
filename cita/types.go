package cita

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/citahub/cita-cli/rpc"
	"github.com/citahub/cita-cli/signer"
)

// Account is a labelled key. PrivateKey is nil for watch-only accounts.
type Account struct {
	Address    common.Address
	Label      string
	Crypto     signer.Crypto
	PrivateKey *signer.PrivateKey
}

// NewAccount derives the address of key under s
func NewAccount(label string, key signer.PrivateKey, s signer.Signer) (*Account, error) {
	addr, err := s.Address(key)
	if err != nil {
		return nil, err
	}
	return &Account{Address: addr, Label: label, Crypto: s.Crypto(), PrivateKey: &key}, nil
}

// CanSign reports whether the account holds a private key
func (a *Account) CanSign() bool { return a.PrivateKey != nil }

// Transaction is a high-level transaction request. Zero fields are filled
// from the node and the configuration when the transaction is signed.
type Transaction struct {
	To              *common.Address `json:"to,omitempty"`
	Value           *uint256.Int    `json:"value,omitempty"`
	Data            []byte          `json:"data,omitempty"`
	Quota           uint64          `json:"quota,omitempty"`
	ValidUntilBlock uint64          `json:"valid_until_block,omitempty"`
	Nonce           string          `json:"nonce,omitempty"`
	Version         *uint32         `json:"version,omitempty"`
}

// TransactionReceipt represents transaction execution result
type TransactionReceipt struct {
	TxHash          common.Hash     `json:"tx_hash"`
	Status          uint64          `json:"status"` // 0 pending, 1 success, 2 failed
	BlockNumber     uint64          `json:"block_number"`
	QuotaUsed       uint64          `json:"quota_used"`
	From            common.Address  `json:"from"`
	To              *common.Address `json:"to,omitempty"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Logs            []rpc.Log       `json:"logs"`
}

const (
	StatusPending uint64 = iota
	StatusSuccess
	StatusFailed
)

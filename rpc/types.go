package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/citahub/cita-cli/signer"
	"github.com/citahub/cita-cli/tx"
)

const jsonrpcVersion = "2.0"

// Request is the JSON-RPC request envelope
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      uint64            `json:"id"`
}

// Response is a validated JSON-RPC response: exactly one of Result and Error
// is set.
type Response struct {
	JSONRPC string
	ID      uint64
	Result  json.RawMessage
	Error   *ErrorObject
}

// ErrorObject is the error member of a response
type ErrorObject struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// U256 is a 256-bit quantity that accepts 0x hex, with or without leading
// zeros, as well as decimal strings and JSON numbers.
type U256 struct {
	uint256.Int
}

func (u *U256) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, ok := new(big.Int), false
	if has0x(s) {
		n, ok = n.SetString(s[2:], 16)
	} else {
		n, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("invalid quantity %s", data)
	}
	if overflow := u.SetFromBig(n); overflow {
		return fmt.Errorf("quantity %s exceeds 256 bits", data)
	}
	return nil
}

func (u U256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Hex())
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// MetaData is the chain description returned by getMetaData
type MetaData struct {
	ChainID          uint32           `json:"chainId"`
	ChainIDV1        U256             `json:"chainIdV1"`
	ChainName        string           `json:"chainName"`
	Operator         string           `json:"operator"`
	Website          string           `json:"website"`
	GenesisTimestamp uint64           `json:"genesisTimestamp"`
	Validators       []common.Address `json:"validators"`
	BlockInterval    uint64           `json:"blockInterval"`
	TokenName        string           `json:"tokenName"`
	TokenSymbol      string           `json:"tokenSymbol"`
	TokenAvatar      string           `json:"tokenAvatar"`
	Version          uint32           `json:"version"`
	EconomicalModel  uint8            `json:"economicalModel"`
}

// Log is an event emitted during execution
type Log struct {
	Address             common.Address `json:"address"`
	Topics              []common.Hash  `json:"topics"`
	Data                hexutil.Bytes  `json:"data"`
	BlockHash           common.Hash    `json:"blockHash"`
	BlockNumber         hexutil.Uint64 `json:"blockNumber"`
	TransactionHash     common.Hash    `json:"transactionHash"`
	TransactionIndex    hexutil.Uint64 `json:"transactionIndex"`
	LogIndex            hexutil.Uint64 `json:"logIndex"`
	TransactionLogIndex hexutil.Uint64 `json:"transactionLogIndex"`
}

// Receipt is the execution result of a mined transaction
type Receipt struct {
	TransactionHash     common.Hash     `json:"transactionHash"`
	TransactionIndex    hexutil.Uint64  `json:"transactionIndex"`
	BlockHash           common.Hash     `json:"blockHash"`
	BlockNumber         hexutil.Uint64  `json:"blockNumber"`
	CumulativeQuotaUsed hexutil.Uint64  `json:"cumulativeQuotaUsed"`
	QuotaUsed           hexutil.Uint64  `json:"quotaUsed"`
	ContractAddress     *common.Address `json:"contractAddress"`
	Logs                []Log           `json:"logs"`
	Root                *common.Hash    `json:"root"`
	LogsBloom           hexutil.Bytes   `json:"logsBloom"`
	ErrorMessage        *string         `json:"errorMessage"`
}

// Succeeded reports whether the node executed the transaction without error
func (r *Receipt) Succeeded() bool {
	return r.ErrorMessage == nil || *r.ErrorMessage == ""
}

// SendResult is returned by sendRawTransaction
type SendResult struct {
	Hash   common.Hash `json:"hash"`
	Status string      `json:"status"`
}

// TransactionResult is returned by getTransaction. Content is the wire form
// of the signed transaction.
type TransactionResult struct {
	Hash        common.Hash     `json:"hash"`
	Content     hexutil.Bytes   `json:"content"`
	From        *common.Address `json:"from,omitempty"`
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
	BlockHash   common.Hash     `json:"blockHash"`
	Index       hexutil.Uint64  `json:"index"`
}

// Decode parses Content and recovers its sender with s
func (r *TransactionResult) Decode(s signer.Signer) (*tx.SignedTransaction, error) {
	return tx.DecodeSignedTransaction(r.Content, s)
}

// BlockHeader is the header of a block
type BlockHeader struct {
	Timestamp        uint64         `json:"timestamp"`
	PrevHash         common.Hash    `json:"prevHash"`
	Number           hexutil.Uint64 `json:"number"`
	StateRoot        common.Hash    `json:"stateRoot"`
	TransactionsRoot common.Hash    `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash    `json:"receiptsRoot"`
	QuotaUsed        hexutil.Uint64 `json:"quotaUsed"`
	Proposer         common.Address `json:"proposer"`
}

// Block is returned by getBlockByNumber. Transactions are hashes or full
// objects depending on the request and are left raw.
type Block struct {
	Version uint32      `json:"version"`
	Hash    common.Hash `json:"hash"`
	Header  BlockHeader `json:"header"`
	Body    struct {
		Transactions []json.RawMessage `json:"transactions"`
	} `json:"body"`
}

// CallRequest is the message of a read-only contract call
type CallRequest struct {
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
	Data hexutil.Bytes   `json:"data,omitempty"`
}

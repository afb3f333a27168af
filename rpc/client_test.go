package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citahub/cita-cli/abi"
)

// replyFunc returns the raw response body for a decoded request
type replyFunc func(req Request) string

func newHTTPServer(t *testing.T, reply replyFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialHTTP(t *testing.T, reply replyFunc, opts ...Option) *Client {
	t.Helper()
	srv := newHTTPServer(t, reply)
	c, err := Dial(context.Background(), srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func result(req Request, v string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, v)
}

func TestClient_Call(t *testing.T) {
	var got Request
	c := dialHTTP(t, func(req Request) string {
		got = req
		return result(req, `"0x10"`)
	})

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "blockNumber", got.Method)
	assert.Empty(t, got.Params)
	assert.NotZero(t, got.ID)
}

func TestClient_IDsAreUnique(t *testing.T) {
	var (
		mu  sync.Mutex
		ids = map[uint64]bool{}
	)
	c := dialHTTP(t, func(req Request) string {
		mu.Lock()
		ids[req.ID] = true
		mu.Unlock()
		return result(req, `"0x1"`)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.PeerCount(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 20)
}

func TestClient_ProtocolErrors(t *testing.T) {
	cases := map[string]func(req Request) string{
		"both result and error": func(req Request) string {
			return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"0x1","error":{"code":-32000,"message":"x"}}`, req.ID)
		},
		"neither": func(req Request) string {
			return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d}`, req.ID)
		},
		"missing id": func(Request) string {
			return `{"jsonrpc":"2.0","result":"0x1"}`
		},
		"wrong id": func(req Request) string {
			return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"0x1"}`, req.ID+100)
		},
		"invalid json": func(Request) string {
			return `{"jsonrpc":`
		},
		"invalid result": func(req Request) string {
			return result(req, `{"not":"a number"}`)
		},
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			c := dialHTTP(t, reply)
			_, err := c.BlockNumber(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocol)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "blockNumber", perr.Method)
		})
	}
}

func TestClient_RemoteError(t *testing.T) {
	c := dialHTTP(t, func(req Request) string {
		return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":-32006,"message":"Transaction validation failed","data":"InvalidNonce"}}`, req.ID)
	})
	_, err := c.SendRawTransaction(context.Background(), []byte{1, 2})

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(-32006), rerr.Code)
	assert.Equal(t, "Transaction validation failed", rerr.Message)
	assert.JSONEq(t, `"InvalidNonce"`, string(rerr.Data))
	assert.False(t, errors.Is(err, ErrProtocol))
}

func TestClient_NullErrorAndNullResult(t *testing.T) {
	c := dialHTTP(t, func(req Request) string {
		return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":null,"error":null}`, req.ID)
	})
	receipt, err := c.GetTransactionReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := dialHTTP(t, func(req Request) string {
		<-release
		return result(req, `"0x1"`)
	}, WithTimeout(50*time.Millisecond))

	_, err := c.BlockNumber(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := Dial(context.Background(), srv.URL)
	require.NoError(t, err)

	_, err = c.BlockNumber(context.Background())
	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestClient_NonJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>502 Bad Gateway</html>")
	}))
	t.Cleanup(srv.Close)
	c, err := Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.BlockNumber(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorContains(t, err, "502 Bad Gateway")
	assert.NotErrorIs(t, err, ErrProtocol)
}

func TestClient_ObserverStates(t *testing.T) {
	var (
		mu     sync.Mutex
		states []CallState
	)
	obs := ObserverFunc(func(e CallEvent) {
		mu.Lock()
		states = append(states, e.To)
		mu.Unlock()
	})

	c := dialHTTP(t, func(req Request) string { return result(req, `"0x1"`) }, WithObserver(obs))
	_, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CallState{StateIdle, StateSending, StateAwaitingResponse, StateCompleted}, states)

	states = nil
	c = dialHTTP(t, func(Request) string { return `{}` }, WithObserver(obs))
	_, err = c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestEncodeParams(t *testing.T) {
	addr := common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	params, err := EncodeParams([]any{
		[]byte{0xab, 0xcd},
		abi.NewUint(256, big.NewInt(1)),
		addr,
		Latest,
		true,
	})
	require.NoError(t, err)
	require.Len(t, params, 5)
	assert.JSONEq(t, `"0xabcd"`, string(params[0]))
	assert.JSONEq(t, `"0x0000000000000000000000000000000000000000000000000000000000000001"`, string(params[1]))
	assert.JSONEq(t, `"0x627306090abab3a6e1400e9345bc60c78a8bef57"`, string(params[2]))
	assert.JSONEq(t, `"latest"`, string(params[3]))
	assert.JSONEq(t, `true`, string(params[4]))

	_, err = EncodeParams([]any{abi.NewUint(8, big.NewInt(256))})
	assert.ErrorIs(t, err, abi.ErrTypeMismatch)
}

func TestParseHeight(t *testing.T) {
	for in, want := range map[string]Height{
		"latest":   Latest,
		"LATEST":   Latest,
		"":         Latest,
		"earliest": Earliest,
		"16":       "0x10",
		"0x10":     "0x10",
		"0":        "0x0",
	} {
		got, err := ParseHeight(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"-1", "0xzz", "pending", "1.5"} {
		_, err := ParseHeight(bad)
		assert.Error(t, err, bad)
	}
}

func TestClient_TypedResults(t *testing.T) {
	responses := map[string]string{
		"getMetaData": `{"chainId":1,"chainIdV1":"0x01","chainName":"test-chain","operator":"op","website":"https://example.com",
			"genesisTimestamp":1528107736000,"validators":["0x185e7072f53b8ed2e4b4ae3fb3e6a3a7c0c3d7d1"],"blockInterval":3000,
			"tokenName":"CITA Test Token","tokenSymbol":"CTT","tokenAvatar":"","version":2,"economicalModel":0}`,
		"getBalance": `"0x0de0b6b3a7640000"`,
		"getTransactionReceipt": `{"transactionHash":"0x0100000000000000000000000000000000000000000000000000000000000000",
			"transactionIndex":"0x0","blockHash":"0x0200000000000000000000000000000000000000000000000000000000000000",
			"blockNumber":"0x5","cumulativeQuotaUsed":"0x5208","quotaUsed":"0x5208","contractAddress":null,
			"logs":[],"root":null,"logsBloom":"0x","errorMessage":null}`,
		"call": `"0x000000000000000000000000000000000000000000000000000000000000002a"`,
	}
	c := dialHTTP(t, func(req Request) string { return result(req, responses[req.Method]) })
	ctx := context.Background()

	meta, err := c.GetMetaData(ctx, Latest)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), meta.ChainID)
	assert.Equal(t, uint64(1), meta.ChainIDV1.Uint64())
	assert.Equal(t, uint32(2), meta.Version)
	assert.Len(t, meta.Validators, 1)

	balance, err := c.GetBalance(ctx, common.Address{}, Latest)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.Dec())

	receipt, err := c.GetTransactionReceipt(ctx, common.Hash{1})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(5), uint64(receipt.BlockNumber))
	assert.Nil(t, receipt.ContractAddress)

	values, err := c.ContractCallDecoded(ctx, CallRequest{To: common.Address{1}}, Latest, []abi.Type{abi.Uint(256)})
	require.NoError(t, err)
	assert.True(t, abi.Equal(abi.NewUint(256, big.NewInt(42)), values[0]))
}

func TestDial_UnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "ftp://127.0.0.1")
	assert.Error(t, err)
}

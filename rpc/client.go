package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/citahub/cita-cli/abi"
)

// Transport delivers one encoded request and returns the raw response body.
// sent is invoked once the request has been written. Implementations must
// return promptly when ctx is done and never hand back a response that
// belongs to another request.
type Transport interface {
	RoundTrip(ctx context.Context, id uint64, body []byte, sent func()) ([]byte, error)
	Close() error
}

// Client issues JSON-RPC calls over a Transport. It is safe for concurrent
// use; every call has its own id and response buffer.
type Client struct {
	transport Transport
	timeout   time.Duration
	log       logrus.FieldLogger
	observer  Observer
	nextID    atomic.Uint64
}

// Option configures a Client or the transport created by Dial
type Option func(*options)

type options struct {
	timeout  time.Duration
	log      logrus.FieldLogger
	observer Observer
	tls      *TLSConfig
}

// WithTimeout bounds every call in addition to the caller's context
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }

func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// WithTLS configures https and wss connections
func WithTLS(cfg TLSConfig) Option { return func(o *options) { o.tls = &cfg } }

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.log = discard
	}
	return o
}

// NewClient returns a client over an existing transport
func NewClient(t Transport, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		transport: t,
		timeout:   o.timeout,
		log:       o.log,
		observer:  o.observer,
	}
}

// Close releases the transport
func (c *Client) Close() error {
	return c.transport.Close()
}

type call struct {
	c       *Client
	id      uint64
	method  string
	started time.Time

	// sent may fire on a transport goroutine
	mu    sync.Mutex
	state CallState
}

func (k *call) transition(to CallState, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.transitionLocked(to, err)
}

// awaiting moves Sending to AwaitingResponse exactly once, whichever of the
// transport callback and the returned response comes first
func (k *call) awaiting() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state == StateSending {
		k.transitionLocked(StateAwaitingResponse, nil)
	}
}

func (k *call) transitionLocked(to CallState, err error) {
	from := k.state
	if from.Terminal() {
		return
	}
	k.state = to
	fields := logrus.Fields{"id": k.id, "method": k.method, "state": to.String()}
	if err != nil {
		fields["error"] = err
	}
	k.c.log.WithFields(fields).Debug("rpc call")
	if k.c.observer != nil {
		k.c.observer.ObserveCall(CallEvent{
			ID:      k.id,
			Method:  k.method,
			From:    from,
			To:      to,
			Elapsed: time.Since(k.started),
			Err:     err,
		})
	}
}

func (k *call) fail(err error) error {
	k.transition(StateFailed, err)
	return err
}

// Call invokes method with params and decodes the result into result, which
// may be nil to discard it. Errors are *TransportError, *ProtocolError or
// *RemoteError; parameter encoding failures are returned as is.
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	k := &call{c: c, id: c.nextID.Add(1), method: method, started: time.Now()}
	k.transition(StateIdle, nil)

	encoded, err := EncodeParams(params)
	if err != nil {
		return k.fail(fmt.Errorf("failed to encode params for %s: %w", method, err))
	}
	body, err := json.Marshal(Request{JSONRPC: jsonrpcVersion, Method: method, Params: encoded, ID: k.id})
	if err != nil {
		return k.fail(fmt.Errorf("failed to encode request for %s: %w", method, err))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	k.transition(StateSending, nil)
	c.log.WithField("id", k.id).Tracef("rpc request: %s", body)
	raw, err := c.transport.RoundTrip(ctx, k.id, body, k.awaiting)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return k.fail(&TransportError{Method: method, Cause: err})
	}
	k.awaiting()
	c.log.WithField("id", k.id).Tracef("rpc response: %s", raw)

	resp, err := ParseResponse(raw, k.id)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			perr.Method = method
		}
		return k.fail(err)
	}
	if resp.Error != nil {
		return k.fail(&RemoteError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data})
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return k.fail(&ProtocolError{Method: method, Reason: "invalid result", Cause: err})
		}
	}
	k.transition(StateCompleted, nil)
	return nil
}

// ParseResponse validates raw against the request id. A present "result"
// member counts even when it is null; an "error" member that is null counts
// as absent.
func ParseResponse(raw []byte, id uint64) (*Response, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, &ProtocolError{Reason: "invalid JSON", Cause: err}
	}

	rawID, ok := members["id"]
	if !ok || isNull(rawID) {
		return nil, &ProtocolError{Reason: "missing id"}
	}
	var gotID uint64
	if err := json.Unmarshal(rawID, &gotID); err != nil || gotID != id {
		return nil, &ProtocolError{Reason: fmt.Sprintf("id %s does not match request %d", rawID, id)}
	}

	resp := &Response{ID: gotID}
	if v, ok := members["jsonrpc"]; ok {
		_ = json.Unmarshal(v, &resp.JSONRPC)
	}
	result, hasResult := members["result"]
	rawErr, hasError := members["error"]
	hasError = hasError && !isNull(rawErr)

	switch {
	case hasResult && hasError:
		return nil, &ProtocolError{Reason: "both result and error present"}
	case !hasResult && !hasError:
		return nil, &ProtocolError{Reason: "neither result nor error present"}
	case hasError:
		var obj ErrorObject
		if err := json.Unmarshal(rawErr, &obj); err != nil {
			return nil, &ProtocolError{Reason: "invalid error object", Cause: err}
		}
		resp.Error = &obj
	default:
		resp.Result = result
	}
	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// EncodeParams converts call parameters to JSON. Byte slices become 0x hex
// strings and ABI values are sent as the hex of their ABI encoding.
func EncodeParams(params []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(params))
	for i, p := range params {
		var v any = p
		switch p := p.(type) {
		case []byte:
			v = hexutil.Encode(p)
		case abi.Value:
			enc, err := abi.Encode([]abi.Value{p})
			if err != nil {
				return nil, fmt.Errorf("param %d: %w", i, err)
			}
			v = hexutil.Encode(enc)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

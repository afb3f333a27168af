package rpc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned for calls on a closed or failed connection
var ErrClosed = errors.New("rpc: connection closed")

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteDeadline    = 10 * time.Second
	wsMaxMessageSize   = maxResponseSize
)

// WSTransport multiplexes calls over one websocket connection. Responses are
// routed by id; a response whose caller already gave up is dropped.
type WSTransport struct {
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan []byte
	err     error
	done    chan struct{}
	once    sync.Once
}

// DialWebSocket connects to a ws or wss URL and starts the read loop
func DialWebSocket(ctx context.Context, endpoint string, tlsConfig *tls.Config, log logrus.FieldLogger) (*WSTransport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		TLSClientConfig:  tlsConfig,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	t := &WSTransport{
		conn:    conn,
		log:     log,
		pending: make(map[uint64]chan []byte),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) RoundTrip(ctx context.Context, id uint64, body []byte, sent func()) ([]byte, error) {
	ch := make(chan []byte, 1)
	t.mu.Lock()
	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		return nil, err
	}
	if _, dup := t.pending[id]; dup {
		t.mu.Unlock()
		return nil, fmt.Errorf("request id %d already in flight", id)
	}
	t.pending[id] = ch
	t.mu.Unlock()
	defer t.forget(id)

	if err := t.write(ctx, body); err != nil {
		return nil, err
	}
	sent()

	select {
	case raw := <-ch:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, t.closeErr()
	}
}

func (t *WSTransport) write(ctx context.Context, body []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(wsWriteDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		t.fail(err)
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

func (t *WSTransport) forget(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *WSTransport) readLoop() {
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.fail(err)
			return
		}

		var head struct {
			ID *uint64 `json:"id"`
		}
		if err := json.Unmarshal(msg, &head); err != nil || head.ID == nil {
			t.log.WithField("message", string(msg)).Debug("dropping websocket message without id")
			continue
		}

		t.mu.Lock()
		ch, ok := t.pending[*head.ID]
		delete(t.pending, *head.ID)
		t.mu.Unlock()
		if !ok {
			t.log.WithField("id", *head.ID).Debug("dropping late websocket response")
			continue
		}
		ch <- msg
	}
}

func (t *WSTransport) fail(err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.err = fmt.Errorf("%w: %w", ErrClosed, err)
		t.mu.Unlock()
		close(t.done)
		_ = t.conn.Close()
	})
}

func (t *WSTransport) closeErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close shuts the connection; in-flight calls fail with ErrClosed
func (t *WSTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	t.fail(errors.New("closed by client"))
	return nil
}

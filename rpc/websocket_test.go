package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer answers every request through handle, which may reply late or
// out of order by calling send from another goroutine
type wsServer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsServer) send(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func newWSServer(t *testing.T, handle func(s *wsServer, req Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s := &wsServer{conn: conn}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Request
			if json.Unmarshal(msg, &req) == nil {
				handle(s, req)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echoParam(req Request) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, req.Params[0])
}

func TestWSTransport_ConcurrentCallsAreNotMisattributed(t *testing.T) {
	url := newWSServer(t, func(s *wsServer, req Request) {
		// answer in reverse arrival order by delaying lower values longer
		var n int
		_ = json.Unmarshal(req.Params[0], &n)
		go func() {
			time.Sleep(time.Duration(20-n) * time.Millisecond)
			s.send(echoParam(req))
		}()
	})
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var got int
			assert.NoError(t, c.Call(context.Background(), &got, "echo", i))
			assert.Equal(t, i, got)
		}(i)
	}
	wg.Wait()
}

func TestWSTransport_LateResponseIsDropped(t *testing.T) {
	late := make(chan Request, 1)
	url := newWSServer(t, func(s *wsServer, req Request) {
		if req.Method == "slow" {
			late <- req
			return
		}
		// deliver the abandoned reply first, then the real one
		select {
		case old := <-late:
			s.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"stale"}`, old.ID))
		default:
		}
		s.send(echoParam(req))
	})
	c, err := Dial(context.Background(), url, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	err = c.Call(context.Background(), nil, "slow")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var got string
	require.NoError(t, c.Call(context.Background(), &got, "echo", "fresh"))
	assert.Equal(t, "fresh", got)
}

func TestWSTransport_Closed(t *testing.T) {
	url := newWSServer(t, func(s *wsServer, req Request) {})
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.Call(context.Background(), nil, "blockNumber")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrClosed)
}

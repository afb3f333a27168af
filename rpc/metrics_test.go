package rpc

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	c := dialHTTP(t, func(req Request) string {
		if req.Method == "peerCount" {
			return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
		}
		return result(req, `"0x1"`)
	}, WithObserver(m))

	_, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	_, err = c.BlockNumber(context.Background())
	require.NoError(t, err)
	_, err = c.PeerCount(context.Background())
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("blockNumber", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("peerCount", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

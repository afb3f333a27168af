package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
)

// Dial returns a client for endpoint, choosing the transport by scheme:
// http and https post each call, ws and wss share one websocket.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	var tlsConfig *tls.Config
	if o.tls != nil {
		if tlsConfig, err = o.tls.Build(); err != nil {
			return nil, err
		}
	}

	var t Transport
	switch u.Scheme {
	case "http", "https":
		t, err = NewHTTPTransport(endpoint, tlsConfig)
	case "ws", "wss":
		t, err = DialWebSocket(ctx, endpoint, tlsConfig, o.log)
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	o.log.WithField("url", u.Redacted()).Debug("rpc transport ready")
	return NewClient(t, opts...), nil
}

package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"time"
)

// maxResponseSize bounds a single response body
const maxResponseSize = 32 << 20

// TLSConfig selects how https and wss peers are verified
type TLSConfig struct {
	CAFile             string // PEM bundle added to the system roots
	ServerName         string
	InsecureSkipVerify bool
}

// Build returns the crypto/tls configuration
func (c TLSConfig) Build() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if c.CAFile == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", c.CAFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// HTTPTransport posts every request to one endpoint. Connections are pooled
// by the underlying http.Client.
type HTTPTransport struct {
	url    string
	client *http.Client
}

// NewHTTPTransport returns a transport for an http or https URL. tlsConfig
// may be nil.
func NewHTTPTransport(endpoint string, tlsConfig *tls.Config) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q for http transport", u.Scheme)
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsConfig
	base.MaxIdleConnsPerHost = 16
	base.IdleConnTimeout = 90 * time.Second
	return &HTTPTransport{
		url:    endpoint,
		client: &http.Client{Transport: base},
	}, nil
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, _ uint64, body []byte, sent func()) ([]byte, error) {
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				sent()
			}
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	// error statuses may still carry a JSON-RPC error envelope
	if resp.StatusCode/100 != 2 && !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return raw, nil
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

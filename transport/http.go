package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures the default HTTP capability.
type HTTPConfig struct {
	// Timeout bounds each HTTP call (default 30s).
	Timeout time.Duration
	// ProxyURL routes requests through an HTTP proxy when set.
	ProxyURL string
	// InsecureSkipVerify disables server certificate validation.
	// Only for local test environments with self-signed certificates.
	InsecureSkipVerify bool
}

// NewHTTPClient builds an *http.Client for the service.
// cert, when non-nil, is presented for mutual TLS.
//
// Transparent response decompression is disabled: chunk bodies are
// gzip streams that must reach the chunk codec untouched.
func NewHTTPClient(cfg HTTPConfig, cert *tls.Certificate) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local environments
	}
	if cert != nil {
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	transport.DisableCompression = true

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{Timeout: cfg.Timeout, Transport: transport}, nil
}

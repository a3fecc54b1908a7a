package httputil

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig tunes the pooled transport for outbound API calls.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
}

// OpenAIClientConfig suits long-running completion requests.
func OpenAIClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:             90 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
}

// GoogleAPIClientConfig suits the short calendar and mail calls.
func GoogleAPIClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     60 * time.Second,
	}
}

// NewPooledClient builds an HTTP client with connection pooling tuned
// per the given config.
func NewPooledClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = GoogleAPIClientConfig()
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

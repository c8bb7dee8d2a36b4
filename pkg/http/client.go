package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// PoolConfig sizes and times out the connections of an outbound client
type PoolConfig struct {
	MaxIdleConns    int
	MaxConnsPerHost int
	IdleConnTimeout time.Duration
	KeepAlive       time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

// GatewayPoolConfig is sized for a single upstream host, so every idle
// connection may belong to it
func GatewayPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:          50,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		KeepAlive:             60 * time.Second,
		DialTimeout:           5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
}

// NewClient creates a pooled HTTP/2-capable client requiring TLS 1.2+.
// timeout bounds each request end to end.
func NewClient(cfg PoolConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConns,
			MaxConnsPerHost:       cfg.MaxConnsPerHost,
			IdleConnTimeout:       cfg.IdleConnTimeout,
			TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			ExpectContinueTimeout: time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			ForceAttemptHTTP2:     true,
		},
	}
}

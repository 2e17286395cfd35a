// Package pool hands out shared HTTP clients for outbound calls, one
// per upstream, so connections are reused across requests.
package pool

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config defines outbound client configuration
type Config struct {
	ConnectTimeout      time.Duration
	RequestTimeout      time.Duration
	IdleTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:      5 * time.Second,
		RequestTimeout:      10 * time.Second,
		IdleTimeout:         90 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
	}
}

// ClientPool keeps one client per upstream name.
type ClientPool struct {
	mu      sync.RWMutex
	clients map[string]*http.Client
	config  Config
	logger  *zap.Logger
}

func NewClientPool(config Config, logger *zap.Logger) *ClientPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = defaults.MaxIdleConns
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = defaults.MaxIdleConnsPerHost
	}

	return &ClientPool{
		clients: make(map[string]*http.Client),
		config:  config,
		logger:  logger,
	}
}

// Client returns the client for name, creating it on first use.
func (p *ClientPool) Client(name string) *http.Client {
	p.mu.RLock()
	client, exists := p.clients[name]
	p.mu.RUnlock()

	if exists {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check after acquiring write lock
	if client, exists = p.clients[name]; exists {
		return client
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   p.config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          p.config.MaxIdleConns,
		MaxIdleConnsPerHost:   p.config.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	client = &http.Client{
		Transport: transport,
		Timeout:   p.config.RequestTimeout,
	}
	p.clients[name] = client

	p.logger.Info("Created outbound HTTP client",
		zap.String("upstream", name),
		zap.Duration("timeout", p.config.RequestTimeout),
	)
	return client
}

// Len reports how many upstream clients exist.
func (p *ClientPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// Close drops idle keep-alive connections of every client.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, client := range p.clients {
		client.CloseIdleConnections()
		delete(p.clients, name)
	}
	p.logger.Info("Closed outbound HTTP clients")
}

// Package client builds and caches EVM RPC clients per endpoint. The
// failover layer never constructs clients itself; operations close over a
// Factory and ask it for the client bound to the endpoint they were handed.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/xenscan/chainrpc/pkg/logger"
)

const (
	DefaultDialTimeout  = 10 * time.Second
	DefaultProbeTimeout = 2 * time.Second
)

// Option configures a Factory.
type Option func(*Factory)

// WithDialTimeout overrides the dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(f *Factory) { f.dialTimeout = d }
}

// WithProbeTimeout overrides the health probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(f *Factory) { f.probeTimeout = d }
}

// WithoutProbe disables the eth_blockNumber probe on dial.
func WithoutProbe() Option {
	return func(f *Factory) { f.probe = false }
}

// Factory dials endpoints on demand and caches the resulting clients.
type Factory struct {
	mu           sync.Mutex
	clients      map[string]*ethclient.Client
	lggr         logger.Logger
	dialTimeout  time.Duration
	probeTimeout time.Duration
	probe        bool
}

func NewFactory(lggr logger.Logger, opts ...Option) *Factory {
	f := &Factory{
		clients:      make(map[string]*ethclient.Client),
		lggr:         lggr,
		dialTimeout:  DefaultDialTimeout,
		probeTimeout: DefaultProbeTimeout,
		probe:        true,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Client returns a ready client for the endpoint, dialing and probing it on
// first use. A failed probe leaves nothing cached, so the next call redials.
func (f *Factory) Client(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	f.mu.Lock()
	if c, ok := f.clients[endpoint]; ok {
		f.mu.Unlock()

		return c, nil
	}
	f.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, f.dialTimeout)
	defer cancel()

	c, err := ethclient.DialContext(dialCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connection to %s failed: %w", endpoint, err)
	}

	if f.probe {
		probeCtx, cancelProbe := context.WithTimeout(ctx, f.probeTimeout)
		defer cancelProbe()

		if _, err := c.BlockNumber(probeCtx); err != nil {
			c.Close()

			return nil, fmt.Errorf("health check for %s failed: %w", endpoint, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// Another goroutine may have dialed the same endpoint meanwhile; keep
	// the first one.
	if existing, ok := f.clients[endpoint]; ok {
		c.Close()

		return existing, nil
	}
	f.clients[endpoint] = c
	f.lggr.Debugf("dialed RPC endpoint %s", endpoint)

	return c, nil
}

// Evict drops the cached client for an endpoint, forcing a redial on next
// use. Callers typically evict after an endpoint-fault failure.
func (f *Factory) Evict(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[endpoint]; ok {
		c.Close()
		delete(f.clients, endpoint)
	}
}

// Close releases every cached client.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for endpoint, c := range f.clients {
		c.Close()
		delete(f.clients, endpoint)
	}
}

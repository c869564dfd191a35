package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenscan/chainrpc/pkg/logger"
)

// newRPCServer serves a minimal JSON-RPC endpoint answering eth_blockNumber,
// counting the requests it handles. healthy=false makes every call fail.
func newRPCServer(t *testing.T, healthy bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x10"}`, req.ID)
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func TestFactory_Client(t *testing.T) {
	t.Parallel()

	srv, hits := newRPCServer(t, true)

	f := NewFactory(logger.Test(t))
	t.Cleanup(f.Close)

	c, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int32(1), hits.Load(), "dial runs the health probe")

	n, err := c.BlockNumber(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), n)
}

func TestFactory_Client_Caches(t *testing.T) {
	t.Parallel()

	srv, hits := newRPCServer(t, true)

	f := NewFactory(logger.Test(t))
	t.Cleanup(f.Close)

	first, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err)
	second, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "the cached client is not re-probed")
}

func TestFactory_Client_FailedProbeLeavesNothingCached(t *testing.T) {
	t.Parallel()

	srv, hits := newRPCServer(t, false)

	f := NewFactory(logger.Test(t))
	t.Cleanup(f.Close)

	_, err := f.Client(t.Context(), srv.URL)
	require.ErrorContains(t, err, "health check for")
	first := hits.Load()

	// The next call redials instead of serving a known-bad client.
	_, err = f.Client(t.Context(), srv.URL)
	require.Error(t, err)
	assert.Greater(t, hits.Load(), first)
}

func TestFactory_Client_WithoutProbe(t *testing.T) {
	t.Parallel()

	srv, hits := newRPCServer(t, false)

	f := NewFactory(logger.Test(t), WithoutProbe())
	t.Cleanup(f.Close)

	c, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err, "an unhealthy endpoint still dials when probing is off")
	require.NotNil(t, c)
	assert.Zero(t, hits.Load())
}

func TestFactory_Evict(t *testing.T) {
	t.Parallel()

	srv, hits := newRPCServer(t, true)

	f := NewFactory(logger.Test(t))
	t.Cleanup(f.Close)

	first, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err)

	f.Evict(srv.URL)

	second, err := f.Client(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), hits.Load(), "eviction forces a fresh dial and probe")
}

func TestFactory_Evict_UnknownEndpoint(t *testing.T) {
	t.Parallel()

	f := NewFactory(logger.Test(t))
	f.Evict("https://never-dialed.example")
}

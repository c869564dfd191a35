package scan

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/chainstate"
	"github.com/xenscan/chainrpc/failover"
	"github.com/xenscan/chainrpc/health"
	"github.com/xenscan/chainrpc/pkg/logger"
	"github.com/xenscan/chainrpc/storage"
)

// fakeLogClient scripts per-endpoint behavior for scanner tests.
type fakeLogClient struct {
	mu          sync.Mutex
	err         error
	blockNumber uint64
	logs        []types.Log
	queries     []ethereum.FilterQuery
}

func (c *fakeLogClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}

	return c.logs, nil
}

func (c *fakeLogClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}

	return c.blockNumber, nil
}

// fakeClientSource returns a scripted client per endpoint.
type fakeClientSource struct {
	clients map[string]*fakeLogClient
}

func (s *fakeClientSource) Client(_ context.Context, endpoint string) (LogClient, error) {
	c, ok := s.clients[endpoint]
	if !ok {
		return nil, errors.New("connection refused")
	}

	return c, nil
}

type scannerHarness struct {
	scanner *MintScanner
	tracker *health.Tracker
	clients *fakeClientSource
}

const (
	nodeA = "https://node-a.example"
	nodeB = "https://node-b.example"
)

func newScannerHarness(t *testing.T) *scannerHarness {
	t.Helper()

	lggr := logger.Test(t)
	chains := chainstate.New(chain.DefaultRegistry(), storage.NewMemoryStore(), lggr)
	require.NoError(t, chains.Initialize())

	endpoints := storage.NewEndpointStore(storage.NewMemoryStore(), lggr)
	require.NoError(t, endpoints.Save(chain.DefaultChainKey, []string{nodeA, nodeB}))

	tracker := health.NewTracker(lggr)
	invoker := failover.NewInvoker(chains, endpoints, tracker, lggr,
		failover.WithBackoff(time.Microsecond, 10*time.Microsecond))

	clients := &fakeClientSource{clients: map[string]*fakeLogClient{
		nodeA: {},
		nodeB: {},
	}}
	limiters := NewLimiterSet(map[string]float64{ServiceRPC: 100})

	return &scannerHarness{
		scanner: NewMintScanner(invoker, chains, clients, limiters, lggr),
		tracker: tracker,
		clients: clients,
	}
}

func TestMintScanner_LatestBlock(t *testing.T) {
	t.Parallel()

	h := newScannerHarness(t)
	h.clients.clients[nodeA].blockNumber = 21_000_000

	got, err := h.scanner.LatestBlock(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(21_000_000), got)
}

func TestMintScanner_LatestBlock_FailsOver(t *testing.T) {
	t.Parallel()

	h := newScannerHarness(t)
	h.clients.clients[nodeA].err = errors.New("504 Gateway Timeout")
	h.clients.clients[nodeB].blockNumber = 21_000_001

	got, err := h.scanner.LatestBlock(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(21_000_001), got)

	assert.Equal(t, 1, h.tracker.FailureCount(chain.DefaultChainKey, nodeA),
		"the failing endpoint took the penalty")
	assert.Zero(t, h.tracker.FailureCount(chain.DefaultChainKey, nodeB))
}

func TestMintScanner_ScanRange(t *testing.T) {
	t.Parallel()

	h := newScannerHarness(t)

	def, err := chain.DefaultRegistry().DefinitionByKey(chain.DefaultChainKey)
	require.NoError(t, err)
	contract, ok := def.ContractAddress(chain.ContractCoinTool)
	require.True(t, ok)
	topic := def.Events[chain.EventCoinToolMintTopic]

	want := []types.Log{{
		Address:     common.HexToAddress(contract),
		Topics:      []common.Hash{common.HexToHash(topic)},
		BlockNumber: 15_800_500,
	}}
	h.clients.clients[nodeA].logs = want

	got, err := h.scanner.ScanRange(t.Context(), 15_800_000, 15_801_000)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	queries := h.clients.clients[nodeA].queries
	require.Len(t, queries, 1)
	q := queries[0]
	assert.Equal(t, big.NewInt(15_800_000), q.FromBlock)
	assert.Equal(t, big.NewInt(15_801_000), q.ToBlock)
	assert.Equal(t, []common.Address{common.HexToAddress(contract)}, q.Addresses)
	assert.Equal(t, [][]common.Hash{{common.HexToHash(topic)}}, q.Topics)
}

func TestMintScanner_ScanRange_TerminalFailure(t *testing.T) {
	t.Parallel()

	h := newScannerHarness(t)
	h.clients.clients[nodeA].err = errors.New("execution reverted")
	h.clients.clients[nodeB].err = errors.New("execution reverted")

	_, err := h.scanner.ScanRange(t.Context(), 1, 2)

	var recErr *failover.RecoveryError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, chain.DefaultChainKey, recErr.ChainKey)
}

func TestMintScanner_ScanRange_MissingContract(t *testing.T) {
	t.Parallel()

	lggr := logger.Test(t)

	def := chain.BuiltinDefinitions()[0]
	def.Key = "NOCOINTOOL"
	def.ID = 4242
	def.Contracts = map[string]string{chain.ContractXENCrypto: "0x01"}
	reg, err := chain.NewRegistry(def)
	require.NoError(t, err)

	chains := chainstate.New(reg, storage.NewMemoryStore(), lggr,
		chainstate.WithDefaultChain("NOCOINTOOL"))
	require.NoError(t, chains.Initialize())

	endpoints := storage.NewEndpointStore(storage.NewMemoryStore(), lggr)
	tracker := health.NewTracker(lggr)
	invoker := failover.NewInvoker(chains, endpoints, tracker, lggr)

	scanner := NewMintScanner(invoker, chains,
		&fakeClientSource{clients: map[string]*fakeLogClient{}},
		NewLimiterSet(nil), lggr)

	_, err = scanner.ScanRange(t.Context(), 1, 2)
	require.ErrorContains(t, err, "has no COINTOOL contract configured")
}

// Package scan reads mint and stake activity from the active chain. It is
// the representative consumer of the failover layer: every RPC read goes
// through the resilient invoker, and every outbound request is paced by a
// service rate limiter.
package scan

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/client"
	"github.com/xenscan/chainrpc/failover"
	"github.com/xenscan/chainrpc/pkg/logger"
)

// LogClient is the slice of the EVM client the scanner needs. Satisfied by
// *ethclient.Client.
type LogClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ClientSource produces a client bound to an endpoint.
type ClientSource interface {
	Client(ctx context.Context, endpoint string) (LogClient, error)
}

// NewFactorySource adapts a client.Factory to the ClientSource boundary.
func NewFactorySource(f *client.Factory) ClientSource {
	return factorySource{f: f}
}

type factorySource struct {
	f *client.Factory
}

func (s factorySource) Client(ctx context.Context, endpoint string) (LogClient, error) {
	return s.f.Client(ctx, endpoint)
}

// MintScanner scans block ranges for batch-mint events of the token
// protocol on the active chain.
type MintScanner struct {
	invoker  *failover.Invoker
	chains   failover.ChainSource
	clients  ClientSource
	limiters *LimiterSet
	lggr     logger.Logger
}

func NewMintScanner(
	invoker *failover.Invoker,
	chains failover.ChainSource,
	clients ClientSource,
	limiters *LimiterSet,
	lggr logger.Logger,
) *MintScanner {
	return &MintScanner{
		invoker:  invoker,
		chains:   chains,
		clients:  clients,
		limiters: limiters,
		lggr:     lggr,
	}
}

// LatestBlock returns the chain head through the resilient invoker.
func (s *MintScanner) LatestBlock(ctx context.Context) (uint64, error) {
	return failover.Call(ctx, s.invoker, "BlockNumber",
		func(ctx context.Context, endpoint string) (uint64, error) {
			if err := s.limiters.Wait(ctx, ServiceRPC); err != nil {
				return 0, err
			}
			c, err := s.clients.Client(ctx, endpoint)
			if err != nil {
				return 0, err
			}

			return c.BlockNumber(ctx)
		})
}

// ScanRange returns the mint-event logs emitted by the chain's batch mint
// contract between fromBlock and toBlock inclusive.
func (s *MintScanner) ScanRange(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	def := s.chains.CurrentDefinition()

	contract, ok := def.ContractAddress(chain.ContractCoinTool)
	if !ok {
		return nil, fmt.Errorf("chain %s has no %s contract configured", def.Key, chain.ContractCoinTool)
	}
	topic, ok := def.Events[chain.EventCoinToolMintTopic]
	if !ok {
		return nil, fmt.Errorf("chain %s has no %s event configured", def.Key, chain.EventCoinToolMintTopic)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(contract)},
		Topics:    [][]common.Hash{{common.HexToHash(topic)}},
	}

	logs, err := failover.Call(ctx, s.invoker, "FilterLogs",
		func(ctx context.Context, endpoint string) ([]types.Log, error) {
			if err := s.limiters.Wait(ctx, ServiceRPC); err != nil {
				return nil, err
			}
			c, err := s.clients.Client(ctx, endpoint)
			if err != nil {
				return nil, err
			}

			return c.FilterLogs(ctx, query)
		})
	if err != nil {
		return nil, err
	}

	s.lggr.Debugf("chain %s: scanned blocks %d-%d, found %d mint logs",
		def.Key, fromBlock, toBlock, len(logs))

	return logs, nil
}

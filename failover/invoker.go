// Package failover executes chain RPC operations against a pool of
// unreliable endpoints, rotating and retrying with backoff, penalizing
// endpoints for their own failures, and falling back to a one-shot blacklist
// reset when the whole pool is exhausted.
package failover

import (
	"context"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/health"
	"github.com/xenscan/chainrpc/notify"
	"github.com/xenscan/chainrpc/pkg/logger"
)

const (
	// MinAttempts is the floor for the per-call attempt budget.
	MinAttempts = 6

	// DefaultBackoffBase and DefaultBackoffCap bound the exponential backoff
	// between attempts: min(base * 1.5^attempt, cap).
	DefaultBackoffBase = 200 * time.Millisecond
	DefaultBackoffCap  = 2 * time.Second
)

// Operation is one chain RPC call. The invoker supplies the endpoint to use
// for this attempt; the caller closes over its own client construction and
// result capture. The invoker imposes no timeout of its own — timeouts are
// the client's job and surface as classified errors.
type Operation func(ctx context.Context, endpoint string) error

// ChainSource provides the active chain. Implemented by chainstate.Manager.
type ChainSource interface {
	CurrentKey() string
	CurrentDefinition() chain.Definition
}

// EndpointSource provides the configured endpoint list for a chain.
// Implemented by storage.EndpointStore.
type EndpointSource interface {
	EffectiveEndpoints(def chain.Definition) []string
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithClassifier swaps the error classification function.
func WithClassifier(c Classifier) Option {
	return func(inv *Invoker) { inv.classify = c }
}

// WithAdvisor swaps the recovery advisor.
func WithAdvisor(a *Advisor) Option {
	return func(inv *Invoker) { inv.advisor = a }
}

// WithNotifier sets the user-facing notifier for terminal failures.
func WithNotifier(n notify.Notifier) Option {
	return func(inv *Invoker) { inv.notifier = n }
}

// WithBackoff overrides the backoff bounds, mainly for tests.
func WithBackoff(base, cap time.Duration) Option {
	return func(inv *Invoker) {
		inv.backoffBase = base
		inv.backoffCap = cap
	}
}

// CallOption configures a single Do invocation.
type CallOption func(*callConfig)

type callConfig struct {
	maxAttempts int
}

// WithMaxAttempts overrides the computed attempt budget for one call.
func WithMaxAttempts(n int) CallOption {
	return func(c *callConfig) { c.maxAttempts = n }
}

// Invoker runs operations against the current chain's best available
// endpoint. Attempts within one Do call are strictly sequential; rotating
// endpoints concurrently would make blacklist bookkeeping and "which
// endpoint actually answered" ambiguous. Independent Do calls may run
// concurrently.
type Invoker struct {
	chains    ChainSource
	endpoints EndpointSource
	tracker   *health.Tracker
	advisor   *Advisor
	classify  Classifier
	notifier  notify.Notifier
	lggr      logger.Logger

	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewInvoker(
	chains ChainSource,
	endpoints EndpointSource,
	tracker *health.Tracker,
	lggr logger.Logger,
	opts ...Option,
) *Invoker {
	inv := &Invoker{
		chains:      chains,
		endpoints:   endpoints,
		tracker:     tracker,
		classify:    Classify,
		notifier:    notify.Nop(),
		lggr:        lggr,
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.advisor == nil {
		inv.advisor = NewAdvisor(tracker, lggr)
	}

	return inv
}

// Do executes op against the current chain, retrying across endpoints.
//
// The attempt budget is max(6, 2 * available endpoints) unless overridden.
// Endpoint-fault errors penalize the endpoint in use; every failure backs
// off before the next attempt; rotation re-queries availability since state
// may have changed concurrently. When rotation finds an empty pool, one
// recovery cycle may clear the blacklist and restart rotation with a fresh
// attempt budget — a deliberate, bounded allowance that favors eventual
// success over strict attempt accounting. The terminal failure is always a
// *RecoveryError.
func (inv *Invoker) Do(ctx context.Context, opName string, op Operation, opts ...CallOption) error {
	var callCfg callConfig
	for _, opt := range opts {
		opt(&callCfg)
	}

	chainKey := inv.chains.CurrentKey()
	def := inv.chains.CurrentDefinition()
	known := inv.endpoints.EffectiveEndpoints(def)

	available := inv.tracker.AvailableEndpoints(chainKey, known)
	if len(available) == 0 {
		if inv.advisor.AttemptRecovery(chainKey, known) {
			available = inv.tracker.AvailableEndpoints(chainKey, known)
		}
		if len(available) == 0 {
			return &AllEndpointsExhaustedError{ChainKey: chainKey}
		}
	}

	maxAttempts := max(MinAttempts, 2*len(available))
	if callCfg.maxAttempts > 0 {
		maxAttempts = callCfg.maxAttempts
	}

	var (
		traceID   = uuid.New()
		idx       int
		attempt   int
		recovered bool
	)

	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}

			endpoint := available[idx%len(available)]
			attempt++

			err := op(ctx, endpoint)
			if err == nil {
				inv.tracker.RecordSuccess(chainKey, endpoint)
				if attempt > 1 {
					inv.lggr.Infof("traceID %q: chain %q: op %q: succeeded on attempt %d via %s",
						traceID, chainKey, opName, attempt, endpoint)
				}

				return nil
			}

			fault := inv.classify(err)
			if fault == FaultEndpoint {
				inv.tracker.RecordFailure(chainKey, endpoint, err.Error())
			}
			inv.lggr.Warnf("traceID %q: chain %q: op %q: attempt %d/%d: endpoint %s failed (%s fault): %v",
				traceID, chainKey, opName, attempt, maxAttempts, endpoint, fault, err)

			refreshed := inv.tracker.AvailableEndpoints(chainKey, known)
			switch {
			case len(refreshed) > 0:
				idx++
				available = refreshed
			case !recovered && inv.advisor.AttemptRecovery(chainKey, known):
				recovered = true
				refreshed = inv.tracker.AvailableEndpoints(chainKey, known)
				if len(refreshed) == 0 {
					return retry.Unrecoverable(err)
				}
				// Restart rotation and the attempt budget over the cleared
				// pool. This may push total attempts past maxAttempts, once.
				idx, attempt = 0, 0
				available = refreshed
			default:
				return retry.Unrecoverable(err)
			}

			if attempt >= maxAttempts {
				return retry.Unrecoverable(err)
			}

			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return inv.backoff(n)
		}),
	)
	if err == nil {
		return nil
	}

	summary := inv.tracker.Summary(chainKey, known)
	recErr := inv.advisor.BuildRecoveryError(chainKey, err, summary)
	inv.lggr.Errorf("traceID %q: %v", traceID, recErr)
	inv.notifier.Notify(recErr.Error(), notify.LevelError, 15*time.Second)

	return recErr
}

// backoff returns min(base * 1.5^n, cap).
func (inv *Invoker) backoff(n uint) time.Duration {
	d := time.Duration(float64(inv.backoffBase) * math.Pow(1.5, float64(n)))
	if d > inv.backoffCap {
		return inv.backoffCap
	}

	return d
}

// Call runs op through inv and returns its result, capturing it across the
// retry loop for callers that want a typed result instead of closing over
// their own variable.
func Call[T any](
	ctx context.Context,
	inv *Invoker,
	opName string,
	op func(ctx context.Context, endpoint string) (T, error),
	opts ...CallOption,
) (T, error) {
	var out T
	err := inv.Do(ctx, opName, func(ctx context.Context, endpoint string) error {
		v, err := op(ctx, endpoint)
		if err != nil {
			return err
		}
		out = v

		return nil
	}, opts...)

	return out, err
}

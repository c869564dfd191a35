// Package health tracks per-endpoint failure state and decides which RPC
// endpoints of a chain are currently usable. Records are strictly scoped by
// (chain key, endpoint URL); no record is ever shared across chains.
package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/xenscan/chainrpc/notify"
	"github.com/xenscan/chainrpc/pkg/logger"
)

const (
	// DefaultMaxFailures is the consecutive-failure threshold after which an
	// endpoint is blacklisted.
	DefaultMaxFailures = 3
	// DefaultBlacklistDuration is how long a blacklisted endpoint stays out
	// of the available pool.
	DefaultBlacklistDuration = 5 * time.Minute
)

// record is the mutable health state of one endpoint within one chain.
type record struct {
	failureCount     int
	lastFailureAt    time.Time
	lastError        string
	blacklistedUntil time.Time
}

func (r *record) blacklisted(now time.Time) bool {
	return !r.blacklistedUntil.IsZero() && r.blacklistedUntil.After(now)
}

// Detail describes one blacklisted endpoint in a Summary.
type Detail struct {
	URL              string
	Failures         int
	LastError        string
	BlacklistedUntil time.Time
}

// Summary is a point-in-time view of a chain's endpoint pool. The counts
// always satisfy Total == Available + Blacklisted.
type Summary struct {
	Total             int
	Available         int
	Blacklisted       int
	BlacklistedDetail []Detail
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxFailures overrides the blacklist threshold.
func WithMaxFailures(n int) Option {
	return func(t *Tracker) { t.maxFailures = n }
}

// WithBlacklistDuration overrides the blacklist window.
func WithBlacklistDuration(d time.Duration) Option {
	return func(t *Tracker) { t.blacklistFor = d }
}

// WithNotifier sets the user-facing notifier for threshold crossings.
func WithNotifier(n notify.Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker records call outcomes per (chain, endpoint) and filters endpoint
// lists by availability. It does not classify errors; callers tell it what
// happened and it keeps the books. Safe for concurrent use; no method holds
// the lock across anything that blocks.
type Tracker struct {
	mu           sync.Mutex
	records      map[string]map[string]*record
	maxFailures  int
	blacklistFor time.Duration
	notifier     notify.Notifier
	now          func() time.Time
	lggr         logger.Logger
}

func NewTracker(lggr logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		records:      make(map[string]map[string]*record),
		maxFailures:  DefaultMaxFailures,
		blacklistFor: DefaultBlacklistDuration,
		notifier:     notify.Nop(),
		now:          time.Now,
		lggr:         lggr,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// AvailableEndpoints filters known down to the endpoints that are not
// currently blacklisted, preserving order. Records whose blacklist window
// has elapsed are expired in passing; expiry is idempotent, so no scheduled
// job is needed.
func (t *Tracker) AvailableEndpoints(chainKey string, known []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]string, 0, len(known))
	for _, url := range known {
		rec := t.records[chainKey][url]
		if rec == nil {
			out = append(out, url)

			continue
		}
		t.expireLocked(chainKey, url, rec, now)
		if !rec.blacklisted(now) {
			out = append(out, url)
		}
	}

	return out
}

// RecordFailure increments the endpoint's failure count. Crossing the
// threshold blacklists the endpoint for the configured window and emits a
// user-facing warning.
func (t *Tracker) RecordFailure(chainKey, endpoint, message string) {
	t.mu.Lock()

	byURL := t.records[chainKey]
	if byURL == nil {
		byURL = make(map[string]*record)
		t.records[chainKey] = byURL
	}
	rec := byURL[endpoint]
	if rec == nil {
		rec = &record{}
		byURL[endpoint] = rec
	}

	now := t.now()
	rec.failureCount++
	rec.lastFailureAt = now
	rec.lastError = message

	crossed := rec.failureCount >= t.maxFailures && !rec.blacklisted(now)
	if crossed {
		rec.blacklistedUntil = now.Add(t.blacklistFor)
	}
	failures := rec.failureCount
	t.mu.Unlock()

	if crossed {
		t.lggr.Warnf("chain %s: endpoint %s blacklisted for %s after %d failures: %s",
			chainKey, endpoint, t.blacklistFor, failures, message)
		t.notifier.Notify(
			fmt.Sprintf("RPC endpoint %s disabled for %s after %d failures", endpoint, t.blacklistFor, failures),
			notify.LevelWarning,
			10*time.Second,
		)
	}
}

// RecordSuccess resets the endpoint's failure count and lifts any blacklist.
// The record itself is kept for failure history.
func (t *Tracker) RecordSuccess(chainKey, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.records[chainKey][endpoint]
	if rec == nil {
		return
	}
	rec.failureCount = 0
	rec.blacklistedUntil = time.Time{}
}

// FailureCount returns the current consecutive-failure count for an
// endpoint. Unknown endpoints report zero.
func (t *Tracker) FailureCount(chainKey, endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.records[chainKey][endpoint]
	if rec == nil {
		return 0
	}

	return rec.failureCount
}

// Summary reports pool availability for diagnostics panels.
func (t *Tracker) Summary(chainKey string, known []string) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := Summary{Total: len(known)}
	for _, url := range known {
		rec := t.records[chainKey][url]
		if rec != nil {
			t.expireLocked(chainKey, url, rec, now)
		}
		if rec != nil && rec.blacklisted(now) {
			s.Blacklisted++
			s.BlacklistedDetail = append(s.BlacklistedDetail, Detail{
				URL:              url,
				Failures:         rec.failureCount,
				LastError:        rec.lastError,
				BlacklistedUntil: rec.blacklistedUntil,
			})
		} else {
			s.Available++
		}
	}

	return s
}

// ClearAll drops every record for the chain. Emergency use only, via the
// recovery advisor or an explicit user action.
func (t *Tracker) ClearAll(chainKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.records[chainKey]) > 0 {
		t.lggr.Infof("chain %s: clearing health records for %d endpoints", chainKey, len(t.records[chainKey]))
	}
	delete(t.records, chainKey)
}

// expireLocked lifts an elapsed blacklist so the endpoint rejoins the pool
// without manual intervention. Caller holds the lock.
func (t *Tracker) expireLocked(chainKey, url string, rec *record, now time.Time) {
	if rec.blacklistedUntil.IsZero() || rec.blacklistedUntil.After(now) {
		return
	}
	t.lggr.Debugf("chain %s: endpoint %s blacklist expired", chainKey, url)
	rec.blacklistedUntil = time.Time{}
	rec.failureCount = 0
}

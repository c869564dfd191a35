package failover

import (
	"fmt"
	"time"

	"github.com/xenscan/chainrpc/health"
	"github.com/xenscan/chainrpc/pkg/logger"
)

// Advisor turns raw health state into actionable diagnostics and performs
// the one bounded self-healing action: clearing a fully-blacklisted pool.
type Advisor struct {
	tracker *health.Tracker
	lggr    logger.Logger
	now     func() time.Time
}

func NewAdvisor(tracker *health.Tracker, lggr logger.Logger) *Advisor {
	return &Advisor{tracker: tracker, lggr: lggr, now: time.Now}
}

// AttemptRecovery clears the chain's blacklist when, and only when, zero
// endpoints are available and at least one is blacklisted. It reports
// whether the caller may retry with a refreshed pool. This is deliberately a
// blunt all-or-nothing reset: when completely stuck, availability beats
// precision.
func (a *Advisor) AttemptRecovery(chainKey string, known []string) bool {
	s := a.tracker.Summary(chainKey, known)
	if s.Available > 0 || s.Blacklisted == 0 {
		return false
	}

	a.lggr.Warnf("chain %s: all %d endpoints blacklisted, clearing blacklist for emergency recovery",
		chainKey, s.Blacklisted)
	a.tracker.ClearAll(chainKey)

	return true
}

// SuggestActions derives remediation steps from a health summary. It is a
// pure function used by both the UI and BuildRecoveryError, so remediation
// text is produced in exactly one place.
func (a *Advisor) SuggestActions(s health.Summary) []string {
	actions := []string{"check your internet connection"}

	if s.Blacklisted > 0 {
		if wait := a.longestBlacklistWait(s); wait > 0 {
			actions = append(actions, fmt.Sprintf("wait up to %d minute(s) for blacklisted endpoints to recover", int(wait.Minutes())+1))
		} else {
			actions = append(actions, "wait for blacklisted endpoints to recover")
		}
	}

	actions = append(actions,
		"add more RPC endpoints in settings",
		"refresh and try again",
	)

	return actions
}

// BuildRecoveryError composes the terminal error for a failed operation from
// the last underlying error and the current health summary.
func (a *Advisor) BuildRecoveryError(chainKey string, cause error, s health.Summary) *RecoveryError {
	return &RecoveryError{
		ChainKey:    chainKey,
		Summary:     s,
		Suggestions: a.SuggestActions(s),
		Err:         cause,
	}
}

func (a *Advisor) longestBlacklistWait(s health.Summary) time.Duration {
	now := a.now()
	var longest time.Duration
	for _, d := range s.BlacklistedDetail {
		if wait := d.BlacklistedUntil.Sub(now); wait > longest {
			longest = wait
		}
	}

	return longest
}

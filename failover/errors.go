package failover

import (
	"fmt"
	"strings"

	"github.com/xenscan/chainrpc/health"
)

// AllEndpointsExhaustedError is returned when no endpoints were available
// before any attempt could be made, and recovery could not produce one.
type AllEndpointsExhaustedError struct {
	ChainKey string
}

func (e *AllEndpointsExhaustedError) Error() string {
	return fmt.Sprintf("chain %s: no RPC endpoints available", e.ChainKey)
}

// RecoveryError is the single terminal error surfaced to callers after the
// retry loop and recovery are exhausted. It wraps the last underlying error
// and carries the health summary plus suggested next steps, so the failure
// shown to a user is actionable rather than a bare stack trace.
type RecoveryError struct {
	ChainKey    string
	Summary     health.Summary
	Suggestions []string
	Err         error
}

func (e *RecoveryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chain %s: %v. Endpoints available: %d/%d (blacklisted %d)",
		e.ChainKey, e.Err, e.Summary.Available, e.Summary.Total, e.Summary.Blacklisted)
	if len(e.Suggestions) > 0 {
		b.WriteString(". Suggested: ")
		b.WriteString(strings.Join(e.Suggestions, "; "))
	}

	return b.String()
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}

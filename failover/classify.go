package failover

import "strings"

// Fault says whose fault a failed attempt was.
type Fault int

const (
	// FaultOperation marks a failure not attributable to the endpoint, such
	// as malformed call arguments or a contract revert. It is retried with
	// backoff but does not penalize the endpoint.
	FaultOperation Fault = iota
	// FaultEndpoint marks a transient, endpoint-attributable failure that
	// counts toward the endpoint's blacklist threshold.
	FaultEndpoint
)

func (f Fault) String() string {
	if f == FaultEndpoint {
		return "endpoint"
	}

	return "operation"
}

// Classifier maps an error to a Fault. The invoker's default is [Classify];
// callers with structured error codes from their client layer can swap in
// their own.
type Classifier func(error) Fault

// endpointFaultMarkers are matched case-insensitively against the error
// message. The list mirrors the failure modes of public RPC providers:
// transport drops, throttling, auth walls, and broken gateway responses.
var endpointFaultMarkers = []string{
	"network error",
	"timeout",
	"connection",
	"fetch",
	"unauthorized",
	"forbidden",
	"rate limit",
	"too many requests",
	"invalid response",
	"parse error",
	"internal server error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// Classify decides from the error message whether a failure is the
// endpoint's fault. Message sniffing is deliberately isolated here so it can
// be tested exhaustively and replaced wholesale if the client layer grows
// structured error codes.
func Classify(err error) Fault {
	if err == nil {
		return FaultOperation
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range endpointFaultMarkers {
		if strings.Contains(msg, marker) {
			return FaultEndpoint
		}
	}

	return FaultOperation
}

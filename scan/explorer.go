package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/pkg/logger"
)

const (
	explorerMaxRetries = 3
	explorerRetryDelay = time.Second
)

// throttledError marks an HTTP 429 response, carrying the server-suggested
// retry delay when the response named one.
type throttledError struct {
	retryAfter time.Duration
}

func (e *throttledError) Error() string {
	return "explorer rate limited (429)"
}

// ExplorerClient queries a chain's block-explorer API, paced by the explorer
// rate limiter and retrying throttled or transiently failed requests.
type ExplorerClient struct {
	httpClient *http.Client
	limiters   *LimiterSet
	lggr       logger.Logger
}

func NewExplorerClient(limiters *LimiterSet, lggr logger.Logger) *ExplorerClient {
	return &ExplorerClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiters:   limiters,
		lggr:       lggr,
	}
}

// GetJSON performs a rate-limited GET against the chain's explorer API and
// decodes the JSON response into out. Failed requests retry with a growing
// delay; HTTP 429 responses honor Retry-After instead.
func (c *ExplorerClient) GetJSON(ctx context.Context, def chain.Definition, params url.Values, out any) error {
	reqURL := def.Explorer.APIURL
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	err := retry.Do(
		func() error {
			if err := c.limiters.Wait(ctx, ServiceExplorer); err != nil {
				return retry.Unrecoverable(err)
			}

			return c.get(ctx, reqURL, out)
		},
		retry.Context(ctx),
		retry.Attempts(explorerMaxRetries),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			delay := explorerRetryDelay * time.Duration(n+1)
			var throttled *throttledError
			if errors.As(err, &throttled) && throttled.retryAfter > 0 {
				delay = throttled.retryAfter
			}
			c.lggr.Warnf("explorer request failed (attempt %d/%d), retrying in %s: %v",
				n+1, explorerMaxRetries, delay, err)

			return delay
		}),
	)
	if err != nil {
		return fmt.Errorf("explorer request failed after %d attempts: %w", explorerMaxRetries, err)
	}

	return nil
}

// get runs one request.
func (c *ExplorerClient) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &throttledError{retryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return fmt.Errorf("explorer server error (%d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode explorer response: %w", err)
	}

	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

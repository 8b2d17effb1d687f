// Package rpcclient implements the JSON-RPC upstream client (C2): a
// single upstream, bounded retries with backoff, per-call timeout, and
// cache-through via internal/kv.
package rpcclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/kv"
)

// uncacheableMethods are never served from or written to the rpc: cache,
// per spec §4.3: eth_blockNumber is always live, eth_call against a
// "pending" block tag must observe the mempool, and anything that
// mutates chain state cannot be memoized at all.
var uncacheableMethods = map[string]bool{
	"eth_blockNumber":       true,
	"eth_sendTransaction":   true,
	"eth_sendRawTransaction": true,
}

// Client performs JSON-RPC calls against one upstream endpoint.
type Client struct {
	httpClient *http.Client
	cache      *kv.Cache
	url        string
	maxRetries int
	cacheTTL   time.Duration
}

// Options configures a new Client.
type Options struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
	Cache      *kv.Cache
}

// New creates an RPC client. A nil Cache disables cache-through (tests
// that don't care about caching can omit it).
func New(opts Options) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      opts.Cache,
		url:        opts.URL,
		maxRetries: opts.MaxRetries,
		cacheTTL:   opts.CacheTTL,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// cacheHitKey is the context key under which WithCacheTracking stashes a
// flag that Call sets whenever it serves a result from the KV cache. The
// dispatcher reads it back via CacheHit to stamp a tool result's meta.
type cacheHitKey struct{}

// WithCacheTracking returns a context carrying a cache-hit flag that every
// subsequent Call on it can set. One flag is meant to span one inbound
// request, so a tool that issues several RPC calls still reports a single
// request-scoped "cached" bit: true if any of them was a cache hit.
func WithCacheTracking(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheHitKey{}, new(bool))
}

// CacheHit reports whether any Call against ctx's cache-tracking flag was
// served from cache. Returns false if ctx was never wrapped.
func CacheHit(ctx context.Context) bool {
	if p, ok := ctx.Value(cacheHitKey{}).(*bool); ok {
		return *p
	}
	return false
}

// Call performs one JSON-RPC method call, returning the raw result bytes
// and whether the value was served from cache.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, bool, error) {
	cacheable := c.cache != nil && !isPendingCall(method, params) && !uncacheableMethods[method]

	var key string
	if cacheable {
		key = fingerprint(method, params)
		if cached, ok := c.cache.Get(key); ok {
			if p, ok := ctx.Value(cacheHitKey{}).(*bool); ok {
				*p = true
			}
			return json.RawMessage(cached), true, nil
		}
	}

	result, err := c.callWithRetry(ctx, method, params)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		c.cache.Set(key, result, c.cacheTTL)
	}
	return result, false, nil
}

// isPendingCall reports whether params tags the call against the
// "pending" block, which must never be served from cache.
func isPendingCall(method string, params any) bool {
	if method != "eth_call" && method != "eth_getBalance" && method != "eth_getTransactionCount" {
		return false
	}
	arr, ok := params.([]any)
	if !ok || len(arr) == 0 {
		return false
	}
	tag, _ := arr[len(arr)-1].(string)
	return tag == "pending"
}

func (c *Client) callWithRetry(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var result json.RawMessage
	var lastErr error

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries))
	policy = backoff.WithContext(policy, ctx)

	op := func() error {
		body, err := c.do(ctx, method, params)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = body
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method string, params any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "marshal rpc request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "build rpc request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &faultError{cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &faultError{cause: fmt.Errorf("upstream status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, apierr.New(apierr.KindUpstream, fmt.Sprintf("upstream status %d", resp.StatusCode))
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &faultError{cause: fmt.Errorf("decode rpc response: %w", err)}
	}
	if parsed.Error != nil {
		// A well-formed JSON-RPC error body is not a fault: no retry.
		return nil, apierr.New(apierr.KindUpstream, fmt.Sprintf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message))
	}
	return parsed.Result, nil
}

// faultError marks a transport-level failure (network error, 5xx) as
// retryable; distinct from a well-formed JSON-RPC error body.
type faultError struct{ cause error }

func (e *faultError) Error() string { return e.cause.Error() }
func (e *faultError) Unwrap() error { return e.cause }

func isRetryable(err error) bool {
	_, ok := err.(*faultError)
	return ok
}

// fingerprint produces the KV key rpc:<hash(method,params)>.
func fingerprint(method string, params any) string {
	buf, _ := json.Marshal(struct {
		Method string `json:"method"`
		Params any    `json:"params"`
	}{method, params})
	sum := sha256.Sum256(buf)
	return "rpc:" + hex.EncodeToString(sum[:])
}

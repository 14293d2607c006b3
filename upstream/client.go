// Package upstream wraps a metered, rate-limited data API with a cache-first
// resilience layer: per-endpoint-class TTLs, single-flight deduplication of
// concurrent misses, a sliding-window rate-limit circuit, capped exponential
// backoff on throttling, and stale-cache fallback when the live source is
// unavailable. Freshness is always cache-TTL-driven: a fresh hit
// short-circuits everything, including an open circuit.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naksir/feedguard/cachekey"
	"github.com/naksir/feedguard/contextx"
	"github.com/naksir/feedguard/inflight"
	"github.com/naksir/feedguard/metrics"
	"github.com/naksir/feedguard/retry"
	"github.com/naksir/feedguard/store"
	"github.com/naksir/feedguard/throttle"
)

// defaultEmpty is the payload served by safe call sites when no data is
// available at all.
var defaultEmpty = json.RawMessage(`{"response": []}`)

// Client is the resilience wrapper around the upstream API.
type Client struct {
	cfg   config
	codec *store.Codec

	mu      sync.Mutex
	windows map[Class]*windowState
}

// windowState pairs a class circuit with its last logged state so circuit
// transitions are logged once, not per call.
type windowState struct {
	w       *throttle.Window
	wasOpen bool
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	cfg := config{
		baseURL:     baseURL,
		ttl:         DefaultTTLPolicy(),
		staleTTL:    DefaultStaleTTL,
		windowSize:  DefaultWindow,
		threshold:   DefaultThreshold,
		retryCfg:    DefaultRetry(),
		waitTimeout: DefaultWaitTimeout,
		appID:       cachekey.DefaultAppID,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}
	if cfg.st == nil {
		mem, err := store.NewMemory(10_000)
		if err != nil {
			return nil, err
		}
		cfg.st = mem
	}
	if cfg.coord == nil {
		cfg.coord = inflight.NewMemory()
	}
	cfg.retryCfg.Retryable = IsThrottle

	return &Client{
		cfg:     cfg,
		codec:   store.NewCodec(cfg.st, cfg.log),
		windows: make(map[Class]*windowState),
	}, nil
}

// Fetch returns the payload for endpoint ep with the given parameters,
// serving from cache when fresh and coordinating concurrent misses so the
// upstream sees at most one call per key. See the package comment for the
// degradation order under throttling.
func (c *Client) Fetch(ctx context.Context, ep Endpoint, params map[string]any, opts ...CallOption) (json.RawMessage, error) {
	call := callConfig{empty: defaultEmpty}
	for _, o := range opts {
		o(&call)
	}

	key := cachekey.BuildScoped(ep.Name, params, c.cfg.appID)

	// Fresh cache hit short-circuits everything, including an open circuit.
	start := time.Now()
	if raw, ok, _ := c.codec.GetRaw(ctx, key); ok {
		metrics.CacheHits.Inc()
		contextx.AddCacheHit(ctx)
		contextx.AddCacheTime(ctx, time.Since(start))
		return raw, nil
	}
	metrics.CacheMisses.Inc()
	contextx.AddCacheMiss(ctx)

	// Circuit gate. Core endpoints always attempt the live call.
	if !ep.Core && c.circuitOpen(ep.Class) {
		if raw, ok, _ := c.codec.GetRaw(ctx, c.staleKey(key)); ok {
			metrics.StaleServes.Inc()
			return raw, nil
		}
		metrics.CircuitShortCircuits.WithLabelValues(string(ep.Class)).Inc()
		return c.degrade(ctx, call, ep, ErrUnavailable)
	}

	h, owner, err := c.cfg.coord.Begin(ctx, key)
	if err != nil {
		// Coordination is unavailable (e.g. Redis down). Fetch
		// uncoordinated rather than failing the request.
		c.cfg.log.Warn("single-flight unavailable, fetching uncoordinated", "key", key, "err", err)
		raw, ferr := c.fetchAndStore(ctx, ep, key, params, call)
		if ferr != nil {
			return c.degrade(ctx, call, ep, ferr)
		}
		return raw, nil
	}

	if !owner {
		return c.awaitOwner(ctx, ep, h, key, call)
	}

	raw, ferr := c.fetchAndStore(ctx, ep, key, params, call)
	// The owner publishes its outcome on every path so waiters are never
	// stuck behind a finished computation.
	if rerr := c.cfg.coord.Resolve(ctx, h, raw, ferr); rerr != nil {
		c.cfg.log.Warn("failed to resolve in-flight computation", "key", key, "err", rerr)
	}
	if ferr != nil {
		return c.degrade(ctx, call, ep, ferr)
	}
	return raw, nil
}

// awaitOwner blocks on the current owner's computation and returns its
// published result. Timeouts degrade instead of failing: non-owners never
// propagate hard errors.
func (c *Client) awaitOwner(ctx context.Context, ep Endpoint, h *inflight.Handle, key string, call callConfig) (json.RawMessage, error) {
	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, c.cfg.waitTimeout)
		defer cancel()
	}
	raw, err := c.cfg.coord.Wait(wctx, h)
	if err == nil {
		return raw, nil
	}
	// The owner failed or is still working; a stale copy beats nothing.
	if stale, ok, _ := c.codec.GetRaw(ctx, c.staleKey(key)); ok {
		metrics.StaleServes.Inc()
		return stale, nil
	}
	return c.degrade(ctx, call, ep, err)
}

// fetchAndStore performs the owner-side upstream call with backoff on
// throttling, falling back to the stale tier before giving up. On success
// both the fresh entry and its stale copy are written.
func (c *Client) fetchAndStore(ctx context.Context, ep Endpoint, key string, params map[string]any, call callConfig) (json.RawMessage, error) {
	type result struct {
		raw   json.RawMessage
		stale bool
	}

	res, err := retry.Do(ctx, c.cfg.retryCfg, func(ctx context.Context) (result, error) {
		raw, err := c.doRequest(ctx, ep, params)
		if err != nil && IsThrottle(err) {
			// Prefer staleness to backoff when a copy exists.
			if stale, ok, _ := c.codec.GetRaw(ctx, c.staleKey(key)); ok {
				metrics.StaleServes.Inc()
				return result{raw: stale, stale: true}, nil
			}
		}
		return result{raw: raw}, err
	})
	if err != nil {
		// Retries exhausted or hard failure; last chance is the stale tier.
		if stale, ok, _ := c.codec.GetRaw(ctx, c.staleKey(key)); ok {
			metrics.StaleServes.Inc()
			return stale, nil
		}
		return nil, err
	}
	if !res.stale {
		ttl := c.cfg.ttl.TTL(ep.Class)
		if call.hasTTL {
			ttl = call.ttl
		}
		_ = c.cfg.st.Set(ctx, key, res.raw, ttl)
		_ = c.cfg.st.Set(ctx, c.staleKey(key), res.raw, c.cfg.staleTTL)
	}
	return res.raw, nil
}

// doRequest performs one HTTP GET against the upstream. A 429 records a
// throttle event for the endpoint's class before returning ThrottleError.
func (c *Client) doRequest(ctx context.Context, ep Endpoint, params map[string]any) (json.RawMessage, error) {
	if c.cfg.pacer != nil {
		if err := c.cfg.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := c.tracer().Start(ctx, "upstream.fetch", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.endpoint", ep.Name),
			attribute.String("upstream.class", string(ep.Class)),
		))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(ep, params), nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for k, v := range c.cfg.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.cfg.httpClient.Do(req)
	elapsed := time.Since(start)
	metrics.UpstreamCalls.WithLabelValues(string(ep.Class)).Inc()
	metrics.UpstreamSeconds.Observe(elapsed.Seconds())
	contextx.AddUpstreamCall(ctx, elapsed)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upstream: request to %s failed: %w", ep.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.recordThrottle(ep.Class)
		terr := &ThrottleError{Endpoint: ep.Name}
		span.SetStatus(codes.Error, terr.Error())
		return nil, terr
	}
	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{Endpoint: ep.Name, Code: resp.StatusCode}
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upstream: reading %s response: %w", ep.Name, err)
	}
	if err := checkPayload(ep, body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return json.RawMessage(body), nil
}

// checkPayload rejects bodies that are not JSON or that carry the upstream's
// own error block instead of data.
func checkPayload(ep Endpoint, body []byte) error {
	var probe struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return &APIError{Endpoint: ep.Name, Detail: "invalid JSON payload"}
	}
	switch string(probe.Errors) {
	case "", "null", "[]", "{}":
		return nil
	}
	return &APIError{Endpoint: ep.Name, Detail: string(probe.Errors)}
}

// degrade converts err into the caller-facing outcome: safe call sites get
// the empty payload and a log line, the rest get the error.
func (c *Client) degrade(ctx context.Context, call callConfig, ep Endpoint, err error) (json.RawMessage, error) {
	if call.safe {
		args := []any{"endpoint", ep.Name, "err", err}
		if id := contextx.RequestIDFromContext(ctx); id != "" {
			args = append(args, "request_id", id)
		}
		c.cfg.log.Warn("degrading to empty result", args...)
		return call.empty, nil
	}
	return nil, err
}

// circuitOpen reports whether the class circuit is open, logging transitions.
func (c *Client) circuitOpen(class Class) bool {
	ws := c.window(class)
	open := ws.w.Open()
	c.mu.Lock()
	defer c.mu.Unlock()
	if open != ws.wasOpen {
		ws.wasOpen = open
		if open {
			c.cfg.log.Warn("rate-limit circuit opened, serving cache only", "class", string(class))
		} else {
			c.cfg.log.Info("rate-limit circuit closed", "class", string(class))
		}
	}
	return open
}

func (c *Client) recordThrottle(class Class) {
	metrics.ThrottleEvents.WithLabelValues(string(class)).Inc()
	c.window(class).w.Record()
}

func (c *Client) window(class Class) *windowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws, ok := c.windows[class]
	if !ok {
		ws = &windowState{w: throttle.NewWindow(c.cfg.windowSize, c.cfg.threshold)}
		c.windows[class] = ws
	}
	return ws
}

func (c *Client) staleKey(key string) string {
	return key + "|stale"
}

func (c *Client) buildURL(ep Endpoint, params map[string]any) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	if len(q) == 0 {
		return c.cfg.baseURL + ep.Path
	}
	// Encode emits keys in sorted order, so URLs are stable for log greps.
	return c.cfg.baseURL + ep.Path + "?" + q.Encode()
}

func (c *Client) tracer() trace.Tracer {
	tp := c.cfg.tp
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/naksir/feedguard/upstream")
}

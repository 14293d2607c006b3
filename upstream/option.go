package upstream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/naksir/feedguard/inflight"
	"github.com/naksir/feedguard/retry"
	"github.com/naksir/feedguard/store"
)

const (
	// DefaultTimeout bounds a single upstream HTTP request.
	DefaultTimeout = 25 * time.Second

	// DefaultWaitTimeout bounds how long a non-owner waits for the owner's
	// published result before degrading.
	DefaultWaitTimeout = 20 * time.Second

	// DefaultStaleTTL is how long stale copies stay available for
	// degraded serving after the fresh entry expired.
	DefaultStaleTTL = 24 * time.Hour

	// Circuit defaults: five throttle events within a minute open the
	// circuit for an endpoint class.
	DefaultWindow    = time.Minute
	DefaultThreshold = 5
)

// DefaultRetry returns the backoff schedule applied to throttled calls:
// 1s, 2s, 4s between attempts, capped at 10s, four attempts total.
func DefaultRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// config holds the internal configuration assembled via functional options.
type config struct {
	baseURL     string
	headers     map[string]string
	httpClient  *http.Client
	st          store.Store
	coord       inflight.Coordinator
	ttl         TTLPolicy
	staleTTL    time.Duration
	windowSize  time.Duration
	threshold   int
	retryCfg    retry.Config
	pacer       *rate.Limiter
	waitTimeout time.Duration
	appID       string
	log         *slog.Logger
	tp          trace.TracerProvider
}

// Option configures a Client.
type Option func(*config)

// WithHeader adds a header sent on every upstream request (typically the
// metered API key).
func WithHeader(key, value string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithHTTPClient replaces the default HTTP client (25s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithStore sets the cache store backend. Defaults to an in-process store.
func WithStore(s store.Store) Option {
	return func(c *config) { c.st = s }
}

// WithCoordinator sets the single-flight coordinator. Defaults to the
// in-process coordinator; multi-process deployments pass the Redis-lock
// variant backed by the same store family.
func WithCoordinator(coord inflight.Coordinator) Option {
	return func(c *config) { c.coord = coord }
}

// WithTTLPolicy replaces the endpoint-class TTL table.
func WithTTLPolicy(p TTLPolicy) Option {
	return func(c *config) { c.ttl = p }
}

// WithStaleTTL sets how long stale copies remain servable.
func WithStaleTTL(d time.Duration) Option {
	return func(c *config) { c.staleTTL = d }
}

// WithCircuit sets the sliding-window size and the event threshold that
// opens the rate-limit circuit.
func WithCircuit(window time.Duration, threshold int) Option {
	return func(c *config) {
		c.windowSize = window
		c.threshold = threshold
	}
}

// WithRetry replaces the backoff schedule for throttled calls.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) { c.retryCfg = cfg }
}

// WithPacer rate-limits outbound requests to rps with the given burst, so a
// metered plan is consumed at a controlled pace. No pacer is installed by
// default.
func WithPacer(rps float64, burst int) Option {
	return func(c *config) { c.pacer = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithWaitTimeout bounds how long non-owners wait on an in-flight
// computation when the caller's context carries no deadline.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *config) { c.waitTimeout = d }
}

// WithAppID scopes all cache keys to the given application identifier for
// multi-tenant deployments.
func WithAppID(appID string) Option {
	return func(c *config) { c.appID = appID }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithTracerProvider supplies the TracerProvider used to create spans around
// upstream calls. When unset the global otel provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tp = tp }
}

// CallOption adjusts one Fetch invocation.
type CallOption func(*callConfig)

type callConfig struct {
	safe   bool
	empty  json.RawMessage
	ttl    time.Duration
	hasTTL bool
}

// Safe marks the call site as degradation-only: instead of propagating
// errors the call returns the empty result (and logs). Use for callers that
// must never fail the surrounding request.
func Safe() CallOption {
	return func(c *callConfig) { c.safe = true }
}

// WithEmpty replaces the payload returned by safe calls when no data is
// available. Defaults to {"response": []}.
func WithEmpty(raw json.RawMessage) CallOption {
	return func(c *callConfig) { c.empty = raw }
}

// WithTTL overrides the endpoint-class TTL for this call.
func WithTTL(d time.Duration) CallOption {
	return func(c *callConfig) {
		c.ttl = d
		c.hasTTL = true
	}
}

// Package feedguard fronts a rate-limited, metered sports-data API with a
// TTL'd cache, single-flight coordination, throttle-aware backoff with stale
// fallback, and a durable ledger for expensive generated content.
//
// A Guard is assembled from a [Config] describing the deployment topology:
//
//	guard, err := feedguard.New(ctx, feedguard.Config{
//		BaseURL: "https://v3.football.api-sports.io",
//		APIKey:  os.Getenv("API_KEY"),
//		Backend: feedguard.BackendMemory,
//	})
//	...
//	odds, err := guard.API().Odds(ctx, fixtureID, 1)
package feedguard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/naksir/feedguard/inflight"
	"github.com/naksir/feedguard/ledger"
	"github.com/naksir/feedguard/lock"
	"github.com/naksir/feedguard/store"
	"github.com/naksir/feedguard/upstream"
)

// Guard bundles the assembled components: the caching upstream client, the
// shared store behind it, and (when configured) the generation ledger.
type Guard struct {
	client *upstream.Client
	st     store.Store
	coord  inflight.Coordinator
	gen    *ledger.Generator

	// owned connections, closed by Close
	rdb  *redis.Client
	pool *pgxpool.Pool
}

// New validates cfg and assembles a Guard for the configured topology. The
// context bounds connection setup (Postgres dial and schema check); it does
// not outlive New.
func New(ctx context.Context, cfg Config, opts ...Option) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = slog.Default()
	}

	g := &Guard{}

	switch cfg.Backend {
	case BackendMemory:
		maxCost := cfg.MemoryMaxCost
		if maxCost <= 0 {
			maxCost = DefaultMemoryMaxCost
		}
		mem, err := store.NewMemory(maxCost)
		if err != nil {
			return nil, fmt.Errorf("feedguard: memory store: %w", err)
		}
		g.st = mem
		g.coord = inflight.NewMemory()
	case BackendRedis:
		g.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedisWithClient(g.rdb)
		g.st = rs
		g.coord = inflight.NewRedisLock(lock.NewRedis(g.rdb, lock.DefaultLease, log), rs)
	}

	clientOpts := []upstream.Option{
		upstream.WithStore(g.st),
		upstream.WithCoordinator(g.coord),
		upstream.WithLogger(log),
	}
	if cfg.APIKey != "" {
		header := cfg.APIKeyHeader
		if header == "" {
			header = DefaultAPIKeyHeader
		}
		clientOpts = append(clientOpts, upstream.WithHeader(header, cfg.APIKey))
	}
	if cfg.AppID != "" {
		clientOpts = append(clientOpts, upstream.WithAppID(cfg.AppID))
	}
	if cfg.CircuitWindow > 0 && cfg.CircuitThreshold > 0 {
		clientOpts = append(clientOpts, upstream.WithCircuit(cfg.CircuitWindow, cfg.CircuitThreshold))
	}
	if cfg.Retry.MaxAttempts > 0 {
		clientOpts = append(clientOpts, upstream.WithRetry(cfg.Retry))
	}
	if cfg.PacerRPS > 0 {
		burst := cfg.PacerBurst
		if burst <= 0 {
			burst = 1
		}
		clientOpts = append(clientOpts, upstream.WithPacer(cfg.PacerRPS, burst))
	}
	if cfg.StaleTTL > 0 {
		clientOpts = append(clientOpts, upstream.WithStaleTTL(cfg.StaleTTL))
	}
	if cfg.WaitTimeout > 0 {
		clientOpts = append(clientOpts, upstream.WithWaitTimeout(cfg.WaitTimeout))
	}
	if cfg.TTL != nil {
		clientOpts = append(clientOpts, upstream.WithTTLPolicy(cfg.TTL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, upstream.WithHTTPClient(o.httpClient))
	}
	if o.tp != nil {
		clientOpts = append(clientOpts, upstream.WithTracerProvider(o.tp))
	}

	client, err := upstream.NewClient(cfg.BaseURL, clientOpts...)
	if err != nil {
		g.closeOwned()
		return nil, err
	}
	g.client = client

	led := o.ledger
	if led == nil && cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			g.closeOwned()
			return nil, fmt.Errorf("feedguard: postgres: %w", err)
		}
		pg := ledger.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			g.closeOwned()
			return nil, err
		}
		g.pool = pool
		led = pg
	}
	if led != nil {
		g.gen = ledger.NewGenerator(led, log, o.tp)
	}

	return g, nil
}

// API returns the caching upstream client.
func (g *Guard) API() *upstream.Client {
	return g.client
}

// Store returns the shared cache store, for callers that keep auxiliary data
// alongside the API cache.
func (g *Guard) Store() store.Store {
	return g.st
}

// Generator returns the get-or-generate orchestrator, or nil when neither a
// ledger nor a DatabaseURL was configured.
func (g *Guard) Generator() *ledger.Generator {
	return g.gen
}

// MetricsHandler returns an http.Handler serving the Prometheus metrics
// collected across the assembled components.
func (g *Guard) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Close releases the connections New created. Injected dependencies stay
// open; their owners close them.
func (g *Guard) Close() error {
	if g.pool != nil {
		g.pool.Close()
	}
	return g.closeOwned()
}

func (g *Guard) closeOwned() error {
	if g.rdb != nil {
		return g.rdb.Close()
	}
	return nil
}

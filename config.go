package feedguard

import (
	"fmt"
	"time"

	"github.com/naksir/feedguard/retry"
	"github.com/naksir/feedguard/upstream"
)

// Backend selects the shared-state topology: a single process keeps cache and
// coordination in memory; co-operating processes share both through Redis.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config describes one deployment of the caching layer.
type Config struct {
	// BaseURL is the upstream API root, e.g. https://v3.football.api-sports.io.
	BaseURL string
	// APIKey is sent on every upstream request under APIKeyHeader.
	APIKey       string
	APIKeyHeader string

	Backend       Backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MemoryMaxCost bounds the in-process cache in entries (each cached
	// payload costs 1). Ignored by the redis backend.
	MemoryMaxCost int64

	// AppID scopes cache keys for multi-tenant deployments. Empty means the
	// default application.
	AppID string

	// CircuitWindow and CircuitThreshold control the rate-limit circuit;
	// zero values keep the built-in window and threshold.
	CircuitWindow    time.Duration
	CircuitThreshold int

	// Retry replaces the throttle backoff schedule when MaxAttempts > 0.
	Retry retry.Config

	// PacerRPS/PacerBurst rate-limit outbound requests. Zero disables pacing.
	PacerRPS   float64
	PacerBurst int

	StaleTTL    time.Duration
	WaitTimeout time.Duration

	// TTL replaces the endpoint-class TTL table when non-nil.
	TTL upstream.TTLPolicy

	// DatabaseURL enables the durable generation ledger when set.
	DatabaseURL string
}

// Validate reports configuration errors that New would otherwise surface
// later as connection failures.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("feedguard: BaseURL is required")
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case "":
		return fmt.Errorf("feedguard: Backend is required (memory or redis)")
	default:
		return fmt.Errorf("feedguard: unknown backend %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("feedguard: redis backend requires RedisAddr")
	}
	return nil
}

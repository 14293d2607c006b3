// Package ledger coordinates expensive, non-idempotent generation (one AI
// call per unique request) across independent processes. Ownership is
// arbitrated by a uniqueness constraint in durable storage: the first
// successful insert for a cache key wins, everyone else polls for the
// owner's terminal result. This is what the in-process single-flight
// coordinator cannot give you once the service scales horizontally.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a generation record.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Record is one durable generation entry.
type Record struct {
	CacheKey  string
	Status    Status
	Payload   json.RawMessage
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrStillGenerating is the "still working, retry later" signal: the owner
// has not reached a terminal state within the caller's wait budget. It is
// not a failure of the generation itself.
var ErrStillGenerating = errors.New("ledger: generation still in progress, retry later")

// GenerationError reports that the owner finished with a failure. Waiters
// receive it instead of re-running the generation.
type GenerationError struct {
	CacheKey string
	Message  string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ledger: generation for %s failed: %s", e.CacheKey, e.Message)
}

// Ledger is the durable coordination contract. Postgres is the production
// backend; Memory backs single-process deployments and tests.
type Ledger interface {
	// TryMarkGenerating attempts to claim generation ownership for key by
	// inserting a record with StatusGenerating. A uniqueness conflict
	// means another process owns it — that is the expected answer, not an
	// error. A record stuck in StatusFailed may be reclaimed: the claim
	// flips it back to StatusGenerating.
	TryMarkGenerating(ctx context.Context, key string) (acquired bool, err error)

	// Get returns the record for key, or nil when absent.
	Get(ctx context.Context, key string) (*Record, error)

	// WaitForReady polls until the record reaches a terminal status or
	// maxWait elapses. It returns whatever state was last observed, or
	// nil when the key vanished. The poll interval puts a latency floor
	// of up to one interval on cross-process hand-off.
	WaitForReady(ctx context.Context, key string, maxWait time.Duration) (*Record, error)

	// SaveOK records the owner's successful result. Upserts idempotently
	// so a race with readers cannot lose the payload.
	SaveOK(ctx context.Context, key string, payload json.RawMessage) error

	// SaveFailed records the owner's failure for later retries to reclaim.
	SaveFailed(ctx context.Context, key string, msg string) error
}

// PollInterval is how often WaitForReady re-reads the record.
const PollInterval = 500 * time.Millisecond

// DefaultWait bounds WaitForReady when the caller has no stronger opinion.
const DefaultWait = 20 * time.Second

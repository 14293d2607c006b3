package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naksir/feedguard/metrics"
)

// GenerateFunc produces the expensive payload for one key. It is invoked at
// most once per generation cycle across all processes.
type GenerateFunc func(ctx context.Context) (json.RawMessage, error)

// Generator is the get-or-generate orchestrator over a Ledger: ready records
// are returned immediately, the claim winner runs the generation, everyone
// else polls for the winner's terminal result.
type Generator struct {
	ledger Ledger
	log    *slog.Logger
	tp     trace.TracerProvider
}

// NewGenerator creates a Generator. A nil logger falls back to
// slog.Default(); a nil TracerProvider uses the global otel provider.
func NewGenerator(l Ledger, log *slog.Logger, tp trace.TracerProvider) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{ledger: l, log: log, tp: tp}
}

// GetOrGenerate returns the payload for key, generating it with fn when no
// ready record exists. maxWait bounds the non-owner polling wait; ≤ 0 uses
// DefaultWait.
//
// Non-owner outcomes: the owner's payload, a GenerationError when the owner
// failed, or ErrStillGenerating when the wait budget lapsed (the owner keeps
// running — abandoning a wait never cancels the generation).
func (g *Generator) GetOrGenerate(ctx context.Context, key string, maxWait time.Duration, fn GenerateFunc) (json.RawMessage, error) {
	if rec, err := g.ledger.Get(ctx, key); err != nil {
		return nil, err
	} else if rec != nil && rec.Status == StatusReady && len(rec.Payload) > 0 {
		return rec.Payload, nil
	}

	acquired, err := g.ledger.TryMarkGenerating(ctx, key)
	if err != nil {
		return nil, err
	}
	if acquired {
		return g.generate(ctx, key, fn)
	}

	rec, err := g.ledger.WaitForReady(ctx, key, maxWait)
	if err != nil {
		return nil, err
	}
	switch {
	case rec == nil:
		// The record vanished mid-wait; treat it like a lapsed wait and
		// let the caller retry.
		return nil, ErrStillGenerating
	case rec.Status == StatusReady && len(rec.Payload) > 0:
		return rec.Payload, nil
	case rec.Status == StatusFailed:
		return nil, &GenerationError{CacheKey: key, Message: rec.Error}
	default:
		return nil, ErrStillGenerating
	}
}

// generate runs fn as the claim owner and records the terminal state.
func (g *Generator) generate(ctx context.Context, key string, fn GenerateFunc) (json.RawMessage, error) {
	ctx, span := g.tracer().Start(ctx, "ledger.generate",
		trace.WithAttributes(attribute.String("ledger.cache_key", key)))
	defer span.End()

	start := time.Now()
	payload, err := fn(ctx)
	metrics.GenerationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.log.Warn("generation failed", "key", key, "err", err)
		if serr := g.ledger.SaveFailed(ctx, key, err.Error()); serr != nil {
			g.log.Warn("failed to record generation failure", "key", key, "err", serr)
		}
		return nil, err
	}
	if serr := g.ledger.SaveOK(ctx, key, payload); serr != nil {
		// The result is good even if the ledger write failed; log and
		// hand it to the caller anyway.
		g.log.Warn("failed to record generation result", "key", key, "err", serr)
	}
	return payload, nil
}

func (g *Generator) tracer() trace.Tracer {
	tp := g.tp
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/naksir/feedguard/ledger")
}

package feedguard

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/naksir/feedguard/ledger"
)

// Option injects runtime dependencies that do not belong in the serializable
// Config.
type Option func(*options)

type options struct {
	log        *slog.Logger
	httpClient *http.Client
	tp         trace.TracerProvider
	ledger     ledger.Ledger
}

// WithLogger sets the logger shared by every assembled component. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHTTPClient replaces the upstream HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTracerProvider supplies the TracerProvider for upstream and generation
// spans. When unset the global otel provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithLedger supplies a generation ledger directly, instead of the Postgres
// ledger New builds from Config.DatabaseURL. Useful for tests and for custom
// backends.
func WithLedger(l ledger.Ledger) Option {
	return func(o *options) { o.ledger = l }
}

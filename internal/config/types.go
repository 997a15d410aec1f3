// Package config loads session-level resolver options: the micro-batch
// window, schema cache TTL, and debug logging toggle. It is decoupled from
// the CLI and resolver packages so either can load options the same way.
package config

import "fmt"

// Options configures a resolver session. Zero value is not valid on its
// own — use Defaults() or Load() to obtain a populated Options.
type Options struct {
	// BatchWindowMS is how long the coordinator holds a micro-batch open
	// before dispatching it, in milliseconds. Clamped to [1, 50]; 0 is
	// accepted as a degenerate-but-correct case meaning "no batching".
	BatchWindowMS int `koanf:"batch_window_ms"`

	// SchemaTTLMS is how long a cached BoardSchema is considered fresh.
	SchemaTTLMS int `koanf:"schema_ttl_ms"`

	// DebugLog enables verbose slog output from the resolver.
	DebugLog bool `koanf:"debug_log"`
}

func (o Options) String() string {
	return fmt.Sprintf("Options{batch_window_ms=%d schema_ttl_ms=%d debug_log=%t}",
		o.BatchWindowMS, o.SchemaTTLMS, o.DebugLog)
}

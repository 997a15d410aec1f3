package config

// Default configuration values.
const (
	DefaultBatchWindowMS = 5
	DefaultSchemaTTLMS   = 300000

	minBatchWindowMS = 1
	maxBatchWindowMS = 50
)

// Defaults returns an Options populated with the resolver's defaults.
func Defaults() Options {
	return Options{
		BatchWindowMS: DefaultBatchWindowMS,
		SchemaTTLMS:   DefaultSchemaTTLMS,
		DebugLog:      false,
	}
}

// ApplyDefaults fills zero-valued fields with defaults and clamps
// BatchWindowMS into its valid range. A BatchWindowMS of 0 is left
// untouched: it is a degenerate-but-correct "no batching" setting, not a
// missing value.
func (o *Options) ApplyDefaults() {
	if o.SchemaTTLMS == 0 {
		o.SchemaTTLMS = DefaultSchemaTTLMS
	}
	o.clampBatchWindow()
}

func (o *Options) clampBatchWindow() {
	if o.BatchWindowMS < 0 {
		o.BatchWindowMS = 0
		return
	}
	if o.BatchWindowMS == 0 {
		return
	}
	if o.BatchWindowMS < minBatchWindowMS {
		o.BatchWindowMS = minBatchWindowMS
	}
	if o.BatchWindowMS > maxBatchWindowMS {
		o.BatchWindowMS = maxBatchWindowMS
	}
}

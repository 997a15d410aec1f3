// Package column normalises the ~25 raw column payload shapes the
// upstream platform returns into scalar.Scalar, one rule per ColumnKind.
package column

// RawValue is a sum type over the payload shapes a display-value or
// multi-columns-deep query can return for one column. Unpopulated
// fields are the zero value; which fields are meaningful is determined
// by the ColumnKind the caller is extracting for, not by RawValue
// itself — RawValue carries whatever the wire sent, and the per-kind
// extractor decides what to read.
type RawValue struct {
	// Text is the catch-all: a label, a status name, a raw display
	// string. Every kind falls back to this when nothing more specific
	// applies.
	Text string

	// Number is populated for number-like columns (NumbersValue.number
	// in the upstream wire shape).
	Number    float64
	HasNumber bool

	// Date/Time back date, time, and timeline columns.
	Date string
	Time string

	// DisplayValue is the platform's own precomputed display string,
	// when the query returned one (the fast-path value the strategy
	// selector decides whether to trust).
	DisplayValue    string
	HasDisplayValue bool

	// Checkbox backs the checkbox kind.
	Checkbox    bool
	HasCheckbox bool

	// Labels backs multi-valued label columns: dropdown, people,
	// board_relation, dependency.
	Labels []string

	// TimelineFrom/TimelineTo back the timeline kind.
	TimelineFrom string
	TimelineTo   string

	// TimeTrackingSeconds backs the time_tracking kind.
	TimeTrackingSeconds int64

	// MirrorLinkedItemNames backs a mirror whose deep-mirror fetch
	// returned no usable display_value: the names of the items it
	// mirrors, already in upstream order.
	MirrorLinkedItemNames []string
}

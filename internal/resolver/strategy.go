package resolver

import (
	"strings"

	"github.com/leapstack-labs/formulacore/internal/schema"
)

// dependencyKind classifies a single dependency column for strategy
// purposes: a complex kind's display_value will be empty on the
// platform (it's itself computed), so fetching it is wasted work.
type dependencyKind int

const (
	depSimple dependencyKind = iota
	depComplex
)

func classify(board *schema.BoardSchema, columnID string) dependencyKind {
	if board != nil {
		if def, ok := board.Column(columnID); ok {
			return classifyKind(def.Kind)
		}
	}
	// No schema available for this column id: fall back to a
	// prefix-based guess, the platform's own convention for naming
	// computed columns.
	if strings.HasPrefix(columnID, "formula") || strings.HasPrefix(columnID, "mirror") || strings.HasPrefix(columnID, "lookup") {
		return depComplex
	}
	return depSimple
}

func classifyKind(kind schema.ColumnKind) dependencyKind {
	switch kind {
	case schema.KindFormula, schema.KindMirror:
		return depComplex
	default:
		return depSimple
	}
}

// Decision is the strategy selector's verdict for a formula's set of
// dependency columns.
type Decision struct {
	// ProbeDisplayValue is true when at least one dependency is simple,
	// making the platform's own cached display_value for the formula
	// worth fetching as a fast-path probe.
	ProbeDisplayValue bool

	// UseCoordinator lists dependency column ids whose value should be
	// requested through the batching coordinator (simple kinds).
	UseCoordinator []string

	// Recurse lists dependency column ids that must be resolved by
	// recursive resolve() calls (complex kinds).
	Recurse []string
}

// SelectStrategy is a pure function of schema metadata: it never
// observes runtime values, only column kinds. board may be nil when the
// formula's own board schema failed to load; each dependency is then
// classified by its column-id prefix alone.
func SelectStrategy(board *schema.BoardSchema, dependencyColumnIDs []string) Decision {
	var d Decision
	for _, col := range dependencyColumnIDs {
		switch classify(board, col) {
		case depSimple:
			d.UseCoordinator = append(d.UseCoordinator, col)
			d.ProbeDisplayValue = true
		default:
			d.Recurse = append(d.Recurse, col)
		}
	}
	return d
}

// MirrorTargetIsComplex reports whether a mirror's displayed target
// column is itself a formula, mirror, or lookup — in which case the
// platform's display_value for the mirror will be empty and the fast
// path should be skipped entirely.
func MirrorTargetIsComplex(targetBoard *schema.BoardSchema, targetColumnID string) bool {
	return classify(targetBoard, targetColumnID) == depComplex
}

package dag

import (
	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/leapstack-labs/formulacore/pkg/formula"
)

// BuildFormulaGraph builds a dependency graph over a board's columns: an
// edge from column A to column B means B references A, either as a
// formula's {columnId} reference or a mirror's relation column. This is
// a diagnostic view only — the CLI's "explain" command uses it to print
// a formula's dependency tree and flag graph-level cycles. The
// resolver's own cycle detection during an actual resolve is unrelated:
// it walks the live call stack with an explicit per-call key set, not
// this graph.
func BuildFormulaGraph(board *schema.BoardSchema) *Graph {
	g := NewGraph()
	for id, def := range board.Columns {
		g.AddNode(id, def.Kind.String())
	}
	for id, def := range board.Columns {
		switch {
		case def.Kind == schema.KindFormula && def.Formula != nil:
			for dep := range formula.ExtractColumnIDs(def.Formula.FormulaText) {
				if _, ok := board.Columns[dep]; ok {
					_ = g.AddEdge(dep, id)
				}
			}
		case def.Kind == schema.KindMirror && def.Mirror != nil && def.Mirror.RelationColumnID != "":
			if _, ok := board.Columns[def.Mirror.RelationColumnID]; ok {
				_ = g.AddEdge(def.Mirror.RelationColumnID, id)
			}
		}
	}
	return g
}

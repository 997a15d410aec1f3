package formula

import "github.com/leapstack-labs/formulacore/pkg/formula/functions"

// DefaultFunctions returns the standard builtin function library.
func DefaultFunctions() FuncTable {
	table := functions.Table()
	ft := make(FuncTable, len(table))
	for name, fn := range table {
		ft[name] = BuiltinFunc(fn)
	}
	return ft
}

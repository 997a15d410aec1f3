package functions

import "github.com/leapstack-labs/formulacore/pkg/scalar"

// Table returns the complete builtin function library, keyed by
// upper-case function name.
func Table() map[string]func([]scalar.Scalar) scalar.Scalar {
	t := make(map[string]func([]scalar.Scalar) scalar.Scalar, len(textFuncs)+len(numericFuncs)+len(logicalFuncs)+len(dateFuncs))
	for name, fn := range textFuncs {
		t[name] = fn
	}
	for name, fn := range numericFuncs {
		t[name] = fn
	}
	for name, fn := range logicalFuncs {
		t[name] = fn
	}
	for name, fn := range dateFuncs {
		t[name] = fn
	}
	return t
}

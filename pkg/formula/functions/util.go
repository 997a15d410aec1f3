// Package functions implements the formula language's builtin function
// library: roughly sixty functions across text, numeric, logical, and
// date groups. Every function is total — it never panics and never
// signals an error back to the caller. Out-of-range and malformed
// arguments degrade to a best-effort scalar (0, empty, or the input
// unchanged) rather than propagating a failure, matching the resolver's
// contract that a formula column always produces a display value.
package functions

import (
	"strings"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

func arg(args []scalar.Scalar, i int) scalar.Scalar {
	if i < 0 || i >= len(args) {
		return scalar.EmptyVal
	}
	return args[i]
}

func argNum(args []scalar.Scalar, i int) float64 {
	n, _ := arg(args, i).AsNumber()
	return n
}

func argText(args []scalar.Scalar, i int) string {
	return arg(args, i).AsText()
}

func argBool(args []scalar.Scalar, i int) bool {
	return arg(args, i).AsBool()
}

// clampIndex confines a 0-based string index into [0, len].
func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

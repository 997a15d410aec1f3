package functions

import "github.com/leapstack-labs/formulacore/pkg/scalar"

func fnIf(args []scalar.Scalar) scalar.Scalar {
	if argBool(args, 0) {
		return arg(args, 1)
	}
	return arg(args, 2)
}

func fnAnd(args []scalar.Scalar) scalar.Scalar {
	for _, a := range args {
		if !a.AsBool() {
			return scalar.BoolVal(false)
		}
	}
	return scalar.BoolVal(true)
}

func fnOr(args []scalar.Scalar) scalar.Scalar {
	for _, a := range args {
		if a.AsBool() {
			return scalar.BoolVal(true)
		}
	}
	return scalar.BoolVal(false)
}

func fnNot(args []scalar.Scalar) scalar.Scalar {
	return scalar.BoolVal(!argBool(args, 0))
}

func fnXor(args []scalar.Scalar) scalar.Scalar {
	result := false
	for _, a := range args {
		if a.AsBool() {
			result = !result
		}
	}
	return scalar.BoolVal(result)
}

func fnTrueFn(args []scalar.Scalar) scalar.Scalar  { return scalar.BoolVal(true) }
func fnFalseFn(args []scalar.Scalar) scalar.Scalar { return scalar.BoolVal(false) }

func fnIsBlank(args []scalar.Scalar) scalar.Scalar {
	return scalar.BoolVal(arg(args, 0).IsEmpty())
}

// fnSwitch implements SWITCH(expr, k1, v1, k2, v2, ..., [default]). An
// odd trailing argument after the key/value pairs is the default result
// when no key matches; with no default and no match, the result is empty.
func fnSwitch(args []scalar.Scalar) scalar.Scalar {
	if len(args) == 0 {
		return scalar.EmptyVal
	}
	expr := args[0]
	rest := args[1:]
	i := 0
	for ; i+1 < len(rest); i += 2 {
		if scalar.Equal(expr, rest[i]) {
			return rest[i+1]
		}
	}
	if i < len(rest) {
		return rest[i]
	}
	return scalar.EmptyVal
}

// fnIferror evaluates to its first argument unconditionally: the
// function library never produces error scalars, so there is nothing
// for it to catch. It exists for formula-source compatibility with
// callers migrating from engines that do raise errors.
func fnIferror(args []scalar.Scalar) scalar.Scalar {
	return arg(args, 0)
}

var logicalFuncs = map[string]func([]scalar.Scalar) scalar.Scalar{
	"IF":      fnIf,
	"AND":     fnAnd,
	"OR":      fnOr,
	"NOT":     fnNot,
	"XOR":     fnXor,
	"TRUE":    fnTrueFn,
	"FALSE":   fnFalseFn,
	"ISBLANK": fnIsBlank,
	"SWITCH":  fnSwitch,
	"IFERROR": fnIferror,
}

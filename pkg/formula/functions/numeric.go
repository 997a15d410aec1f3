package functions

import (
	"math"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

func fnSum(args []scalar.Scalar) scalar.Scalar {
	var total float64
	for _, a := range args {
		if n, ok := a.AsNumber(); ok {
			total += n
		}
	}
	return scalar.NumberVal(total)
}

func fnAverage(args []scalar.Scalar) scalar.Scalar {
	var total float64
	var count int
	for _, a := range args {
		if n, ok := a.AsNumber(); ok {
			total += n
			count++
		}
	}
	if count == 0 {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(total / float64(count))
}

func fnMin(args []scalar.Scalar) scalar.Scalar {
	first := true
	var best float64
	for _, a := range args {
		if n, ok := a.AsNumber(); ok {
			if first || n < best {
				best = n
				first = false
			}
		}
	}
	return scalar.NumberVal(best)
}

func fnMax(args []scalar.Scalar) scalar.Scalar {
	first := true
	var best float64
	for _, a := range args {
		if n, ok := a.AsNumber(); ok {
			if first || n > best {
				best = n
				first = false
			}
		}
	}
	return scalar.NumberVal(best)
}

func fnCount(args []scalar.Scalar) scalar.Scalar {
	var count int
	for _, a := range args {
		if _, ok := a.AsNumber(); ok {
			count++
		}
	}
	return scalar.NumberVal(float64(count))
}

func fnCounta(args []scalar.Scalar) scalar.Scalar {
	var count int
	for _, a := range args {
		if !a.IsEmpty() {
			count++
		}
	}
	return scalar.NumberVal(float64(count))
}

func fnAbs(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Abs(argNum(args, 0)))
}

func roundAt(n float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(n*factor) / factor
}

// fnRound rounds to a possibly negative number of digits: ROUND(1234, -2)
// rounds to the nearest hundred.
func fnRound(args []scalar.Scalar) scalar.Scalar {
	digits := 0
	if len(args) > 1 {
		digits = int(argNum(args, 1))
	}
	return scalar.NumberVal(roundAt(argNum(args, 0), digits))
}

func fnRoundUp(args []scalar.Scalar) scalar.Scalar {
	digits := 0
	if len(args) > 1 {
		digits = int(argNum(args, 1))
	}
	n := argNum(args, 0)
	factor := math.Pow(10, float64(digits))
	if n >= 0 {
		return scalar.NumberVal(math.Ceil(n*factor) / factor)
	}
	return scalar.NumberVal(math.Floor(n*factor) / factor)
}

func fnRoundDown(args []scalar.Scalar) scalar.Scalar {
	digits := 0
	if len(args) > 1 {
		digits = int(argNum(args, 1))
	}
	n := argNum(args, 0)
	factor := math.Pow(10, float64(digits))
	if n >= 0 {
		return scalar.NumberVal(math.Floor(n*factor) / factor)
	}
	return scalar.NumberVal(math.Ceil(n*factor) / factor)
}

func fnCeiling(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Ceil(argNum(args, 0)))
}

func fnFloor(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Floor(argNum(args, 0)))
}

func fnPower(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Pow(argNum(args, 0), argNum(args, 1)))
}

func fnSqrt(args []scalar.Scalar) scalar.Scalar {
	n := argNum(args, 0)
	if n < 0 {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(math.Sqrt(n))
}

// fnMod mirrors the spreadsheet convention: divide- and mod-by-zero
// evaluate to 0 rather than signalling an error.
func fnMod(args []scalar.Scalar) scalar.Scalar {
	a, b := argNum(args, 0), argNum(args, 1)
	if b == 0 {
		return scalar.NumberVal(0)
	}
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return scalar.NumberVal(m)
}

func fnInt(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Floor(argNum(args, 0)))
}

func fnSign(args []scalar.Scalar) scalar.Scalar {
	n := argNum(args, 0)
	switch {
	case n > 0:
		return scalar.NumberVal(1)
	case n < 0:
		return scalar.NumberVal(-1)
	default:
		return scalar.NumberVal(0)
	}
}

func fnPi(args []scalar.Scalar) scalar.Scalar { return scalar.NumberVal(math.Pi) }

func fnExp(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(math.Exp(argNum(args, 0)))
}

func fnLog(args []scalar.Scalar) scalar.Scalar {
	n := argNum(args, 0)
	if n <= 0 {
		return scalar.NumberVal(0)
	}
	if len(args) > 1 {
		base := argNum(args, 1)
		if base <= 0 || base == 1 {
			return scalar.NumberVal(0)
		}
		return scalar.NumberVal(math.Log(n) / math.Log(base))
	}
	return scalar.NumberVal(math.Log(n))
}

func fnLog10(args []scalar.Scalar) scalar.Scalar {
	n := argNum(args, 0)
	if n <= 0 {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(math.Log10(n))
}

func fnDivide(args []scalar.Scalar) scalar.Scalar {
	a, b := argNum(args, 0), argNum(args, 1)
	if b == 0 {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(a / b)
}

var numericFuncs = map[string]func([]scalar.Scalar) scalar.Scalar{
	"SUM":        fnSum,
	"AVERAGE":    fnAverage,
	"MIN":        fnMin,
	"MAX":        fnMax,
	"COUNT":      fnCount,
	"COUNTA":     fnCounta,
	"ABS":        fnAbs,
	"ROUND":      fnRound,
	"ROUNDUP":    fnRoundUp,
	"ROUNDDOWN":  fnRoundDown,
	"CEILING":    fnCeiling,
	"FLOOR":      fnFloor,
	"POWER":      fnPower,
	"SQRT":       fnSqrt,
	"MOD":        fnMod,
	"INT":        fnInt,
	"SIGN":       fnSign,
	"PI":         fnPi,
	"EXP":        fnExp,
	"LOG":        fnLog,
	"LOG10":      fnLog10,
	"DIVIDE":     fnDivide,
}

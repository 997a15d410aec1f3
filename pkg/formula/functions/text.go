package functions

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

func fnConcatenate(args []scalar.Scalar) scalar.Scalar {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.AsText())
	}
	return scalar.TextVal(b.String())
}

func fnLen(args []scalar.Scalar) scalar.Scalar {
	return scalar.NumberVal(float64(len([]rune(argText(args, 0)))))
}

func fnLower(args []scalar.Scalar) scalar.Scalar {
	return scalar.TextVal(strings.ToLower(argText(args, 0)))
}

func fnUpper(args []scalar.Scalar) scalar.Scalar {
	return scalar.TextVal(strings.ToUpper(argText(args, 0)))
}

func fnTrim(args []scalar.Scalar) scalar.Scalar {
	return scalar.TextVal(strings.TrimSpace(argText(args, 0)))
}

func fnLeft(args []scalar.Scalar) scalar.Scalar {
	s := []rune(argText(args, 0))
	n := clampIndex(int(argNum(args, 1)), len(s))
	return scalar.TextVal(string(s[:n]))
}

func fnRight(args []scalar.Scalar) scalar.Scalar {
	s := []rune(argText(args, 0))
	n := clampIndex(int(argNum(args, 1)), len(s))
	return scalar.TextVal(string(s[len(s)-n:]))
}

func fnMid(args []scalar.Scalar) scalar.Scalar {
	s := []rune(argText(args, 0))
	start := clampIndex(int(argNum(args, 1))-1, len(s))
	length := int(argNum(args, 2))
	if length < 0 {
		length = 0
	}
	end := clampIndex(start+length, len(s))
	return scalar.TextVal(string(s[start:end]))
}

func fnReplace(args []scalar.Scalar) scalar.Scalar {
	s := []rune(argText(args, 0))
	start := clampIndex(int(argNum(args, 1))-1, len(s))
	length := int(argNum(args, 2))
	if length < 0 {
		length = 0
	}
	end := clampIndex(start+length, len(s))
	newText := argText(args, 3)
	return scalar.TextVal(string(s[:start]) + newText + string(s[end:]))
}

func fnSubstitute(args []scalar.Scalar) scalar.Scalar {
	s := argText(args, 0)
	old := argText(args, 1)
	newText := argText(args, 2)
	if len(args) < 4 {
		return scalar.TextVal(strings.ReplaceAll(s, old, newText))
	}
	occurrence := int(argNum(args, 3))
	if occurrence < 1 || old == "" {
		return scalar.TextVal(s)
	}
	count := 0
	idx := 0
	for {
		pos := strings.Index(s[idx:], old)
		if pos < 0 {
			return scalar.TextVal(s)
		}
		pos += idx
		count++
		if count == occurrence {
			return scalar.TextVal(s[:pos] + newText + s[pos+len(old):])
		}
		idx = pos + len(old)
	}
}

func fnFind(args []scalar.Scalar) scalar.Scalar {
	needle := argText(args, 0)
	hay := argText(args, 1)
	start := 0
	if len(args) > 2 {
		start = clampIndex(int(argNum(args, 2))-1, len(hay))
	}
	if start > len(hay) {
		return scalar.NumberVal(0)
	}
	idx := strings.Index(hay[start:], needle)
	if idx < 0 {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(start + idx + 1))
}

func fnSearch(args []scalar.Scalar) scalar.Scalar {
	needle := strings.ToLower(argText(args, 0))
	hay := strings.ToLower(argText(args, 1))
	return fnFind([]scalar.Scalar{scalar.TextVal(needle), scalar.TextVal(hay), arg(args, 2)})
}

func fnRept(args []scalar.Scalar) scalar.Scalar {
	n := int(argNum(args, 1))
	if n < 0 {
		n = 0
	}
	return scalar.TextVal(strings.Repeat(argText(args, 0), n))
}

func fnText(args []scalar.Scalar) scalar.Scalar {
	return scalar.TextVal(argText(args, 0))
}

func fnValue(args []scalar.Scalar) scalar.Scalar {
	n, ok := arg(args, 0).AsNumber()
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(n)
}

func fnExact(args []scalar.Scalar) scalar.Scalar {
	return scalar.BoolVal(argText(args, 0) == argText(args, 1))
}

func fnClean(args []scalar.Scalar) scalar.Scalar {
	s := argText(args, 0)
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return scalar.TextVal(b.String())
}

func fnNumberValue(args []scalar.Scalar) scalar.Scalar {
	s := strings.TrimSpace(argText(args, 0))
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(n)
}

var textFuncs = map[string]func([]scalar.Scalar) scalar.Scalar{
	"CONCATENATE": fnConcatenate,
	"CONCAT":      fnConcatenate,
	"LEN":         fnLen,
	"LOWER":       fnLower,
	"UPPER":       fnUpper,
	"TRIM":        fnTrim,
	"LEFT":        fnLeft,
	"RIGHT":       fnRight,
	"MID":         fnMid,
	"REPLACE":     fnReplace,
	"SUBSTITUTE":  fnSubstitute,
	"FIND":        fnFind,
	"SEARCH":      fnSearch,
	"REPT":        fnRept,
	"TEXT":        fnText,
	"VALUE":       fnValue,
	"NUMBERVALUE": fnNumberValue,
	"EXACT":       fnExact,
	"CLEAN":       fnClean,
}

package formula

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

// Env supplies the values a formula's column references resolve to. A
// missing key evaluates to the empty scalar, never an error — a formula
// referencing a column the resolver could not populate still produces a
// result.
type Env map[string]scalar.Scalar

// SubFieldFunc extracts a named sub-field out of a structured scalar, for
// {columnId#subfield} references (e.g. a location column's "#lat"). The
// evaluator has no notion of column kinds itself; the resolver supplies
// this hook.
type SubFieldFunc func(value scalar.Scalar, subField string) scalar.Scalar

// FuncTable resolves a builtin function name to its implementation.
// Keys are upper-case; the evaluator upper-cases the call site's name
// before lookup, so formulas may spell function names in any case.
type FuncTable map[string]BuiltinFunc

// BuiltinFunc is a single builtin's implementation. It never returns an
// error: the function library is defined to produce a best-effort scalar
// for every input, including division by zero and out-of-range dates.
type BuiltinFunc func(args []scalar.Scalar) scalar.Scalar

// Evaluator walks an Expr tree against an Env and a function table.
// It performs no I/O and never blocks: every column reference is a plain
// map lookup, already resolved by the caller.
type Evaluator struct {
	Env       Env
	Functions FuncTable
	SubField  SubFieldFunc
}

// NewEvaluator builds an Evaluator. subField may be nil if the caller
// never uses {columnId#subfield} references.
func NewEvaluator(env Env, functions FuncTable, subField SubFieldFunc) *Evaluator {
	return &Evaluator{Env: env, Functions: functions, SubField: subField}
}

// Eval computes the scalar value of an expression tree.
func (e *Evaluator) Eval(expr Expr) scalar.Scalar {
	switch n := expr.(type) {
	case *Literal:
		return e.evalLiteral(n)
	case *ColumnRef:
		return e.evalColumnRef(n)
	case *UnaryOp:
		return e.evalUnary(n)
	case *BinaryOp:
		return e.evalBinary(n)
	case *FunctionCall:
		return e.evalCall(n)
	default:
		return scalar.EmptyVal
	}
}

func (e *Evaluator) evalLiteral(n *Literal) scalar.Scalar {
	switch n.Kind {
	case LiteralNumber:
		return scalar.NumberVal(n.Num)
	case LiteralString:
		return scalar.TextVal(n.Str)
	case LiteralBool:
		return scalar.BoolVal(n.Bool)
	default:
		return scalar.EmptyVal
	}
}

func (e *Evaluator) evalColumnRef(n *ColumnRef) scalar.Scalar {
	v, ok := e.Env[n.ColumnID]
	if !ok {
		return scalar.EmptyVal
	}
	if n.SubField == "" {
		return v
	}
	if e.SubField == nil {
		return scalar.EmptyVal
	}
	return e.SubField(v, n.SubField)
}

func (e *Evaluator) evalUnary(n *UnaryOp) scalar.Scalar {
	operand := e.Eval(n.Operand)
	switch n.Op {
	case "-":
		num, _ := operand.AsNumber()
		return scalar.NumberVal(-num)
	default:
		return scalar.EmptyVal
	}
}

func (e *Evaluator) evalBinary(n *BinaryOp) scalar.Scalar {
	left := e.Eval(n.Left)
	right := e.Eval(n.Right)

	switch n.Op {
	case "&":
		return scalar.TextVal(left.AsText() + right.AsText())
	case "+":
		// Numeric if both operands coerce, otherwise treated as
		// concatenation — matching the lenient cell-formula convention
		// where "+" doubles as a forgiving join operator.
		if ln, lok := left.AsNumber(); lok {
			if rn, rok := right.AsNumber(); rok {
				return scalar.NumberVal(ln + rn)
			}
		}
		return scalar.TextVal(left.AsText() + right.AsText())
	case "-":
		ln, _ := left.AsNumber()
		rn, _ := right.AsNumber()
		return scalar.NumberVal(ln - rn)
	case "*":
		ln, _ := left.AsNumber()
		rn, _ := right.AsNumber()
		return scalar.NumberVal(ln * rn)
	case "/":
		ln, _ := left.AsNumber()
		rn, _ := right.AsNumber()
		if rn == 0 {
			return scalar.NumberVal(0)
		}
		return scalar.NumberVal(ln / rn)
	case "%":
		ln, _ := left.AsNumber()
		rn, _ := right.AsNumber()
		if rn == 0 {
			return scalar.NumberVal(0)
		}
		return scalar.NumberVal(mod(ln, rn))
	case "=":
		return scalar.BoolVal(scalar.Equal(left, right))
	case "<>":
		return scalar.BoolVal(!scalar.Equal(left, right))
	case "<":
		return scalar.BoolVal(scalar.Compare(left, right) < 0)
	case ">":
		return scalar.BoolVal(scalar.Compare(left, right) > 0)
	case "<=":
		return scalar.BoolVal(scalar.Compare(left, right) <= 0)
	case ">=":
		return scalar.BoolVal(scalar.Compare(left, right) >= 0)
	default:
		return scalar.EmptyVal
	}
}

func mod(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	return m
}

func (e *Evaluator) evalCall(n *FunctionCall) scalar.Scalar {
	fn, ok := e.Functions[strings.ToUpper(n.Name)]
	if !ok {
		return scalar.EmptyVal
	}
	args := make([]scalar.Scalar, len(n.Args))
	for i, a := range n.Args {
		args[i] = e.Eval(a)
	}
	return fn(args)
}

// Evaluate parses and evaluates a formula in one step. It is a
// convenience for callers that don't need the parsed tree (e.g. tests);
// the resolver parses once and evaluates per item instead.
func Evaluate(src string, env Env, functions FuncTable, subField SubFieldFunc) (scalar.Scalar, error) {
	expr, err := Parse(src)
	if err != nil {
		return scalar.EmptyVal, fmt.Errorf("evaluate: %w", err)
	}
	ev := NewEvaluator(env, functions, subField)
	return ev.Eval(expr), nil
}

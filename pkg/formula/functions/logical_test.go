package functions

import (
	"testing"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
	"github.com/stretchr/testify/assert"
)

func TestLogicalFunctions(t *testing.T) {
	cases := []struct {
		name string
		fn   func([]scalar.Scalar) scalar.Scalar
		args []scalar.Scalar
		want string
	}{
		{"if true", fnIf, []scalar.Scalar{scalar.BoolVal(true), sv("a"), sv("b")}, "a"},
		{"if false", fnIf, []scalar.Scalar{scalar.BoolVal(false), sv("a"), sv("b")}, "b"},
		{"and all true", fnAnd, []scalar.Scalar{scalar.BoolVal(true), scalar.BoolVal(true)}, "true"},
		{"and one false", fnAnd, []scalar.Scalar{scalar.BoolVal(true), scalar.BoolVal(false)}, "false"},
		{"or one true", fnOr, []scalar.Scalar{scalar.BoolVal(false), scalar.BoolVal(true)}, "true"},
		{"or all false", fnOr, []scalar.Scalar{scalar.BoolVal(false), scalar.BoolVal(false)}, "false"},
		{"not", fnNot, []scalar.Scalar{scalar.BoolVal(true)}, "false"},
		{"xor even true count", fnXor, []scalar.Scalar{scalar.BoolVal(true), scalar.BoolVal(false), scalar.BoolVal(true)}, "false"},
		{"isblank true", fnIsBlank, []scalar.Scalar{scalar.EmptyVal}, "true"},
		{"isblank false", fnIsBlank, []scalar.Scalar{sv("x")}, "false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.fn(tc.args)
			assert.Equal(t, tc.want, got.Display())
		})
	}
}

func TestSwitch_MatchesKey(t *testing.T) {
	got := fnSwitch([]scalar.Scalar{nv(2), nv(1), sv("one"), nv(2), sv("two")})
	assert.Equal(t, "two", got.Display())
}

func TestSwitch_NoMatchNoDefaultIsEmpty(t *testing.T) {
	got := fnSwitch([]scalar.Scalar{nv(9), nv(1), sv("one")})
	assert.True(t, got.IsEmpty())
}

package formula

import (
	"testing"

	"github.com/leapstack-labs/formulacore/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Operators(t *testing.T) {
	toks := Tokenize("1+2-3*4/5%6&7=8<>9<10<=11>12>=13")
	var types []token.Type
	for _, tok := range toks {
		if tok.Type != token.NUMBER {
			types = append(types, tok.Type)
		}
	}
	require.Equal(t, []token.Type{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.MOD, token.AMP,
		token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE, token.EOF,
	}, types)
}

func TestTokenize_ColumnRef(t *testing.T) {
	toks := Tokenize("{col_1#lat}")
	require.Len(t, toks, 2)
	assert.Equal(t, token.COLUMN, toks[0].Type)
	assert.Equal(t, "col_1#lat", toks[0].Literal)
}

func TestTokenize_StringLiteral(t *testing.T) {
	cases := []struct {
		name, src, want string
	}{
		{"single quotes", `'hello'`, "hello"},
		{"double quotes", `"hello"`, "hello"},
		{"escaped quote", `'it\'s'`, "it's"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			toks := Tokenize(tc.src)
			require.Equal(t, token.STRING, toks[0].Type)
			assert.Equal(t, tc.want, toks[0].Literal)
		})
	}
}

func TestTokenize_UnterminatedStringWarns(t *testing.T) {
	l := NewLexer(`'unterminated`)
	tok := l.NextToken()
	assert.Equal(t, token.STRING, tok.Type)
	assert.Equal(t, "unterminated", tok.Literal)
	assert.NotEmpty(t, l.Warnings)
}

func TestTokenize_TrueFalse(t *testing.T) {
	toks := Tokenize("TRUE false")
	require.Len(t, toks, 3)
	assert.Equal(t, token.TRUEK, toks[0].Type)
	assert.Equal(t, token.FALSEK, toks[1].Type)
}

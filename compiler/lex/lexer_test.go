package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scan(src string) (toks []Token, l *Lexer) {
	l = NewLexer([]byte(src))

	for {
		t := l.Next()
		toks = append(toks, t)

		if t == EOF {
			return toks, l
		}
	}
}

func TestOperators(t *testing.T) {
	toks, _ := scan(":= : <= < <> >= > .. . ^ = + - * / ( ) [ ] , ;")

	assert.Equal(t, []Token{
		Becomes, Colon, Lte, Lt, Neq, Gte, Gt, Range, Period, Caret, Equ,
		Plus, Minus, Star, Slash, LParen, RParen, LBrack, RBrack, Comma, Semicolon,
		EOF,
	}, toks)
}

func TestNumbers(t *testing.T) {
	l := NewLexer([]byte("12 3.25 1..10 2e3 7.5E-1 4e"))

	assert.Equal(t, IntNum, l.Next())
	assert.Equal(t, int64(12), l.Int)

	assert.Equal(t, RealNum, l.Next())
	assert.Equal(t, 3.25, l.Real)

	assert.Equal(t, IntNum, l.Next())
	assert.Equal(t, int64(1), l.Int)
	assert.Equal(t, Range, l.Next())
	assert.Equal(t, IntNum, l.Next())
	assert.Equal(t, int64(10), l.Int)

	assert.Equal(t, RealNum, l.Next())
	assert.Equal(t, 2000.0, l.Real)

	assert.Equal(t, RealNum, l.Next())
	assert.Equal(t, 0.75, l.Real)

	assert.Equal(t, IntNum, l.Next())
	assert.Equal(t, int64(4), l.Int)
	assert.Equal(t, Ident, l.Next())
	assert.Equal(t, "e", l.Text)

	assert.Equal(t, EOF, l.Next())
}

func TestKeywordsAndIdents(t *testing.T) {
	toks, l := scan("PROGRAM Begin foo_1 WriteLn sqrt")

	assert.Equal(t, []Token{Program, Begin, Ident, Writeln, Sqrt, EOF}, toks)
	assert.True(t, Sqrt.IsBuiltin())
	assert.False(t, Writeln.IsBuiltin())
	assert.Equal(t, "", l.Text)
}

func TestCommentsAndLines(t *testing.T) {
	l := NewLexer([]byte("a { one\ntwo\n } b\n{ open\n"))

	assert.Equal(t, Ident, l.Next())
	assert.Equal(t, 1, l.Line)

	assert.Equal(t, Ident, l.Next())
	assert.Equal(t, "b", l.Text)
	assert.Equal(t, 3, l.Line)

	assert.Equal(t, BadComment, l.Next())
	assert.Equal(t, EOF, l.Next())
	assert.Equal(t, EOF, l.Next())
}

func TestStrings(t *testing.T) {
	l := NewLexer([]byte("'it''s' 'x' 'open"))

	assert.Equal(t, String, l.Next())
	assert.Equal(t, "it's", l.Text)

	assert.Equal(t, String, l.Next())
	assert.Equal(t, "x", l.Text)

	assert.Equal(t, Unknown, l.Next())
}

func TestUnknown(t *testing.T) {
	toks, _ := scan("a # b")

	assert.Equal(t, []Token{Ident, Unknown, Ident, EOF}, toks)
}

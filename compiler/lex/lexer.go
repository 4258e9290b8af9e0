package lex

import (
	"strconv"
	"strings"
)

type (
	Lexer struct {
		b    []byte
		i    int
		line int

		// attributes of the last token
		Text string
		Int  int64
		Real float64
		Pos  int
		Line int
	}
)

const eof = -1

func NewLexer(b []byte) *Lexer {
	return &Lexer{b: b, line: 1}
}

func (l *Lexer) getc() int {
	if l.i >= len(l.b) {
		l.i++ // keep ungetc symmetric at the end
		return eof
	}

	c := l.b[l.i]
	l.i++

	if c == '\n' {
		l.line++
	}

	return int(c)
}

func (l *Lexer) ungetc() {
	l.i--

	if l.i < len(l.b) && l.b[l.i] == '\n' {
		l.line--
	}
}

func (l *Lexer) Next() Token {
	l.Text = ""

	c := l.skipSpaces()

	l.Pos = l.i - 1
	l.Line = l.line

	switch {
	case c == eof:
		l.ungetc()
		return EOF
	case isLetter(c):
		return l.ident()
	case isDigit(c):
		return l.number()
	}

	switch c {
	case '\'':
		return l.str()
	case '{':
		return BadComment
	case '+':
		return Plus
	case '-':
		return Minus
	case '*':
		return Star
	case '/':
		return Slash
	case '=':
		return Equ
	case '(':
		return LParen
	case ')':
		return RParen
	case '[':
		return LBrack
	case ']':
		return RBrack
	case ',':
		return Comma
	case ';':
		return Semicolon
	case '^':
		return Caret
	case ':':
		return l.pair('=', Becomes, Colon)
	case '.':
		return l.pair('.', Range, Period)
	case '>':
		return l.pair('=', Gte, Gt)
	case '<':
		if t := l.pair('>', Neq, Unknown); t == Neq {
			return t
		}

		return l.pair('=', Lte, Lt)
	}

	l.Text = string(rune(c))

	return Unknown
}

// skipSpaces skips blanks and comments and returns the first other character.
func (l *Lexer) skipSpaces() int {
	for {
		c := l.getc()

		switch c {
		case ' ', '\t', '\n', '\r', '\f':
			continue
		case '{':
			if !l.skipComment() {
				return '{'
			}

			continue
		}

		return c
	}
}

func (l *Lexer) skipComment() bool {
	for {
		switch l.getc() {
		case '}':
			return true
		case eof:
			l.ungetc()
			return false
		}
	}
}

func (l *Lexer) pair(next int, two, one Token) Token {
	c := l.getc()
	if c == next {
		return two
	}

	l.ungetc()

	return one
}

func (l *Lexer) ident() Token {
	st := l.i - 1

	for c := l.getc(); isLetter(c) || isDigit(c); c = l.getc() {
	}

	l.ungetc()

	l.Text = strings.ToLower(string(l.b[st:l.i]))

	if t, ok := keywordTable[l.Text]; ok {
		return t
	}

	return Ident
}

func (l *Lexer) number() Token {
	st := l.i - 1
	isReal := false

	l.digits()

	if c := l.getc(); c == '.' {
		if c2 := l.getc(); isDigit(c2) {
			isReal = true
			l.digits()
		} else {
			// 1..10 is a range, not a real
			l.ungetc()
			l.ungetc()
		}
	} else {
		l.ungetc()
	}

	if c := l.getc(); c == 'e' || c == 'E' {
		end := l.i

		c = l.getc()
		if c == '+' || c == '-' {
			c = l.getc()
		}

		if isDigit(c) {
			isReal = true
			l.digits()
		} else {
			for l.i > end {
				l.ungetc()
			}

			l.ungetc()
		}
	} else {
		l.ungetc()
	}

	l.Text = string(l.b[st:l.i])

	if isReal {
		l.Real, _ = strconv.ParseFloat(l.Text, 64)
		return RealNum
	}

	v, err := strconv.ParseInt(l.Text, 10, 64)
	if err != nil || v > MaxInt {
		return Unknown
	}

	l.Int = v

	return IntNum
}

func (l *Lexer) digits() {
	for c := l.getc(); isDigit(c); c = l.getc() {
	}

	l.ungetc()
}

// str scans a quoted string. A doubled quote stands for one quote.
func (l *Lexer) str() Token {
	var b []byte

	for {
		c := l.getc()

		switch c {
		case eof, '\n':
			l.ungetc()
			l.Text = string(b)

			return Unknown
		case '\'':
			if l.getc() == '\'' {
				b = append(b, '\'')
				continue
			}

			l.ungetc()
			l.Text = string(b)

			return String
		}

		b = append(b, byte(c))
	}
}

func isLetter(c int) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c int) bool {
	return c >= '0' && c <= '9'
}

const MaxInt = 1<<31 - 1

package lex

type Token int

const (
	EOF Token = iota
	Unknown
	BadComment

	Ident
	IntNum
	RealNum
	String

	Plus
	Minus
	Star
	Slash
	Equ
	Neq
	Lt
	Lte
	Gt
	Gte
	LParen
	RParen
	LBrack
	RBrack
	Comma
	Colon
	Semicolon
	Period
	Range
	Becomes
	Caret

	keywords

	And
	Array
	Begin
	Const
	Div
	Do
	Downto
	Else
	End
	For
	Function
	If
	Mod
	Nil
	Not
	Of
	Or
	Procedure
	Program
	Record
	Repeat
	Shl
	Shr
	Then
	To
	Type
	Until
	Var
	While
	Xor

	// built-in procedures and functions
	Write
	Writeln
	New
	Dispose
	Abs
	Arctan
	Chr
	Cos
	Exp
	Ln
	Odd
	Ord
	Pred
	Round
	Sin
	Sqr
	Sqrt
	Succ
	Trunc

	numTokens
)

var names = [numTokens]string{
	EOF:        "end of file",
	Unknown:    "unknown character",
	BadComment: "unterminated comment",
	Ident:      "identifier",
	IntNum:     "integer",
	RealNum:    "real",
	String:     "string",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Equ:        "=",
	Neq:        "<>",
	Lt:         "<",
	Lte:        "<=",
	Gt:         ">",
	Gte:        ">=",
	LParen:     "(",
	RParen:     ")",
	LBrack:     "[",
	RBrack:     "]",
	Comma:      ",",
	Colon:      ":",
	Semicolon:  ";",
	Period:     ".",
	Range:      "..",
	Becomes:    ":=",
	Caret:      "^",
	And:        "and",
	Array:      "array",
	Begin:      "begin",
	Const:      "const",
	Div:        "div",
	Do:         "do",
	Downto:     "downto",
	Else:       "else",
	End:        "end",
	For:        "for",
	Function:   "function",
	If:         "if",
	Mod:        "mod",
	Nil:        "nil",
	Not:        "not",
	Of:         "of",
	Or:         "or",
	Procedure:  "procedure",
	Program:    "program",
	Record:     "record",
	Repeat:     "repeat",
	Shl:        "shl",
	Shr:        "shr",
	Then:       "then",
	To:         "to",
	Type:       "type",
	Until:      "until",
	Var:        "var",
	While:      "while",
	Xor:        "xor",
	Write:      "write",
	Writeln:    "writeln",
	New:        "new",
	Dispose:    "dispose",
	Abs:        "abs",
	Arctan:     "arctan",
	Chr:        "chr",
	Cos:        "cos",
	Exp:        "exp",
	Ln:         "ln",
	Odd:        "odd",
	Ord:        "ord",
	Pred:       "pred",
	Round:      "round",
	Sin:        "sin",
	Sqr:        "sqr",
	Sqrt:       "sqrt",
	Succ:       "succ",
	Trunc:      "trunc",
}

var keywordTable = func() map[string]Token {
	m := map[string]Token{}

	for t := keywords + 1; t < numTokens; t++ {
		m[names[t]] = t
	}

	return m
}()

func (t Token) String() string {
	if t < 0 || t >= numTokens || names[t] == "" {
		return "token?"
	}

	return names[t]
}

// IsBuiltin reports whether t names a built-in function.
func (t Token) IsBuiltin() bool {
	return t >= Abs && t <= Trunc
}

package fan

// Kind identifies the lexical category of a Token.
type Kind int

const (
	Illegal Kind = iota
	Eof

	Ident
	Integer
	Float
	String
	Template

	// punctuation
	Lparen
	Rparen
	Lbrace
	Rbrace
	Lbracket
	Rbracket
	Comma
	Semicolon
	Colon
	Dot

	// operators
	Plus
	Minus
	Star
	Slash
	Percent
	Bx // ^ bitwise xor
	Bo // | bitwise or
	Ba // & bitwise and
	Sl // << shift left
	Sr // >> shift right
	La // && logical and
	Lo // || logical or
	Bang
	Assign
	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	// keywords
	Let
	If
	Else
	True
	False
	Request
	Test
)

var keywords = map[string]Kind{
	"let":     Let,
	"if":      If,
	"else":    Else,
	"true":    True,
	"false":   False,
	"request": Request,
	"test":    Test,
}

// LookupIdent classifies an identifier-shaped literal as a keyword Kind or
// plain Ident.
func LookupIdent(literal string) Kind {
	if kind, ok := keywords[literal]; ok {
		return kind
	}
	return Ident
}

// precedence lattice, lowest to highest; values not present bind as Lowest.
const (
	Lowest int = iota
	LogicOr
	LogicAnd
	BitOr
	BitAnd
	Equals
	LessGreater
	Sum
	Product
	Prefix
	Call
)

var precedences = map[Kind]int{
	Lo:       LogicOr,
	La:       LogicAnd,
	Bo:       BitOr,
	Ba:       BitAnd,
	Eq:       Equals,
	Ne:       Equals,
	Lt:       LessGreater,
	Gt:       LessGreater,
	Le:       LessGreater,
	Ge:       LessGreater,
	Plus:     Sum,
	Minus:    Sum,
	Star:     Product,
	Slash:    Product,
	Percent:  Product,
	Bx:       Product,
	Sl:       Product,
	Sr:       Product,
	Lparen:   Call,
	Lbracket: Call,
	Dot:      Call,
}

// Token is a single lexical unit: a kind tag plus the verbatim literal text
// that produced it (used as-is for identifiers, numeric and string parsing,
// and template bodies).
type Token struct {
	Kind    Kind
	Literal string
	Line    int
}

func (t Token) precedence() int {
	if p, ok := precedences[t.Kind]; ok {
		return p
	}
	return Lowest
}

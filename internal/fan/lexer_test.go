package fan

import "testing"

func TestLexerNextToken(t *testing.T) {
	input := `let five = 5;
let ten = 10.5;
let add = fn(x, y) { x + y };
!-/*5;
5 < 10 > 5;
if (5 < 10) { true } else { false }
10 == 10;
10 != 9;
5 <= 5;
5 >= 5;
true && false || true;
5 ^ 1 | 2 & 3;
1 << 2 >> 1;
"foobar"
request test(a) ` + "`GET /{a}`" + `
`

	tests := []struct {
		kind    Kind
		literal string
	}{
		{Let, "let"}, {Ident, "five"}, {Assign, "="}, {Integer, "5"}, {Semicolon, ";"},
		{Let, "let"}, {Ident, "ten"}, {Assign, "="}, {Float, "10.5"}, {Semicolon, ";"},
		{Let, "let"}, {Ident, "add"}, {Assign, "="}, {Ident, "fn"}, {Lparen, "("},
		{Ident, "x"}, {Comma, ","}, {Ident, "y"}, {Rparen, ")"}, {Lbrace, "{"},
		{Ident, "x"}, {Plus, "+"}, {Ident, "y"}, {Rbrace, "}"}, {Semicolon, ";"},
		{Bang, "!"}, {Minus, "-"}, {Slash, "/"}, {Star, "*"}, {Integer, "5"}, {Semicolon, ";"},
		{Integer, "5"}, {Lt, "<"}, {Integer, "10"}, {Gt, ">"}, {Integer, "5"}, {Semicolon, ";"},
		{If, "if"}, {Lparen, "("}, {Integer, "5"}, {Lt, "<"}, {Integer, "10"}, {Rparen, ")"},
		{Lbrace, "{"}, {True, "true"}, {Rbrace, "}"}, {Else, "else"}, {Lbrace, "{"}, {False, "false"}, {Rbrace, "}"},
		{Integer, "10"}, {Eq, "=="}, {Integer, "10"}, {Semicolon, ";"},
		{Integer, "10"}, {Ne, "!="}, {Integer, "9"}, {Semicolon, ";"},
		{Integer, "5"}, {Le, "<="}, {Integer, "5"}, {Semicolon, ";"},
		{Integer, "5"}, {Ge, ">="}, {Integer, "5"}, {Semicolon, ";"},
		{True, "true"}, {La, "&&"}, {False, "false"}, {Lo, "||"}, {True, "true"}, {Semicolon, ";"},
		{Integer, "5"}, {Bx, "^"}, {Integer, "1"}, {Bo, "|"}, {Integer, "2"}, {Ba, "&"}, {Integer, "3"}, {Semicolon, ";"},
		{Integer, "1"}, {Sl, "<<"}, {Integer, "2"}, {Sr, ">>"}, {Integer, "1"}, {Semicolon, ";"},
		{String, "foobar"},
		{Request, "request"}, {Test, "test"}, {Lparen, "("}, {Ident, "a"}, {Rparen, ")"}, {Template, "GET /{a}"},
		{Eof, ""},
	}

	l := NewLexer(input)
	for i, want := range tests {
		got := l.Next()
		if got.Kind != want.kind || got.Literal != want.literal {
			t.Fatalf("test[%d] - wrong token. want=%v(%q) got=%v(%q)", i, want.kind, want.literal, got.Kind, got.Literal)
		}
	}
}

func TestLexerIllegalCharacter(t *testing.T) {
	l := NewLexer("@")
	tok := l.Next()
	if tok.Kind != Illegal {
		t.Fatalf("expected Illegal, got %v", tok.Kind)
	}
}

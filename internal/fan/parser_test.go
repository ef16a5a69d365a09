package fan

import "testing"

func mustParse(t *testing.T, input string) *Source {
	t.Helper()
	src, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return src
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-a * b", "((-a) * b)"},
		{"a + b * c", "(a + (b * c))"},
		{"!true == true", "((!true) == true)"},
		{"1 + 2 + 3", "((1 + 2) + 3)"},
		{"true && false || true", "((true && false) || true)"},
		{"1 < 2 == 3 > 4", "((1 < 2) == (3 > 4))"},
	}
	for _, tt := range tests {
		src := mustParse(t, tt.input)
		if len(src.Exprs) != 1 {
			t.Fatalf("%q: expected 1 top-level expr, got %d", tt.input, len(src.Exprs))
		}
		got := printExpr(src.Exprs[0])
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParserLetFunctionIf(t *testing.T) {
	src := mustParse(t, `
		let add = fn(a, b) { a + b };
		let result = if (add(1, 2) > 2) { 10 } else { 20 };
	`)
	if len(src.Exprs) != 2 {
		t.Fatalf("expected 2 top-level exprs, got %d", len(src.Exprs))
	}
	let, ok := src.Exprs[0].(*LetExpr)
	if !ok || let.Name != "add" {
		t.Fatalf("expected let add, got %#v", src.Exprs[0])
	}
	fn, ok := let.Value.(*FunctionExpr)
	if !ok || len(fn.Params) != 2 {
		t.Fatalf("expected 2-param function, got %#v", let.Value)
	}
}

func TestParserRequestAndTest(t *testing.T) {
	src := mustParse(t, "request ping(host) `GET http://{host}/health`\ntest smoke { ping(\"x\"); }")
	req, ok := src.Requests["ping"]
	if !ok {
		t.Fatalf("expected request ping to be registered")
	}
	if len(req.Params) != 1 || req.Params[0] != "host" {
		t.Fatalf("unexpected params: %v", req.Params)
	}
	if _, ok := src.Tests["smoke"]; !ok {
		t.Fatalf("expected test smoke to be registered")
	}
}

func TestSplitTemplateRoundTrip(t *testing.T) {
	text := "GET http://{host}:{port}/api\nHost: example.com\n"
	pieces := SplitTemplate(text)

	var rebuilt string
	for _, p := range pieces {
		if p.Ident != "" {
			rebuilt += "{" + p.Ident + "}"
		} else {
			rebuilt += p.Literal
		}
	}
	if rebuilt != text {
		t.Fatalf("round trip mismatch: got %q want %q", rebuilt, text)
	}

	var idents []string
	for _, p := range pieces {
		if p.Ident != "" {
			idents = append(idents, p.Ident)
		}
	}
	if len(idents) != 2 || idents[0] != "host" || idents[1] != "port" {
		t.Fatalf("unexpected placeholders: %v", idents)
	}
}

func TestSplitTemplateUnterminatedBraceIsLiteral(t *testing.T) {
	pieces := SplitTemplate("no { closing brace here")
	for _, p := range pieces {
		if p.Ident != "" {
			t.Fatalf("expected no placeholders, got %q", p.Ident)
		}
	}
}

// printExpr renders an Expr back to its canonical parenthesised text form,
// used only to assert precedence in tests.
func printExpr(e Expr) string {
	switch v := e.(type) {
	case *IntegerExpr:
		return itoa(v.Value)
	case *BooleanExpr:
		if v.Value {
			return "true"
		}
		return "false"
	case *IdentExpr:
		return v.Name
	case *UnaryExpr:
		return "(" + opText(v.Op) + printExpr(v.Right) + ")"
	case *BinaryExpr:
		return "(" + printExpr(v.Left) + " " + opText(v.Op) + " " + printExpr(v.Right) + ")"
	default:
		return "?"
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func opText(k Kind) string {
	for text, kind := range map[string]Kind{
		"+": Plus, "-": Minus, "*": Star, "/": Slash, "%": Percent,
		"==": Eq, "!=": Ne, "<": Lt, ">": Gt, "<=": Le, ">=": Ge,
		"&&": La, "||": Lo, "!": Bang,
	} {
		if kind == k {
			return text
		}
	}
	return "?"
}

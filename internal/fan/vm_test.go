package fan

import "testing"

func runProgram(t *testing.T, input string) Value {
	t.Helper()
	src, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiler := NewCompiler()
	instructions, consts, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := NewVM(instructions, consts, compiler.symbols.Length())
	if err := vm.Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return vm.LastPopped()
}

func TestVMIntegerArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"50 / 2 * 2 + 10 - 5", 55},
		{"7 % 3", 1},
		{"-5 >> 2", -2},
		{"5 ^ 3", 6},
		{"5 | 3", 7},
		{"5 & 3", 1},
	}
	for _, tt := range tests {
		got := runProgram(t, tt.input)
		if got.Type != IntegerType || got.Integer != tt.want {
			t.Errorf("%q: got %+v, want integer %d", tt.input, got, tt.want)
		}
	}
}

func TestVMFloatArithmetic(t *testing.T) {
	got := runProgram(t, "1.0 + 0.2")
	if got.Type != FloatType || got.Float != 1.2 {
		t.Errorf("got %+v, want float 1.2", got)
	}
}

func TestVMShortCircuit(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{`false || "Cat" == "Cat"`, BooleanValue(true)},
		{`"Cat" && false`, BooleanValue(false)},
		{"true || false && false", BooleanValue(true)},
	}
	for _, tt := range tests {
		got := runProgram(t, tt.input)
		if !got.Equal(tt.want) {
			t.Errorf("%q: got %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestVMClosures(t *testing.T) {
	got := runProgram(t, "let adder = fn(a) { fn(b) { a + b } }; adder(2)(3)")
	if got.Type != IntegerType || got.Integer != 5 {
		t.Errorf("got %+v, want 5", got)
	}
}

func TestVMRecursion(t *testing.T) {
	got := runProgram(t, `
		let fibonacci = fn(x) {
			if (x == 0) { 0 } else {
				if (x == 1) { 1 } else {
					fibonacci(x - 1) + fibonacci(x - 2)
				}
			}
		};
		fibonacci(15)
	`)
	if got.Type != IntegerType || got.Integer != 610 {
		t.Errorf("got %+v, want 610", got)
	}
}

func TestVMIndexing(t *testing.T) {
	tests := []struct {
		input string
	}{
		{"[1, 2, 3][99]"},
		{"{1: 1}[0]"},
	}
	for _, tt := range tests {
		got := runProgram(t, tt.input)
		if got.Type != NullType {
			t.Errorf("%q: got %+v, want null", tt.input, got)
		}
	}
}

func TestVMIndexOutOfBoundsEqual(t *testing.T) {
	// the language has no null literal (it is not among the keywords in
	// token.go), so structural equality between two Null results is the
	// closest source-level exercise of OpEq's Null/Array/Map fallback.
	tests := []string{
		"[1, 2, 3][99] == [1, 2, 3][100]",
		"{1: 1}[0] == {2: 2}[0]",
	}
	for _, input := range tests {
		got := runProgram(t, input)
		if got.Type != BooleanType || !got.Boolean {
			t.Errorf("%q: got %+v, want true", input, got)
		}
	}
}

func TestVMEndToEnd(t *testing.T) {
	if got := runProgram(t, "let add = fn(x, y) { x + y }; add(5, 5)"); got.Integer != 10 {
		t.Errorf("add(5,5): got %+v", got)
	}
	if got := runProgram(t, "if (1 > 2) { 10 }"); got.Type != NullType {
		t.Errorf("if false no-else: got %+v, want null", got)
	}
	if got := runProgram(t, `{"a": 2}.a`); got.Integer != 2 {
		t.Errorf("field access: got %+v, want 2", got)
	}
}

func TestVMFormatNative(t *testing.T) {
	got := runProgram(t, `format("hello, {name}!", "World")`)
	if got.Type != StringType || got.String != "hello, World!" {
		t.Errorf("got %+v, want %q", got, "hello, World!")
	}
}

func TestVMFormatArityMismatchErrors(t *testing.T) {
	src, err := NewParser(`format("hello, {name}!", "World", "extra")`).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiler := NewCompiler()
	instructions, consts, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := NewVM(instructions, consts, compiler.symbols.Length())
	if err := vm.Run(); err == nil {
		t.Fatalf("expected a runtime error for extra format arguments")
	}
}

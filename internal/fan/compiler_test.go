package fan

import (
	"bytes"
	"testing"
)

func compileSource(t *testing.T, input string) ([]Opcode, []Value) {
	t.Helper()
	src, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	c := NewCompiler()
	instructions, consts, err := c.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return instructions, consts
}

func TestCompilerLetShadowing(t *testing.T) {
	got := runProgram(t, "let x = 1; let x = 2; x")
	if got.Integer != 2 {
		t.Fatalf("expected shadowed x to be 2, got %+v", got)
	}
}

func TestCompilerIntegerArithmeticOpcodes(t *testing.T) {
	instructions, consts := compileSource(t, "1 + 2")
	want := []Opcode{{Op: OpConst, A: 0}, {Op: OpConst, A: 1}, {Op: OpAdd}, {Op: OpPop}}
	if len(instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d: %+v", len(instructions), len(want), instructions)
	}
	for i := range want {
		if instructions[i] != want[i] {
			t.Fatalf("instruction %d: got %+v want %+v", i, instructions[i], want[i])
		}
	}
	if len(consts) != 2 || consts[0].Integer != 1 || consts[1].Integer != 2 {
		t.Fatalf("unexpected consts: %+v", consts)
	}
}

func TestCompilerNamedFunctionSelfReferenceUsesCurrent(t *testing.T) {
	// A named inner function's self-call must lower to OpCurrent, not a
	// GetGlobal/GetLocal lookup of its own not-yet-bound name; OpCurrent
	// lives in the *inner* scope's instructions, so it is only visible in
	// the corresponding FunctionType const, not the outer instruction list.
	_, consts := compileSource(t, "let x = fn foo() { foo() }; x;")
	found := false
	for _, v := range consts {
		if v.Type != FunctionType {
			continue
		}
		for _, oc := range v.Instructions {
			if oc.Op == OpCurrent {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected OpCurrent to be emitted for the named self-reference")
	}
}

// TestCompilerRequestAssertsBindStatusAndVersion exercises the full
// request-lowering pipeline end to end: it would have caught both
// assembleRequest defects — the unbound status/version assert operands,
// and the emitRecordExpr callee/argument push-order bug, which made every
// executed request fail with "not callable: string" at runtime.
func TestCompilerRequestAssertsBindStatusAndVersion(t *testing.T) {
	orig := Natives[NativeHTTP]
	defer func() { Natives[NativeHTTP] = orig }()
	Natives[NativeHTTP] = func(vm *VM, args []Value) (Value, error) {
		return NewMap(
			[]string{"request", "response", "time", "error"},
			[]Value{
				NewMap(nil, nil),
				NewMap([]string{"status", "version"}, []Value{IntegerValue(200), StringValue("HTTP/1.1")}),
				NewMap([]string{"total"}, []Value{IntegerValue(1_000_000)}),
				StringValue(""),
			},
		), nil
	}

	src, err := NewParser("request g() `GET http://x/`[status == 200]; test t { g(); }").Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	c := NewCompiler()
	instructions, consts, err := c.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	vm := NewVM(instructions, consts, c.GlobalsCount())
	vm.Stdout = &bytes.Buffer{}
	var gotName string
	var gotAsserts []Value
	vm.OnRecord = func(name string, asserts []Value, result Value) {
		gotName = name
		gotAsserts = asserts
	}
	if err := vm.Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	idx, ok := c.ResolveGlobal("t")
	if !ok {
		t.Fatalf("expected test t to resolve to a global")
	}
	if _, err := vm.CallClosure(vm.Global(idx), nil); err != nil {
		t.Fatalf("calling test t: %v", err)
	}

	if gotName != "g" {
		t.Fatalf("OnRecord name = %q, want %q", gotName, "g")
	}
	if len(gotAsserts) != 1 || gotAsserts[0].Type != MapType || !gotAsserts[0].Map["result"].Boolean {
		t.Fatalf("unexpected asserts: %+v", gotAsserts)
	}
}

func TestCompilerUndefinedVariableErrors(t *testing.T) {
	src, err := NewParser("foo_bar_undefined").Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, _, err = NewCompiler().Compile(src)
	if err == nil {
		t.Fatalf("expected an undefined-variable compile error")
	}
}

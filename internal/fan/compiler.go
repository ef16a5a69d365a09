package fan

import "fmt"

type scope struct {
	opcodes []Opcode
}

// Compiler lowers a Source into one flat instruction stream plus a shared
// constant pool, single pass, one scope per function literal being
// compiled. Requests and tests are desugared into synthesised closures
// before their bodies ever reach the emit step.
type Compiler struct {
	consts  []Value
	symbols *Symbols
	scopes  []*scope
	index   int
}

// NewCompiler creates a Compiler with an empty global scope.
func NewCompiler() *Compiler {
	return &Compiler{
		symbols: NewSymbols(),
		scopes:  []*scope{{}},
	}
}

func (c *Compiler) scope() *scope { return c.scopes[c.index] }

func (c *Compiler) enter() {
	c.symbols = c.symbols.Wrap()
	c.scopes = append(c.scopes, &scope{})
	c.index++
}

func (c *Compiler) leave() []Opcode {
	c.symbols = c.symbols.Peel()
	s := c.scopes[c.index]
	c.scopes = c.scopes[:c.index]
	c.index--
	return s.opcodes
}

func (c *Compiler) emit(op Opcode) int {
	c.scope().opcodes = append(c.scope().opcodes, op)
	return len(c.scope().opcodes) - 1
}

func (c *Compiler) emitOp(op Op, operands ...int) int {
	oc := Opcode{Op: op}
	if len(operands) > 0 {
		oc.A = operands[0]
	}
	if len(operands) > 1 {
		oc.B = operands[1]
	}
	return c.emit(oc)
}

func (c *Compiler) symbol(sym Symbol) int {
	switch sym.Kind {
	case GlobalSymbol:
		return c.emitOp(OpGetGlobal, sym.Index)
	case LocalSymbol:
		if sym.Free {
			return c.emitOp(OpGetFree, sym.Index)
		}
		return c.emitOp(OpGetLocal, sym.Index)
	default: // FunctionSymbol
		return c.emitOp(OpCurrent)
	}
}

func (c *Compiler) save(v Value) int {
	c.consts = append(c.consts, v)
	return len(c.consts) - 1
}

// Compile lowers src to its instruction stream, leaving the compiler ready
// to reuse its constant pool for nothing further (a fresh Compiler is
// expected per compiled program).
func (c *Compiler) Compile(src *Source) ([]Opcode, []Value, error) {
	if err := c.batch(src.Exprs); err != nil {
		return nil, nil, err
	}
	opcodes := c.scopes[c.index].opcodes
	return opcodes, c.consts, nil
}

// GlobalsCount returns the number of global slots assigned so far — the
// size a VM's globals vector needs after compiling a whole Source.
func (c *Compiler) GlobalsCount() int { return c.symbols.Length() }

// ResolveGlobal looks up name's global slot index, used by the driver to
// find a named test's closure after compilation without re-walking Exprs.
func (c *Compiler) ResolveGlobal(name string) (int, bool) {
	sym, ok := c.symbols.Resolve(name)
	if !ok || sym.Kind != GlobalSymbol {
		return 0, false
	}
	return sym.Index, true
}

func (c *Compiler) batch(exprs []Expr) error {
	for _, expr := range exprs {
		pop := true
		switch expr.(type) {
		case *LetExpr, *ReturnExpr, *RequestExpr, *TestExpr:
			pop = false
		}
		if err := c.assemble(expr); err != nil {
			return err
		}
		if pop {
			c.emitOp(OpPop)
		}
	}
	return nil
}

// block compiles a function/if body. An empty body emits OpNone; otherwise
// a trailing OpPop is stripped so the last expression's value stays on the
// stack as the block's value. If flag is set this is a function body and a
// terminal OpReturn is ensured.
func (c *Compiler) block(body []Expr, flag bool) error {
	if len(body) == 0 {
		c.emitOp(OpNone)
	} else {
		if err := c.batch(body); err != nil {
			return err
		}
		ops := c.scope().opcodes
		if len(ops) > 0 && ops[len(ops)-1].Op == OpPop {
			c.scope().opcodes = ops[:len(ops)-1]
		}
	}
	if flag {
		ops := c.scope().opcodes
		if len(ops) == 0 || ops[len(ops)-1].Op != OpReturn {
			c.emitOp(OpReturn)
		}
	}
	return nil
}

func (c *Compiler) assemble(expr Expr) error {
	switch e := expr.(type) {
	case *IdentExpr:
		if sym, ok := c.symbols.Resolve(e.Name); ok {
			c.symbol(sym)
			return nil
		}
		if idx, ok := LookupNative(e.Name); ok {
			c.emitOp(OpNative, idx)
			return nil
		}
		return newCompileError("undefined variable: %s", e.Name)

	case *IntegerExpr:
		c.emitOp(OpConst, c.save(IntegerValue(e.Value)))
	case *FloatExpr:
		c.emitOp(OpConst, c.save(FloatValue(e.Value)))
	case *BooleanExpr:
		if e.Value {
			c.emitOp(OpTrue)
		} else {
			c.emitOp(OpFalse)
		}
	case *StringExpr:
		c.emitOp(OpConst, c.save(StringValue(e.Value)))

	case *LetExpr:
		sym := c.symbols.Define(e.Name)
		if sym.Kind == FunctionSymbol {
			return newCompileError("cannot redefine function: %s", e.Name)
		}
		if err := c.assemble(e.Value); err != nil {
			return err
		}
		if sym.Kind == GlobalSymbol {
			c.emitOp(OpSetGlobal, sym.Index)
		} else {
			c.emitOp(OpSetLocal, sym.Index)
		}

	case *ReturnExpr:
		if err := c.assemble(e.Value); err != nil {
			return err
		}
		c.emitOp(OpReturn)

	case *UnaryExpr:
		if err := c.assemble(e.Right); err != nil {
			return err
		}
		switch e.Op {
		case Minus:
			c.emitOp(OpNeg)
		case Bang:
			c.emitOp(OpNot)
		default:
			return newCompileError("unknown unary operator")
		}

	case *BinaryExpr:
		return c.assembleBinary(e)

	case *ParenExpr:
		return c.assemble(e.Inner)

	case *IfExpr:
		return c.assembleIf(e)

	case *FunctionExpr:
		return c.assembleFunction(e)

	case *CallExpr:
		if err := c.assemble(e.Fn); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.assemble(arg); err != nil {
				return err
			}
		}
		c.emitOp(OpCall, len(e.Args))

	case *ArrayExpr:
		for _, el := range e.Elements {
			if err := c.assemble(el); err != nil {
				return err
			}
		}
		c.emitOp(OpArray, len(e.Elements))

	case *MapExpr:
		for _, pair := range e.Pairs {
			if err := c.assemble(pair.Key); err != nil {
				return err
			}
			if err := c.assemble(pair.Value); err != nil {
				return err
			}
		}
		c.emitOp(OpMap, len(e.Pairs))

	case *IndexExpr:
		if err := c.assemble(e.Left); err != nil {
			return err
		}
		if err := c.assemble(e.Index); err != nil {
			return err
		}
		c.emitOp(OpIndex)

	case *FieldExpr:
		if err := c.assemble(e.Left); err != nil {
			return err
		}
		c.emitOp(OpConst, c.save(StringValue(e.Name)))
		c.emitOp(OpField)

	case *RequestExpr:
		return c.assembleRequest(e)

	case *TestExpr:
		return c.assembleTest(e)

	case *emitRecordExpr:
		// The callee must be pushed before its arguments, matching
		// CallExpr's own ordering — vm.call reads it from
		// stack[sp-1-argc].
		c.emitOp(OpNative, NativeEmitRecord)
		if err := c.assemble(e.Name); err != nil {
			return err
		}
		if err := c.assemble(e.Asserts); err != nil {
			return err
		}
		if err := c.assemble(e.Result); err != nil {
			return err
		}
		c.emitOp(OpCall, 3)

	default:
		return newCompileError("unhandled expression type %T", expr)
	}
	return nil
}

func binOp(op Kind) (Op, bool) {
	switch op {
	case Plus:
		return OpAdd, true
	case Minus:
		return OpSub, true
	case Star:
		return OpMul, true
	case Slash:
		return OpDiv, true
	case Percent:
		return OpRem, true
	case Bx:
		return OpBx, true
	case Bo:
		return OpBo, true
	case Ba:
		return OpBa, true
	case Sl:
		return OpSl, true
	case Sr:
		return OpSr, true
	case Lt:
		return OpLt, true
	case Gt:
		return OpGt, true
	case Le:
		return OpLe, true
	case Ge:
		return OpGe, true
	case Eq:
		return OpEq, true
	case Ne:
		return OpNe, true
	}
	return 0, false
}

// assembleBinary desugars && and || into a call to a one-parameter
// closure whose body short-circuits on the already-evaluated left operand,
// so the right operand is only ever compiled (and therefore only ever
// executed) when reached — matching the VM's single-pass evaluation model
// with no dedicated short-circuit opcode.
func (c *Compiler) assembleBinary(e *BinaryExpr) error {
	switch e.Op {
	case Lo:
		return c.assemble(&CallExpr{
			Fn: &FunctionExpr{
				Params: []string{"left"},
				Body: []Expr{&IfExpr{
					Cond:        &IdentExpr{Name: "left"},
					Consequence: []Expr{&IdentExpr{Name: "left"}},
					Alternative: []Expr{e.Right},
				}},
			},
			Args: []Expr{e.Left},
		})
	case La:
		return c.assemble(&CallExpr{
			Fn: &FunctionExpr{
				Params: []string{"left"},
				Body: []Expr{&IfExpr{
					Cond:        &IdentExpr{Name: "left"},
					Consequence: []Expr{e.Right},
					Alternative: []Expr{&IdentExpr{Name: "left"}},
				}},
			},
			Args: []Expr{e.Left},
		})
	}
	if err := c.assemble(e.Left); err != nil {
		return err
	}
	if err := c.assemble(e.Right); err != nil {
		return err
	}
	op, ok := binOp(e.Op)
	if !ok {
		return newCompileError("unknown binary operator")
	}
	c.emitOp(op)
	return nil
}

func (c *Compiler) assembleIf(e *IfExpr) error {
	if err := c.assemble(e.Cond); err != nil {
		return err
	}
	judgeIdx := c.emitOp(OpJudge, -1)
	if err := c.block(e.Consequence, false); err != nil {
		return err
	}
	jumpIdx := c.emitOp(OpJump, -1)
	c.scope().opcodes[judgeIdx].A = len(c.scope().opcodes)
	if err := c.block(e.Alternative, false); err != nil {
		return err
	}
	c.scope().opcodes[jumpIdx].A = len(c.scope().opcodes)
	return nil
}

func (c *Compiler) assembleFunction(e *FunctionExpr) error {
	c.enter()
	if e.Name != "" {
		c.symbols.Function(e.Name)
	}
	for _, p := range e.Params {
		c.symbols.Define(p)
	}
	if err := c.block(e.Body, true); err != nil {
		return err
	}
	frees := c.symbols.Frees()
	length := c.symbols.Length()
	opcodes := c.leave()
	for _, free := range frees {
		c.symbol(free)
	}
	index := c.save(FunctionValue(opcodes, length, len(e.Params)))
	c.emitOp(OpClosure, index, len(frees))
	return nil
}

func (c *Compiler) assembleTest(e *TestExpr) error {
	c.enter()
	if err := c.block(e.Body, true); err != nil {
		return err
	}
	opcodes := c.leave()
	index := c.save(FunctionValue(opcodes, 0, 0))
	c.emitOp(OpClosure, index, 0)
	sym := c.symbols.Define(e.Name)
	if sym.Kind != GlobalSymbol {
		return newCompileError("cannot define test in local scope: %s", e.Name)
	}
	c.emitOp(OpSetGlobal, sym.Index)
	return nil
}

// assembleRequest lowers a request declaration into a named global
// function equivalent to:
//
//	let name = fn(params...) {
//	    let result = http(format(message, placeholders...));
//	    let response = result.response;
//	    let asserts = fn(status, version) {
//	        [ { expr, left, compare, right, result }, ... ]
//	    }(response.status, response.version);
//	    println("=== TEST  {name}");
//	    for each assert: println("{expr} => {left} {compare} {right} => {result}");
//	    let flag = if (true && asserts[0].result && ...) { "PASS" } else { "FAIL" };
//	    println("--- {flag}  {name} ({total}ms)", flag, name, result.time.total / 1000000.0);
//	    <emit record>(name, asserts, result);
//	    response
//	}
func (c *Compiler) assembleRequest(e *RequestExpr) error {
	pieces := SplitTemplate(e.Message)
	formatArgs := []Expr{&StringExpr{Value: e.Message}}
	for _, p := range pieces {
		if p.Ident != "" {
			formatArgs = append(formatArgs, &IdentExpr{Name: p.Ident})
		}
	}

	assertEntries := make([]Expr, 0, len(e.Asserts))
	for _, raw := range e.Asserts {
		bin, ok := raw.(*BinaryExpr)
		if !ok {
			continue // non-comparison assertion expressions are silently dropped
		}
		exprText := fmt.Sprintf("%s %s %s", renderSource(bin.Left), bin.Text, renderSource(bin.Right))
		assertEntries = append(assertEntries, &CallExpr{
			Fn: &FunctionExpr{Body: []Expr{
				&LetExpr{Name: "expr", Value: &StringExpr{Value: exprText}},
				&LetExpr{Name: "left", Value: bin.Left},
				&LetExpr{Name: "compare", Value: &StringExpr{Value: bin.Text}},
				&LetExpr{Name: "right", Value: bin.Right},
				&MapExpr{Pairs: []MapPair{
					{Key: &StringExpr{Value: "expr"}, Value: &IdentExpr{Name: "expr"}},
					{Key: &StringExpr{Value: "left"}, Value: &IdentExpr{Name: "left"}},
					{Key: &StringExpr{Value: "compare"}, Value: &IdentExpr{Name: "compare"}},
					{Key: &StringExpr{Value: "right"}, Value: &IdentExpr{Name: "right"}},
					{Key: &StringExpr{Value: "result"}, Value: &BinaryExpr{Op: bin.Op, Text: bin.Text, Left: &IdentExpr{Name: "left"}, Right: &IdentExpr{Name: "right"}}},
				}},
			}},
		})
	}

	logAssert := &LetExpr{Name: "log", Value: &FunctionExpr{
		Params: []string{"assert"},
		Body: []Expr{&CallExpr{
			Fn: &IdentExpr{Name: "println"},
			Args: []Expr{
				&StringExpr{Value: "{expr} => {left} {compare} {right} => {result}"},
				&FieldExpr{Left: &IdentExpr{Name: "assert"}, Name: "expr"},
				&FieldExpr{Left: &IdentExpr{Name: "assert"}, Name: "left"},
				&FieldExpr{Left: &IdentExpr{Name: "assert"}, Name: "compare"},
				&FieldExpr{Left: &IdentExpr{Name: "assert"}, Name: "right"},
				&FieldExpr{Left: &IdentExpr{Name: "assert"}, Name: "result"},
			},
		}},
	}}

	logCalls := make([]Expr, 0, len(assertEntries))
	for i := range assertEntries {
		logCalls = append(logCalls, &CallExpr{
			Fn:   &IdentExpr{Name: "log"},
			Args: []Expr{&IndexExpr{Left: &IdentExpr{Name: "asserts"}, Index: &IntegerExpr{Value: int64(i)}}},
		})
	}

	var flagCond Expr = &BooleanExpr{Value: true}
	for i := range assertEntries {
		flagCond = &BinaryExpr{Op: La, Text: "&&", Left: flagCond, Right: &FieldExpr{
			Left: &IndexExpr{Left: &IdentExpr{Name: "asserts"}, Index: &IntegerExpr{Value: int64(i)}},
			Name: "result",
		}}
	}

	body := []Expr{
		&LetExpr{Name: "result", Value: &CallExpr{
			Fn:   &IdentExpr{Name: "http"},
			Args: []Expr{&CallExpr{Fn: &IdentExpr{Name: "format"}, Args: formatArgs}},
		}},
		&LetExpr{Name: "response", Value: &FieldExpr{Left: &IdentExpr{Name: "result"}, Name: "response"}},
		&LetExpr{Name: "asserts", Value: &CallExpr{
			Fn: &FunctionExpr{
				Params: []string{"status", "version"},
				Body:   []Expr{&ArrayExpr{Elements: assertEntries}},
			},
			Args: []Expr{
				&FieldExpr{Left: &IdentExpr{Name: "response"}, Name: "status"},
				&FieldExpr{Left: &IdentExpr{Name: "response"}, Name: "version"},
			},
		}},
		&CallExpr{Fn: &IdentExpr{Name: "println"}, Args: []Expr{
			&StringExpr{Value: "=== TEST  {name}"}, &StringExpr{Value: e.Name},
		}},
		logAssert,
		&CallExpr{Fn: &FunctionExpr{Body: logCalls}},
		&LetExpr{Name: "flag", Value: &IfExpr{
			Cond:        flagCond,
			Consequence: []Expr{&StringExpr{Value: "PASS"}},
			Alternative: []Expr{&StringExpr{Value: "FAIL"}},
		}},
		&CallExpr{Fn: &IdentExpr{Name: "println"}, Args: []Expr{
			&StringExpr{Value: "--- {flag}  {name} ({total}ms)"},
			&IdentExpr{Name: "flag"},
			&StringExpr{Value: e.Name},
			&BinaryExpr{Op: Slash, Text: "/",
				Left:  &FieldExpr{Left: &FieldExpr{Left: &IdentExpr{Name: "result"}, Name: "time"}, Name: "total"},
				Right: &FloatExpr{Value: 1000000.0},
			},
		}},
		&emitRecordExpr{
			Name:    &StringExpr{Value: e.Name},
			Asserts: &IdentExpr{Name: "asserts"},
			Result:  &IdentExpr{Name: "result"},
		},
		&IdentExpr{Name: "response"},
	}

	return c.assemble(&LetExpr{Name: e.Name, Value: &FunctionExpr{Params: e.Params, Body: body}})
}

// renderSource renders an assert operand expression back to source text
// for the assertion's human-readable expr field; only the small subset of
// expressions legal on either side of a comparison needs covering.
func renderSource(e Expr) string {
	switch v := e.(type) {
	case *IdentExpr:
		return v.Name
	case *IntegerExpr:
		return fmt.Sprintf("%d", v.Value)
	case *FloatExpr:
		return fmt.Sprintf("%v", v.Value)
	case *StringExpr:
		return fmt.Sprintf("%q", v.Value)
	case *BooleanExpr:
		return fmt.Sprintf("%v", v.Value)
	case *FieldExpr:
		return renderSource(v.Left) + "." + v.Name
	case *IndexExpr:
		return renderSource(v.Left) + "[" + renderSource(v.Index) + "]"
	default:
		return "<expr>"
	}
}

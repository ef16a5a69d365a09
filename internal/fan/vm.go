package fan

import (
	"io"
	"math"
	"os"
)

const stackSize = 4096

// Frame is one call activation: the instruction stream being executed, the
// instruction pointer within it, the base pointer into the shared value
// stack where its locals begin, and its captured free variables.
type Frame struct {
	instructions []Opcode
	ip           int
	bp           int
	frees        []Value
	localsCount  int
	arity        int
}

// VM is a single-threaded stack machine. Concurrency comes from running
// independent VM instances — each with its own globals and stack — on
// separate goroutines that share one immutable constants pool by
// reference, never from sharing a VM across goroutines.
type VM struct {
	consts  []Value
	globals []Value
	stack   [stackSize]Value
	sp      int
	frames  []*Frame

	lastPopped Value
	Stdout     io.Writer

	// OnRecord is invoked by the compiler-only record-emit native installed
	// at the end of every lowered request closure (see assembleRequest);
	// nil (the default) means the driver isn't collecting records for this
	// run. asserts is the array of per-assertion maps built in script land;
	// result is the {request,response,time,error} map http() returned.
	OnRecord func(name string, asserts []Value, result Value)
}

// NewVM creates a VM ready to execute instructions against consts, with a
// fresh zero-valued globals vector of the given size (clone per worker so
// concurrent test iterations never share mutable global state).
func NewVM(instructions []Opcode, consts []Value, globalsCount int) *VM {
	vm := &VM{
		consts:  consts,
		globals: make([]Value, globalsCount),
		Stdout:  os.Stdout,
	}
	vm.frames = []*Frame{{instructions: instructions, localsCount: 0}}
	return vm
}

// CloneGlobals returns a copy of vm's globals vector sized to exactly n,
// used by the driver to give each worker its own post-compilation globals
// snapshot without re-running the compiler.
func (vm *VM) CloneGlobals(n int) []Value {
	out := make([]Value, n)
	copy(out, vm.globals)
	return out
}

// SeedGlobals installs a pre-populated globals vector, used by the driver
// to hand a freshly constructed worker VM the post-toplevel-run globals
// snapshot (functions, requests, let bindings) without re-running the
// compiler or the toplevel program for every worker.
func (vm *VM) SeedGlobals(globals []Value) {
	vm.globals = append([]Value(nil), globals...)
}

// Global reads one global slot, used by the driver to fetch a named
// test's or request's closure value after compilation.
func (vm *VM) Global(i int) Value { return vm.globals[i] }

// CallClosure invokes fn (which must be a Closure) with args and runs
// until it returns, yielding its return value. This lets the driver
// invoke a compiled test/request closure directly by global slot, once
// per iteration, without emitting call bytecode for every iteration.
func (vm *VM) CallClosure(fn Value, args []Value) (Value, error) {
	if fn.Type != ClosureType {
		return Null, newRuntimeError("not callable: %s", fn.typeName())
	}
	base := len(vm.frames)
	vm.push(fn)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.call(len(args)); err != nil {
		return Null, err
	}
	for len(vm.frames) > base {
		frame := vm.currentFrame()
		if frame.ip >= len(frame.instructions) {
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.sp = frame.bp - 1
			vm.push(Null)
			continue
		}
		op := frame.instructions[frame.ip]
		frame.ip++
		if err := vm.execute(op, frame); err != nil {
			return Null, err
		}
	}
	return vm.pop(), nil
}

func (vm *VM) currentFrame() *Frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	vm.lastPopped = vm.stack[vm.sp]
	return vm.stack[vm.sp]
}

// LastPopped is the value sitting just below the stack pointer after the
// program finishes — used by the driver to retrieve a program's terminal
// value in eval mode.
func (vm *VM) LastPopped() Value { return vm.lastPopped }

// Run executes instructions until the outermost frame completes.
func (vm *VM) Run() error {
	for {
		frame := vm.currentFrame()
		if frame.ip >= len(frame.instructions) {
			if len(vm.frames) == 1 {
				return nil
			}
			// An implicit fall-off-the-end acts like returning Null.
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.sp = frame.bp - 1
			vm.push(Null)
			continue
		}
		op := frame.instructions[frame.ip]
		frame.ip++

		if err := vm.execute(op, frame); err != nil {
			return err
		}
	}
}

func (vm *VM) execute(op Opcode, frame *Frame) error {
	switch op.Op {
	case OpNone:
		vm.push(Null)
	case OpConst:
		vm.push(vm.consts[op.A])
	case OpPop:
		vm.pop()
	case OpTrue:
		vm.push(BooleanValue(true))
	case OpFalse:
		vm.push(BooleanValue(false))
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpBx, OpBo, OpBa, OpSl, OpSr,
		OpLt, OpGt, OpLe, OpGe, OpEq, OpNe:
		right := vm.pop()
		left := vm.pop()
		result, err := binary(op.Op, left, right)
		if err != nil {
			return err
		}
		vm.push(result)
	case OpNeg:
		v := vm.pop()
		switch v.Type {
		case IntegerType:
			vm.push(IntegerValue(-v.Integer))
		case FloatType:
			vm.push(FloatValue(-v.Float))
		default:
			return newRuntimeError("unsupported operand for -: %s", v.typeName())
		}
	case OpNot:
		v := vm.pop()
		if v.Type == IntegerType {
			vm.push(IntegerValue(^v.Integer))
		} else {
			vm.push(BooleanValue(!v.Truthy()))
		}
	case OpJump:
		frame.ip = op.A
	case OpJudge:
		cond := vm.pop()
		if !cond.Truthy() {
			frame.ip = op.A
		}
	case OpGetGlobal:
		vm.growGlobals(op.A)
		vm.push(vm.globals[op.A])
	case OpSetGlobal:
		vm.growGlobals(op.A)
		vm.globals[op.A] = vm.pop()
	case OpGetLocal:
		vm.push(vm.stack[frame.bp+op.A])
	case OpSetLocal:
		vm.stack[frame.bp+op.A] = vm.pop()
	case OpGetFree:
		vm.push(frame.frees[op.A])
	case OpArray:
		elems := make([]Value, op.A)
		copy(elems, vm.stack[vm.sp-op.A:vm.sp])
		vm.sp -= op.A
		vm.push(ArrayValue(elems))
	case OpMap:
		n := op.A
		keys := make([]string, n)
		values := make([]Value, n)
		base := vm.sp - 2*n
		for i := 0; i < n; i++ {
			keys[i] = vm.stack[base+2*i].toString()
			values[i] = vm.stack[base+2*i+1]
		}
		vm.sp = base
		vm.push(NewMap(keys, values))
	case OpIndex:
		index := vm.pop()
		left := vm.pop()
		vm.push(indexValue(left, index))
	case OpField:
		key := vm.pop()
		obj := vm.pop()
		vm.push(fieldValue(obj, key))
	case OpNative:
		vm.push(NativeValue(op.A))
	case OpClosure:
		fn := vm.consts[op.A]
		free := make([]Value, op.B)
		copy(free, vm.stack[vm.sp-op.B:vm.sp])
		vm.sp -= op.B
		vm.push(Value{Type: ClosureType, Instructions: fn.Instructions, LocalsCount: fn.LocalsCount, Arity: fn.Arity, Free: free})
	case OpCurrent:
		vm.push(Value{Type: ClosureType, Instructions: frame.instructions, LocalsCount: frame.localsCount, Arity: frame.arity, Free: frame.frees})
	case OpCall:
		return vm.call(op.A)
	case OpReturn:
		ret := vm.pop()
		done := vm.frames[len(vm.frames)-1]
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.sp = done.bp - 1
		vm.push(ret)
	default:
		return newRuntimeError("unknown opcode")
	}
	return nil
}

func (vm *VM) growGlobals(index int) {
	for len(vm.globals) <= index {
		vm.globals = append(vm.globals, Null)
	}
}

func (vm *VM) call(argc int) error {
	callee := vm.stack[vm.sp-1-argc]
	switch callee.Type {
	case ClosureType:
		if callee.Arity != argc {
			return newRuntimeError("wrong number of arguments: want=%d, got=%d", callee.Arity, argc)
		}
		bp := vm.sp - argc
		frame := &Frame{
			instructions: callee.Instructions,
			bp:           bp,
			frees:        callee.Free,
			localsCount:  callee.LocalsCount,
			arity:        callee.Arity,
		}
		vm.sp = bp + callee.LocalsCount
		for i := argc; i < callee.LocalsCount; i++ {
			vm.stack[bp+i] = Null
		}
		vm.frames = append(vm.frames, frame)
		return nil
	case NativeType:
		args := make([]Value, argc)
		copy(args, vm.stack[vm.sp-argc:vm.sp])
		fn := Natives[callee.Native]
		result, err := fn(vm, args)
		if err != nil {
			return err
		}
		vm.sp = vm.sp - argc - 1
		vm.push(result)
		return nil
	default:
		return newRuntimeError("not callable: %s", callee.typeName())
	}
}

func indexValue(left, index Value) Value {
	switch left.Type {
	case ArrayType:
		if index.Type != IntegerType {
			return Null
		}
		i := index.Integer
		if i < 0 || i >= int64(len(left.Array)) {
			return Null
		}
		return left.Array[i]
	case MapType:
		v, ok := left.Map[index.toString()]
		if !ok {
			return Null
		}
		return v
	default:
		return Null
	}
}

func fieldValue(obj, key Value) Value {
	if obj.Type != MapType {
		return Null
	}
	v, ok := obj.Map[key.toString()]
	if !ok {
		return Null
	}
	return v
}

func binary(op Op, left, right Value) (Value, error) {
	if left.Type == StringType && right.Type == StringType {
		return binaryString(op, left.String, right.String)
	}
	if left.Type == BooleanType && right.Type == BooleanType {
		return binaryBool(op, left.Boolean, right.Boolean)
	}
	if (left.Type == IntegerType || left.Type == FloatType) && (right.Type == IntegerType || right.Type == FloatType) {
		if left.Type == IntegerType && right.Type == IntegerType {
			return binaryInt(op, left.Integer, right.Integer)
		}
		lf := left.Float
		if left.Type == IntegerType {
			lf = float64(left.Integer)
		}
		rf := right.Float
		if right.Type == IntegerType {
			rf = float64(right.Integer)
		}
		return binaryFloat(op, lf, rf)
	}
	// Null, Array, Map, and cross-type operands only ever support
	// structural == / != (spec §4.6's "equality is structural");
	// everything else on mismatched types is a runtime failure.
	switch op {
	case OpEq:
		return BooleanValue(left.Equal(right)), nil
	case OpNe:
		return BooleanValue(!left.Equal(right)), nil
	}
	return Null, newRuntimeError("type mismatch: %s vs %s", left.typeName(), right.typeName())
}

func binaryInt(op Op, l, r int64) (Value, error) {
	switch op {
	case OpAdd:
		return IntegerValue(l + r), nil
	case OpSub:
		return IntegerValue(l - r), nil
	case OpMul:
		return IntegerValue(l * r), nil
	case OpDiv:
		if r == 0 {
			return Null, newRuntimeError("division by zero")
		}
		return IntegerValue(l / r), nil
	case OpRem:
		if r == 0 {
			return Null, newRuntimeError("division by zero")
		}
		return IntegerValue(l % r), nil
	case OpBx:
		return IntegerValue(l ^ r), nil
	case OpBo:
		return IntegerValue(l | r), nil
	case OpBa:
		return IntegerValue(l & r), nil
	case OpSl:
		return IntegerValue(l << uint(r)), nil
	case OpSr:
		return IntegerValue(l >> uint(r)), nil
	case OpLt:
		return BooleanValue(l < r), nil
	case OpGt:
		return BooleanValue(l > r), nil
	case OpLe:
		return BooleanValue(l <= r), nil
	case OpGe:
		return BooleanValue(l >= r), nil
	case OpEq:
		return BooleanValue(l == r), nil
	case OpNe:
		return BooleanValue(l != r), nil
	}
	return Null, newRuntimeError("unsupported integer operator")
}

func binaryFloat(op Op, l, r float64) (Value, error) {
	switch op {
	case OpAdd:
		return FloatValue(l + r), nil
	case OpSub:
		return FloatValue(l - r), nil
	case OpMul:
		return FloatValue(l * r), nil
	case OpDiv:
		return FloatValue(l / r), nil
	case OpRem:
		return FloatValue(math.Mod(l, r)), nil
	case OpLt:
		return BooleanValue(l < r), nil
	case OpGt:
		return BooleanValue(l > r), nil
	case OpLe:
		return BooleanValue(l <= r), nil
	case OpGe:
		return BooleanValue(l >= r), nil
	case OpEq:
		return BooleanValue(l == r), nil
	case OpNe:
		return BooleanValue(l != r), nil
	}
	return Null, newRuntimeError("unsupported float operator")
}

func binaryBool(op Op, l, r bool) (Value, error) {
	switch op {
	case OpEq:
		return BooleanValue(l == r), nil
	case OpNe:
		return BooleanValue(l != r), nil
	case OpBo:
		return BooleanValue(l || r), nil
	case OpBa:
		return BooleanValue(l && r), nil
	case OpBx:
		return BooleanValue(l != r), nil
	}
	return Null, newRuntimeError("unsupported boolean operator")
}

func binaryString(op Op, l, r string) (Value, error) {
	switch op {
	case OpAdd:
		return StringValue(l + r), nil
	case OpEq:
		return BooleanValue(l == r), nil
	case OpNe:
		return BooleanValue(l != r), nil
	case OpLt:
		return BooleanValue(l < r), nil
	case OpGt:
		return BooleanValue(l > r), nil
	case OpLe:
		return BooleanValue(l <= r), nil
	case OpGe:
		return BooleanValue(l >= r), nil
	}
	return Null, newRuntimeError("unsupported string operator")
}

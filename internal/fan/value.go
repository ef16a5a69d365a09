package fan

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType tags the variant held by a Value.
type ValueType int

const (
	NullType ValueType = iota
	IntegerType
	FloatType
	BooleanType
	StringType
	ArrayType
	MapType
	FunctionType
	ClosureType
	NativeType
)

// Value is the tagged runtime representation every VM slot, global, local,
// and free variable holds. Only one of the typed fields is meaningful for
// a given Type; Function/Closure data is immutable once constructed.
type Value struct {
	Type ValueType

	Integer int64
	Float   float64
	Boolean bool
	String  string
	Array   []Value
	Map     map[string]Value
	// MapOrder preserves first-insertion key order for deterministic
	// iteration/printing; equal keys collapse to the most recent write's
	// value at the first write's position.
	MapOrder []string

	// Function/Closure
	Instructions []Opcode
	LocalsCount  int
	Arity        int
	Free         []Value // populated only for ClosureType

	Native int // index into the native registry, NativeType only
}

var Null = Value{Type: NullType}

func IntegerValue(i int64) Value  { return Value{Type: IntegerType, Integer: i} }
func FloatValue(f float64) Value  { return Value{Type: FloatType, Float: f} }
func BooleanValue(b bool) Value   { return Value{Type: BooleanType, Boolean: b} }
func StringValue(s string) Value  { return Value{Type: StringType, String: s} }
func ArrayValue(v []Value) Value  { return Value{Type: ArrayType, Array: v} }
func NativeValue(index int) Value { return Value{Type: NativeType, Native: index} }

func FunctionValue(instructions []Opcode, locals, arity int) Value {
	return Value{Type: FunctionType, Instructions: instructions, LocalsCount: locals, Arity: arity}
}

// NewMap builds a Map value from pairs in insertion order; a later
// duplicate key overwrites the earlier value but keeps the earlier
// position, matching a plain Go map assignment.
func NewMap(keys []string, values []Value) Value {
	m := make(map[string]Value, len(keys))
	order := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if !seen[k] {
			order = append(order, k)
			seen[k] = true
		}
		m[k] = values[i]
	}
	return Value{Type: MapType, Map: m, MapOrder: order}
}

// Truthy implements the truthiness rule used by OpJudge: only Boolean(false)
// and Null are falsy; every other value, strings included, is truthy.
func (v Value) Truthy() bool {
	switch v.Type {
	case NullType:
		return false
	case BooleanType:
		return v.Boolean
	default:
		return true
	}
}

// String-form used for map-key normalisation and default interpolation.
func (v Value) toString() string {
	switch v.Type {
	case NullType:
		return "null"
	case IntegerType:
		return strconv.FormatInt(v.Integer, 10)
	case FloatType:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case BooleanType:
		return strconv.FormatBool(v.Boolean)
	case StringType:
		return v.String
	case ArrayType:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.toString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapType:
		parts := make([]string, 0, len(v.MapOrder))
		for _, k := range v.MapOrder {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.Map[k].toString()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case FunctionType, ClosureType:
		return "<function>"
	case NativeType:
		return "<native>"
	default:
		return ""
	}
}

// ToDisplayString is the public form used by print/println/format natives.
func (v Value) ToDisplayString() string { return v.toString() }

func (v Value) typeName() string {
	switch v.Type {
	case NullType:
		return "null"
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	case BooleanType:
		return "boolean"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case MapType:
		return "map"
	case FunctionType, ClosureType:
		return "function"
	case NativeType:
		return "native"
	default:
		return "unknown"
	}
}

// Equal implements structural equality used by == and !=.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		// allow cross int/float comparison
		if v.Type == IntegerType && o.Type == FloatType {
			return float64(v.Integer) == o.Float
		}
		if v.Type == FloatType && o.Type == IntegerType {
			return v.Float == float64(o.Integer)
		}
		return false
	}
	switch v.Type {
	case NullType:
		return true
	case IntegerType:
		return v.Integer == o.Integer
	case FloatType:
		return v.Float == o.Float
	case BooleanType:
		return v.Boolean == o.Boolean
	case StringType:
		return v.String == o.String
	case ArrayType:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case MapType:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, val := range v.Map {
			ov, ok := o.Map[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

package fan

// Expr is the sum type over every expression-tree node the parser
// produces. Request and Test declarations are parsed into their own
// variants (not normal expressions) but still flow through Source.Exprs in
// file order so the compiler lowers everything with one pass.
type Expr interface{ exprNode() }

type IntegerExpr struct{ Value int64 }
type FloatExpr struct{ Value float64 }
type BooleanExpr struct{ Value bool }
type StringExpr struct{ Value string }
type IdentExpr struct{ Name string }

type ArrayExpr struct{ Elements []Expr }

type MapPair struct{ Key, Value Expr }
type MapExpr struct{ Pairs []MapPair }

type IndexExpr struct{ Left, Index Expr }
type FieldExpr struct {
	Left Expr
	Name string
}

type LetExpr struct {
	Name  string
	Value Expr
}

type UnaryExpr struct {
	Op    Kind
	Right Expr
}

type BinaryExpr struct {
	Op    Kind
	Text  string // verbatim operator text, used by request-assert lowering
	Left  Expr
	Right Expr
}

type ParenExpr struct{ Inner Expr }

type IfExpr struct {
	Cond        Expr
	Consequence []Expr
	Alternative []Expr
}

type CallExpr struct {
	Fn   Expr
	Args []Expr
}

type FunctionExpr struct {
	Name   string // empty when anonymous
	Params []string
	Body   []Expr
}

type ReturnExpr struct{ Value Expr }

// RequestExpr is a request template declaration: request name(params) `text`
// [asserts]. Asserts are binary comparison expressions evaluated against
// the lowered response scope; non-comparison asserts are dropped at
// compile time per spec.
type RequestExpr struct {
	Name    string
	Params  []string
	Message string
	Asserts []Expr
}

// TestExpr is a named test block, lowered to a zero-arity closure bound to
// a global slot named after the test.
type TestExpr struct {
	Name string
	Body []Expr
}

// emitRecordExpr is inserted only by assembleRequest's lowering; it is not
// reachable from parsed source. It compiles to a direct call of the
// compiler-only NativeEmitRecord slot, handing the driver's record sink
// the request's name, its evaluated assertion array, and the http()
// result map, so C9 persistence doesn't need a dedicated opcode.
type emitRecordExpr struct {
	Name    Expr
	Asserts Expr
	Result  Expr
}

func (*IntegerExpr) exprNode()  {}
func (*FloatExpr) exprNode()    {}
func (*BooleanExpr) exprNode()  {}
func (*StringExpr) exprNode()   {}
func (*IdentExpr) exprNode()    {}
func (*ArrayExpr) exprNode()    {}
func (*MapExpr) exprNode()      {}
func (*IndexExpr) exprNode()    {}
func (*FieldExpr) exprNode()    {}
func (*LetExpr) exprNode()      {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*ParenExpr) exprNode()    {}
func (*IfExpr) exprNode()       {}
func (*CallExpr) exprNode()     {}
func (*FunctionExpr) exprNode() {}
func (*ReturnExpr) exprNode()     {}
func (*RequestExpr) exprNode()    {}
func (*TestExpr) exprNode()       {}
func (*emitRecordExpr) exprNode() {}

// Source is the parse result for one concatenated program: an ordered
// top-level expression list plus name-indexed tables for requests and
// tests, so the driver can resolve a test by name without re-walking Exprs.
type Source struct {
	Exprs    []Expr
	Requests map[string]*RequestExpr
	Tests    map[string]*TestExpr
}

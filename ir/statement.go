package ir

// Statement is one node of a function body. Statements carry side effects
// and structured control flow; values live in the expression arena.
type Statement struct {
	Kind StatementKind
}

// StatementKind is implemented by every Stmt* variant.
type StatementKind interface {
	statementKind()
}

// Block is a list of statements run in order. Expressions emitted in a block
// leave scope at its end.
type Block []Statement

// Range is a half-open run of expression handles.
type Range struct {
	Start ExpressionHandle
	End   ExpressionHandle
}

// StmtEmit brings Range into scope for the statements after it.
type StmtEmit struct {
	Range Range
}

func (StmtEmit) statementKind() {}

// StmtBlock is a nested scope.
type StmtBlock struct {
	Block Block
}

func (StmtBlock) statementKind() {}

// StmtIf runs Accept when Condition is true and Reject otherwise. There are
// no phi nodes; results flow out of a branch through a local variable.
type StmtIf struct {
	Condition ExpressionHandle
	Accept    Block
	Reject    Block
}

func (StmtIf) statementKind() {}

// StmtSwitch picks a case by the value of an i32 or u32 selector. Case
// values are unique and exactly one case is the default.
type StmtSwitch struct {
	Selector ExpressionHandle
	Cases    []SwitchCase
}

func (StmtSwitch) statementKind() {}

// SwitchCase is one arm of a StmtSwitch. With FallThrough set control
// continues into the next case.
type SwitchCase struct {
	Value       SwitchValue
	Body        Block
	FallThrough bool
}

// SwitchValue is SwitchValueI32, SwitchValueU32 or SwitchValueDefault.
type SwitchValue interface {
	switchValue()
}

type SwitchValueI32 int32

func (SwitchValueI32) switchValue() {}

type SwitchValueU32 uint32

func (SwitchValueU32) switchValue() {}

type SwitchValueDefault struct{}

func (SwitchValueDefault) switchValue() {}

// StmtLoop repeats Body then Continuing until a break, return or kill.
// Continue jumps to Continuing. BreakIf, when set, is a bool evaluated at the
// end of Continuing that leaves the loop when true.
type StmtLoop struct {
	Body       Block
	Continuing Block
	BreakIf    *ExpressionHandle
}

func (StmtLoop) statementKind() {}

// StmtBreak leaves the innermost loop or switch. It is rejected inside a
// continuing block.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue jumps to the continuing block of the innermost loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtReturn leaves the function. Value must match the function result.
type StmtReturn struct {
	Value *ExpressionHandle
}

func (StmtReturn) statementKind() {}

// StmtKill discards the fragment invocation.
type StmtKill struct{}

func (StmtKill) statementKind() {}

// StmtBarrier is a workgroup control barrier. Flags select the memory it
// also orders; zero means execution only.
type StmtBarrier struct {
	Flags BarrierFlags
}

func (StmtBarrier) statementKind() {}

// BarrierFlags is a bit set of memory classes ordered by a barrier.
type BarrierFlags uint32

const (
	BarrierStorage BarrierFlags = 1 << iota
	BarrierWorkGroup
	BarrierSubGroup
	BarrierTexture
)

// StmtStore writes Value through Pointer. For a pointer to an atomic the
// value is the atomic's scalar.
type StmtStore struct {
	Pointer ExpressionHandle
	Value   ExpressionHandle
}

func (StmtStore) statementKind() {}

// StmtImageStore writes a texel to a storage image.
type StmtImageStore struct {
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Value      ExpressionHandle
}

func (StmtImageStore) statementKind() {}

// StmtAtomic applies Fun to the atomic behind Pointer. Result, when set,
// names an ExprAtomicResult that receives the previous value and comes into
// scope here.
type StmtAtomic struct {
	Pointer ExpressionHandle
	Fun     AtomicFunction
	Value   ExpressionHandle
	Result  *ExpressionHandle
}

func (StmtAtomic) statementKind() {}

// AtomicFunction is the read-modify-write operation of a StmtAtomic.
type AtomicFunction interface {
	atomicFunction()
}

type (
	AtomicAdd         struct{}
	AtomicSubtract    struct{}
	AtomicAnd         struct{}
	AtomicExclusiveOr struct{}
	AtomicInclusiveOr struct{}
	AtomicMin         struct{}
	AtomicMax         struct{}
)

func (AtomicAdd) atomicFunction()         {}
func (AtomicSubtract) atomicFunction()    {}
func (AtomicAnd) atomicFunction()         {}
func (AtomicExclusiveOr) atomicFunction() {}
func (AtomicInclusiveOr) atomicFunction() {}
func (AtomicMin) atomicFunction()         {}
func (AtomicMax) atomicFunction()         {}

// AtomicExchange swaps in Value. With Compare set it only swaps when the
// current value equals Compare.
type AtomicExchange struct {
	Compare *ExpressionHandle
}

func (AtomicExchange) atomicFunction() {}

// StmtCall invokes Function. Result, when set, names the ExprCallResult of
// the same function, which comes into scope here.
type StmtCall struct {
	Function  FunctionHandle
	Arguments []ExpressionHandle
	Result    *ExpressionHandle
}

func (StmtCall) statementKind() {}

// Emitter tracks runs of freshly appended expressions so a producer can cover
// them with Emit statements.
type Emitter struct {
	start *ExpressionHandle
}

// Start begins a run at the next expression to be appended to arena.
func (e *Emitter) Start(arena *Arena[Expression]) {
	h := ExpressionHandle(arena.Len())
	e.start = &h
}

// Finish ends the current run and returns the Emit statement covering it,
// or false if nothing was appended since Start (or Start was never called).
func (e *Emitter) Finish(arena *Arena[Expression]) (Statement, bool) {
	if e.start == nil {
		return Statement{}, false
	}
	start := *e.start
	e.start = nil
	end := ExpressionHandle(arena.Len())
	if start == end {
		return Statement{}, false
	}
	return Statement{Kind: StmtEmit{Range: Range{Start: start, End: end}}}, true
}

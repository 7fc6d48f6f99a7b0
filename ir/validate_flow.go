package ir

// scopeKind is an enclosing construct that gives Break and Continue meaning.
type scopeKind uint8

const (
	scopeLoopBody scopeKind = iota
	scopeContinuing
	scopeSwitchCase
)

// exits summarizes how control can leave a statement or block.
type exits struct {
	fallsThrough bool
	breaks       bool
	continues    bool
}

// flowState is the per-function state of the control-flow pass.
type flowState struct {
	fn      *Function
	handle  FunctionHandle
	info    *FunctionInfo
	scopes  []scopeKind
	emitted []bool
	// blocks[i] lists the expressions brought into scope by the i-th open
	// block; they leave scope when it closes.
	blocks [][]ExpressionHandle
}

// checkFunctions is the third pass: statement structure, emit scoping and
// statement typing, followed by the uniformity and usage analysis.
func (s *validation) checkFunctions() error {
	for fh, fn := range s.module.Functions.All() {
		s.enterFunction(fh, fn)
		err := s.checkFunctionFlow(fh, fn)
		if err == nil {
			err = s.analyzeFunction(fh, fn)
		}
		s.leaveFunction()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *validation) checkFunctionFlow(fh FunctionHandle, fn *Function) error {
	f := &flowState{
		fn:      fn,
		handle:  fh,
		info:    &s.info.Functions[fh],
		emitted: make([]bool, fn.Expressions.Len()),
	}

	s.next = 0
	ex, err := s.checkBlock(f, fn.Body)
	s.stmt = -1
	if err != nil {
		return err
	}
	if fn.Result != nil && ex.fallsThrough {
		return s.errorf(KindMissingReturn, []HandleRef{functionRef(fh)},
			"function %q returns %s but control can reach the end of its body",
			fn.Name, FormatTypeHandle(&s.module.Types, fn.Result.Type))
	}
	return nil
}

func (f *flowState) openBlock() {
	f.blocks = append(f.blocks, nil)
}

func (f *flowState) closeBlock() {
	top := len(f.blocks) - 1
	for _, h := range f.blocks[top] {
		f.emitted[h] = false
	}
	f.blocks = f.blocks[:top]
}

func (f *flowState) bringIntoScope(h ExpressionHandle) {
	f.emitted[h] = true
	top := len(f.blocks) - 1
	f.blocks[top] = append(f.blocks[top], h)
}

func (s *validation) checkBlock(f *flowState, block Block) (exits, error) {
	f.openBlock()
	ex, err := s.checkStatements(f, block)
	f.closeBlock()
	return ex, err
}

// checkStatements walks a statement list inside an already open block.
// Statements after one that cannot fall through are still checked but do
// not affect the block's exits.
func (s *validation) checkStatements(f *flowState, block Block) (exits, error) {
	out := exits{fallsThrough: true}
	for _, st := range block {
		ex, err := s.checkStatement(f, st)
		if err != nil {
			return exits{}, err
		}
		if out.fallsThrough {
			out.fallsThrough = ex.fallsThrough
			out.breaks = out.breaks || ex.breaks
			out.continues = out.continues || ex.continues
		}
	}
	return out, nil
}

func (s *validation) withScope(f *flowState, kind scopeKind, run func() (exits, error)) (exits, error) {
	f.scopes = append(f.scopes, kind)
	ex, err := run()
	f.scopes = f.scopes[:len(f.scopes)-1]
	return ex, err
}

func (f *flowState) inContinuing() bool {
	for _, sc := range f.scopes {
		if sc == scopeContinuing {
			return true
		}
	}
	return false
}

// typeOf returns the resolved type of a function expression.
func (s *validation) typeOf(f *flowState, h ExpressionHandle) TypeInner {
	return f.info.Expressions[h].Type.Inner(&s.module.Types)
}

// use requires h to be in scope at the current statement.
func (s *validation) use(f *flowState, h ExpressionHandle) error {
	if !needsEmit(f.fn.Expressions.at(h).Kind) || f.emitted[h] {
		return nil
	}
	return s.errorf(KindNotEmitted, []HandleRef{exprRef(h)},
		"expression %d is used before it is emitted", h)
}

func (s *validation) useAll(f *flowState, hs ...ExpressionHandle) error {
	for _, h := range hs {
		if err := s.use(f, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *validation) useOpt(f *flowState, h *ExpressionHandle) error {
	if h == nil {
		return nil
	}
	return s.use(f, *h)
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (s *validation) checkStatement(f *flowState, st Statement) (exits, error) {
	index := s.next
	s.next++
	s.stmt = index
	next := exits{fallsThrough: true}

	switch k := st.Kind.(type) {
	case StmtEmit:
		return next, s.checkEmit(f, k.Range)

	case StmtBlock:
		ex, err := s.checkBlock(f, k.Block)
		return ex, err

	case StmtIf:
		if err := s.use(f, k.Condition); err != nil {
			return exits{}, err
		}
		if cond := s.typeOf(f, k.Condition); cond != TypeInner(ScalarBoolean) {
			if err := s.errorf(KindMismatch, []HandleRef{exprRef(k.Condition)},
				"if condition is %s; expected bool", FormatType(&s.module.Types, cond)); err != nil {
				return exits{}, err
			}
		}
		accept, err := s.checkBlock(f, k.Accept)
		if err != nil {
			return exits{}, err
		}
		reject, err := s.checkBlock(f, k.Reject)
		if err != nil {
			return exits{}, err
		}
		return exits{
			fallsThrough: accept.fallsThrough || reject.fallsThrough,
			breaks:       accept.breaks || reject.breaks,
			continues:    accept.continues || reject.continues,
		}, nil

	case StmtSwitch:
		return s.checkSwitch(f, index, k)

	case StmtLoop:
		return s.checkLoop(f, index, k)

	case StmtBreak:
		for i := len(f.scopes) - 1; i >= 0; i-- {
			switch f.scopes[i] {
			case scopeLoopBody, scopeSwitchCase:
				return exits{breaks: true}, nil
			case scopeContinuing:
				return exits{}, s.errorf(KindInvalidInContinuing, nil, "break inside a continuing block")
			}
		}
		return exits{}, s.errorf(KindBreakOutsideLoop, nil, "break outside of a loop or switch")

	case StmtContinue:
		for i := len(f.scopes) - 1; i >= 0; i-- {
			switch f.scopes[i] {
			case scopeLoopBody:
				return exits{continues: true}, nil
			case scopeContinuing:
				return exits{}, s.errorf(KindInvalidInContinuing, nil, "continue inside a continuing block")
			}
		}
		return exits{}, s.errorf(KindBreakOutsideLoop, nil, "continue outside of a loop")

	case StmtReturn:
		return exits{}, s.checkReturn(f, k)

	case StmtKill:
		if f.inContinuing() {
			return exits{}, s.errorf(KindInvalidInContinuing, nil, "kill inside a continuing block")
		}
		return exits{}, nil

	case StmtBarrier:
		f.info.Flags |= FlagUsesBarrier
		return next, nil

	case StmtStore:
		return next, s.checkStore(f, k)

	case StmtImageStore:
		return next, s.checkImageStore(f, k)

	case StmtAtomic:
		return next, s.checkAtomic(f, k)

	case StmtCall:
		return next, s.checkCall(f, k)

	default:
		return exits{}, s.errorf(KindInvalidOperand, nil, "unknown statement kind %T", st.Kind)
	}
}

func (s *validation) checkEmit(f *flowState, r Range) error {
	for h := r.Start; h < r.End; h++ {
		kind := f.fn.Expressions.at(h).Kind
		switch kind.(type) {
		case ExprCallResult, ExprAtomicResult:
			if err := s.errorf(KindInvalidOperand, []HandleRef{exprRef(h)},
				"expression %d is produced by a statement and cannot be emitted", h); err != nil {
				return err
			}
			continue
		}
		if !needsEmit(kind) {
			continue
		}
		if f.emitted[h] {
			if err := s.errorf(KindAlreadyEmitted, []HandleRef{exprRef(h)}, "expression %d is emitted twice", h); err != nil {
				return err
			}
			continue
		}
		err := forEachOperand(kind, func(op ExpressionHandle) error {
			if needsEmit(f.fn.Expressions.at(op).Kind) && !f.emitted[op] {
				return s.errorf(KindNotEmitted, []HandleRef{exprRef(h), exprRef(op)},
					"expression %d reads expression %d, which is not in scope", h, op)
			}
			return nil
		})
		if err != nil {
			return err
		}
		f.bringIntoScope(h)
	}
	return nil
}

func (s *validation) checkSwitch(f *flowState, index int, k StmtSwitch) (exits, error) {
	if err := s.use(f, k.Selector); err != nil {
		return exits{}, err
	}
	selector, _ := s.typeOf(f, k.Selector).(ScalarType)
	if selector != ScalarI32 && selector != ScalarU32 {
		if err := s.errorf(KindMismatch, []HandleRef{exprRef(k.Selector)},
			"switch selector is %s; expected i32 or u32", FormatType(&s.module.Types, s.typeOf(f, k.Selector))); err != nil {
			return exits{}, err
		}
	}

	defaults := 0
	seen := make(map[SwitchValue]int, len(k.Cases))
	for i, c := range k.Cases {
		switch v := c.Value.(type) {
		case SwitchValueDefault:
			defaults++
			continue
		case SwitchValueI32:
			if selector.Kind != ScalarSint {
				if err := s.errorf(KindMismatch, nil, "case %d value %d is i32 but the selector is not", i, int32(v)); err != nil {
					return exits{}, err
				}
			}
		case SwitchValueU32:
			if selector.Kind != ScalarUint {
				if err := s.errorf(KindMismatch, nil, "case %d value %d is u32 but the selector is not", i, uint32(v)); err != nil {
					return exits{}, err
				}
			}
		default:
			if err := s.errorf(KindInvalidSwitch, nil, "case %d has no value", i); err != nil {
				return exits{}, err
			}
			continue
		}
		if first, dup := seen[c.Value]; dup {
			if err := s.errorf(KindInvalidSwitch, nil, "cases %d and %d share the value %v", first, i, c.Value); err != nil {
				return exits{}, err
			}
		} else {
			seen[c.Value] = i
		}
	}
	if defaults != 1 {
		if err := s.errorf(KindInvalidSwitch, nil, "switch needs exactly one default case, has %d", defaults); err != nil {
			return exits{}, err
		}
	}
	if n := len(k.Cases); n > 0 && k.Cases[n-1].FallThrough {
		if err := s.errorf(KindInvalidSwitch, nil, "the last case cannot fall through"); err != nil {
			return exits{}, err
		}
	}

	var out exits
	for _, c := range k.Cases {
		ex, err := s.withScope(f, scopeSwitchCase, func() (exits, error) {
			return s.checkBlock(f, c.Body)
		})
		if err != nil {
			return exits{}, err
		}
		// A break leaves the switch; falling out of a fall-through case
		// enters the next case instead.
		if ex.breaks || (ex.fallsThrough && !c.FallThrough) {
			out.fallsThrough = true
		}
		out.continues = out.continues || ex.continues
	}
	s.stmt = index
	return out, nil
}

func (s *validation) checkLoop(f *flowState, index int, k StmtLoop) (exits, error) {
	f.openBlock()
	defer f.closeBlock()

	body, err := s.withScope(f, scopeLoopBody, func() (exits, error) {
		return s.checkStatements(f, k.Body)
	})
	if err != nil {
		return exits{}, err
	}

	// The continuing block sees what the body emitted, and break-if sees
	// what the continuing block emitted.
	f.openBlock()
	defer f.closeBlock()
	if _, err := s.withScope(f, scopeContinuing, func() (exits, error) {
		return s.checkStatements(f, k.Continuing)
	}); err != nil {
		return exits{}, err
	}

	s.stmt = index
	if k.BreakIf != nil {
		if err := s.use(f, *k.BreakIf); err != nil {
			return exits{}, err
		}
		if cond := s.typeOf(f, *k.BreakIf); cond != TypeInner(ScalarBoolean) {
			if err := s.errorf(KindMismatch, []HandleRef{exprRef(*k.BreakIf)},
				"break-if condition is %s; expected bool", FormatType(&s.module.Types, cond)); err != nil {
				return exits{}, err
			}
		}
	}
	return exits{fallsThrough: body.breaks || k.BreakIf != nil}, nil
}

func (s *validation) checkReturn(f *flowState, k StmtReturn) error {
	if f.inContinuing() {
		return s.errorf(KindInvalidInContinuing, nil, "return inside a continuing block")
	}
	types := &s.module.Types
	switch {
	case f.fn.Result == nil && k.Value != nil:
		return s.errorf(KindMismatch, []HandleRef{exprRef(*k.Value)}, "function %q returns nothing but a value is returned", f.fn.Name)
	case f.fn.Result != nil && k.Value == nil:
		return s.errorf(KindMismatch, nil, "function %q must return %s", f.fn.Name, FormatTypeHandle(types, f.fn.Result.Type))
	case k.Value != nil:
		if err := s.use(f, *k.Value); err != nil {
			return err
		}
		got := f.info.Expressions[*k.Value].Type
		if !ResolutionsEqual(types, got, resolved(f.fn.Result.Type)) {
			return s.errorf(KindMismatch, []HandleRef{exprRef(*k.Value)}, "returned %s from a function returning %s",
				FormatResolution(types, got), FormatTypeHandle(types, f.fn.Result.Type))
		}
	}
	return nil
}

// rootGlobal follows Access and AccessIndex chains down to a global.
func rootGlobal(exprs *Arena[Expression], h ExpressionHandle) (GlobalVariableHandle, bool) {
	for {
		switch e := exprs.at(h).Kind.(type) {
		case ExprAccess:
			h = e.Base
		case ExprAccessIndex:
			h = e.Base
		case ExprGlobalVariable:
			return e.Variable, true
		default:
			return 0, false
		}
	}
}

// readOnlyRefs names the pointer and, when it has one, the global behind it.
func readOnlyRefs(exprs *Arena[Expression], pointer ExpressionHandle) []HandleRef {
	refs := []HandleRef{exprRef(pointer)}
	if g, ok := rootGlobal(exprs, pointer); ok {
		refs = append(refs, globalRef(g))
	}
	return refs
}

func (s *validation) checkStore(f *flowState, k StmtStore) error {
	if err := s.useAll(f, k.Pointer, k.Value); err != nil {
		return err
	}
	types := &s.module.Types

	var (
		pointee TypeInner
		space   AddressSpace
		access  StorageAccess
	)
	switch p := s.typeOf(f, k.Pointer).(type) {
	case PointerType:
		pointee, space, access = types.at(p.Base).Inner, p.Space, p.Access
	case ValuePointerType:
		space, access = p.Space, p.Access
		pointee = p.Scalar
		if p.Size != nil {
			pointee = VectorType{Size: *p.Size, Scalar: p.Scalar}
		}
	default:
		return s.errorf(KindNotPointer, []HandleRef{exprRef(k.Pointer)}, "store through %s, which is not a pointer",
			FormatType(types, p))
	}
	if _, ok := pointee.(AtomicType); ok {
		return s.errorf(KindInvalidOperand, []HandleRef{exprRef(k.Pointer)}, "atomics must be written with an atomic statement")
	}
	if !Writable(space, access) {
		return s.errorf(KindWriteToReadOnly, readOnlyRefs(&f.fn.Expressions, k.Pointer),
			"store through a read-only pointer into the %s address space", space)
	}
	if value := s.typeOf(f, k.Value); !InnerEqual(types, value, pointee) {
		return s.errorf(KindMismatch, []HandleRef{exprRef(k.Pointer), exprRef(k.Value)},
			"stored %s through a pointer to %s", FormatType(types, value), FormatType(types, pointee))
	}
	return nil
}

func (s *validation) checkImageStore(f *flowState, k StmtImageStore) error {
	if err := s.useAll(f, k.Image, k.Coordinate, k.Value); err != nil {
		return err
	}
	if err := s.useOpt(f, k.ArrayIndex); err != nil {
		return err
	}
	types := &s.module.Types

	img, ok := s.typeOf(f, k.Image).(ImageType)
	if !ok || img.Class != ImageClassStorage {
		return s.errorf(KindInvalidOperand, []HandleRef{exprRef(k.Image)}, "image store into %s; expected a storage image",
			FormatType(types, s.typeOf(f, k.Image)))
	}
	if img.Access&StorageStore == 0 {
		return s.errorf(KindWriteToReadOnly, readOnlyRefs(&f.fn.Expressions, k.Image), "image store into a read-only storage image")
	}
	if coord := s.typeOf(f, k.Coordinate); !integerCoordinate(img.Dim, coord) {
		return s.errorf(KindMismatch, []HandleRef{exprRef(k.Coordinate)}, "store coordinate is %s; expected %s",
			FormatType(types, coord), FormatType(types, coordinateType(img.Dim, ScalarSint)))
	}
	if (k.ArrayIndex != nil) != img.Arrayed {
		return s.errorf(KindMismatch, []HandleRef{exprRef(k.Image)}, "array index given for %s: %t",
			FormatType(types, img), k.ArrayIndex != nil)
	}
	if k.ArrayIndex != nil && !integerScalar(s.typeOf(f, *k.ArrayIndex)) {
		return s.errorf(KindMismatch, []HandleRef{exprRef(*k.ArrayIndex)}, "array index is not an integer scalar")
	}
	if value, want := s.typeOf(f, k.Value), texelType(img); value != want {
		return s.errorf(KindMismatch, []HandleRef{exprRef(k.Value)}, "stored texel is %s; expected %s",
			FormatType(types, value), FormatType(types, want))
	}
	return nil
}

//nolint:gocyclo,cyclop // atomic pointer, operand and result rules
func (s *validation) checkAtomic(f *flowState, k StmtAtomic) error {
	if err := s.useAll(f, k.Pointer, k.Value); err != nil {
		return err
	}
	var compare *ExpressionHandle
	if ex, ok := k.Fun.(AtomicExchange); ok {
		compare = ex.Compare
	} else if k.Fun == nil {
		return s.errorf(KindInvalidOperand, nil, "atomic statement has no function")
	}
	if err := s.useOpt(f, compare); err != nil {
		return err
	}
	types := &s.module.Types

	ptr, ok := s.typeOf(f, k.Pointer).(PointerType)
	if !ok {
		return s.errorf(KindNotPointer, []HandleRef{exprRef(k.Pointer)}, "atomic on %s, which is not a pointer",
			FormatType(types, s.typeOf(f, k.Pointer)))
	}
	at, ok := types.at(ptr.Base).Inner.(AtomicType)
	if !ok {
		return s.errorf(KindInvalidOperand, []HandleRef{exprRef(k.Pointer)}, "atomic on a pointer to %s",
			FormatTypeHandle(types, ptr.Base))
	}
	if ptr.Space != SpaceStorage && ptr.Space != SpaceWorkGroup {
		return s.errorf(KindInvalidOperand, []HandleRef{exprRef(k.Pointer)}, "atomics live in storage or workgroup memory, not %s", ptr.Space)
	}
	if !Writable(ptr.Space, ptr.Access) {
		return s.errorf(KindWriteToReadOnly, readOnlyRefs(&f.fn.Expressions, k.Pointer), "atomic on a read-only pointer")
	}
	for _, h := range []*ExpressionHandle{&k.Value, compare} {
		if h == nil {
			continue
		}
		if v := s.typeOf(f, *h); v != TypeInner(at.Scalar) {
			return s.errorf(KindMismatch, []HandleRef{exprRef(*h)}, "atomic operand is %s; expected %s",
				FormatType(types, v), scalarName(at.Scalar))
		}
	}

	if k.Result == nil {
		return nil
	}
	r := *k.Result
	if _, ok := f.fn.Expressions.at(r).Kind.(ExprAtomicResult); !ok {
		return s.errorf(KindInvalidOperand, []HandleRef{exprRef(r)}, "atomic result %d is not an AtomicResult expression", r)
	}
	if got := s.typeOf(f, r); got != TypeInner(at.Scalar) {
		return s.errorf(KindMismatch, []HandleRef{exprRef(r)}, "atomic result is %s; expected %s",
			FormatType(types, got), scalarName(at.Scalar))
	}
	if f.emitted[r] {
		return s.errorf(KindAlreadyEmitted, []HandleRef{exprRef(r)}, "atomic result %d is already in scope", r)
	}
	f.bringIntoScope(r)
	return nil
}

func (s *validation) checkCall(f *flowState, k StmtCall) error {
	if err := s.useAll(f, k.Arguments...); err != nil {
		return err
	}
	types := &s.module.Types
	callee := s.module.Functions.at(k.Function)
	callRef := functionRef(k.Function)

	if len(k.Arguments) != len(callee.Arguments) {
		return s.errorf(KindInvalidCall, []HandleRef{callRef}, "function %q takes %d arguments, got %d",
			callee.Name, len(callee.Arguments), len(k.Arguments))
	}
	for i, arg := range k.Arguments {
		got := f.info.Expressions[arg].Type
		if !ResolutionsEqual(types, got, resolved(callee.Arguments[i].Type)) {
			return s.errorf(KindMismatch, []HandleRef{callRef, exprRef(arg)}, "argument %d of %q is %s; expected %s",
				i, callee.Name, FormatResolution(types, got), FormatTypeHandle(types, callee.Arguments[i].Type))
		}
	}

	if (k.Result != nil) != (callee.Result != nil) {
		return s.errorf(KindInvalidCall, []HandleRef{callRef}, "call result presence does not match function %q", callee.Name)
	}
	if k.Result == nil {
		return nil
	}
	r := *k.Result
	if cr, ok := f.fn.Expressions.at(r).Kind.(ExprCallResult); !ok || cr.Function != k.Function {
		return s.errorf(KindInvalidCall, []HandleRef{callRef, exprRef(r)}, "call result %d is not a CallResult of %q", r, callee.Name)
	}
	if f.emitted[r] {
		return s.errorf(KindAlreadyEmitted, []HandleRef{exprRef(r)}, "call result %d is already in scope", r)
	}
	f.bringIntoScope(r)
	return nil
}

package ir

import (
	"cmp"
	"fmt"
	"slices"
)

// disruptorKind is why control flow stopped being uniform.
type disruptorKind uint8

const (
	disruptNone disruptorKind = iota
	disruptExpression
	disruptReturn
	disruptKill
)

type disruptor struct {
	kind disruptorKind
	expr ExpressionHandle
}

func (d disruptor) or(other disruptor) disruptor {
	if d.kind != disruptNone {
		return d
	}
	return other
}

func (d disruptor) String() string {
	switch d.kind {
	case disruptExpression:
		return fmt.Sprintf("of the non-uniform value of expression %d", d.expr)
	case disruptReturn:
		return "of an earlier return"
	case disruptKill:
		return "of an earlier kill"
	default:
		return "of nothing"
	}
}

func fromNonUniform(u Uniformity) disruptor {
	if u.NonUniformResult != nil {
		return disruptor{kind: disruptExpression, expr: *u.NonUniformResult}
	}
	return disruptor{}
}

// exitFlags records the ways a block may leave the function.
type exitFlags uint8

const (
	exitMayReturn exitFlags = 1 << iota
	exitMayKill
)

func fromExit(e exitFlags) disruptor {
	switch {
	case e&exitMayReturn != 0:
		return disruptor{kind: disruptReturn}
	case e&exitMayKill != 0:
		return disruptor{kind: disruptKill}
	}
	return disruptor{}
}

// analyzer fills in the usage and uniformity part of a FunctionInfo.
type analyzer struct {
	s        *validation
	fn       *Function
	info     *FunctionInfo
	sampling map[SamplingKey]struct{}
}

// analyzeFunction computes reference counts, global uses, the sampling set
// and uniformity for a function whose callees were analyzed before it.
func (s *validation) analyzeFunction(fh FunctionHandle, fn *Function) error {
	info := &s.info.Functions[fh]
	info.GlobalUses = make([]GlobalUse, s.module.GlobalVariables.Len())
	a := &analyzer{s: s, fn: fn, info: info, sampling: make(map[SamplingKey]struct{})}

	for h, expr := range fn.Expressions.All() {
		u, err := a.expression(h, expr.Kind)
		if err != nil {
			return err
		}
		info.Expressions[h].Uniformity = u
	}

	s.next = 0
	u, exit, err := a.block(fn.Body, disruptor{})
	s.stmt = -1
	if err != nil {
		return err
	}
	info.Uniformity = u
	if exit&exitMayKill != 0 {
		info.Flags |= FlagMayKill
	}
	if exit&exitMayReturn != 0 {
		info.Flags |= FlagMayReturn
	}

	info.SamplingSet = make([]SamplingKey, 0, len(a.sampling))
	for key := range a.sampling {
		info.SamplingSet = append(info.SamplingSet, key)
	}
	slices.SortFunc(info.SamplingSet, func(x, y SamplingKey) int {
		return cmp.Or(cmp.Compare(x.Image, y.Image), cmp.Compare(x.Sampler, y.Sampler))
	})
	return nil
}

// ref counts a use of h and marks the global behind it with use.
func (a *analyzer) ref(h ExpressionHandle, use GlobalUse) *ExpressionHandle {
	e := &a.info.Expressions[h]
	e.RefCount++
	if e.AssignableGlobal != nil {
		a.info.GlobalUses[*e.AssignableGlobal] |= use
	}
	return e.Uniformity.NonUniformResult
}

func (a *analyzer) read(h ExpressionHandle) *ExpressionHandle {
	return a.ref(h, GlobalUseRead)
}

func (a *analyzer) readOpt(h *ExpressionHandle) *ExpressionHandle {
	if h == nil {
		return nil
	}
	return a.read(*h)
}

// assignable counts a use of a pointer base and passes its global on to
// the expression being analyzed.
func (a *analyzer) assignable(h ExpressionHandle, self ExpressionHandle) *ExpressionHandle {
	e := &a.info.Expressions[h]
	e.RefCount++
	if e.AssignableGlobal != nil {
		g := *e.AssignableGlobal
		a.info.Expressions[self].AssignableGlobal = &g
	}
	return e.Uniformity.NonUniformResult
}

func firstOf(hs ...*ExpressionHandle) *ExpressionHandle {
	for _, h := range hs {
		if h != nil {
			return h
		}
	}
	return nil
}

// uniformBuiltin reports builtins whose value is the same for every
// invocation of a draw or dispatch group.
func uniformBuiltin(b BuiltinValue) bool {
	switch b {
	case BuiltinFrontFacing, BuiltinWorkGroupID, BuiltinNumWorkGroups:
		return true
	}
	return false
}

func (a *analyzer) globalUniform(gv *GlobalVariable) bool {
	switch gv.Space {
	case SpaceUniform, SpacePushConstant, SpaceHandle:
		return true
	case SpaceStorage:
		return effectiveAccess(gv.Space, gv.Access)&StorageStore == 0
	case SpaceInput:
		b, ok := gv.Binding.(BuiltinBinding)
		return ok && uniformBuiltin(b.Builtin)
	default:
		return false
	}
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (a *analyzer) expression(h ExpressionHandle, kind ExpressionKind) (Uniformity, error) {
	self := h
	nonUniform := func() Uniformity { return Uniformity{NonUniformResult: &self} }

	switch e := kind.(type) {
	case ExprAccess:
		return Uniformity{NonUniformResult: firstOf(a.assignable(e.Base, h), a.read(e.Index))}, nil
	case ExprAccessIndex:
		return Uniformity{NonUniformResult: a.assignable(e.Base, h)}, nil
	case Literal, ExprConstant, ExprZeroValue:
		return Uniformity{}, nil
	case ExprCompose:
		var nur *ExpressionHandle
		for _, c := range e.Components {
			nur = firstOf(nur, a.read(c))
		}
		return Uniformity{NonUniformResult: nur}, nil
	case ExprSplat:
		return Uniformity{NonUniformResult: a.read(e.Value)}, nil
	case ExprSwizzle:
		return Uniformity{NonUniformResult: a.read(e.Vector)}, nil
	case ExprFunctionArgument:
		return nonUniform(), nil
	case ExprGlobalVariable:
		g := e.Variable
		a.info.Expressions[h].AssignableGlobal = &g
		if a.globalUniform(a.s.module.GlobalVariables.at(g)) {
			return Uniformity{}, nil
		}
		return nonUniform(), nil
	case ExprLocalVariable:
		return nonUniform(), nil
	case ExprLoad:
		return Uniformity{NonUniformResult: a.read(e.Pointer)}, nil

	case ExprImageSample:
		image, okImage := rootGlobal(&a.fn.Expressions, e.Image)
		sampler, okSampler := rootGlobal(&a.fn.Expressions, e.Sampler)
		if !okImage || !okSampler {
			bad := e.Image
			if okImage {
				bad = e.Sampler
			}
			if err := a.s.errorf(KindExpectedGlobalVariable, []HandleRef{exprRef(h), exprRef(bad)},
				"sampled image and sampler must come from global variables, but expression %d does not", bad); err != nil {
				return Uniformity{}, err
			}
		} else {
			a.sampling[SamplingKey{Image: image, Sampler: sampler}] = struct{}{}
		}

		var require *ExpressionHandle
		var levelNUR *ExpressionHandle
		switch l := e.Level.(type) {
		case SampleLevelAuto:
			require = &self
			a.info.Flags |= FlagUsesImplicitLod
		case SampleLevelBias:
			require = &self
			a.info.Flags |= FlagUsesImplicitLod
			levelNUR = a.read(l.Bias)
		case SampleLevelExact:
			levelNUR = a.read(l.Level)
		case SampleLevelGradient:
			levelNUR = firstOf(a.read(l.X), a.read(l.Y))
		}
		nur := firstOf(
			a.read(e.Image), a.read(e.Sampler), a.read(e.Coordinate),
			a.readOpt(e.ArrayIndex), a.readOpt(e.Offset), levelNUR, a.readOpt(e.DepthRef),
		)
		return Uniformity{NonUniformResult: nur, RequireUniform: require}, nil

	case ExprImageLoad:
		nur := firstOf(a.read(e.Image), a.read(e.Coordinate), a.readOpt(e.ArrayIndex), a.readOpt(e.Sample), a.readOpt(e.Level))
		return Uniformity{NonUniformResult: nur}, nil
	case ExprImageQuery:
		nur := a.ref(e.Image, GlobalUseQuery)
		if q, ok := e.Query.(ImageQuerySize); ok {
			nur = firstOf(nur, a.readOpt(q.Level))
		}
		return Uniformity{NonUniformResult: nur}, nil
	case ExprUnary:
		return Uniformity{NonUniformResult: a.read(e.Expr)}, nil
	case ExprBinary:
		return Uniformity{NonUniformResult: firstOf(a.read(e.Left), a.read(e.Right))}, nil
	case ExprSelect:
		return Uniformity{NonUniformResult: firstOf(a.read(e.Condition), a.read(e.Accept), a.read(e.Reject))}, nil
	case ExprDerivative:
		a.info.Flags |= FlagUsesDerivatives
		return Uniformity{NonUniformResult: a.read(e.Expr), RequireUniform: &self}, nil
	case ExprRelational:
		return Uniformity{NonUniformResult: a.read(e.Argument)}, nil
	case ExprMath:
		return Uniformity{NonUniformResult: firstOf(a.read(e.Arg), a.readOpt(e.Arg1), a.readOpt(e.Arg2), a.readOpt(e.Arg3))}, nil
	case ExprAs:
		return Uniformity{NonUniformResult: a.read(e.Expr)}, nil
	case ExprCallResult:
		return a.s.info.Functions[e.Function].Uniformity, nil
	case ExprAtomicResult:
		return nonUniform(), nil
	case ExprArrayLength:
		return Uniformity{NonUniformResult: a.ref(e.Array, GlobalUseQuery)}, nil
	}
	return Uniformity{}, nil
}

// call merges what a callee does into the caller.
func (a *analyzer) call(callee FunctionHandle) (Uniformity, exitFlags) {
	other := &a.s.info.Functions[callee]
	for _, key := range other.SamplingSet {
		a.sampling[key] = struct{}{}
	}
	for i, use := range other.GlobalUses {
		a.info.GlobalUses[i] |= use
	}
	a.info.Flags |= other.Flags & (FlagUsesDerivatives | FlagUsesImplicitLod | FlagUsesBarrier)
	var exit exitFlags
	if other.Flags&FlagMayKill != 0 {
		exit |= exitMayKill
	}
	return other.Uniformity, exit
}

// block analyzes statements under the given disruptor. An operation that
// needs uniform control flow fails once anything before it on the path may
// have made control flow non-uniform.
//
//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (a *analyzer) block(block Block, dis disruptor) (Uniformity, exitFlags, error) {
	var (
		blockU    Uniformity
		blockExit exitFlags
	)
	for _, st := range block {
		index := a.s.next
		a.s.next++
		a.s.stmt = index

		var (
			cur  Uniformity
			exit exitFlags
		)
		switch k := st.Kind.(type) {
		case StmtEmit:
			for h := k.Range.Start; h < k.Range.End; h++ {
				if req := a.info.Expressions[h].Uniformity.RequireUniform; req != nil {
					cur.RequireUniform = req
					break
				}
			}
		case StmtBreak, StmtContinue, StmtBarrier:
		case StmtKill:
			exit = exitMayKill
		case StmtBlock:
			u, e, err := a.block(k.Block, dis)
			if err != nil {
				return Uniformity{}, 0, err
			}
			cur, exit = u, e
		case StmtIf:
			cond := Uniformity{NonUniformResult: a.read(k.Condition)}
			branch := dis.or(fromNonUniform(cond))
			accU, accExit, err := a.block(k.Accept, branch)
			if err != nil {
				return Uniformity{}, 0, err
			}
			rejU, rejExit, err := a.block(k.Reject, branch)
			if err != nil {
				return Uniformity{}, 0, err
			}
			cur, exit = cond.or(accU).or(rejU), accExit|rejExit
		case StmtSwitch:
			cur = Uniformity{NonUniformResult: a.read(k.Selector)}
			branch := dis.or(fromNonUniform(cur))
			caseDis := branch
			for _, c := range k.Cases {
				u, e, err := a.block(c.Body, caseDis)
				if err != nil {
					return Uniformity{}, 0, err
				}
				cur, exit = cur.or(u), exit|e
				if c.FallThrough {
					caseDis = caseDis.or(fromExit(e))
				} else {
					caseDis = branch
				}
			}
		case StmtLoop:
			bodyU, bodyExit, err := a.block(k.Body, dis)
			if err != nil {
				return Uniformity{}, 0, err
			}
			contU, contExit, err := a.block(k.Continuing, dis.or(fromExit(bodyExit)))
			if err != nil {
				return Uniformity{}, 0, err
			}
			a.s.stmt = index
			cur, exit = bodyU.or(contU), bodyExit|contExit
			if k.BreakIf != nil {
				cur = cur.or(Uniformity{NonUniformResult: a.read(*k.BreakIf)})
			}
		case StmtReturn:
			if k.Value != nil {
				cur.NonUniformResult = a.read(*k.Value)
			}
			exit = exitMayReturn
		case StmtStore:
			cur.NonUniformResult = firstOf(a.ref(k.Pointer, GlobalUseWrite), a.read(k.Value))
		case StmtImageStore:
			cur.NonUniformResult = firstOf(a.readOpt(k.ArrayIndex), a.ref(k.Image, GlobalUseWrite),
				a.read(k.Coordinate), a.read(k.Value))
		case StmtAtomic:
			nur := firstOf(a.ref(k.Pointer, GlobalUseRead|GlobalUseWrite), a.read(k.Value))
			if ex, ok := k.Fun.(AtomicExchange); ok {
				nur = firstOf(nur, a.readOpt(ex.Compare))
			}
			cur.NonUniformResult = nur
		case StmtCall:
			u, e := a.call(k.Function)
			cur, exit = u, e
			for _, arg := range k.Arguments {
				cur = cur.or(Uniformity{NonUniformResult: a.read(arg)})
			}
			if k.Result != nil {
				cur = cur.or(Uniformity{NonUniformResult: a.read(*k.Result)})
			}
		}

		if err := a.requireUniform(cur, dis); err != nil {
			return Uniformity{}, 0, err
		}
		dis = dis.or(fromExit(exit))
		blockU = blockU.or(cur)
		blockExit |= exit
	}
	return blockU, blockExit, nil
}

func (a *analyzer) requireUniform(u Uniformity, dis disruptor) error {
	if u.RequireUniform == nil || dis.kind == disruptNone {
		return nil
	}
	return a.s.errorf(KindNonUniformControlFlow, []HandleRef{exprRef(*u.RequireUniform)},
		"expression %d needs uniform control flow, which is broken because %s", *u.RequireUniform, dis)
}

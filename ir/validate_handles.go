package ir

// checkHandles is the first pass. It proves every handle lands inside its
// arena and that references within one arena point strictly backwards, so
// the later passes may index arenas directly.
func (s *validation) checkHandles() error {
	m := s.module

	for h, ty := range m.Types.All() {
		if err := s.checkTypeHandles(h, ty.Inner); err != nil {
			return err
		}
	}

	for h, c := range m.Constants.All() {
		if !m.Types.Contains(c.Type) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{constantRef(h), typeRef(c.Type)},
				"constant %q has type %d outside the type arena (len %d)", c.Name, c.Type, m.Types.Len()); err != nil {
				return err
			}
		}
		if !m.GlobalExpressions.Contains(c.Init) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{constantRef(h), globalExprRef(c.Init)},
				"constant %q initializer %d is outside the global expression arena (len %d)",
				c.Name, c.Init, m.GlobalExpressions.Len()); err != nil {
				return err
			}
		}
	}

	for h, expr := range m.GlobalExpressions.All() {
		if err := s.checkExpressionHandles(h, expr.Kind); err != nil {
			return err
		}
	}

	for h, gv := range m.GlobalVariables.All() {
		if !m.Types.Contains(gv.Type) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{globalRef(h), typeRef(gv.Type)},
				"global %q has type %d outside the type arena", gv.Name, gv.Type); err != nil {
				return err
			}
		}
		if gv.Init != nil && !m.GlobalExpressions.Contains(*gv.Init) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{globalRef(h), globalExprRef(*gv.Init)},
				"global %q initializer %d is outside the global expression arena", gv.Name, *gv.Init); err != nil {
				return err
			}
		}
	}

	for fh, fn := range m.Functions.All() {
		s.enterFunction(fh, fn)
		err := s.checkFunctionHandles(fh, fn)
		s.leaveFunction()
		if err != nil {
			return err
		}
	}

	for i, ep := range m.EntryPoints.Slice() {
		if !m.Functions.Contains(ep.Function) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{entryPointRef(i), functionRef(ep.Function)},
				"entry point %q targets function %d outside the function arena (len %d)",
				ep.Name, ep.Function, m.Functions.Len()); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkTypeHandles requires every handle inside a type to name an earlier
// type. This also rules out recursive types.
func (s *validation) checkTypeHandles(self TypeHandle, inner TypeInner) error {
	check := func(ref TypeHandle) error {
		if ref >= self {
			return s.errorf(KindForwardReference, []HandleRef{typeRef(self), typeRef(ref)},
				"type %d refers to type %d, which does not precede it", self, ref)
		}
		return nil
	}

	switch t := inner.(type) {
	case nil:
		return s.errorf(KindInvalidType, []HandleRef{typeRef(self)}, "type %d has no definition", self)
	case ArrayType:
		return check(t.Base)
	case BindingArrayType:
		return check(t.Base)
	case PointerType:
		return check(t.Base)
	case StructType:
		for _, member := range t.Members {
			if err := check(member.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkExpressionHandles checks one expression of the arena selected by the
// current context: the global expression arena, or s.fn's arena.
//
//nolint:gocyclo,cyclop // one case per expression kind with arena references
func (s *validation) checkExpressionHandles(self ExpressionHandle, kind ExpressionKind) error {
	m := s.module
	global := s.fn == nil
	here := s.exprRef(self)

	if kind == nil {
		return s.errorf(KindInvalidOperand, []HandleRef{here}, "expression %d has no kind", self)
	}
	if global && !constExpression(kind) {
		return s.errorf(KindInvalidConstant, []HandleRef{here},
			"expression %d (%T) cannot be evaluated at module scope", self, kind)
	}

	typeIn := func(h TypeHandle) error {
		if !m.Types.Contains(h) {
			return s.errorf(KindOutOfBounds, []HandleRef{here, typeRef(h)},
				"expression %d uses type %d outside the type arena", self, h)
		}
		return nil
	}

	switch e := kind.(type) {
	case ExprConstant:
		if !m.Constants.Contains(e.Constant) {
			return s.errorf(KindOutOfBounds, []HandleRef{here, constantRef(e.Constant)},
				"expression %d uses constant %d outside the constant arena", self, e.Constant)
		}
		// Constants are evaluated in global expression order, so a global
		// expression may only read a constant whose initializer precedes it.
		if c := m.Constants.at(e.Constant); global && c.Init >= self {
			return s.errorf(KindForwardReference, []HandleRef{here, constantRef(e.Constant), globalExprRef(c.Init)},
				"global expression %d reads constant %q whose initializer %d does not precede it",
				self, c.Name, c.Init)
		}
	case ExprZeroValue:
		if err := typeIn(e.Type); err != nil {
			return err
		}
	case ExprCompose:
		if err := typeIn(e.Type); err != nil {
			return err
		}
	case ExprAtomicResult:
		if err := typeIn(e.Type); err != nil {
			return err
		}
	case ExprFunctionArgument:
		if int(e.Index) >= len(s.fn.Arguments) {
			return s.errorf(KindOutOfBounds, []HandleRef{here},
				"expression %d reads argument %d of a function with %d arguments", self, e.Index, len(s.fn.Arguments))
		}
	case ExprGlobalVariable:
		if !m.GlobalVariables.Contains(e.Variable) {
			return s.errorf(KindOutOfBounds, []HandleRef{here, globalRef(e.Variable)},
				"expression %d uses global %d outside the global variable arena", self, e.Variable)
		}
	case ExprLocalVariable:
		if !s.fn.LocalVars.Contains(e.Variable) {
			return s.errorf(KindOutOfBounds, []HandleRef{here, localRef(e.Variable)},
				"expression %d uses local %d outside the local variable arena", self, e.Variable)
		}
	case ExprCallResult:
		if !m.Functions.Contains(e.Function) {
			return s.errorf(KindOutOfBounds, []HandleRef{here, functionRef(e.Function)},
				"expression %d is the result of function %d outside the function arena", self, e.Function)
		}
	}

	return forEachOperand(kind, func(ref ExpressionHandle) error {
		if ref >= self {
			return s.errorf(KindForwardReference, []HandleRef{here, s.exprRef(ref)},
				"expression %d refers to expression %d, which does not precede it", self, ref)
		}
		return nil
	})
}

func (s *validation) checkFunctionHandles(fh FunctionHandle, fn *Function) error {
	m := s.module

	for i, arg := range fn.Arguments {
		if !m.Types.Contains(arg.Type) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{functionRef(fh), typeRef(arg.Type)},
				"argument %d (%q) has type %d outside the type arena", i, arg.Name, arg.Type); err != nil {
				return err
			}
		}
	}
	if fn.Result != nil && !m.Types.Contains(fn.Result.Type) {
		if err := s.errorf(KindOutOfBounds, []HandleRef{functionRef(fh), typeRef(fn.Result.Type)},
			"result type %d is outside the type arena", fn.Result.Type); err != nil {
			return err
		}
	}

	for lh, local := range fn.LocalVars.All() {
		if !m.Types.Contains(local.Type) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{localRef(lh), typeRef(local.Type)},
				"local %q has type %d outside the type arena", local.Name, local.Type); err != nil {
				return err
			}
		}
		if local.Init != nil && !fn.Expressions.Contains(*local.Init) {
			if err := s.errorf(KindOutOfBounds, []HandleRef{localRef(lh), exprRef(*local.Init)},
				"local %q initializer %d is outside the expression arena", local.Name, *local.Init); err != nil {
				return err
			}
		}
	}

	for h, expr := range fn.Expressions.All() {
		if err := s.checkExpressionHandles(h, expr.Kind); err != nil {
			return err
		}
	}

	s.next = 0
	err := s.checkBlockHandles(fh, fn.Body)
	s.stmt = -1
	return err
}

// checkBlockHandles walks statements in pre-order, numbering them the same
// way the control-flow pass does.
//
//nolint:gocyclo,cyclop // one case per statement kind
func (s *validation) checkBlockHandles(fh FunctionHandle, block Block) error {
	exprs := &s.fn.Expressions
	in := func(h ExpressionHandle) error {
		if !exprs.Contains(h) {
			return s.errorf(KindOutOfBounds, []HandleRef{exprRef(h)},
				"statement uses expression %d outside the expression arena (len %d)", h, exprs.Len())
		}
		return nil
	}
	inOpt := func(h *ExpressionHandle) error {
		if h == nil {
			return nil
		}
		return in(*h)
	}

	for _, st := range block {
		index := s.next
		s.next++
		s.stmt = index

		var err error
		switch k := st.Kind.(type) {
		case nil:
			err = s.errorf(KindInvalidOperand, nil, "statement has no kind")
		case StmtEmit:
			r := k.Range
			switch {
			case r.Start > r.End:
				err = s.errorf(KindOutOfBounds, nil, "emit range [%d, %d) is reversed", r.Start, r.End)
			case int(r.End) > exprs.Len():
				err = s.errorf(KindOutOfBounds, []HandleRef{exprRef(r.End - 1)},
					"emit range [%d, %d) exceeds the expression arena (len %d)", r.Start, r.End, exprs.Len())
			}
		case StmtBlock:
			err = s.checkBlockHandles(fh, k.Block)
		case StmtIf:
			if err = in(k.Condition); err == nil {
				if err = s.checkBlockHandles(fh, k.Accept); err == nil {
					err = s.checkBlockHandles(fh, k.Reject)
				}
			}
		case StmtSwitch:
			err = in(k.Selector)
			for i := 0; err == nil && i < len(k.Cases); i++ {
				err = s.checkBlockHandles(fh, k.Cases[i].Body)
			}
		case StmtLoop:
			if err = s.checkBlockHandles(fh, k.Body); err == nil {
				if err = s.checkBlockHandles(fh, k.Continuing); err == nil {
					s.stmt = index
					err = inOpt(k.BreakIf)
				}
			}
		case StmtReturn:
			err = inOpt(k.Value)
		case StmtStore:
			if err = in(k.Pointer); err == nil {
				err = in(k.Value)
			}
		case StmtImageStore:
			for _, h := range []ExpressionHandle{k.Image, k.Coordinate, k.Value} {
				if err = in(h); err != nil {
					break
				}
			}
			if err == nil {
				err = inOpt(k.ArrayIndex)
			}
		case StmtAtomic:
			if err = in(k.Pointer); err == nil {
				if err = in(k.Value); err == nil {
					err = inOpt(k.Result)
				}
			}
			if ex, ok := k.Fun.(AtomicExchange); ok && err == nil {
				err = inOpt(ex.Compare)
			}
		case StmtCall:
			err = s.checkCallHandles(fh, k)
			for i := 0; err == nil && i < len(k.Arguments); i++ {
				err = in(k.Arguments[i])
			}
			if err == nil {
				err = inOpt(k.Result)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkCallHandles only admits calls to functions declared earlier, which
// keeps the call graph acyclic.
func (s *validation) checkCallHandles(caller FunctionHandle, call StmtCall) error {
	if !s.module.Functions.Contains(call.Function) {
		return s.errorf(KindOutOfBounds, []HandleRef{functionRef(call.Function)},
			"call to function %d outside the function arena (len %d)", call.Function, s.module.Functions.Len())
	}
	if call.Function >= caller {
		return s.errorf(KindForwardReference, []HandleRef{functionRef(caller), functionRef(call.Function)},
			"call to function %d, which does not precede the caller %d; recursion is not allowed",
			call.Function, caller)
	}
	return nil
}

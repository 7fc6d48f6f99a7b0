package ir

// resolver computes and checks the type of every expression in one arena.
// Results are memoized by handle; because operands always precede their
// users, a single forward sweep visits each expression once.
type resolver struct {
	s      *validation
	types  *Arena[Type]
	fn     *Function // nil for the global expression arena
	exprs  *Arena[Expression]
	cache  []TypeResolution
	failed []bool
}

func newResolver(s *validation, fn *Function) *resolver {
	exprs := &s.module.GlobalExpressions
	if fn != nil {
		exprs = &fn.Expressions
	}
	return &resolver{
		s:      s,
		types:  &s.module.Types,
		fn:     fn,
		exprs:  exprs,
		cache:  make([]TypeResolution, exprs.Len()),
		failed: make([]bool, exprs.Len()),
	}
}

// resolveAll resolves the arena in handle order, reporting a diagnostic for
// every expression whose operands are resolved but whose own check fails.
func (r *resolver) resolveAll() error {
	for h, expr := range r.exprs.All() {
		res, err := r.resolve(h, expr.Kind)
		if err != nil {
			r.failed[h] = true
			if rerr := r.s.reportErr(err); rerr != nil {
				return rerr
			}
			continue
		}
		r.cache[h] = res
	}
	return nil
}

// lookup returns the memoized type of h, or false if it failed to resolve.
func (r *resolver) lookup(h ExpressionHandle) (TypeResolution, bool) {
	if int(h) >= len(r.cache) || r.failed[h] {
		return TypeResolution{}, false
	}
	return r.cache[h], true
}

// operand returns an operand's type, or errSkip if it failed already.
func (r *resolver) operand(h ExpressionHandle) (TypeInner, TypeResolution, error) {
	res, ok := r.lookup(h)
	if !ok {
		return nil, TypeResolution{}, errSkip
	}
	return res.Inner(r.types), res, nil
}

// fail builds an unreported diagnostic about expression self.
func (r *resolver) fail(kind ErrorKind, self ExpressionHandle, format string, args ...any) error {
	return r.s.newError(kind, []HandleRef{r.s.exprRef(self)}, format, args...)
}

func (r *resolver) format(inner TypeInner) string {
	return FormatType(r.types, inner)
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (r *resolver) resolve(h ExpressionHandle, kind ExpressionKind) (TypeResolution, error) {
	m := r.s.module

	switch e := kind.(type) {
	case Literal:
		return r.resolveLiteral(h, e)

	case ExprConstant:
		return resolved(m.Constants.at(e.Constant).Type), nil

	case ExprZeroValue:
		if !r.s.typeFlags[e.Type].has(flagConstructible) {
			return TypeResolution{}, r.fail(KindInvalidType, h, "zero value of %s, which cannot be constructed",
				FormatTypeHandle(r.types, e.Type))
		}
		return resolved(e.Type), nil

	case ExprCompose:
		return r.resolveCompose(h, e)

	case ExprAccess:
		return r.resolveAccess(h, e.Base, &e.Index, 0)

	case ExprAccessIndex:
		return r.resolveAccess(h, e.Base, nil, e.Index)

	case ExprSplat:
		inner, _, err := r.operand(e.Value)
		if err != nil {
			return TypeResolution{}, err
		}
		sc, ok := inner.(ScalarType)
		if !ok {
			return TypeResolution{}, r.fail(KindNotScalar, h, "splat of %s; only scalars can be splatted", r.format(inner))
		}
		if !e.Size.valid() {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "splat size %d is not 2, 3 or 4", e.Size)
		}
		return inline(VectorType{Size: e.Size, Scalar: sc}), nil

	case ExprSwizzle:
		inner, _, err := r.operand(e.Vector)
		if err != nil {
			return TypeResolution{}, err
		}
		vec, ok := inner.(VectorType)
		if !ok {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "swizzle of %s; only vectors can be swizzled", r.format(inner))
		}
		if !e.Size.valid() {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "swizzle size %d is not 2, 3 or 4", e.Size)
		}
		for i := range int(e.Size) {
			if VectorSize(e.Pattern[i]) >= vec.Size {
				return TypeResolution{}, r.fail(KindIndexOutOfBounds, h,
					"swizzle component %d selects lane %d of a %d-lane vector", i, e.Pattern[i], vec.Size)
			}
		}
		return inline(VectorType{Size: e.Size, Scalar: vec.Scalar}), nil

	case ExprFunctionArgument:
		return resolved(r.fn.Arguments[e.Index].Type), nil

	case ExprGlobalVariable:
		gv := m.GlobalVariables.at(e.Variable)
		if gv.Space == SpaceHandle {
			return resolved(gv.Type), nil
		}
		return inline(PointerType{Base: gv.Type, Space: gv.Space, Access: effectiveAccess(gv.Space, gv.Access)}), nil

	case ExprLocalVariable:
		return inline(PointerType{Base: r.fn.LocalVars.at(e.Variable).Type, Space: SpaceFunction}), nil

	case ExprLoad:
		inner, _, err := r.operand(e.Pointer)
		if err != nil {
			return TypeResolution{}, err
		}
		switch p := inner.(type) {
		case PointerType:
			if at, ok := r.types.at(p.Base).Inner.(AtomicType); ok {
				return inline(at.Scalar), nil
			}
			return resolved(p.Base), nil
		case ValuePointerType:
			if p.Size != nil {
				return inline(VectorType{Size: *p.Size, Scalar: p.Scalar}), nil
			}
			return inline(p.Scalar), nil
		default:
			return TypeResolution{}, r.fail(KindNotPointer, h, "load from %s, which is not a pointer", r.format(inner))
		}

	case ExprImageSample:
		return r.resolveImageSample(h, e)

	case ExprImageLoad:
		return r.resolveImageLoad(h, e)

	case ExprImageQuery:
		return r.resolveImageQuery(h, e)

	case ExprUnary:
		return r.resolveUnary(h, e)

	case ExprBinary:
		return r.resolveBinary(h, e)

	case ExprSelect:
		return r.resolveSelect(h, e)

	case ExprDerivative:
		inner, res, err := r.operand(e.Expr)
		if err != nil {
			return TypeResolution{}, err
		}
		if sc, ok := scalarOf(inner); !ok || sc.Kind != ScalarFloat || isMatrix(inner) {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "derivative of %s; expected a float scalar or vector", r.format(inner))
		}
		return res, nil

	case ExprRelational:
		return r.resolveRelational(h, e)

	case ExprMath:
		return r.resolveMath(h, e)

	case ExprAs:
		return r.resolveAs(h, e)

	case ExprCallResult:
		callee := m.Functions.at(e.Function)
		if callee.Result == nil {
			return TypeResolution{}, r.fail(KindInvalidCall, h, "result of function %q, which returns nothing", callee.Name)
		}
		return resolved(callee.Result.Type), nil

	case ExprAtomicResult:
		if sc, ok := r.types.at(e.Type).Inner.(ScalarType); !ok || (sc.Kind != ScalarSint && sc.Kind != ScalarUint) {
			return TypeResolution{}, r.fail(KindInvalidType, h, "atomic result type %s is not an integer scalar",
				FormatTypeHandle(r.types, e.Type))
		}
		return resolved(e.Type), nil

	case ExprArrayLength:
		inner, _, err := r.operand(e.Array)
		if err != nil {
			return TypeResolution{}, err
		}
		if p, ok := inner.(PointerType); ok {
			if arr, ok := r.types.at(p.Base).Inner.(ArrayType); ok && arr.Size.Constant == nil {
				return inline(ScalarU32), nil
			}
		}
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "array length of %s; expected a pointer to a runtime-sized array", r.format(inner))

	default:
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unknown expression kind %T", kind)
	}
}

func (r *resolver) resolveLiteral(h ExpressionHandle, lit Literal) (TypeResolution, error) {
	handles := []HandleRef{r.s.exprRef(h)}
	var (
		sc   ScalarType
		need Capabilities
	)
	switch lit.Value.(type) {
	case LiteralF16:
		sc, need = ScalarType{Kind: ScalarFloat, Width: 2}, CapabilityFloat16
	case LiteralF32:
		sc = ScalarF32
	case LiteralF64:
		sc, need = ScalarType{Kind: ScalarFloat, Width: 8}, CapabilityFloat64
	case LiteralI32:
		sc = ScalarI32
	case LiteralU32:
		sc = ScalarU32
	case LiteralI64:
		sc, need = ScalarType{Kind: ScalarSint, Width: 8}, CapabilityInt64
	case LiteralU64:
		sc, need = ScalarType{Kind: ScalarUint, Width: 8}, CapabilityInt64
	case LiteralBool:
		sc = ScalarBoolean
	default:
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unknown literal %T", lit.Value)
	}
	if need != 0 && !r.s.caps.Contains(need) {
		return TypeResolution{}, r.s.newError(KindMissingCapability, handles, "%s literal requires capability %s", scalarName(sc), need)
	}
	return inline(sc), nil
}

//nolint:gocyclo,cyclop // one rule per composite kind
func (r *resolver) resolveCompose(h ExpressionHandle, e ExprCompose) (TypeResolution, error) {
	target := r.types.at(e.Type).Inner
	comps := make([]TypeResolution, len(e.Components))
	inners := make([]TypeInner, len(e.Components))
	for i, c := range e.Components {
		inner, res, err := r.operand(c)
		if err != nil {
			return TypeResolution{}, err
		}
		comps[i], inners[i] = res, inner
	}
	name := FormatTypeHandle(r.types, e.Type)

	switch t := target.(type) {
	case VectorType:
		total := 0
		for i, inner := range inners {
			switch c := inner.(type) {
			case ScalarType:
				if c != t.Scalar {
					return TypeResolution{}, r.fail(KindMismatch, h, "component %d of %s is %s", i, name, r.format(inner))
				}
				total++
			case VectorType:
				if c.Scalar != t.Scalar {
					return TypeResolution{}, r.fail(KindMismatch, h, "component %d of %s is %s", i, name, r.format(inner))
				}
				total += int(c.Size)
			default:
				return TypeResolution{}, r.fail(KindMismatch, h, "component %d of %s is %s", i, name, r.format(inner))
			}
		}
		if total != int(t.Size) {
			return TypeResolution{}, r.fail(KindMismatch, h, "%s composed from %d lanes", name, total)
		}

	case MatrixType:
		column := VectorType{Size: t.Rows, Scalar: t.Scalar}
		switch len(inners) {
		case int(t.Columns):
			for i, inner := range inners {
				if inner != TypeInner(column) {
					return TypeResolution{}, r.fail(KindMismatch, h, "column %d of %s is %s", i, name, r.format(inner))
				}
			}
		case int(t.Columns) * int(t.Rows):
			for i, inner := range inners {
				if inner != TypeInner(t.Scalar) {
					return TypeResolution{}, r.fail(KindMismatch, h, "element %d of %s is %s", i, name, r.format(inner))
				}
			}
		default:
			return TypeResolution{}, r.fail(KindMismatch, h, "%s composed from %d components", name, len(inners))
		}

	case ArrayType:
		if t.Size.Constant == nil {
			return TypeResolution{}, r.fail(KindInvalidType, h, "cannot compose runtime-sized %s", name)
		}
		if len(comps) != int(*t.Size.Constant) {
			return TypeResolution{}, r.fail(KindMismatch, h, "%s composed from %d elements", name, len(comps))
		}
		for i, c := range comps {
			if !ResolutionsEqual(r.types, c, resolved(t.Base)) {
				return TypeResolution{}, r.fail(KindMismatch, h, "element %d of %s is %s", i, name, FormatResolution(r.types, c))
			}
		}

	case StructType:
		if len(comps) != len(t.Members) {
			return TypeResolution{}, r.fail(KindMismatch, h, "%s has %d members but was composed from %d", name, len(t.Members), len(comps))
		}
		for i, c := range comps {
			if !ResolutionsEqual(r.types, c, resolved(t.Members[i].Type)) {
				return TypeResolution{}, r.fail(KindMismatch, h, "member %q of %s is %s", t.Members[i].Name, name, FormatResolution(r.types, c))
			}
		}

	default:
		return TypeResolution{}, r.fail(KindInvalidType, h, "cannot compose %s", name)
	}

	if !r.s.typeFlags[e.Type].has(flagConstructible) {
		return TypeResolution{}, r.fail(KindInvalidType, h, "%s cannot be constructed", name)
	}
	return resolved(e.Type), nil
}

// resolveAccess handles both Access (index != nil) and AccessIndex.
// Through a pointer the result is again a pointer; a component of a vector
// or a column of a matrix has no arena type and becomes a ValuePointerType.
//
//nolint:gocyclo,cyclop,funlen // one case per indexable type
func (r *resolver) resolveAccess(h, base ExpressionHandle, index *ExpressionHandle, constIndex uint32) (TypeResolution, error) {
	baseInner, _, err := r.operand(base)
	if err != nil {
		return TypeResolution{}, err
	}
	if index != nil {
		idx, _, err := r.operand(*index)
		if err != nil {
			return TypeResolution{}, err
		}
		sc, ok := idx.(ScalarType)
		if !ok {
			return TypeResolution{}, r.fail(KindNotScalar, h, "index is %s; expected an integer scalar", r.format(idx))
		}
		if sc.Kind != ScalarSint && sc.Kind != ScalarUint {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "index is %s; expected an integer scalar", r.format(idx))
		}
	}

	bound := func(n uint32) error {
		if index == nil && constIndex >= n {
			return r.fail(KindIndexOutOfBounds, h, "index %d is out of bounds for %s (length %d)", constIndex, r.format(baseInner), n)
		}
		return nil
	}

	var (
		pointer bool
		space   AddressSpace
		access  StorageAccess
		target  = baseInner
	)
	switch p := baseInner.(type) {
	case PointerType:
		pointer, space, access = true, p.Space, p.Access
		target = r.types.at(p.Base).Inner
	case ValuePointerType:
		if p.Size == nil {
			return TypeResolution{}, r.fail(KindNotIndexable, h, "cannot index a pointer to scalar %s", scalarName(p.Scalar))
		}
		if err := bound(uint32(*p.Size)); err != nil {
			return TypeResolution{}, err
		}
		return inline(ValuePointerType{Scalar: p.Scalar, Space: p.Space, Access: p.Access}), nil
	}

	switch t := target.(type) {
	case VectorType:
		if err := bound(uint32(t.Size)); err != nil {
			return TypeResolution{}, err
		}
		if pointer {
			return inline(ValuePointerType{Scalar: t.Scalar, Space: space, Access: access}), nil
		}
		return inline(t.Scalar), nil

	case MatrixType:
		if err := bound(uint32(t.Columns)); err != nil {
			return TypeResolution{}, err
		}
		rows := t.Rows
		if pointer {
			return inline(ValuePointerType{Size: &rows, Scalar: t.Scalar, Space: space, Access: access}), nil
		}
		return inline(VectorType{Size: rows, Scalar: t.Scalar}), nil

	case ArrayType:
		if t.Size.Constant != nil {
			if err := bound(*t.Size.Constant); err != nil {
				return TypeResolution{}, err
			}
		}
		if pointer {
			return inline(PointerType{Base: t.Base, Space: space, Access: access}), nil
		}
		return resolved(t.Base), nil

	case BindingArrayType:
		if t.Size.Constant != nil {
			if err := bound(*t.Size.Constant); err != nil {
				return TypeResolution{}, err
			}
		}
		if pointer {
			return inline(PointerType{Base: t.Base, Space: space, Access: access}), nil
		}
		return resolved(t.Base), nil

	case StructType:
		if index != nil {
			return TypeResolution{}, r.fail(KindNotIndexable, h, "struct members need a constant index")
		}
		if err := bound(uint32(len(t.Members))); err != nil {
			return TypeResolution{}, err
		}
		member := t.Members[constIndex].Type
		if pointer {
			return inline(PointerType{Base: member, Space: space, Access: access}), nil
		}
		return resolved(member), nil

	default:
		return TypeResolution{}, r.fail(KindNotIndexable, h, "%s cannot be indexed", r.format(baseInner))
	}
}

func (r *resolver) resolveUnary(h ExpressionHandle, e ExprUnary) (TypeResolution, error) {
	inner, res, err := r.operand(e.Expr)
	if err != nil {
		return TypeResolution{}, err
	}
	sc, ok := scalarOf(inner)
	if !ok || isMatrix(inner) {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unary operator on %s", r.format(inner))
	}
	switch e.Op {
	case UnaryNegate:
		ok = sc.Kind == ScalarSint || sc.Kind == ScalarFloat
	case UnaryLogicalNot:
		ok = sc.Kind == ScalarBool
	case UnaryBitwiseNot:
		ok = sc.Kind == ScalarSint || sc.Kind == ScalarUint
	default:
		ok = false
	}
	if !ok {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unary operator %d does not apply to %s", e.Op, r.format(inner))
	}
	return res, nil
}

func (r *resolver) resolveBinary(h ExpressionHandle, e ExprBinary) (TypeResolution, error) {
	left, lres, err := r.operand(e.Left)
	if err != nil {
		return TypeResolution{}, err
	}
	right, rres, err := r.operand(e.Right)
	if err != nil {
		return TypeResolution{}, err
	}
	res, kind, msg := binaryResult(e.Op, left, lres, right, rres)
	if msg != "" {
		return TypeResolution{}, r.fail(kind, h, "%s (%s, %s)", msg, r.format(left), r.format(right))
	}
	return res, nil
}

func (r *resolver) resolveSelect(h ExpressionHandle, e ExprSelect) (TypeResolution, error) {
	cond, _, err := r.operand(e.Condition)
	if err != nil {
		return TypeResolution{}, err
	}
	accept, ares, err := r.operand(e.Accept)
	if err != nil {
		return TypeResolution{}, err
	}
	_, rres, err := r.operand(e.Reject)
	if err != nil {
		return TypeResolution{}, err
	}
	if !ResolutionsEqual(r.types, ares, rres) {
		return TypeResolution{}, r.fail(KindMismatch, h, "select branches differ: %s and %s",
			FormatResolution(r.types, ares), FormatResolution(r.types, rres))
	}
	switch c := cond.(type) {
	case ScalarType:
		if c.Kind == ScalarBool {
			return ares, nil
		}
	case VectorType:
		if v, ok := accept.(VectorType); ok && c.Scalar.Kind == ScalarBool && c.Size == v.Size {
			return ares, nil
		}
	}
	return TypeResolution{}, r.fail(KindMismatch, h, "select condition %s does not match %s", r.format(cond), r.format(accept))
}

func (r *resolver) resolveRelational(h ExpressionHandle, e ExprRelational) (TypeResolution, error) {
	inner, _, err := r.operand(e.Argument)
	if err != nil {
		return TypeResolution{}, err
	}
	sc, ok := scalarOf(inner)
	if !ok || isMatrix(inner) {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "relational function on %s", r.format(inner))
	}
	switch e.Fun {
	case RelationalAll, RelationalAny:
		if sc.Kind != ScalarBool {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "all/any of %s; expected bool", r.format(inner))
		}
		return inline(ScalarBoolean), nil
	case RelationalIsNan, RelationalIsInf:
		if sc.Kind != ScalarFloat {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "isnan/isinf of %s; expected float", r.format(inner))
		}
		return inline(withScalar(inner, ScalarBoolean)), nil
	default:
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unknown relational function %d", e.Fun)
	}
}

func (r *resolver) resolveAs(h ExpressionHandle, e ExprAs) (TypeResolution, error) {
	inner, _, err := r.operand(e.Expr)
	if err != nil {
		return TypeResolution{}, err
	}
	src, ok := scalarOf(inner)
	if !ok {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "cast of %s; expected a scalar, vector or matrix", r.format(inner))
	}
	target := ScalarType{Kind: e.Kind, Width: src.Width}
	if e.Convert != nil {
		target.Width = *e.Convert
	} else if (src.Kind == ScalarBool) != (e.Kind == ScalarBool) {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "bitcast between %s and %s", scalarName(src), e.Kind)
	}
	if e.Kind == ScalarBool {
		target.Width = 1
	}
	if isMatrix(inner) && (src.Kind != ScalarFloat || e.Kind != ScalarFloat) {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "matrices only convert between float widths")
	}
	if err := r.checkResultScalar(h, target); err != nil {
		return TypeResolution{}, err
	}
	return inline(withScalar(inner, target)), nil
}

// checkResultScalar applies the scalar width and capability rules to a
// scalar an expression produces without naming it in the type arena.
func (r *resolver) checkResultScalar(h ExpressionHandle, sc ScalarType) error {
	valid := false
	switch sc.Kind {
	case ScalarBool:
		valid = sc.Width == 1
	case ScalarFloat:
		valid = sc.Width == 2 || sc.Width == 4 || sc.Width == 8
	case ScalarSint, ScalarUint:
		valid = sc.Width == 4 || sc.Width == 8
	}
	if !valid {
		return r.fail(KindInvalidType, h, "%s has no %d-byte form", sc.Kind, sc.Width)
	}
	var need Capabilities
	switch {
	case sc.Kind == ScalarFloat && sc.Width == 2:
		need = CapabilityFloat16
	case sc.Kind == ScalarFloat && sc.Width == 8:
		need = CapabilityFloat64
	case sc.Width == 8:
		need = CapabilityInt64
	}
	if need != 0 && !r.s.caps.Contains(need) {
		return r.s.newError(KindMissingCapability, []HandleRef{r.s.exprRef(h)}, "%s requires capability %s", scalarName(sc), need)
	}
	return nil
}

// effectiveAccess treats storage globals declared with no access flags as
// read-only.
func effectiveAccess(space AddressSpace, access StorageAccess) StorageAccess {
	if space == SpaceStorage && access == 0 {
		return StorageLoad
	}
	return access
}

// scalarOf returns the scalar of a scalar, vector or matrix type.
func scalarOf(inner TypeInner) (ScalarType, bool) {
	switch t := inner.(type) {
	case ScalarType:
		return t, true
	case VectorType:
		return t.Scalar, true
	case MatrixType:
		return t.Scalar, true
	}
	return ScalarType{}, false
}

func isMatrix(inner TypeInner) bool {
	_, ok := inner.(MatrixType)
	return ok
}

// withScalar keeps the shape of inner but swaps its scalar.
func withScalar(inner TypeInner, sc ScalarType) TypeInner {
	switch t := inner.(type) {
	case VectorType:
		return VectorType{Size: t.Size, Scalar: sc}
	case MatrixType:
		return MatrixType{Columns: t.Columns, Rows: t.Rows, Scalar: sc}
	default:
		return sc
	}
}

// imageOf returns the image type behind an image operand.
func (r *resolver) imageOf(h, image ExpressionHandle) (ImageType, error) {
	inner, _, err := r.operand(image)
	if err != nil {
		return ImageType{}, err
	}
	img, ok := inner.(ImageType)
	if !ok {
		return ImageType{}, r.fail(KindInvalidOperand, h, "%s is not an image", r.format(inner))
	}
	return img, nil
}

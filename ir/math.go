package ir

// mathArity is the number of arguments each math function takes.
var mathArity = map[MathFunction]int{
	MathAbs: 1, MathMin: 2, MathMax: 2, MathClamp: 3, MathSaturate: 1,
	MathCos: 1, MathCosh: 1, MathSin: 1, MathSinh: 1, MathTan: 1, MathTanh: 1,
	MathAcos: 1, MathAsin: 1, MathAtan: 1, MathAtan2: 2, MathAsinh: 1, MathAcosh: 1, MathAtanh: 1,
	MathRadians: 1, MathDegrees: 1,
	MathCeil: 1, MathFloor: 1, MathRound: 1, MathFract: 1, MathTrunc: 1, MathLdexp: 2,
	MathExp: 1, MathExp2: 1, MathLog: 1, MathLog2: 1, MathPow: 2,
	MathDot: 2, MathDot4I8Packed: 2, MathDot4U8Packed: 2, MathOuter: 2, MathCross: 2,
	MathDistance: 2, MathLength: 1, MathNormalize: 1, MathFaceForward: 3, MathReflect: 2, MathRefract: 3,
	MathSign: 1, MathFma: 3, MathMix: 3, MathStep: 2, MathSmoothStep: 3,
	MathSqrt: 1, MathInverseSqrt: 1, MathInverse: 1, MathTranspose: 1, MathDeterminant: 1,
	MathQuantizeF16: 1,
	MathCountTrailingZeros: 1, MathCountLeadingZeros: 1, MathCountOneBits: 1, MathReverseBits: 1,
	MathExtractBits: 3, MathInsertBits: 4, MathFirstTrailingBit: 1, MathFirstLeadingBit: 1,
	MathPack4x8snorm: 1, MathPack4x8unorm: 1, MathPack2x16snorm: 1, MathPack2x16unorm: 1, MathPack2x16float: 1,
	MathPack4xI8: 1, MathPack4xU8: 1, MathPack4xI8Clamp: 1, MathPack4xU8Clamp: 1,
	MathUnpack4x8snorm: 1, MathUnpack4x8unorm: 1, MathUnpack2x16snorm: 1, MathUnpack2x16unorm: 1,
	MathUnpack2x16float: 1, MathUnpack4xI8: 1, MathUnpack4xU8: 1,
}

// resolveMath types a math function call.
//
//nolint:gocyclo,cyclop,funlen // one rule per function family
func (r *resolver) resolveMath(h ExpressionHandle, e ExprMath) (TypeResolution, error) {
	arity, known := mathArity[e.Fun]
	if !known {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unknown math function %d", e.Fun)
	}
	handles := []ExpressionHandle{e.Arg}
	gap := false
	for _, a := range []*ExpressionHandle{e.Arg1, e.Arg2, e.Arg3} {
		switch {
		case a == nil:
			gap = true
		case gap:
			return TypeResolution{}, r.fail(KindWrongArgumentCount, h, "math function %d has a gap in its arguments", e.Fun)
		default:
			handles = append(handles, *a)
		}
	}
	if len(handles) != arity {
		return TypeResolution{}, r.fail(KindWrongArgumentCount, h, "math function %d takes %d arguments, got %d", e.Fun, arity, len(handles))
	}
	args := make([]TypeInner, len(handles))
	res := make([]TypeResolution, len(handles))
	for i, a := range handles {
		inner, rr, err := r.operand(a)
		if err != nil {
			return TypeResolution{}, err
		}
		args[i], res[i] = inner, rr
	}

	first := args[0]
	sc, numeric := scalarOf(first)
	vec, isVec := first.(VectorType)
	float := numeric && !isMatrix(first) && sc.Kind == ScalarFloat
	integer := numeric && !isMatrix(first) && (sc.Kind == ScalarSint || sc.Kind == ScalarUint)

	bad := func(what string) (TypeResolution, error) {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "math function %d expects %s, got %s", e.Fun, what, r.format(first))
	}
	// same requires arguments [from, len) to equal the first argument.
	same := func(from int) error {
		for i := from; i < len(args); i++ {
			if !ResolutionsEqual(r.types, res[0], res[i]) {
				return r.fail(KindMismatch, h, "argument %d is %s but argument 0 is %s", i, r.format(args[i]), r.format(first))
			}
		}
		return nil
	}
	scalarArg := func(i int, want ScalarType) error {
		if args[i] != TypeInner(want) {
			return r.fail(KindMismatch, h, "argument %d is %s; expected %s", i, r.format(args[i]), scalarName(want))
		}
		return nil
	}
	exact := func(want TypeInner, result TypeInner) (TypeResolution, error) {
		if first != want {
			return bad(r.format(want))
		}
		return inline(result), nil
	}
	u32 := ScalarU32
	vec4f := VectorType{Size: Vec4, Scalar: ScalarF32}
	vec2f := VectorType{Size: Vec2, Scalar: ScalarF32}

	switch e.Fun {
	case MathCos, MathCosh, MathSin, MathSinh, MathTan, MathTanh, MathAcos, MathAsin, MathAtan,
		MathAsinh, MathAcosh, MathAtanh, MathRadians, MathDegrees, MathCeil, MathFloor, MathRound,
		MathFract, MathTrunc, MathExp, MathExp2, MathLog, MathLog2, MathSqrt, MathInverseSqrt,
		MathSaturate, MathQuantizeF16, MathAtan2, MathPow, MathStep, MathFma, MathSmoothStep:
		if !float {
			return bad("a float scalar or vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return res[0], nil

	case MathAbs, MathMin, MathMax, MathClamp, MathSign:
		if !numeric || isMatrix(first) || sc.Kind == ScalarBool || (e.Fun == MathSign && sc.Kind == ScalarUint) {
			return bad("a numeric scalar or vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return res[0], nil

	case MathMix:
		if !float {
			return bad("a float scalar or vector")
		}
		if !ResolutionsEqual(r.types, res[0], res[1]) {
			return TypeResolution{}, r.fail(KindMismatch, h, "mix operands differ: %s and %s", r.format(first), r.format(args[1]))
		}
		if args[2] != first && args[2] != TypeInner(sc) {
			return TypeResolution{}, r.fail(KindMismatch, h, "mix factor %s must be %s or %s", r.format(args[2]), r.format(first), scalarName(sc))
		}
		return res[0], nil

	case MathNormalize, MathReflect, MathFaceForward:
		if !float || !isVec {
			return bad("a float vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return res[0], nil

	case MathLength:
		if !float {
			return bad("a float scalar or vector")
		}
		return inline(sc), nil

	case MathDistance:
		if !float {
			return bad("a float scalar or vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return inline(sc), nil

	case MathDot:
		if !isVec || sc.Kind == ScalarBool {
			return bad("a numeric vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return inline(sc), nil

	case MathCross:
		if !float || !isVec || vec.Size != Vec3 {
			return bad("a 3-component float vector")
		}
		if err := same(1); err != nil {
			return TypeResolution{}, err
		}
		return res[0], nil

	case MathOuter:
		other, ok := args[1].(VectorType)
		if !float || !isVec || !ok || other.Scalar != sc {
			return bad("two float vectors")
		}
		return inline(MatrixType{Columns: other.Size, Rows: vec.Size, Scalar: sc}), nil

	case MathRefract:
		if !float || !isVec {
			return bad("a float vector")
		}
		if !ResolutionsEqual(r.types, res[0], res[1]) {
			return TypeResolution{}, r.fail(KindMismatch, h, "refract vectors differ: %s and %s", r.format(first), r.format(args[1]))
		}
		if err := scalarArg(2, sc); err != nil {
			return TypeResolution{}, err
		}
		return res[0], nil

	case MathLdexp:
		if !float {
			return bad("a float scalar or vector")
		}
		exp := args[1]
		want := withScalar(first, ScalarType{Kind: ScalarSint, Width: 4})
		if exp != want {
			return TypeResolution{}, r.fail(KindMismatch, h, "ldexp exponent is %s; expected %s", r.format(exp), r.format(want))
		}
		return res[0], nil

	case MathInverse, MathDeterminant, MathTranspose:
		m, ok := first.(MatrixType)
		if !ok {
			return bad("a matrix")
		}
		switch e.Fun {
		case MathTranspose:
			return inline(MatrixType{Columns: m.Rows, Rows: m.Columns, Scalar: m.Scalar}), nil
		case MathDeterminant:
			if m.Columns != m.Rows {
				return bad("a square matrix")
			}
			return inline(m.Scalar), nil
		default:
			if m.Columns != m.Rows {
				return bad("a square matrix")
			}
			return res[0], nil
		}

	case MathCountTrailingZeros, MathCountLeadingZeros, MathCountOneBits, MathReverseBits,
		MathFirstTrailingBit, MathFirstLeadingBit:
		if !integer {
			return bad("an integer scalar or vector")
		}
		return res[0], nil

	case MathExtractBits, MathInsertBits:
		if !integer {
			return bad("an integer scalar or vector")
		}
		from := 1
		if e.Fun == MathInsertBits {
			if !ResolutionsEqual(r.types, res[0], res[1]) {
				return TypeResolution{}, r.fail(KindMismatch, h, "inserted bits are %s but the base is %s", r.format(args[1]), r.format(first))
			}
			from = 2
		}
		for i := from; i < len(args); i++ {
			if err := scalarArg(i, u32); err != nil {
				return TypeResolution{}, err
			}
		}
		return res[0], nil

	case MathPack4x8snorm, MathPack4x8unorm:
		return exact(vec4f, u32)
	case MathPack2x16snorm, MathPack2x16unorm, MathPack2x16float:
		return exact(vec2f, u32)
	case MathPack4xI8, MathPack4xI8Clamp:
		return exact(VectorType{Size: Vec4, Scalar: ScalarI32}, u32)
	case MathPack4xU8, MathPack4xU8Clamp:
		return exact(VectorType{Size: Vec4, Scalar: ScalarU32}, u32)

	case MathUnpack4x8snorm, MathUnpack4x8unorm:
		return exact(u32, vec4f)
	case MathUnpack2x16snorm, MathUnpack2x16unorm, MathUnpack2x16float:
		return exact(u32, vec2f)
	case MathUnpack4xI8:
		return exact(u32, VectorType{Size: Vec4, Scalar: ScalarI32})
	case MathUnpack4xU8:
		return exact(u32, VectorType{Size: Vec4, Scalar: ScalarU32})

	case MathDot4I8Packed, MathDot4U8Packed:
		if first != TypeInner(u32) || args[1] != TypeInner(u32) {
			return bad("two u32 values")
		}
		if e.Fun == MathDot4I8Packed {
			return inline(ScalarI32), nil
		}
		return inline(u32), nil
	}
	return bad("supported arguments")
}

package ir

// Expression is a pure value computation. Operands are handles into the
// same arena and always point backwards, so the graph is acyclic.
type Expression struct {
	Kind ExpressionKind
}

// ExpressionKind is implemented by every Expr* variant and by Literal.
type ExpressionKind interface {
	expressionKind()
}

// Literal is a constant scalar written inline.
type Literal struct {
	Value LiteralValue
}

func (Literal) expressionKind() {}

// LiteralValue is one of the Literal* scalar types. Float literals are
// finite.
type LiteralValue interface {
	literalValue()
}

type (
	// LiteralF16 is stored widened to float32.
	LiteralF16  float32
	LiteralF32  float32
	LiteralF64  float64
	LiteralU32  uint32
	LiteralI32  int32
	LiteralU64  uint64
	LiteralI64  int64
	LiteralBool bool
)

func (LiteralF16) literalValue()  {}
func (LiteralF32) literalValue()  {}
func (LiteralF64) literalValue()  {}
func (LiteralU32) literalValue()  {}
func (LiteralI32) literalValue()  {}
func (LiteralU64) literalValue()  {}
func (LiteralI64) literalValue()  {}
func (LiteralBool) literalValue() {}

// ExprConstant reads a module constant.
type ExprConstant struct {
	Constant ConstantHandle
}

func (ExprConstant) expressionKind() {}

// ExprZeroValue is the all-zero value of Type.
type ExprZeroValue struct {
	Type TypeHandle
}

func (ExprZeroValue) expressionKind() {}

// ExprCompose builds a vector, matrix, array or struct of Type from its
// components.
type ExprCompose struct {
	Type       TypeHandle
	Components []ExpressionHandle
}

func (ExprCompose) expressionKind() {}

// ExprAccess indexes a vector, matrix or array (or a pointer to one) with a
// runtime integer.
type ExprAccess struct {
	Base  ExpressionHandle
	Index ExpressionHandle
}

func (ExprAccess) expressionKind() {}

// ExprAccessIndex is ExprAccess with a constant index. It also selects
// struct members.
type ExprAccessIndex struct {
	Base  ExpressionHandle
	Index uint32
}

func (ExprAccessIndex) expressionKind() {}

// ExprSplat repeats a scalar into a vector of Size.
type ExprSplat struct {
	Size  VectorSize
	Value ExpressionHandle
}

func (ExprSplat) expressionKind() {}

// ExprSwizzle picks the first Size entries of Pattern from Vector.
type ExprSwizzle struct {
	Size    VectorSize
	Vector  ExpressionHandle
	Pattern [4]SwizzleComponent
}

func (ExprSwizzle) expressionKind() {}

type SwizzleComponent uint8

const (
	SwizzleX SwizzleComponent = iota
	SwizzleY
	SwizzleZ
	SwizzleW
)

// ExprFunctionArgument is the Index-th argument of the enclosing function.
type ExprFunctionArgument struct {
	Index uint32
}

func (ExprFunctionArgument) expressionKind() {}

// ExprGlobalVariable yields a pointer to the variable, or its value for
// handle space globals.
type ExprGlobalVariable struct {
	Variable GlobalVariableHandle
}

func (ExprGlobalVariable) expressionKind() {}

// ExprLocalVariable yields a function-space pointer to a local.
type ExprLocalVariable struct {
	Variable LocalVariableHandle
}

func (ExprLocalVariable) expressionKind() {}

// ExprLoad reads through a pointer.
type ExprLoad struct {
	Pointer ExpressionHandle
}

func (ExprLoad) expressionKind() {}

// ExprImageSample filters a sampled or depth image. Gather, when set,
// returns one component of four texels instead.
type ExprImageSample struct {
	Image       ExpressionHandle
	Sampler     ExpressionHandle
	Gather      *SwizzleComponent
	Coordinate  ExpressionHandle
	ArrayIndex  *ExpressionHandle
	Offset      *ExpressionHandle // constant expression
	Level       SampleLevel
	DepthRef    *ExpressionHandle
	ClampToEdge bool
}

func (ExprImageSample) expressionKind() {}

// SampleLevel selects the mip level of a sample.
type SampleLevel interface {
	sampleLevel()
}

// SampleLevelAuto derives the level from screen-space derivatives.
type SampleLevelAuto struct{}

func (SampleLevelAuto) sampleLevel() {}

type SampleLevelZero struct{}

func (SampleLevelZero) sampleLevel() {}

type SampleLevelExact struct {
	Level ExpressionHandle
}

func (SampleLevelExact) sampleLevel() {}

// SampleLevelBias is SampleLevelAuto shifted by Bias.
type SampleLevelBias struct {
	Bias ExpressionHandle
}

func (SampleLevelBias) sampleLevel() {}

// SampleLevelGradient uses explicit gradients along X and Y.
type SampleLevelGradient struct {
	X ExpressionHandle
	Y ExpressionHandle
}

func (SampleLevelGradient) sampleLevel() {}

// ExprImageLoad fetches one texel without filtering. Sample applies to
// multisampled images and Level to mipmapped ones.
type ExprImageLoad struct {
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Sample     *ExpressionHandle
	Level      *ExpressionHandle
}

func (ExprImageLoad) expressionKind() {}

// ExprImageQuery asks an image about its dimensions.
type ExprImageQuery struct {
	Image ExpressionHandle
	Query ImageQuery
}

func (ExprImageQuery) expressionKind() {}

type ImageQuery interface {
	imageQuery()
}

// ImageQuerySize is the size at Level, or at the base level when nil.
type ImageQuerySize struct {
	Level *ExpressionHandle
}

type (
	ImageQueryNumLevels  struct{}
	ImageQueryNumLayers  struct{}
	ImageQueryNumSamples struct{}
)

func (ImageQuerySize) imageQuery()       {}
func (ImageQueryNumLevels) imageQuery()  {}
func (ImageQueryNumLayers) imageQuery()  {}
func (ImageQueryNumSamples) imageQuery() {}

type ExprUnary struct {
	Op   UnaryOperator
	Expr ExpressionHandle
}

func (ExprUnary) expressionKind() {}

type UnaryOperator uint8

const (
	UnaryNegate UnaryOperator = iota
	UnaryLogicalNot
	UnaryBitwiseNot
)

type ExprBinary struct {
	Op    BinaryOperator
	Left  ExpressionHandle
	Right ExpressionHandle
}

func (ExprBinary) expressionKind() {}

// BinaryOperator values are grouped as arithmetic, comparison, bitwise,
// logical and shift operators; see optable.go for the operand rules.
type BinaryOperator uint8

const (
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo

	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual

	BinaryAnd
	BinaryExclusiveOr
	BinaryInclusiveOr

	BinaryLogicalAnd
	BinaryLogicalOr

	// Right shifts are arithmetic for signed operands.
	BinaryShiftLeft
	BinaryShiftRight
)

// ExprSelect is Accept when Condition holds, else Reject. A vector
// condition selects per component.
type ExprSelect struct {
	Condition ExpressionHandle
	Accept    ExpressionHandle
	Reject    ExpressionHandle
}

func (ExprSelect) expressionKind() {}

// ExprDerivative is a screen-space derivative. Fragment stage only.
type ExprDerivative struct {
	Axis    DerivativeAxis
	Control DerivativeControl
	Expr    ExpressionHandle
}

func (ExprDerivative) expressionKind() {}

type DerivativeAxis uint8

const (
	DerivativeX DerivativeAxis = iota
	DerivativeY
	DerivativeWidth // fwidth
)

type DerivativeControl uint8

const (
	DerivativeCoarse DerivativeControl = iota
	DerivativeFine
	DerivativeNone
)

type ExprRelational struct {
	Fun      RelationalFunction
	Argument ExpressionHandle
}

func (ExprRelational) expressionKind() {}

type RelationalFunction uint8

const (
	RelationalAll RelationalFunction = iota
	RelationalAny
	RelationalIsNan
	RelationalIsInf
)

// ExprMath calls a builtin function. The arity per function is in math.go.
type ExprMath struct {
	Fun  MathFunction
	Arg  ExpressionHandle
	Arg1 *ExpressionHandle
	Arg2 *ExpressionHandle
	Arg3 *ExpressionHandle
}

func (ExprMath) expressionKind() {}

type MathFunction uint8

const (
	MathAbs MathFunction = iota
	MathMin
	MathMax
	MathClamp
	MathSaturate

	MathCos
	MathCosh
	MathSin
	MathSinh
	MathTan
	MathTanh
	MathAcos
	MathAsin
	MathAtan
	MathAtan2
	MathAsinh
	MathAcosh
	MathAtanh

	MathRadians
	MathDegrees

	MathCeil
	MathFloor
	MathRound
	MathFract
	MathTrunc
	MathLdexp

	MathExp
	MathExp2
	MathLog
	MathLog2
	MathPow

	MathDot
	MathDot4I8Packed
	MathDot4U8Packed
	MathOuter
	MathCross
	MathDistance
	MathLength
	MathNormalize
	MathFaceForward
	MathReflect
	MathRefract

	MathSign
	MathFma
	MathMix
	MathStep
	MathSmoothStep
	MathSqrt
	MathInverseSqrt
	MathInverse
	MathTranspose
	MathDeterminant
	MathQuantizeF16

	MathCountTrailingZeros
	MathCountLeadingZeros
	MathCountOneBits
	MathReverseBits
	MathExtractBits
	MathInsertBits
	MathFirstTrailingBit
	MathFirstLeadingBit

	MathPack4x8snorm
	MathPack4x8unorm
	MathPack2x16snorm
	MathPack2x16unorm
	MathPack2x16float
	MathPack4xI8
	MathPack4xU8
	MathPack4xI8Clamp
	MathPack4xU8Clamp

	MathUnpack4x8snorm
	MathUnpack4x8unorm
	MathUnpack2x16snorm
	MathUnpack2x16unorm
	MathUnpack2x16float
	MathUnpack4xI8
	MathUnpack4xU8
)

// ExprAs converts Expr to Kind. With Convert nil the bits are
// reinterpreted; otherwise the value is converted to that byte width.
type ExprAs struct {
	Expr    ExpressionHandle
	Kind    ScalarKind
	Convert *uint8
}

func (ExprAs) expressionKind() {}

// ExprCallResult is the value returned by a StmtCall of Function. It comes
// into scope when that statement runs.
type ExprCallResult struct {
	Function FunctionHandle
}

func (ExprCallResult) expressionKind() {}

// ExprArrayLength is the element count of a runtime-sized array behind a
// pointer.
type ExprArrayLength struct {
	Array ExpressionHandle
}

func (ExprArrayLength) expressionKind() {}

// ExprAtomicResult is the previous value written by a StmtAtomic. Type is
// the atomic's scalar.
type ExprAtomicResult struct {
	Type TypeHandle
}

func (ExprAtomicResult) expressionKind() {}

// forEachOperand calls visit for every expression handle kind reads, in
// field order. It stops at the first error visit returns.
//
//nolint:gocyclo,cyclop // one case per expression kind
func forEachOperand(kind ExpressionKind, visit func(ExpressionHandle) error) error {
	opt := func(h *ExpressionHandle) error {
		if h == nil {
			return nil
		}
		return visit(*h)
	}
	all := func(hs ...ExpressionHandle) error {
		for _, h := range hs {
			if err := visit(h); err != nil {
				return err
			}
		}
		return nil
	}

	switch e := kind.(type) {
	case ExprCompose:
		return all(e.Components...)
	case ExprAccess:
		return all(e.Base, e.Index)
	case ExprAccessIndex:
		return visit(e.Base)
	case ExprSplat:
		return visit(e.Value)
	case ExprSwizzle:
		return visit(e.Vector)
	case ExprLoad:
		return visit(e.Pointer)
	case ExprImageSample:
		if err := all(e.Image, e.Sampler, e.Coordinate); err != nil {
			return err
		}
		if err := opt(e.ArrayIndex); err != nil {
			return err
		}
		if err := opt(e.Offset); err != nil {
			return err
		}
		switch l := e.Level.(type) {
		case SampleLevelExact:
			if err := visit(l.Level); err != nil {
				return err
			}
		case SampleLevelBias:
			if err := visit(l.Bias); err != nil {
				return err
			}
		case SampleLevelGradient:
			if err := all(l.X, l.Y); err != nil {
				return err
			}
		}
		return opt(e.DepthRef)
	case ExprImageLoad:
		if err := all(e.Image, e.Coordinate); err != nil {
			return err
		}
		if err := opt(e.ArrayIndex); err != nil {
			return err
		}
		if err := opt(e.Sample); err != nil {
			return err
		}
		return opt(e.Level)
	case ExprImageQuery:
		if err := visit(e.Image); err != nil {
			return err
		}
		if q, ok := e.Query.(ImageQuerySize); ok {
			return opt(q.Level)
		}
		return nil
	case ExprUnary:
		return visit(e.Expr)
	case ExprBinary:
		return all(e.Left, e.Right)
	case ExprSelect:
		return all(e.Condition, e.Accept, e.Reject)
	case ExprDerivative:
		return visit(e.Expr)
	case ExprRelational:
		return visit(e.Argument)
	case ExprMath:
		if err := visit(e.Arg); err != nil {
			return err
		}
		for _, a := range []*ExpressionHandle{e.Arg1, e.Arg2, e.Arg3} {
			if err := opt(a); err != nil {
				return err
			}
		}
		return nil
	case ExprAs:
		return visit(e.Expr)
	case ExprArrayLength:
		return visit(e.Array)
	default:
		// Literal, ExprConstant, ExprZeroValue, ExprFunctionArgument,
		// ExprGlobalVariable, ExprLocalVariable, ExprCallResult and
		// ExprAtomicResult read no other expression.
		return nil
	}
}

// needsEmit reports whether an expression must come into scope through an
// Emit (or, for call and atomic results, through the statement producing
// it) before a statement may use it.
func needsEmit(kind ExpressionKind) bool {
	switch kind.(type) {
	case Literal, ExprConstant, ExprZeroValue, ExprFunctionArgument,
		ExprGlobalVariable, ExprLocalVariable:
		return false
	default:
		return true
	}
}

// constExpression reports whether kind may appear in the module's global
// expression arena.
func constExpression(kind ExpressionKind) bool {
	switch kind.(type) {
	case Literal, ExprConstant, ExprZeroValue, ExprCompose, ExprAccess,
		ExprAccessIndex, ExprSplat, ExprSwizzle, ExprUnary, ExprBinary,
		ExprSelect, ExprRelational, ExprMath, ExprAs:
		return true
	default:
		return false
	}
}

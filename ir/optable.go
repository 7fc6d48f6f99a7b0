package ir

// shape is the structural class of a binary operand.
type shape uint8

const (
	shapeScalar shape = iota
	shapeVector
	shapeMatrix
	shapeOther
)

func shapeOf(inner TypeInner) shape {
	switch inner.(type) {
	case ScalarType:
		return shapeScalar
	case VectorType:
		return shapeVector
	case MatrixType:
		return shapeMatrix
	default:
		return shapeOther
	}
}

// opClass groups binary operators that share typing rules.
type opClass uint8

const (
	classAdditive opClass = iota // + -
	classDivisive                // / %
	classMultiply
	classEquality
	classOrdering
	classBitwise
	classLogical
	classShift
)

func classOf(op BinaryOperator) (opClass, bool) {
	switch op {
	case BinaryAdd, BinarySubtract:
		return classAdditive, true
	case BinaryDivide, BinaryModulo:
		return classDivisive, true
	case BinaryMultiply:
		return classMultiply, true
	case BinaryEqual, BinaryNotEqual:
		return classEquality, true
	case BinaryLess, BinaryLessEqual, BinaryGreater, BinaryGreaterEqual:
		return classOrdering, true
	case BinaryAnd, BinaryExclusiveOr, BinaryInclusiveOr:
		return classBitwise, true
	case BinaryLogicalAnd, BinaryLogicalOr:
		return classLogical, true
	case BinaryShiftLeft, BinaryShiftRight:
		return classShift, true
	}
	return 0, false
}

// opResult says how the result type derives from the operands.
type opResult uint8

const (
	resultLeft opResult = iota
	resultRight
	resultBool      // bool, or vector of bool with the left operand's size
	resultMatVec    // vector with the matrix's row count
	resultVecMat    // vector with the matrix's column count
	resultMatMat    // matrix with right's columns and left's rows
)

// opConstraint relates the dimensions of the two operands.
type opConstraint uint8

const (
	constraintNone opConstraint = iota
	constraintSameSize
	constraintSameDims
	constraintMatVec
	constraintVecMat
	constraintMatMat
)

type opKey struct {
	class       opClass
	left, right shape
}

type opRule struct {
	result     opResult
	constraint opConstraint
}

// opTable lists every legal operand shape combination. Scalar-vector
// broadcasting only exists for arithmetic; comparisons, bitwise and
// logical operators need equal shapes.
var opTable = map[opKey]opRule{
	{classAdditive, shapeScalar, shapeScalar}: {resultLeft, constraintNone},
	{classAdditive, shapeVector, shapeVector}: {resultLeft, constraintSameSize},
	{classAdditive, shapeVector, shapeScalar}: {resultLeft, constraintNone},
	{classAdditive, shapeScalar, shapeVector}: {resultRight, constraintNone},
	{classAdditive, shapeMatrix, shapeMatrix}: {resultLeft, constraintSameDims},

	{classDivisive, shapeScalar, shapeScalar}: {resultLeft, constraintNone},
	{classDivisive, shapeVector, shapeVector}: {resultLeft, constraintSameSize},
	{classDivisive, shapeVector, shapeScalar}: {resultLeft, constraintNone},
	{classDivisive, shapeScalar, shapeVector}: {resultRight, constraintNone},

	{classMultiply, shapeScalar, shapeScalar}: {resultLeft, constraintNone},
	{classMultiply, shapeVector, shapeVector}: {resultLeft, constraintSameSize},
	{classMultiply, shapeVector, shapeScalar}: {resultLeft, constraintNone},
	{classMultiply, shapeScalar, shapeVector}: {resultRight, constraintNone},
	{classMultiply, shapeMatrix, shapeScalar}: {resultLeft, constraintNone},
	{classMultiply, shapeScalar, shapeMatrix}: {resultRight, constraintNone},
	{classMultiply, shapeMatrix, shapeVector}: {resultMatVec, constraintMatVec},
	{classMultiply, shapeVector, shapeMatrix}: {resultVecMat, constraintVecMat},
	{classMultiply, shapeMatrix, shapeMatrix}: {resultMatMat, constraintMatMat},

	{classEquality, shapeScalar, shapeScalar}: {resultBool, constraintNone},
	{classEquality, shapeVector, shapeVector}: {resultBool, constraintSameSize},
	{classOrdering, shapeScalar, shapeScalar}: {resultBool, constraintNone},
	{classOrdering, shapeVector, shapeVector}: {resultBool, constraintSameSize},

	{classBitwise, shapeScalar, shapeScalar}: {resultLeft, constraintNone},
	{classBitwise, shapeVector, shapeVector}: {resultLeft, constraintSameSize},

	{classLogical, shapeScalar, shapeScalar}: {resultBool, constraintNone},

	{classShift, shapeScalar, shapeScalar}: {resultLeft, constraintNone},
	{classShift, shapeVector, shapeVector}: {resultLeft, constraintSameSize},
}

// binaryResult types a binary operation. On failure it returns the error kind
// and a message; the message is empty on success.
//
//nolint:gocyclo,cyclop // table lookup plus per-class scalar rules
func binaryResult(op BinaryOperator, left TypeInner, lres TypeResolution, right TypeInner, rres TypeResolution) (TypeResolution, ErrorKind, string) {
	class, ok := classOf(op)
	if !ok {
		return TypeResolution{}, KindInvalidOperand, "unknown binary operator"
	}
	ls, rs := shapeOf(left), shapeOf(right)
	if ls == shapeOther || rs == shapeOther {
		return TypeResolution{}, KindInvalidOperand, "operands must be scalars, vectors or matrices"
	}
	rule, ok := opTable[opKey{class, ls, rs}]
	if !ok {
		return TypeResolution{}, KindMismatch, "operand shapes are incompatible"
	}

	lsc, _ := scalarOf(left)
	rsc, _ := scalarOf(right)

	// Scalar kind rules.
	switch class {
	case classAdditive, classDivisive, classMultiply, classOrdering:
		if lsc.Kind == ScalarBool {
			return TypeResolution{}, KindInvalidOperand, "arithmetic and ordering need numeric operands"
		}
	case classBitwise:
		integer := lsc.Kind == ScalarSint || lsc.Kind == ScalarUint
		if !integer && !(lsc.Kind == ScalarBool && op != BinaryExclusiveOr) {
			return TypeResolution{}, KindInvalidOperand, "bitwise operators need integer operands"
		}
	case classLogical:
		if lsc.Kind != ScalarBool {
			return TypeResolution{}, KindInvalidOperand, "logical operators need bool operands"
		}
	case classShift:
		if lsc.Kind != ScalarSint && lsc.Kind != ScalarUint {
			return TypeResolution{}, KindInvalidOperand, "shifted value must be an integer"
		}
		if rsc.Kind != ScalarUint {
			return TypeResolution{}, KindInvalidOperand, "shift amount must be unsigned"
		}
	}
	if class != classShift && lsc != rsc {
		return TypeResolution{}, KindMismatch, "operand scalar types differ"
	}

	lv, _ := left.(VectorType)
	rv, _ := right.(VectorType)
	lm, _ := left.(MatrixType)
	rm, _ := right.(MatrixType)

	switch rule.constraint {
	case constraintSameSize:
		ok = lv.Size == rv.Size
	case constraintSameDims:
		ok = lm.Columns == rm.Columns && lm.Rows == rm.Rows
	case constraintMatVec:
		ok = lm.Columns == rv.Size
	case constraintVecMat:
		ok = lv.Size == rm.Rows
	case constraintMatMat:
		ok = lm.Columns == rm.Rows
	default:
		ok = true
	}
	if !ok {
		return TypeResolution{}, KindMismatch, "operand dimensions are incompatible"
	}

	switch rule.result {
	case resultRight:
		return rres, 0, ""
	case resultBool:
		if ls == shapeVector {
			return inline(VectorType{Size: lv.Size, Scalar: ScalarBoolean}), 0, ""
		}
		return inline(ScalarBoolean), 0, ""
	case resultMatVec:
		return inline(VectorType{Size: lm.Rows, Scalar: lm.Scalar}), 0, ""
	case resultVecMat:
		return inline(VectorType{Size: rm.Columns, Scalar: rm.Scalar}), 0, ""
	case resultMatMat:
		return inline(MatrixType{Columns: rm.Columns, Rows: lm.Rows, Scalar: lm.Scalar}), 0, ""
	default:
		return lres, 0, ""
	}
}

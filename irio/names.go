package irio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shadercore/ir"
)

// enum maps the values of one IR enumeration to their document names.
type enum[T comparable] struct {
	what   string
	names  map[T]string
	values map[string]T
}

func newEnum[T comparable](what string, names map[T]string) enum[T] {
	values := make(map[string]T, len(names))
	for v, n := range names {
		values[n] = v
	}
	return enum[T]{what: what, names: names, values: values}
}

func (e enum[T]) name(v T) (string, error) {
	if n, ok := e.names[v]; ok {
		return n, nil
	}
	return "", fmt.Errorf("unknown %s %v", e.what, v)
}

func (e enum[T]) value(name string) (T, error) {
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", e.what, name)
}

// flagSet renders bit flags as names joined by '|', in bit order.
type flagSet[T ~uint8 | ~uint32] struct {
	what  string
	flags []T
	names []string
}

func (f flagSet[T]) format(v T) (string, error) {
	var parts []string
	rest := v
	for i, bit := range f.flags {
		if v&bit != 0 {
			parts = append(parts, f.names[i])
			rest &^= bit
		}
	}
	if rest != 0 {
		return "", fmt.Errorf("unknown %s bits %#x", f.what, uint32(rest))
	}
	return strings.Join(parts, "|"), nil
}

func (f flagSet[T]) parse(s string) (T, error) {
	var v T
	if s == "" {
		return v, nil
	}
next:
	for _, part := range strings.Split(s, "|") {
		for i, n := range f.names {
			if n == part {
				v |= f.flags[i]
				continue next
			}
		}
		return 0, fmt.Errorf("unknown %s %q", f.what, part)
	}
	return v, nil
}

var (
	stages = newEnum("stage", map[ir.ShaderStage]string{
		ir.StageVertex:   "vertex",
		ir.StageFragment: "fragment",
		ir.StageCompute:  "compute",
	})

	scalarKinds = newEnum("scalar kind", map[ir.ScalarKind]string{
		ir.ScalarSint:  "sint",
		ir.ScalarUint:  "uint",
		ir.ScalarFloat: "float",
		ir.ScalarBool:  "bool",
	})

	spaces = newEnum("address space", map[ir.AddressSpace]string{
		ir.SpaceFunction:     "function",
		ir.SpacePrivate:      "private",
		ir.SpaceWorkGroup:    "workgroup",
		ir.SpaceUniform:      "uniform",
		ir.SpaceStorage:      "storage",
		ir.SpacePushConstant: "push_constant",
		ir.SpaceHandle:       "handle",
		ir.SpaceInput:        "input",
		ir.SpaceOutput:       "output",
	})

	dims = newEnum("image dimension", map[ir.ImageDimension]string{
		ir.Dim1D:   "1d",
		ir.Dim2D:   "2d",
		ir.Dim3D:   "3d",
		ir.DimCube: "cube",
	})

	imageClasses = newEnum("image class", map[ir.ImageClass]string{
		ir.ImageClassSampled: "sampled",
		ir.ImageClassDepth:   "depth",
		ir.ImageClassStorage: "storage",
	})

	formats = newEnum("storage format", map[ir.StorageFormat]string{
		ir.FormatRgba8Unorm:  "rgba8unorm",
		ir.FormatRgba8Snorm:  "rgba8snorm",
		ir.FormatRgba8Uint:   "rgba8uint",
		ir.FormatRgba8Sint:   "rgba8sint",
		ir.FormatRgba16Float: "rgba16float",
		ir.FormatR32Uint:     "r32uint",
		ir.FormatR32Sint:     "r32sint",
		ir.FormatR32Float:    "r32float",
		ir.FormatRgba32Uint:  "rgba32uint",
		ir.FormatRgba32Sint:  "rgba32sint",
		ir.FormatRgba32Float: "rgba32float",
	})

	builtins = newEnum("builtin", map[ir.BuiltinValue]string{
		ir.BuiltinPosition:             "position",
		ir.BuiltinVertexIndex:          "vertex_index",
		ir.BuiltinInstanceIndex:        "instance_index",
		ir.BuiltinFrontFacing:          "front_facing",
		ir.BuiltinFragDepth:            "frag_depth",
		ir.BuiltinSampleIndex:          "sample_index",
		ir.BuiltinSampleMask:           "sample_mask",
		ir.BuiltinLocalInvocationID:    "local_invocation_id",
		ir.BuiltinLocalInvocationIndex: "local_invocation_index",
		ir.BuiltinGlobalInvocationID:   "global_invocation_id",
		ir.BuiltinWorkGroupID:          "workgroup_id",
		ir.BuiltinNumWorkGroups:        "num_workgroups",
	})

	interpolations = newEnum("interpolation", map[ir.InterpolationKind]string{
		ir.InterpolationFlat:        "flat",
		ir.InterpolationLinear:      "linear",
		ir.InterpolationPerspective: "perspective",
	})

	samplings = newEnum("interpolation sampling", map[ir.InterpolationSampling]string{
		ir.SamplingCenter:   "center",
		ir.SamplingCentroid: "centroid",
		ir.SamplingSample:   "sample",
	})

	unaryOps = newEnum("unary operator", map[ir.UnaryOperator]string{
		ir.UnaryNegate:     "negate",
		ir.UnaryLogicalNot: "logical_not",
		ir.UnaryBitwiseNot: "bitwise_not",
	})

	binaryOps = newEnum("binary operator", map[ir.BinaryOperator]string{
		ir.BinaryAdd:          "add",
		ir.BinarySubtract:     "subtract",
		ir.BinaryMultiply:     "multiply",
		ir.BinaryDivide:       "divide",
		ir.BinaryModulo:       "modulo",
		ir.BinaryEqual:        "equal",
		ir.BinaryNotEqual:     "not_equal",
		ir.BinaryLess:         "less",
		ir.BinaryLessEqual:    "less_equal",
		ir.BinaryGreater:      "greater",
		ir.BinaryGreaterEqual: "greater_equal",
		ir.BinaryAnd:          "and",
		ir.BinaryExclusiveOr:  "exclusive_or",
		ir.BinaryInclusiveOr:  "inclusive_or",
		ir.BinaryLogicalAnd:   "logical_and",
		ir.BinaryLogicalOr:    "logical_or",
		ir.BinaryShiftLeft:    "shift_left",
		ir.BinaryShiftRight:   "shift_right",
	})

	axes = newEnum("derivative axis", map[ir.DerivativeAxis]string{
		ir.DerivativeX:     "x",
		ir.DerivativeY:     "y",
		ir.DerivativeWidth: "width",
	})

	controls = newEnum("derivative control", map[ir.DerivativeControl]string{
		ir.DerivativeCoarse: "coarse",
		ir.DerivativeFine:   "fine",
		ir.DerivativeNone:   "none",
	})

	relationals = newEnum("relational function", map[ir.RelationalFunction]string{
		ir.RelationalAll:   "all",
		ir.RelationalAny:   "any",
		ir.RelationalIsNan: "is_nan",
		ir.RelationalIsInf: "is_inf",
	})

	mathFunctions = newEnum("math function", map[ir.MathFunction]string{
		ir.MathAbs:                "abs",
		ir.MathMin:                "min",
		ir.MathMax:                "max",
		ir.MathClamp:              "clamp",
		ir.MathSaturate:           "saturate",
		ir.MathCos:                "cos",
		ir.MathCosh:               "cosh",
		ir.MathSin:                "sin",
		ir.MathSinh:               "sinh",
		ir.MathTan:                "tan",
		ir.MathTanh:               "tanh",
		ir.MathAcos:               "acos",
		ir.MathAsin:               "asin",
		ir.MathAtan:               "atan",
		ir.MathAtan2:              "atan2",
		ir.MathAsinh:              "asinh",
		ir.MathAcosh:              "acosh",
		ir.MathAtanh:              "atanh",
		ir.MathRadians:            "radians",
		ir.MathDegrees:            "degrees",
		ir.MathCeil:               "ceil",
		ir.MathFloor:              "floor",
		ir.MathRound:              "round",
		ir.MathFract:              "fract",
		ir.MathTrunc:              "trunc",
		ir.MathLdexp:              "ldexp",
		ir.MathExp:                "exp",
		ir.MathExp2:               "exp2",
		ir.MathLog:                "log",
		ir.MathLog2:               "log2",
		ir.MathPow:                "pow",
		ir.MathDot:                "dot",
		ir.MathDot4I8Packed:       "dot4_i8_packed",
		ir.MathDot4U8Packed:       "dot4_u8_packed",
		ir.MathOuter:              "outer",
		ir.MathCross:              "cross",
		ir.MathDistance:           "distance",
		ir.MathLength:             "length",
		ir.MathNormalize:          "normalize",
		ir.MathFaceForward:        "face_forward",
		ir.MathReflect:            "reflect",
		ir.MathRefract:            "refract",
		ir.MathSign:               "sign",
		ir.MathFma:                "fma",
		ir.MathMix:                "mix",
		ir.MathStep:               "step",
		ir.MathSmoothStep:         "smooth_step",
		ir.MathSqrt:               "sqrt",
		ir.MathInverseSqrt:        "inverse_sqrt",
		ir.MathInverse:            "inverse",
		ir.MathTranspose:          "transpose",
		ir.MathDeterminant:        "determinant",
		ir.MathQuantizeF16:        "quantize_f16",
		ir.MathCountTrailingZeros: "count_trailing_zeros",
		ir.MathCountLeadingZeros:  "count_leading_zeros",
		ir.MathCountOneBits:       "count_one_bits",
		ir.MathReverseBits:        "reverse_bits",
		ir.MathExtractBits:        "extract_bits",
		ir.MathInsertBits:         "insert_bits",
		ir.MathFirstTrailingBit:   "first_trailing_bit",
		ir.MathFirstLeadingBit:    "first_leading_bit",
		ir.MathPack4x8snorm:       "pack4x8snorm",
		ir.MathPack4x8unorm:       "pack4x8unorm",
		ir.MathPack2x16snorm:      "pack2x16snorm",
		ir.MathPack2x16unorm:      "pack2x16unorm",
		ir.MathPack2x16float:      "pack2x16float",
		ir.MathPack4xI8:           "pack4x_i8",
		ir.MathPack4xU8:           "pack4x_u8",
		ir.MathPack4xI8Clamp:      "pack4x_i8_clamp",
		ir.MathPack4xU8Clamp:      "pack4x_u8_clamp",
		ir.MathUnpack4x8snorm:     "unpack4x8snorm",
		ir.MathUnpack4x8unorm:     "unpack4x8unorm",
		ir.MathUnpack2x16snorm:    "unpack2x16snorm",
		ir.MathUnpack2x16unorm:    "unpack2x16unorm",
		ir.MathUnpack2x16float:    "unpack2x16float",
		ir.MathUnpack4xI8:         "unpack4x_i8",
		ir.MathUnpack4xU8:         "unpack4x_u8",
	})

	components = newEnum("swizzle component", map[ir.SwizzleComponent]string{
		ir.SwizzleX: "x",
		ir.SwizzleY: "y",
		ir.SwizzleZ: "z",
		ir.SwizzleW: "w",
	})

	storageAccess = flagSet[ir.StorageAccess]{
		what:  "storage access",
		flags: []ir.StorageAccess{ir.StorageLoad, ir.StorageStore},
		names: []string{"load", "store"},
	}

	barrierFlags = flagSet[ir.BarrierFlags]{
		what:  "barrier flag",
		flags: []ir.BarrierFlags{ir.BarrierStorage, ir.BarrierWorkGroup, ir.BarrierSubGroup, ir.BarrierTexture},
		names: []string{"storage", "workgroup", "subgroup", "texture"},
	}
)

// formatScalar spells a scalar the way shaders do: f32, i64, bool. Widths a
// validator would reject still get a spelling so a document can carry them.
func formatScalar(s ir.ScalarType) (string, error) {
	var prefix string
	switch s.Kind {
	case ir.ScalarSint:
		prefix = "i"
	case ir.ScalarUint:
		prefix = "u"
	case ir.ScalarFloat:
		prefix = "f"
	case ir.ScalarBool:
		if s.Width == 1 {
			return "bool", nil
		}
		prefix = "bool"
	default:
		return "", fmt.Errorf("unknown scalar kind %d", s.Kind)
	}
	return prefix + strconv.Itoa(int(s.Width)*8), nil
}

func parseScalar(s string) (ir.ScalarType, error) {
	if s == "bool" {
		return ir.ScalarBoolean, nil
	}
	var (
		kind ir.ScalarKind
		bits string
	)
	switch {
	case strings.HasPrefix(s, "bool"):
		kind, bits = ir.ScalarBool, s[4:]
	case strings.HasPrefix(s, "i"):
		kind, bits = ir.ScalarSint, s[1:]
	case strings.HasPrefix(s, "u"):
		kind, bits = ir.ScalarUint, s[1:]
	case strings.HasPrefix(s, "f"):
		kind, bits = ir.ScalarFloat, s[1:]
	default:
		return ir.ScalarType{}, fmt.Errorf("unknown scalar %q", s)
	}
	n, err := strconv.ParseUint(bits, 10, 16)
	if err != nil || n == 0 || n%8 != 0 || n/8 > 255 {
		return ir.ScalarType{}, fmt.Errorf("unknown scalar %q", s)
	}
	return ir.ScalarType{Kind: kind, Width: uint8(n / 8)}, nil
}

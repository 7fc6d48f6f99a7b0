package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vec2f = VectorType{Size: Vec2, Scalar: ScalarF32}
	vec3f = VectorType{Size: Vec3, Scalar: ScalarF32}
	vec4f = VectorType{Size: Vec4, Scalar: ScalarF32}
	vec3b = VectorType{Size: Vec3, Scalar: ScalarBoolean}
	vec3i = VectorType{Size: Vec3, Scalar: ScalarI32}
)

func mat(columns, rows VectorSize) MatrixType {
	return MatrixType{Columns: columns, Rows: rows, Scalar: ScalarF32}
}

type buildFunc func(m *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle

// resolveIn validates a function taking arguments of the given types and
// returns the type of the expression build produces.
func resolveIn(t *testing.T, caps Capabilities, argTypes []TypeInner, build buildFunc) (TypeInner, error) {
	t.Helper()
	m := newTestModule()
	f := newFunc("f")
	args := make([]ExpressionHandle, len(argTypes))
	for i, inner := range argTypes {
		f.arg(fmt.Sprintf("a%d", i), m.typ(inner))
		args[i] = f.expr(ExprFunctionArgument{Index: uint32(i)})
	}
	h := build(m, f, args)
	fh := m.add(f)

	info, err := Validate(m.Module, caps)
	if err != nil {
		return nil, err
	}
	return info.Function(fh).Type(h).Inner(&m.Types), nil
}

type resolveCase struct {
	name    string
	args    []TypeInner
	build   buildFunc
	want    TypeInner
	wantErr ErrorKind
	fails   bool
}

func runResolveCases(t *testing.T, caps Capabilities, tests []resolveCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveIn(t, caps, tt.args, tt.build)
			if tt.fails {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v, want kind %s", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func binary(op BinaryOperator) buildFunc {
	return func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
		return f.expr(ExprBinary{Op: op, Left: args[0], Right: args[1]})
	}
}

func TestResolveBinary(t *testing.T) {
	tests := []resolveCase{
		{name: "scalar add", args: []TypeInner{ScalarF32, ScalarF32}, build: binary(BinaryAdd), want: ScalarF32},
		{name: "vector times scalar", args: []TypeInner{vec3f, ScalarF32}, build: binary(BinaryMultiply), want: vec3f},
		{name: "scalar times vector", args: []TypeInner{ScalarF32, vec3f}, build: binary(BinaryMultiply), want: vec3f},
		{name: "scalar minus vector", args: []TypeInner{ScalarF32, vec3f}, build: binary(BinarySubtract), want: vec3f},
		{name: "matrix times vector", args: []TypeInner{mat(Vec4, Vec3), vec4f}, build: binary(BinaryMultiply), want: vec3f},
		{name: "vector times matrix", args: []TypeInner{vec3f, mat(Vec4, Vec3)}, build: binary(BinaryMultiply), want: vec4f},
		{name: "matrix times matrix", args: []TypeInner{mat(Vec2, Vec3), mat(Vec4, Vec2)}, build: binary(BinaryMultiply), want: mat(Vec4, Vec3)},
		{name: "matrix plus matrix", args: []TypeInner{mat(Vec3, Vec3), mat(Vec3, Vec3)}, build: binary(BinaryAdd), want: mat(Vec3, Vec3)},
		{name: "vector compare", args: []TypeInner{vec3f, vec3f}, build: binary(BinaryLess), want: vec3b},
		{name: "scalar equality", args: []TypeInner{ScalarU32, ScalarU32}, build: binary(BinaryEqual), want: ScalarBoolean},
		{name: "shift by unsigned", args: []TypeInner{vec3i, VectorType{Size: Vec3, Scalar: ScalarU32}}, build: binary(BinaryShiftLeft), want: vec3i},
		{name: "logical and", args: []TypeInner{ScalarBoolean, ScalarBoolean}, build: binary(BinaryLogicalAnd), want: ScalarBoolean},
		{name: "bool bitwise or", args: []TypeInner{ScalarBoolean, ScalarBoolean}, build: binary(BinaryInclusiveOr), want: ScalarBoolean},
		{name: "integer xor", args: []TypeInner{ScalarU32, ScalarU32}, build: binary(BinaryExclusiveOr), want: ScalarU32},

		{name: "scalar kinds differ", args: []TypeInner{ScalarF32, ScalarI32}, build: binary(BinaryAdd), fails: true, wantErr: KindMismatch},
		{name: "compare vector with scalar", args: []TypeInner{vec3f, ScalarF32}, build: binary(BinaryEqual), fails: true, wantErr: KindMismatch},
		{name: "matrix vector rows", args: []TypeInner{mat(Vec4, Vec3), vec3f}, build: binary(BinaryMultiply), fails: true, wantErr: KindMismatch},
		{name: "matrix divide", args: []TypeInner{mat(Vec2, Vec2), mat(Vec2, Vec2)}, build: binary(BinaryDivide), fails: true, wantErr: KindMismatch},
		{name: "bool arithmetic", args: []TypeInner{ScalarBoolean, ScalarBoolean}, build: binary(BinaryAdd), fails: true, wantErr: KindInvalidOperand},
		{name: "float bitwise", args: []TypeInner{ScalarF32, ScalarF32}, build: binary(BinaryAnd), fails: true, wantErr: KindInvalidOperand},
		{name: "bool xor", args: []TypeInner{ScalarBoolean, ScalarBoolean}, build: binary(BinaryExclusiveOr), fails: true, wantErr: KindInvalidOperand},
		{name: "signed shift amount", args: []TypeInner{ScalarI32, ScalarI32}, build: binary(BinaryShiftRight), fails: true, wantErr: KindInvalidOperand},
		{name: "integer logical", args: []TypeInner{ScalarI32, ScalarI32}, build: binary(BinaryLogicalOr), fails: true, wantErr: KindInvalidOperand},
	}
	runResolveCases(t, CapabilitiesDefault, tests)
}

func TestResolveAccess(t *testing.T) {
	local := func(build func(m *testModule) TypeHandle, index func(f *testFunc, base ExpressionHandle) ExpressionKind) buildFunc {
		return func(m *testModule, f *testFunc, _ []ExpressionHandle) ExpressionHandle {
			lh := f.LocalVars.Append(LocalVariable{Name: "v", Type: build(m)})
			base := f.expr(ExprLocalVariable{Variable: lh})
			return f.expr(index(f, base))
		}
	}
	array4 := func(m *testModule) TypeHandle {
		return m.typ(ArrayType{Base: m.f32(), Size: ArraySize{Constant: ptr(uint32(4))}, Stride: 4})
	}
	vec4 := func(m *testModule) TypeHandle { return m.vec(Vec4, ScalarF32) }
	dynamic := func(f *testFunc, base ExpressionHandle) ExpressionKind {
		return ExprAccess{Base: base, Index: f.expr(lit(LiteralI32(1)))}
	}
	constant := func(i uint32) func(*testFunc, ExpressionHandle) ExpressionKind {
		return func(_ *testFunc, base ExpressionHandle) ExpressionKind {
			return ExprAccessIndex{Base: base, Index: i}
		}
	}

	tests := []resolveCase{
		{
			name:  "array element through pointer",
			build: local(array4, dynamic),
			want:  PointerType{Base: 0, Space: SpaceFunction},
		},
		{
			name:  "vector component through pointer",
			build: local(vec4, constant(3)),
			want:  ValuePointerType{Scalar: ScalarF32, Space: SpaceFunction},
		},
		{
			name:  "vector component out of range",
			build: local(vec4, constant(4)),
			fails: true, wantErr: KindIndexOutOfBounds,
		},
		{
			name: "matrix column by value",
			args: []TypeInner{mat(Vec3, Vec2)},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprAccessIndex{Base: args[0], Index: 2})
			},
			want: vec2f,
		},
		{
			name: "vector by value",
			args: []TypeInner{vec3f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprAccess{Base: args[0], Index: f.expr(lit(LiteralU32(0)))})
			},
			want: ScalarF32,
		},
		{
			name: "float index",
			args: []TypeInner{vec3f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprAccess{Base: args[0], Index: f.expr(lit(LiteralF32(0)))})
			},
			fails: true, wantErr: KindInvalidOperand,
		},
		{
			name: "struct member needs constant index",
			build: local(func(m *testModule) TypeHandle {
				return m.named("S", StructType{Members: []StructMember{{Name: "a", Type: m.f32()}}, Span: 4})
			}, dynamic),
			fails: true, wantErr: KindNotIndexable,
		},
		{
			name: "scalar is not indexable",
			args: []TypeInner{ScalarF32},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprAccessIndex{Base: args[0], Index: 0})
			},
			fails: true, wantErr: KindNotIndexable,
		},
		{
			name: "load through value pointer",
			build: func(m *testModule, f *testFunc, _ []ExpressionHandle) ExpressionHandle {
				lh := f.LocalVars.Append(LocalVariable{Name: "v", Type: vec4(m)})
				component := f.expr(ExprAccessIndex{Base: f.expr(ExprLocalVariable{Variable: lh}), Index: 1})
				return f.expr(ExprLoad{Pointer: component})
			},
			want: ScalarF32,
		},
		{
			name: "load from a value",
			args: []TypeInner{ScalarF32},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprLoad{Pointer: args[0]})
			},
			fails: true, wantErr: KindNotPointer,
		},
	}
	runResolveCases(t, CapabilitiesDefault, tests)
}

func TestResolveVectorOps(t *testing.T) {
	tests := []resolveCase{
		{
			name: "splat",
			args: []TypeInner{ScalarF32},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSplat{Size: Vec3, Value: args[0]})
			},
			want: vec3f,
		},
		{
			name: "splat a vector",
			args: []TypeInner{vec2f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSplat{Size: Vec3, Value: args[0]})
			},
			fails: true, wantErr: KindNotScalar,
		},
		{
			name: "swizzle",
			args: []TypeInner{vec4f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSwizzle{Size: Vec2, Vector: args[0], Pattern: [4]SwizzleComponent{SwizzleW, SwizzleX}})
			},
			want: vec2f,
		},
		{
			name: "swizzle past the last lane",
			args: []TypeInner{vec2f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSwizzle{Size: Vec2, Vector: args[0], Pattern: [4]SwizzleComponent{SwizzleX, SwizzleZ}})
			},
			fails: true, wantErr: KindIndexOutOfBounds,
		},
		{
			name: "select scalar condition",
			args: []TypeInner{ScalarBoolean, vec3f, vec3f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSelect{Condition: args[0], Accept: args[1], Reject: args[2]})
			},
			want: vec3f,
		},
		{
			name: "select condition size",
			args: []TypeInner{VectorType{Size: Vec2, Scalar: ScalarBoolean}, vec3f, vec3f},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprSelect{Condition: args[0], Accept: args[1], Reject: args[2]})
			},
			fails: true, wantErr: KindMismatch,
		},
		{
			name: "compose from vector and scalars",
			args: []TypeInner{vec2f, ScalarF32},
			build: func(m *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprCompose{Type: m.vec(Vec4, ScalarF32), Components: []ExpressionHandle{args[0], args[1], args[1]}})
			},
			want: vec4f,
		},
		{
			name: "compose too few lanes",
			args: []TypeInner{vec2f},
			build: func(m *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprCompose{Type: m.vec(Vec4, ScalarF32), Components: []ExpressionHandle{args[0]}})
			},
			fails: true, wantErr: KindMismatch,
		},
		{
			name: "compose matrix from columns",
			args: []TypeInner{vec3f},
			build: func(m *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprCompose{Type: m.typ(mat(Vec2, Vec3)), Components: []ExpressionHandle{args[0], args[0]}})
			},
			want: mat(Vec2, Vec3),
		},
		{
			name: "zero value of runtime array",
			build: func(m *testModule, f *testFunc, _ []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprZeroValue{Type: m.typ(ArrayType{Base: m.f32(), Stride: 4})})
			},
			fails: true, wantErr: KindInvalidType,
		},
		{
			name: "negate unsigned",
			args: []TypeInner{ScalarU32},
			build: func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprUnary{Op: UnaryNegate, Expr: args[0]})
			},
			fails: true, wantErr: KindInvalidOperand,
		},
	}
	runResolveCases(t, CapabilitiesDefault, tests)
}

func TestResolveConversions(t *testing.T) {
	as := func(kind ScalarKind, width *uint8) buildFunc {
		return func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
			return f.expr(ExprAs{Expr: args[0], Kind: kind, Convert: width})
		}
	}
	relational := func(fun RelationalFunction) buildFunc {
		return func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
			return f.expr(ExprRelational{Fun: fun, Argument: args[0]})
		}
	}

	tests := []resolveCase{
		{name: "convert vector", args: []TypeInner{vec3f}, build: as(ScalarSint, ptr(uint8(4))), want: vec3i},
		{name: "bitcast", args: []TypeInner{ScalarU32}, build: as(ScalarFloat, nil), want: ScalarF32},
		{name: "convert to bool", args: []TypeInner{ScalarI32}, build: as(ScalarBool, ptr(uint8(1))), want: ScalarBoolean},
		{name: "bitcast to bool", args: []TypeInner{ScalarI32}, build: as(ScalarBool, nil), fails: true, wantErr: KindInvalidOperand},
		{name: "widen without capability", args: []TypeInner{ScalarF32}, build: as(ScalarFloat, ptr(uint8(8))), fails: true, wantErr: KindMissingCapability},
		{name: "matrix to integer", args: []TypeInner{mat(Vec2, Vec2)}, build: as(ScalarSint, ptr(uint8(4))), fails: true, wantErr: KindInvalidOperand},
		{name: "odd width", args: []TypeInner{ScalarI32}, build: as(ScalarSint, ptr(uint8(3))), fails: true, wantErr: KindInvalidType},

		{name: "isnan vector", args: []TypeInner{vec3f}, build: relational(RelationalIsNan), want: vec3b},
		{name: "all", args: []TypeInner{vec3b}, build: relational(RelationalAll), want: ScalarBoolean},
		{name: "any of floats", args: []TypeInner{vec3f}, build: relational(RelationalAny), fails: true, wantErr: KindInvalidOperand},
	}
	runResolveCases(t, CapabilitiesDefault, tests)

	t.Run("widen with capability", func(t *testing.T) {
		got, err := resolveIn(t, CapabilitiesDefault|CapabilityFloat64, []TypeInner{vec2f}, as(ScalarFloat, ptr(uint8(8))))
		require.NoError(t, err)
		assert.Equal(t, TypeInner(VectorType{Size: Vec2, Scalar: ScalarType{Kind: ScalarFloat, Width: 8}}), got)
	})
}

func mathCall(fun MathFunction) buildFunc {
	return func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
		e := ExprMath{Fun: fun, Arg: args[0]}
		rest := []**ExpressionHandle{&e.Arg1, &e.Arg2, &e.Arg3}
		for i, a := range args[1:] {
			*rest[i] = ptr(a)
		}
		return f.expr(e)
	}
}

func TestResolveMath(t *testing.T) {
	tests := []resolveCase{
		{name: "sin", args: []TypeInner{vec3f}, build: mathCall(MathSin), want: vec3f},
		{name: "dot", args: []TypeInner{vec3f, vec3f}, build: mathCall(MathDot), want: ScalarF32},
		{name: "integer dot", args: []TypeInner{vec3i, vec3i}, build: mathCall(MathDot), want: ScalarI32},
		{name: "cross", args: []TypeInner{vec3f, vec3f}, build: mathCall(MathCross), want: vec3f},
		{name: "length", args: []TypeInner{vec4f}, build: mathCall(MathLength), want: ScalarF32},
		{name: "clamp", args: []TypeInner{ScalarI32, ScalarI32, ScalarI32}, build: mathCall(MathClamp), want: ScalarI32},
		{name: "mix scalar factor", args: []TypeInner{vec3f, vec3f, ScalarF32}, build: mathCall(MathMix), want: vec3f},
		{name: "outer", args: []TypeInner{vec3f, vec2f}, build: mathCall(MathOuter), want: mat(Vec2, Vec3)},
		{name: "transpose", args: []TypeInner{mat(Vec4, Vec3)}, build: mathCall(MathTranspose), want: mat(Vec3, Vec4)},
		{name: "determinant", args: []TypeInner{mat(Vec3, Vec3)}, build: mathCall(MathDeterminant), want: ScalarF32},
		{name: "extract bits", args: []TypeInner{ScalarI32, ScalarU32, ScalarU32}, build: mathCall(MathExtractBits), want: ScalarI32},
		{name: "ldexp", args: []TypeInner{vec3f, vec3i}, build: mathCall(MathLdexp), want: vec3f},
		{name: "unpack", args: []TypeInner{ScalarU32}, build: mathCall(MathUnpack4x8unorm), want: vec4f},
		{name: "pack", args: []TypeInner{vec2f}, build: mathCall(MathPack2x16float), want: ScalarU32},

		{name: "sin of integer", args: []TypeInner{ScalarI32}, build: mathCall(MathSin), fails: true, wantErr: KindInvalidOperand},
		{name: "min of mixed", args: []TypeInner{ScalarF32, ScalarI32}, build: mathCall(MathMin), fails: true, wantErr: KindMismatch},
		{name: "min missing argument", args: []TypeInner{ScalarF32}, build: mathCall(MathMin), fails: true, wantErr: KindWrongArgumentCount},
		{name: "cross of vec2", args: []TypeInner{vec2f, vec2f}, build: mathCall(MathCross), fails: true, wantErr: KindInvalidOperand},
		{name: "determinant of non-square", args: []TypeInner{mat(Vec4, Vec3)}, build: mathCall(MathDeterminant), fails: true, wantErr: KindInvalidOperand},
		{name: "sign of unsigned", args: []TypeInner{ScalarU32}, build: mathCall(MathSign), fails: true, wantErr: KindInvalidOperand},
		{name: "mix factor shape", args: []TypeInner{vec3f, vec3f, vec2f}, build: mathCall(MathMix), fails: true, wantErr: KindMismatch},
		{name: "pack wrong vector", args: []TypeInner{vec3f}, build: mathCall(MathPack4x8snorm), fails: true, wantErr: KindInvalidOperand},
	}
	runResolveCases(t, CapabilitiesDefault, tests)

	t.Run("gap in arguments", func(t *testing.T) {
		_, err := resolveIn(t, CapabilitiesDefault, []TypeInner{ScalarF32, ScalarF32, ScalarF32},
			func(_ *testModule, f *testFunc, args []ExpressionHandle) ExpressionHandle {
				return f.expr(ExprMath{Fun: MathClamp, Arg: args[0], Arg2: ptr(args[1]), Arg3: ptr(args[2])})
			})
		assert.True(t, errors.Is(err, KindWrongArgumentCount), "error = %v", err)
	})
}

func TestResolveLiterals(t *testing.T) {
	tests := []struct {
		value LiteralValue
		need  Capabilities
		want  ScalarType
	}{
		{LiteralF32(1), 0, ScalarF32},
		{LiteralI32(-1), 0, ScalarI32},
		{LiteralU32(1), 0, ScalarU32},
		{LiteralBool(true), 0, ScalarBoolean},
		{LiteralF16(1), CapabilityFloat16, ScalarType{Kind: ScalarFloat, Width: 2}},
		{LiteralF64(1), CapabilityFloat64, ScalarType{Kind: ScalarFloat, Width: 8}},
		{LiteralI64(1), CapabilityInt64, ScalarType{Kind: ScalarSint, Width: 8}},
		{LiteralU64(1), CapabilityInt64, ScalarType{Kind: ScalarUint, Width: 8}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.value), func(t *testing.T) {
			build := func(_ *testModule, f *testFunc, _ []ExpressionHandle) ExpressionHandle {
				return f.expr(lit(tt.value))
			}
			if tt.need != 0 {
				_, err := resolveIn(t, CapabilitiesDefault&^tt.need, nil, build)
				assert.True(t, errors.Is(err, KindMissingCapability), "error = %v", err)
			}
			got, err := resolveIn(t, CapabilitiesDefault|tt.need, nil, build)
			require.NoError(t, err)
			assert.Equal(t, TypeInner(tt.want), got)
		})
	}
}

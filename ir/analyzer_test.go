package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// derivativeUnder builds f(x: f32) whose body runs dpdx(x) inside an if on
// the given condition. It returns the derivative expression.
func derivativeUnder(m *testModule, cond func(f *testFunc) ExpressionHandle) (*testFunc, ExpressionHandle) {
	f := newFunc("f").arg("x", m.f32())
	x := f.expr(ExprFunctionArgument{Index: 0})
	c := cond(f)
	d, st := f.emit(ExprDerivative{Axis: DerivativeX, Expr: x})
	f.do(StmtIf{Condition: c, Accept: Block{st}})
	return f, d
}

func TestAnalyze_DerivativeUnderNonUniformBranch(t *testing.T) {
	m := newTestModule()
	f, d := derivativeUnder(m, func(f *testFunc) ExpressionHandle {
		zero := f.expr(lit(LiteralF32(0)))
		return f.emitted(ExprBinary{Op: BinaryLess, Left: 0, Right: zero})
	})
	m.add(f)

	ve := requireKind(t, m.Module, CapabilitiesDefault, KindNonUniformControlFlow)
	assert.Equal(t, []HandleRef{exprRef(d)}, ve.Handles)
	// 0 Emit, 1 If, 2 Emit
	assert.Equal(t, 2, ve.Statement)
	assert.Contains(t, ve.Message, "non-uniform value of expression")
}

func TestAnalyze_DerivativeUnderUniformBranch(t *testing.T) {
	m := newTestModule()
	g := m.global(GlobalVariable{
		Name:    "threshold",
		Space:   SpaceUniform,
		Binding: ResourceBinding{Group: 0, Binding: 0},
		Type:    m.f32(),
	})
	f, d := derivativeUnder(m, func(f *testFunc) ExpressionHandle {
		p := f.expr(ExprGlobalVariable{Variable: g})
		v := f.emitted(ExprLoad{Pointer: p})
		zero := f.expr(lit(LiteralF32(0)))
		return f.emitted(ExprBinary{Op: BinaryLess, Left: v, Right: zero})
	})
	fh := m.add(f)

	info := requireValid(t, m.Module, CapabilitiesDefault)
	fi := info.Function(fh)
	assert.Equal(t, FlagUsesDerivatives, fi.Flags)
	assert.Equal(t, GlobalUseRead, fi.Uses(g))
	// The argument is read by the derivative only.
	assert.Equal(t, 1, fi.Expressions[0].RefCount)
	require.NotNil(t, fi.Uniformity.RequireUniform)
	assert.Equal(t, d, *fi.Uniformity.RequireUniform)
}

func TestAnalyze_DerivativeAfterKill(t *testing.T) {
	m := newTestModule()
	f := newFunc("f").arg("x", m.f32())
	x := f.expr(ExprFunctionArgument{Index: 0})
	cond := f.expr(lit(LiteralBool(true)))
	f.do(StmtIf{Condition: cond, Accept: stmts(StmtKill{})})
	d := f.emitted(ExprDerivative{Axis: DerivativeY, Expr: x})
	m.add(f)

	ve := requireKind(t, m.Module, CapabilitiesDefault, KindNonUniformControlFlow)
	assert.Equal(t, []HandleRef{exprRef(d)}, ve.Handles)
	assert.Contains(t, ve.Message, "kill")
}

func TestAnalyze_ImplicitLodAfterReturn(t *testing.T) {
	m := newTestModule()
	tex := m.global(GlobalVariable{
		Name: "tex", Space: SpaceHandle, Binding: ResourceBinding{Group: 0, Binding: 0},
		Type: m.typ(ImageType{Dim: Dim2D, Class: ImageClassSampled, SampledKind: ScalarFloat}),
	})
	samp := m.global(GlobalVariable{
		Name: "samp", Space: SpaceHandle, Binding: ResourceBinding{Group: 0, Binding: 1},
		Type: m.typ(SamplerType{}),
	})

	f := newFunc("f").arg("uv", m.vec(Vec2, ScalarF32))
	uv := f.expr(ExprFunctionArgument{Index: 0})
	ti := f.expr(ExprGlobalVariable{Variable: tex})
	si := f.expr(ExprGlobalVariable{Variable: samp})
	cond := f.emitted(ExprRelational{Fun: RelationalAny, Argument: f.expr(ExprZeroValue{Type: m.typ(VectorType{Size: Vec2, Scalar: ScalarBoolean})})})
	f.do(StmtIf{Condition: cond, Accept: stmts(StmtReturn{})})
	sample := f.emitted(ExprImageSample{Image: ti, Sampler: si, Coordinate: uv, Level: SampleLevelAuto{}})
	m.add(f)

	ve := requireKind(t, m.Module, CapabilitiesDefault, KindNonUniformControlFlow)
	assert.Equal(t, []HandleRef{exprRef(sample)}, ve.Handles)
	assert.Contains(t, ve.Message, "return")
}

func TestAnalyze_SamplingNeedsGlobals(t *testing.T) {
	m := newTestModule()
	texType := m.typ(ImageType{Dim: Dim2D, Class: ImageClassSampled, SampledKind: ScalarFloat})
	a := m.global(GlobalVariable{Name: "a", Space: SpaceHandle, Binding: ResourceBinding{Binding: 0}, Type: texType})
	b := m.global(GlobalVariable{Name: "b", Space: SpaceHandle, Binding: ResourceBinding{Binding: 1}, Type: texType})
	samp := m.global(GlobalVariable{Name: "s", Space: SpaceHandle, Binding: ResourceBinding{Binding: 2}, Type: m.typ(SamplerType{})})

	f := newFunc("f")
	pick := f.expr(lit(LiteralBool(true)))
	ai := f.expr(ExprGlobalVariable{Variable: a})
	bi := f.expr(ExprGlobalVariable{Variable: b})
	si := f.expr(ExprGlobalVariable{Variable: samp})
	coord := f.expr(ExprZeroValue{Type: m.vec(Vec2, ScalarF32)})
	chosen := f.emitted(ExprSelect{Condition: pick, Accept: ai, Reject: bi})
	f.emitted(ExprImageSample{Image: chosen, Sampler: si, Coordinate: coord, Level: SampleLevelZero{}})
	m.add(f)

	ve := requireKind(t, m.Module, CapabilitiesDefault, KindExpectedGlobalVariable)
	assert.Contains(t, ve.Handles, exprRef(chosen))
}

func TestAnalyze_GlobalUses(t *testing.T) {
	m := newTestModule()
	f32 := m.f32()
	runtime := m.typ(ArrayType{Base: f32, Stride: 4})
	buf := m.global(GlobalVariable{
		Name: "particles", Space: SpaceStorage, Access: StorageReadWrite,
		Binding: ResourceBinding{Group: 0, Binding: 0},
		Type: m.named("Particles", StructType{Members: []StructMember{
			{Name: "scale", Type: f32, Offset: 0},
			{Name: "data", Type: runtime, Offset: 16},
		}}),
	})
	tex := m.global(GlobalVariable{
		Name: "tex", Space: SpaceHandle, Binding: ResourceBinding{Group: 0, Binding: 1},
		Type: m.typ(ImageType{Dim: Dim2D, Class: ImageClassSampled, SampledKind: ScalarFloat}),
	})
	unused := m.global(GlobalVariable{Name: "scratch", Space: SpacePrivate, Type: f32})

	f := newFunc("f")
	base := f.expr(ExprGlobalVariable{Variable: buf})
	data := f.emitted(ExprAccessIndex{Base: base, Index: 1})
	length := f.emitted(ExprArrayLength{Array: data})
	ti := f.expr(ExprGlobalVariable{Variable: tex})
	levels := f.emitted(ExprImageQuery{Image: ti, Query: ImageQueryNumLevels{}})
	scale := f.emitted(ExprAccessIndex{Base: base, Index: 0})
	fh := m.add(f.do(StmtStore{Pointer: scale, Value: f.expr(ExprZeroValue{Type: f32})}))

	info := requireValid(t, m.Module, CapabilitiesDefault)
	fi := info.Function(fh)
	assert.Equal(t, GlobalUseQuery|GlobalUseWrite, fi.Uses(buf))
	assert.Equal(t, GlobalUseQuery, fi.Uses(tex))
	assert.Equal(t, GlobalUse(0), fi.Uses(unused))
	assert.Equal(t, "write|query", fi.Uses(buf).String())

	require.NotNil(t, fi.Expressions[data].AssignableGlobal)
	assert.Equal(t, buf, *fi.Expressions[data].AssignableGlobal)
	assert.Equal(t, 2, fi.Expressions[base].RefCount)
	assert.Equal(t, 0, fi.Expressions[length].RefCount)
	assert.Equal(t, TypeInner(ScalarU32), fi.Type(levels).Inner(&m.Types))
	// Read-write storage can change between invocations.
	assert.Equal(t, &base, fi.Expressions[base].Uniformity.NonUniformResult)
}

func TestAnalyze_CallMergesCallee(t *testing.T) {
	m := newTestModule()
	texType := m.typ(ImageType{Dim: Dim2D, Class: ImageClassSampled, SampledKind: ScalarFloat})
	sampType := m.typ(SamplerType{})
	var globals [4]GlobalVariableHandle
	for i, name := range []string{"t0", "t1", "s0", "s1"} {
		ty := texType
		if i >= 2 {
			ty = sampType
		}
		globals[i] = m.global(GlobalVariable{Name: name, Space: SpaceHandle, Binding: ResourceBinding{Binding: uint32(i)}, Type: ty})
	}
	sample := func(f *testFunc, tex, samp GlobalVariableHandle) {
		ti := f.expr(ExprGlobalVariable{Variable: tex})
		si := f.expr(ExprGlobalVariable{Variable: samp})
		coord := f.expr(ExprZeroValue{Type: m.vec(Vec2, ScalarF32)})
		f.emitted(ExprImageSample{Image: ti, Sampler: si, Coordinate: coord, Level: SampleLevelZero{}})
	}

	callee := newFunc("discard_if_dark")
	sample(callee, globals[1], globals[3])
	x := callee.expr(lit(LiteralF32(1)))
	callee.emitted(ExprDerivative{Axis: DerivativeX, Expr: x})
	callee.do(StmtKill{})
	ch := m.add(callee)

	caller := newFunc("main")
	sample(caller, globals[0], globals[2])
	caller.do(StmtCall{Function: ch})
	fh := m.add(caller)

	info := requireValid(t, m.Module, CapabilitiesDefault)
	assert.Equal(t, FlagMayKill|FlagUsesDerivatives, info.Function(ch).Flags)
	fi := info.Function(fh)
	assert.Equal(t, FlagMayKill|FlagUsesDerivatives, fi.Flags)
	assert.Equal(t, []SamplingKey{
		{Image: globals[0], Sampler: globals[2]},
		{Image: globals[1], Sampler: globals[3]},
	}, fi.SamplingSet)
	for _, g := range globals {
		assert.Equal(t, GlobalUseRead, fi.Uses(g), "use of global %d", g)
	}
	assert.Equal(t, "may_kill|derivatives", fi.Flags.String())
}

func TestAnalyze_ExpressionUniformity(t *testing.T) {
	m := newTestModule()
	u := m.global(GlobalVariable{Name: "u", Space: SpaceUniform, Binding: ResourceBinding{}, Type: m.f32()})
	ro := m.global(GlobalVariable{Name: "ro", Space: SpaceStorage, Binding: ResourceBinding{Binding: 1}, Type: m.f32()})
	facing := m.global(GlobalVariable{Name: "facing", Space: SpaceInput, Binding: BuiltinBinding{Builtin: BuiltinFrontFacing}, Type: m.boolean()})
	index := m.global(GlobalVariable{Name: "index", Space: SpaceInput, Binding: BuiltinBinding{Builtin: BuiltinSampleIndex}, Type: m.u32()})

	f := newFunc("f")
	var exprs [4]ExpressionHandle
	for i, g := range []GlobalVariableHandle{u, ro, facing, index} {
		exprs[i] = f.expr(ExprGlobalVariable{Variable: g})
	}
	local := f.expr(ExprLocalVariable{Variable: f.LocalVars.Append(LocalVariable{Name: "v", Type: m.f32()})})
	fh := m.add(f)

	info := requireValid(t, m.Module, CapabilitiesDefault)
	fi := info.Function(fh)
	assert.Nil(t, fi.Expressions[exprs[0]].Uniformity.NonUniformResult, "uniform buffer")
	assert.Nil(t, fi.Expressions[exprs[1]].Uniformity.NonUniformResult, "read-only storage")
	assert.Nil(t, fi.Expressions[exprs[2]].Uniformity.NonUniformResult, "front facing")
	assert.Equal(t, &exprs[3], fi.Expressions[exprs[3]].Uniformity.NonUniformResult, "sample index")
	assert.Equal(t, &local, fi.Expressions[local].Uniformity.NonUniformResult, "local variable")
}

func TestAnalyze_CallResultCountsAsRead(t *testing.T) {
	m := newTestModule()
	f32 := m.f32()

	helper := newFunc("one").returns(f32)
	one := helper.expr(lit(LiteralF32(1)))
	helper.do(StmtReturn{Value: &one})
	hh := m.add(helper)

	caller := newFunc("main")
	r := caller.expr(ExprCallResult{Function: hh})
	caller.do(StmtCall{Function: hh, Result: &r})
	fh := m.add(caller)

	info := requireValid(t, m.Module, CapabilitiesDefault)
	fi := info.Function(fh)
	// The call statement itself reads its result, even when nothing else does.
	assert.Equal(t, 1, fi.Expressions[r].RefCount)
	assert.Nil(t, fi.Expressions[r].Uniformity.NonUniformResult)
	assert.Equal(t, TypeInner(ScalarF32), fi.Type(r).Inner(&m.Types))
}

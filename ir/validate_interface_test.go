package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Bindings(t *testing.T) {
	rb := func(group, binding uint32) Binding { return ResourceBinding{Group: group, Binding: binding} }

	tests := []struct {
		name string
		gv   func(m *testModule) GlobalVariable
		want ErrorKind
	}{
		{
			name: "uniform without binding",
			gv:   func(m *testModule) GlobalVariable { return GlobalVariable{Name: "u", Space: SpaceUniform, Type: m.f32()} },
			want: KindMissingBinding,
		},
		{
			name: "texture without binding",
			gv: func(m *testModule) GlobalVariable {
				return GlobalVariable{Name: "tex", Space: SpaceHandle, Type: m.typ(SamplerType{})}
			},
			want: KindMissingBinding,
		},
		{
			name: "input without binding",
			gv:   func(m *testModule) GlobalVariable { return GlobalVariable{Name: "in", Space: SpaceInput, Type: m.f32()} },
			want: KindMissingBinding,
		},
		{
			name: "output with resource binding",
			gv: func(m *testModule) GlobalVariable {
				return GlobalVariable{Name: "out", Space: SpaceOutput, Binding: rb(0, 0), Type: m.f32()}
			},
			want: KindUnexpectedBinding,
		},
		{
			name: "private with location",
			gv: func(m *testModule) GlobalVariable {
				return GlobalVariable{Name: "p", Space: SpacePrivate, Binding: LocationBinding{Location: 1}, Type: m.f32()}
			},
			want: KindUnexpectedBinding,
		},
		{
			name: "position of the wrong size",
			gv: func(m *testModule) GlobalVariable {
				return GlobalVariable{
					Name: "pos", Space: SpaceInput,
					Binding: BuiltinBinding{Builtin: BuiltinPosition}, Type: m.vec(Vec3, ScalarF32),
				}
			},
			want: KindInvalidBuiltinType,
		},
		{
			name: "front facing as an integer",
			gv: func(m *testModule) GlobalVariable {
				return GlobalVariable{
					Name: "ff", Space: SpaceInput,
					Binding: BuiltinBinding{Builtin: BuiltinFrontFacing}, Type: m.u32(),
				}
			},
			want: KindInvalidBuiltinType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule()
			g := m.global(tt.gv(m))

			ve := requireKind(t, m.Module, CapabilitiesDefault, tt.want)
			assert.Equal(t, globalRef(g), ve.Handles[0])
			assert.Empty(t, ve.EntryPoint)
		})
	}
}

func TestValidate_BindingSlotsPerGroup(t *testing.T) {
	m := newTestModule()
	f32 := m.f32()
	m.global(GlobalVariable{Name: "a", Space: SpaceUniform, Binding: ResourceBinding{Group: 0, Binding: 0}, Type: f32})
	m.global(GlobalVariable{Name: "b", Space: SpaceUniform, Binding: ResourceBinding{Group: 1, Binding: 0}, Type: f32})
	m.global(GlobalVariable{Name: "c", Space: SpaceStorage, Binding: ResourceBinding{Group: 0, Binding: 1}, Type: f32})

	requireValid(t, m.Module, CapabilitiesDefault)
}

// store writes a zero value of ty through global g at the end of f.
func store(f *testFunc, g GlobalVariableHandle, ty TypeHandle) {
	p := f.expr(ExprGlobalVariable{Variable: g})
	v := f.expr(ExprZeroValue{Type: ty})
	f.do(StmtStore{Pointer: p, Value: v})
}

func TestValidate_EntryPoints(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *testModule)
		want  ErrorKind
		refs  []HandleRef
	}{
		{
			name:  "no name",
			build: func(m *testModule) { m.entry("", StageFragment, m.add(newFunc("f"))) },
			want:  KindInvalidEntryPoint,
			refs:  []HandleRef{entryPointRef(0)},
		},
		{
			name: "name used twice",
			build: func(m *testModule) {
				fh := m.add(newFunc("f"))
				m.entry("main", StageFragment, fh)
				m.entry("main", StageFragment, fh)
			},
			want: KindDuplicateEntryPoint,
			refs: []HandleRef{entryPointRef(0), entryPointRef(1)},
		},
		{
			name: "function with arguments",
			build: func(m *testModule) {
				m.entry("main", StageFragment, m.add(newFunc("f").arg("x", m.f32())))
			},
			want: KindInvalidEntryPoint,
			refs: []HandleRef{entryPointRef(0), functionRef(0)},
		},
		{
			name: "function with a result",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				one := f.expr(lit(LiteralF32(1)))
				f.do(StmtReturn{Value: &one})
				m.entry("main", StageFragment, m.add(f))
			},
			want: KindInvalidEntryPoint,
			refs: []HandleRef{entryPointRef(0), functionRef(0)},
		},
		{
			name: "discard in a vertex shader",
			build: func(m *testModule) {
				pos := m.positionOutput()
				f := newFunc("f")
				store(f, pos, m.vec(Vec4, ScalarF32))
				f.do(StmtKill{})
				m.entry("main", StageVertex, m.add(f))
			},
			want: KindIllegalOperationForStage,
			refs: []HandleRef{entryPointRef(0)},
		},
		{
			name: "derivative in a compute shader",
			build: func(m *testModule) {
				f := newFunc("f")
				x := f.expr(lit(LiteralF32(1)))
				f.emitted(ExprDerivative{Axis: DerivativeWidth, Expr: x})
				m.entry("main", StageCompute, m.add(f))
			},
			want: KindIllegalOperationForStage,
			refs: []HandleRef{entryPointRef(0)},
		},
		{
			name: "barrier in a fragment shader",
			build: func(m *testModule) {
				m.entry("main", StageFragment, m.add(newFunc("f").do(StmtBarrier{Flags: BarrierWorkGroup})))
			},
			want: KindIllegalOperationForStage,
			refs: []HandleRef{entryPointRef(0)},
		},
		{
			name: "workgroup variable in a fragment shader",
			build: func(m *testModule) {
				g := m.global(GlobalVariable{Name: "shared", Space: SpaceWorkGroup, Type: m.f32()})
				f := newFunc("f")
				store(f, g, m.f32())
				m.entry("main", StageFragment, m.add(f))
			},
			want: KindIllegalOperationForStage,
			refs: []HandleRef{entryPointRef(0)},
		},
		{
			name: "fragment depth written by a vertex shader",
			build: func(m *testModule) {
				pos := m.positionOutput()
				depth := m.global(GlobalVariable{
					Name: "depth", Space: SpaceOutput,
					Binding: BuiltinBinding{Builtin: BuiltinFragDepth}, Type: m.f32(),
				})
				f := newFunc("f")
				store(f, pos, m.vec(Vec4, ScalarF32))
				store(f, depth, m.f32())
				m.entry("main", StageVertex, m.add(f))
			},
			want: KindIllegalBuiltinForStage,
			refs: []HandleRef{entryPointRef(0), globalRef(1)},
		},
		{
			name: "outputs sharing a location",
			build: func(m *testModule) {
				vec4 := m.vec(Vec4, ScalarF32)
				a := m.global(GlobalVariable{Name: "a", Space: SpaceOutput, Binding: LocationBinding{Location: 0}, Type: vec4})
				b := m.global(GlobalVariable{Name: "b", Space: SpaceOutput, Binding: LocationBinding{Location: 0}, Type: vec4})
				f := newFunc("f")
				store(f, a, vec4)
				store(f, b, vec4)
				m.entry("main", StageFragment, m.add(f))
			},
			want: KindDuplicateBinding,
			refs: []HandleRef{globalRef(0), globalRef(1)},
		},
		{
			name: "vertex shader without a position",
			build: func(m *testModule) {
				m.positionOutput()
				m.entry("main", StageVertex, m.add(newFunc("f")))
			},
			want: KindInvalidEntryPoint,
			refs: []HandleRef{entryPointRef(0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule()
			tt.build(m)

			ve := requireKind(t, m.Module, CapabilitiesDefault, tt.want)
			assert.Equal(t, tt.refs, ve.Handles)
			assert.Equal(t, "f", ve.Function)
		})
	}
}

func TestValidate_EntryPointsAccepted(t *testing.T) {
	t.Run("input and output share a location", func(t *testing.T) {
		m := newTestModule()
		vec4 := m.vec(Vec4, ScalarF32)
		in := m.global(GlobalVariable{Name: "in", Space: SpaceInput, Binding: LocationBinding{Location: 0}, Type: vec4})
		out := m.global(GlobalVariable{Name: "out", Space: SpaceOutput, Binding: LocationBinding{Location: 0}, Type: vec4})
		f := newFunc("fs_main")
		p := f.expr(ExprGlobalVariable{Variable: in})
		v := f.emitted(ExprLoad{Pointer: p})
		q := f.expr(ExprGlobalVariable{Variable: out})
		f.do(StmtStore{Pointer: q, Value: v})
		m.entry("fs_main", StageFragment, m.add(f))

		requireValid(t, m.Module, CapabilitiesDefault)
	})

	t.Run("builtins unused by a stage are ignored", func(t *testing.T) {
		m := newTestModule()
		m.global(GlobalVariable{
			Name: "vertex_index", Space: SpaceInput,
			Binding: BuiltinBinding{Builtin: BuiltinVertexIndex}, Type: m.u32(),
		})
		m.entry("fs_main", StageFragment, m.add(newFunc("fs_main")))

		requireValid(t, m.Module, CapabilitiesDefault)
	})

	t.Run("one function behind two stages", func(t *testing.T) {
		m := newTestModule()
		fh := m.add(newFunc("main"))
		m.entry("a", StageFragment, fh)
		m.entry("b", StageCompute, fh)

		info := requireValid(t, m.Module, CapabilitiesDefault)
		require.Len(t, info.EntryPoints, 2)
		assert.Equal(t, info.EntryPointFunction(0), info.EntryPointFunction(1))
	})

	t.Run("compute shader with workgroup memory and a barrier", func(t *testing.T) {
		m := newTestModule()
		g := m.global(GlobalVariable{Name: "shared", Space: SpaceWorkGroup, Type: m.u32()})
		f := newFunc("cs_main")
		store(f, g, m.u32())
		f.do(StmtBarrier{Flags: BarrierWorkGroup})
		m.entry("cs_main", StageCompute, m.add(f))

		info := requireValid(t, m.Module, CapabilitiesDefault)
		fi := info.EntryPointFunction(0)
		assert.Equal(t, FlagUsesBarrier, fi.Flags)
		assert.Equal(t, GlobalUseWrite, fi.Uses(g))
	})
}

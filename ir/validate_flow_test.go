package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// flowCase builds a module around one function body and expects either a
// diagnostic of a given kind at a given statement or success.
type flowCase struct {
	name  string
	build func(m *testModule)
	want  ErrorKind
	stmt  int
}

func runFlowCases(t *testing.T, tests []flowCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule()
			tt.build(m)
			ve := requireKind(t, m.Module, CapabilitiesDefault, tt.want)
			assert.Equal(t, tt.stmt, ve.Statement, "statement of %v", ve)
		})
	}
}

func TestValidate_EmitScoping(t *testing.T) {
	runFlowCases(t, []flowCase{
		{
			name: "never emitted",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralF32(1)))
				neg := f.expr(ExprUnary{Op: UnaryNegate, Expr: x})
				m.add(f.do(StmtReturn{Value: &neg}))
			},
			want: KindNotEmitted,
		},
		{
			name: "emitted twice",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralF32(1)))
				neg, st := f.emit(ExprUnary{Op: UnaryNegate, Expr: x})
				f.Body = append(f.Body, st, st)
				m.add(f.do(StmtReturn{Value: &neg}))
			},
			want: KindAlreadyEmitted,
			stmt: 1,
		},
		{
			name: "used after its block",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralF32(1)))
				neg, st := f.emit(ExprUnary{Op: UnaryNegate, Expr: x})
				m.add(f.do(StmtBlock{Block: Block{st}}, StmtReturn{Value: &neg}))
			},
			want: KindNotEmitted,
			stmt: 2,
		},
		{
			name: "emitted before its operand",
			build: func(m *testModule) {
				f := newFunc("f")
				x := f.expr(lit(LiteralF32(1)))
				neg := f.expr(ExprUnary{Op: UnaryNegate, Expr: x})
				f.expr(ExprUnary{Op: UnaryNegate, Expr: neg})
				m.add(f.do(StmtEmit{Range: Range{Start: 2, End: 3}}))
			},
			want: KindNotEmitted,
		},
		{
			name: "call result emitted",
			build: func(m *testModule) {
				g := newFunc("g").returns(m.f32())
				one := g.expr(lit(LiteralF32(1)))
				m.add(g.do(StmtReturn{Value: &one}))

				f := newFunc("f")
				r := f.expr(ExprCallResult{Function: 0})
				m.add(f.do(StmtEmit{Range: Range{Start: r, End: r + 1}}))
			},
			want: KindInvalidOperand,
		},
		{
			name: "call result used before the call",
			build: func(m *testModule) {
				g := newFunc("g").returns(m.f32())
				one := g.expr(lit(LiteralF32(1)))
				m.add(g.do(StmtReturn{Value: &one}))

				f := newFunc("f").returns(m.f32())
				r := f.expr(ExprCallResult{Function: 0})
				m.add(f.do(StmtReturn{Value: &r}, StmtCall{Function: 0, Result: &r}))
			},
			want: KindNotEmitted,
		},
	})
}

func TestValidate_ControlFlow(t *testing.T) {
	runFlowCases(t, []flowCase{
		{
			name: "break in continuing",
			build: func(m *testModule) {
				m.add(newFunc("f").do(StmtLoop{Continuing: stmts(StmtBreak{})}))
			},
			want: KindInvalidInContinuing,
			stmt: 1,
		},
		{
			name: "return in continuing",
			build: func(m *testModule) {
				m.add(newFunc("f").do(StmtLoop{Body: stmts(StmtBreak{}), Continuing: stmts(StmtReturn{})}))
			},
			want: KindInvalidInContinuing,
			stmt: 2,
		},
		{
			name: "kill in continuing",
			build: func(m *testModule) {
				m.add(newFunc("f").do(StmtLoop{Continuing: stmts(StmtBlock{Block: stmts(StmtKill{})})}))
			},
			want: KindInvalidInContinuing,
			stmt: 2,
		},
		{
			name: "continue in switch",
			build: func(m *testModule) {
				f := newFunc("f")
				sel := f.expr(lit(LiteralI32(0)))
				m.add(f.do(StmtSwitch{Selector: sel, Cases: []SwitchCase{
					{Value: SwitchValueDefault{}, Body: stmts(StmtContinue{})},
				}}))
			},
			want: KindBreakOutsideLoop,
			stmt: 1,
		},
		{
			name: "loop left by break reaches end",
			build: func(m *testModule) {
				m.add(newFunc("f").returns(m.f32()).do(StmtLoop{Body: stmts(StmtBreak{})}))
			},
			want: KindMissingReturn,
			stmt: -1,
		},
		{
			name: "one branch returns",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				cond := f.expr(lit(LiteralBool(true)))
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtIf{Condition: cond, Accept: stmts(StmtReturn{Value: &x})}))
			},
			want: KindMissingReturn,
			stmt: -1,
		},
		{
			name: "integer condition",
			build: func(m *testModule) {
				f := newFunc("f")
				cond := f.expr(lit(LiteralI32(1)))
				m.add(f.do(StmtIf{Condition: cond}))
			},
			want: KindMismatch,
		},
		{
			name: "break-if not bool",
			build: func(m *testModule) {
				f := newFunc("f")
				cond := f.expr(lit(LiteralU32(1)))
				m.add(f.do(StmtLoop{Body: stmts(StmtBreak{}), BreakIf: &cond}))
			},
			want: KindMismatch,
		},
		{
			name: "value from void function",
			build: func(m *testModule) {
				f := newFunc("f")
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtReturn{Value: &x}))
			},
			want: KindMismatch,
		},
		{
			name: "bare return from typed function",
			build: func(m *testModule) {
				m.add(newFunc("f").returns(m.f32()).do(StmtReturn{}))
			},
			want: KindMismatch,
		},
		{
			name: "wrong return type",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralU32(1)))
				m.add(f.do(StmtReturn{Value: &x}))
			},
			want: KindMismatch,
		},
	})
}

func TestValidate_ControlFlowAccepted(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *testModule)
	}{
		{
			name: "loop without break never falls through",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtLoop{Body: stmts(StmtReturn{Value: &x})}))
			},
		},
		{
			name: "both branches return",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				cond := f.expr(lit(LiteralBool(false)))
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtIf{
					Condition: cond,
					Accept:    stmts(StmtReturn{Value: &x}),
					Reject:    stmts(StmtReturn{Value: &x}),
				}))
			},
		},
		{
			name: "statements after return",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtReturn{Value: &x}, StmtBarrier{Flags: BarrierStorage}))
			},
		},
		{
			name: "continuing sees body emits",
			build: func(m *testModule) {
				f := newFunc("f")
				a := f.expr(lit(LiteralF32(1)))
				less, st := f.emit(ExprBinary{Op: BinaryLess, Left: a, Right: a})
				_, st2 := f.emit(ExprSelect{Condition: less, Accept: a, Reject: a})
				m.add(f.do(StmtLoop{Body: Block{st}, Continuing: Block{st2}, BreakIf: &less}))
			},
		},
		{
			name: "continue in loop inside switch",
			build: func(m *testModule) {
				f := newFunc("f")
				sel := f.expr(lit(LiteralU32(0)))
				m.add(f.do(StmtLoop{Body: stmts(
					StmtSwitch{Selector: sel, Cases: []SwitchCase{
						{Value: SwitchValueU32(1), Body: stmts(StmtContinue{})},
						{Value: SwitchValueDefault{}, Body: stmts(StmtBreak{})},
					}},
					StmtBreak{},
				)}))
			},
		},
		{
			name: "every switch case returns",
			build: func(m *testModule) {
				f := newFunc("f").returns(m.f32())
				sel := f.expr(lit(LiteralI32(0)))
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtSwitch{Selector: sel, Cases: []SwitchCase{
					{Value: SwitchValueI32(1), FallThrough: true},
					{Value: SwitchValueI32(2), Body: stmts(StmtReturn{Value: &x})},
					{Value: SwitchValueDefault{}, Body: stmts(StmtReturn{Value: &x})},
				}}))
			},
		},
		{
			name: "kill ends a function",
			build: func(m *testModule) {
				m.add(newFunc("f").returns(m.f32()).do(StmtKill{}))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule()
			tt.build(m)
			requireValid(t, m.Module, CapabilitiesDefault)
		})
	}
}

func TestValidate_Switch(t *testing.T) {
	switchOn := func(sel LiteralValue, cases ...SwitchCase) func(m *testModule) {
		return func(m *testModule) {
			f := newFunc("f")
			h := f.expr(lit(sel))
			m.add(f.do(StmtSwitch{Selector: h, Cases: cases}))
		}
	}
	def := SwitchCase{Value: SwitchValueDefault{}}

	runFlowCases(t, []flowCase{
		{name: "float selector", build: switchOn(LiteralF32(0), def), want: KindMismatch},
		{name: "case kind", build: switchOn(LiteralU32(0), SwitchCase{Value: SwitchValueI32(1)}, def), want: KindMismatch},
		{name: "duplicate value", build: switchOn(LiteralI32(0), SwitchCase{Value: SwitchValueI32(1)}, SwitchCase{Value: SwitchValueI32(1)}, def), want: KindInvalidSwitch},
		{name: "no default", build: switchOn(LiteralI32(0), SwitchCase{Value: SwitchValueI32(1)}), want: KindInvalidSwitch},
		{name: "two defaults", build: switchOn(LiteralI32(0), def, def), want: KindInvalidSwitch},
		{name: "missing value", build: switchOn(LiteralI32(0), SwitchCase{}, def), want: KindInvalidSwitch},
		{name: "last case falls through", build: switchOn(LiteralI32(0), SwitchCase{Value: SwitchValueDefault{}, FallThrough: true}), want: KindInvalidSwitch},
	})
}

func TestValidate_Memory(t *testing.T) {
	// counter declares an atomic<u32> global and starts a function holding
	// a pointer to it.
	counter := func(m *testModule, space AddressSpace, access StorageAccess) (*testFunc, ExpressionHandle) {
		gv := GlobalVariable{Name: "counter", Space: space, Access: access, Type: m.typ(AtomicType{Scalar: ScalarU32})}
		if space == SpaceStorage {
			gv.Binding = ResourceBinding{Group: 0, Binding: 0}
		}
		g := m.global(gv)
		f := newFunc("f")
		return f, f.expr(ExprGlobalVariable{Variable: g})
	}

	runFlowCases(t, []flowCase{
		{
			name: "store through a value",
			build: func(m *testModule) {
				f := newFunc("f")
				x := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtStore{Pointer: x, Value: x}))
			},
			want: KindNotPointer,
		},
		{
			name: "store wrong type",
			build: func(m *testModule) {
				f := newFunc("f")
				lh := f.LocalVars.Append(LocalVariable{Name: "v", Type: m.f32()})
				p := f.expr(ExprLocalVariable{Variable: lh})
				x := f.expr(lit(LiteralI32(1)))
				m.add(f.do(StmtStore{Pointer: p, Value: x}))
			},
			want: KindMismatch,
		},
		{
			name: "store into atomic",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageReadWrite)
				x := f.expr(lit(LiteralU32(1)))
				m.add(f.do(StmtStore{Pointer: p, Value: x}))
			},
			want: KindInvalidOperand,
		},
		{
			name: "atomic on read-only storage",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageLoad)
				x := f.expr(lit(LiteralU32(1)))
				m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicAdd{}, Value: x}))
			},
			want: KindWriteToReadOnly,
		},
		{
			name: "atomic in private memory",
			build: func(m *testModule) {
				f, p := counter(m, SpacePrivate, 0)
				x := f.expr(lit(LiteralU32(1)))
				m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicAdd{}, Value: x}))
			},
			want: KindInvalidOperand,
		},
		{
			name: "atomic operand type",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageReadWrite)
				x := f.expr(lit(LiteralI32(1)))
				m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicMax{}, Value: x}))
			},
			want: KindMismatch,
		},
		{
			name: "atomic compare type",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageReadWrite)
				x := f.expr(lit(LiteralU32(1)))
				cmp := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicExchange{Compare: &cmp}, Value: x}))
			},
			want: KindMismatch,
		},
		{
			name: "atomic result of another type",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageReadWrite)
				x := f.expr(lit(LiteralU32(1)))
				r := f.expr(ExprAtomicResult{Type: m.i32()})
				m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicAdd{}, Value: x, Result: &r}))
			},
			want: KindMismatch,
		},
		{
			name: "atomic result reused",
			build: func(m *testModule) {
				f, p := counter(m, SpaceStorage, StorageReadWrite)
				x := f.expr(lit(LiteralU32(1)))
				r := f.expr(ExprAtomicResult{Type: m.u32()})
				st := StmtAtomic{Pointer: p, Fun: AtomicAdd{}, Value: x, Result: &r}
				m.add(f.do(st, st))
			},
			want: KindAlreadyEmitted,
			stmt: 1,
		},
		{
			name: "image store into read-only image",
			build: func(m *testModule) {
				img := m.global(GlobalVariable{
					Name:    "out",
					Space:   SpaceHandle,
					Binding: ResourceBinding{Group: 0, Binding: 0},
					Type:    m.typ(ImageType{Dim: Dim2D, Class: ImageClassStorage, Format: FormatRgba8Unorm, Access: StorageLoad}),
				})
				f := newFunc("f")
				ih := f.expr(ExprGlobalVariable{Variable: img})
				coord := f.expr(ExprZeroValue{Type: m.vec(Vec2, ScalarI32)})
				texel := f.expr(ExprZeroValue{Type: m.vec(Vec4, ScalarF32)})
				m.add(f.do(StmtImageStore{Image: ih, Coordinate: coord, Value: texel}))
			},
			want: KindWriteToReadOnly,
		},
	})

	t.Run("atomic result comes into scope", func(t *testing.T) {
		m := newTestModule()
		f, p := counter(m, SpaceStorage, StorageReadWrite)
		x := f.expr(lit(LiteralU32(1)))
		r := f.expr(ExprAtomicResult{Type: m.u32()})
		sum, st := f.emit(ExprBinary{Op: BinaryAdd, Left: r, Right: x})
		fh := m.add(f.do(StmtAtomic{Pointer: p, Fun: AtomicAdd{}, Value: x, Result: &r}).do(st.Kind))

		info := requireValid(t, m.Module, CapabilitiesDefault)
		assert.Equal(t, TypeInner(ScalarU32), info.Function(fh).Type(sum).Inner(&m.Types))
		assert.Equal(t, GlobalUseRead|GlobalUseWrite, info.Function(fh).Uses(0))
	})
}

func TestValidate_Calls(t *testing.T) {
	// callee adds function 0: fn scale(x: f32) -> f32.
	callee := func(m *testModule) {
		g := newFunc("scale").arg("x", m.f32()).returns(m.f32())
		x := g.expr(ExprFunctionArgument{Index: 0})
		m.add(g.do(StmtReturn{Value: &x}))
	}

	runFlowCases(t, []flowCase{
		{
			name: "argument count",
			build: func(m *testModule) {
				callee(m)
				f := newFunc("f")
				r := f.expr(ExprCallResult{Function: 0})
				m.add(f.do(StmtCall{Function: 0, Result: &r}))
			},
			want: KindInvalidCall,
		},
		{
			name: "argument type",
			build: func(m *testModule) {
				callee(m)
				f := newFunc("f")
				a := f.expr(lit(LiteralI32(1)))
				r := f.expr(ExprCallResult{Function: 0})
				m.add(f.do(StmtCall{Function: 0, Arguments: []ExpressionHandle{a}, Result: &r}))
			},
			want: KindMismatch,
		},
		{
			name: "result dropped",
			build: func(m *testModule) {
				callee(m)
				f := newFunc("f")
				a := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtCall{Function: 0, Arguments: []ExpressionHandle{a}}))
			},
			want: KindInvalidCall,
		},
		{
			name: "result of a different expression",
			build: func(m *testModule) {
				callee(m)
				f := newFunc("f")
				a := f.expr(lit(LiteralF32(1)))
				m.add(f.do(StmtCall{Function: 0, Arguments: []ExpressionHandle{a}, Result: &a}))
			},
			want: KindInvalidCall,
		},
		{
			name: "result of a void function",
			build: func(m *testModule) {
				m.add(newFunc("g"))
				f := newFunc("f")
				r := f.expr(ExprCallResult{Function: 0})
				m.add(f.do(StmtCall{Function: 0, Result: &r}))
			},
			want: KindInvalidCall,
			stmt: -1,
		},
	})
}

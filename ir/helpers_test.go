package ir

import (
	"errors"
	"testing"
)

// testModule builds modules for tests through the same interfaces a
// front-end uses.
type testModule struct {
	*Module
	reg *TypeRegistry
}

func newTestModule() *testModule {
	m := &Module{}
	return &testModule{Module: m, reg: NewTypeRegistry(&m.Types)}
}

func (t *testModule) typ(inner TypeInner) TypeHandle {
	return t.reg.GetOrCreate("", inner)
}

func (t *testModule) named(name string, inner TypeInner) TypeHandle {
	return t.reg.GetOrCreate(name, inner)
}

func (t *testModule) f32() TypeHandle { return t.typ(ScalarF32) }
func (t *testModule) u32() TypeHandle { return t.typ(ScalarU32) }
func (t *testModule) i32() TypeHandle { return t.typ(ScalarI32) }
func (t *testModule) boolean() TypeHandle { return t.typ(ScalarBoolean) }

func (t *testModule) vec(size VectorSize, sc ScalarType) TypeHandle {
	return t.typ(VectorType{Size: size, Scalar: sc})
}

// constant adds a module constant initialized by a literal.
func (t *testModule) constant(name string, ty TypeHandle, value LiteralValue) ConstantHandle {
	init := t.GlobalExpressions.Append(Expression{Kind: Literal{Value: value}})
	return t.Constants.Append(Constant{Name: name, Type: ty, Init: init})
}

func (t *testModule) global(gv GlobalVariable) GlobalVariableHandle {
	return t.GlobalVariables.Append(gv)
}

func (t *testModule) add(f *testFunc) FunctionHandle {
	return t.Functions.Append(f.Function)
}

func (t *testModule) entry(name string, stage ShaderStage, fn FunctionHandle) {
	ep := EntryPoint{Name: name, Stage: stage, Function: fn}
	if stage == StageCompute {
		ep.Workgroup = [3]uint32{64, 1, 1}
	}
	t.EntryPoints.Append(ep)
}

// positionOutput adds the vec4<f32> position output every vertex entry
// point has to write.
func (t *testModule) positionOutput() GlobalVariableHandle {
	return t.global(GlobalVariable{
		Name:    "position",
		Space:   SpaceOutput,
		Binding: BuiltinBinding{Builtin: BuiltinPosition},
		Type:    t.vec(Vec4, ScalarF32),
	})
}

// testFunc builds one function body.
type testFunc struct {
	Function
}

func newFunc(name string) *testFunc {
	return &testFunc{Function: Function{Name: name}}
}

func (f *testFunc) returns(ty TypeHandle) *testFunc {
	f.Result = &FunctionResult{Type: ty}
	return f
}

func (f *testFunc) arg(name string, ty TypeHandle) *testFunc {
	f.Arguments = append(f.Arguments, FunctionArgument{Name: name, Type: ty})
	return f
}

// expr appends an expression without emitting it.
func (f *testFunc) expr(kind ExpressionKind) ExpressionHandle {
	return f.Expressions.Append(Expression{Kind: kind})
}

// emit appends expressions and returns the last one with the Emit statement
// covering them.
func (f *testFunc) emit(kinds ...ExpressionKind) (ExpressionHandle, Statement) {
	var e Emitter
	e.Start(&f.Expressions)
	var last ExpressionHandle
	for _, k := range kinds {
		last = f.expr(k)
	}
	st, _ := e.Finish(&f.Expressions)
	return last, st
}

// emitted appends expressions, emits them at the end of the body and
// returns the last one.
func (f *testFunc) emitted(kinds ...ExpressionKind) ExpressionHandle {
	h, st := f.emit(kinds...)
	f.Body = append(f.Body, st)
	return h
}

func (f *testFunc) do(kinds ...StatementKind) *testFunc {
	for _, k := range kinds {
		f.Body = append(f.Body, Statement{Kind: k})
	}
	return f
}

func stmts(kinds ...StatementKind) Block {
	block := make(Block, len(kinds))
	for i, k := range kinds {
		block[i] = Statement{Kind: k}
	}
	return block
}

func lit(v LiteralValue) Literal { return Literal{Value: v} }

func ptr[T any](v T) *T { return &v }

// requireKind validates m and fails unless the result is a diagnostic of
// the wanted kind. It returns that diagnostic.
func requireKind(t *testing.T, m *Module, caps Capabilities, want ErrorKind) *ValidationError {
	t.Helper()
	_, err := Validate(m, caps)
	if err == nil {
		t.Fatalf("Validate() succeeded, want %s", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("Validate() error = %v, want kind %s", err, want)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate() error %T is not a *ValidationError", err)
	}
	return ve
}

// requireValid validates m and fails on any diagnostic.
func requireValid(t *testing.T, m *Module, caps Capabilities) *ModuleInfo {
	t.Helper()
	info, err := Validate(m, caps)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return info
}

package irio

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadercore/ir"
)

// firstError records the first failure of a conversion that keeps going
// with zero values, so callers check once per arena element and prefix the
// error with the element's position.
type firstError struct {
	err error
}

func (f *firstError) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

// at returns the recorded failure prefixed with a document path, then
// clears it.
func (f *firstError) at(format string, args ...any) error {
	if f.err == nil {
		return nil
	}
	err := fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), f.err)
	f.err = nil
	return err
}

// encoder converts a Module into its document form.
type encoder struct {
	firstError
}

func named[T comparable](e *encoder, en enum[T], v T) string {
	n, err := en.name(v)
	if err != nil {
		e.fail(err)
	}
	return n
}

func flags[T ~uint8 | ~uint32](e *encoder, f flagSet[T], v T) string {
	s, err := f.format(v)
	if err != nil {
		e.fail(err)
	}
	return s
}

func (e *encoder) scalar(s ir.ScalarType) string {
	n, err := formatScalar(s)
	if err != nil {
		e.fail(err)
	}
	return n
}

func idx[T ~uint32](h T) *uint32 {
	v := uint32(h)
	return &v
}

func optIdx[T ~uint32](h *T) *uint32 {
	if h == nil {
		return nil
	}
	return idx(*h)
}

func indices[T ~uint32](hs []T) []uint32 {
	if len(hs) == 0 {
		return nil
	}
	out := make([]uint32, len(hs))
	for i, h := range hs {
		out[i] = uint32(h)
	}
	return out
}

func size(s ir.VectorSize) *uint8 {
	v := uint8(s)
	return &v
}

//nolint:gocyclo,cyclop,funlen // one section per arena
func encodeModule(m *ir.Module) (*moduleDoc, error) {
	var (
		e   encoder
		doc moduleDoc
	)
	for h, ty := range m.Types.All() {
		doc.Types = append(doc.Types, e.typ(ty))
		if err := e.at("types[%d]", h); err != nil {
			return nil, err
		}
	}
	for _, c := range m.Constants.All() {
		doc.Constants = append(doc.Constants, constantDoc{Name: c.Name, Type: uint32(c.Type), Init: uint32(c.Init)})
	}
	for h, expr := range m.GlobalExpressions.All() {
		doc.GlobalExpressions = append(doc.GlobalExpressions, e.expr(expr.Kind))
		if err := e.at("global_expressions[%d]", h); err != nil {
			return nil, err
		}
	}
	for h, gv := range m.GlobalVariables.All() {
		g := globalDoc{
			Name:    gv.Name,
			Space:   named(&e, spaces, gv.Space),
			Access:  flags(&e, storageAccess, gv.Access),
			Binding: e.binding(gv.Binding),
			Type:    uint32(gv.Type),
			Init:    optIdx(gv.Init),
		}
		doc.GlobalVariables = append(doc.GlobalVariables, g)
		if err := e.at("global_variables[%d]", h); err != nil {
			return nil, err
		}
	}
	for fh, fn := range m.Functions.All() {
		f := functionDoc{Name: fn.Name}
		for _, arg := range fn.Arguments {
			f.Arguments = append(f.Arguments, argumentDoc{Name: arg.Name, Type: uint32(arg.Type)})
		}
		if fn.Result != nil {
			f.Result = idx(fn.Result.Type)
		}
		for _, local := range fn.LocalVars.All() {
			f.Locals = append(f.Locals, localDoc{Name: local.Name, Type: uint32(local.Type), Init: optIdx(local.Init)})
		}
		for h, expr := range fn.Expressions.All() {
			f.Expressions = append(f.Expressions, e.expr(expr.Kind))
			if err := e.at("functions[%d].expressions[%d]", fh, h); err != nil {
				return nil, err
			}
		}
		f.Body = e.block(fn.Body)
		if err := e.at("functions[%d].body", fh); err != nil {
			return nil, err
		}
		doc.Functions = append(doc.Functions, f)
	}
	for i, ep := range m.EntryPoints.All() {
		d := entryPointDoc{Name: ep.Name, Stage: named(&e, stages, ep.Stage), Function: uint32(ep.Function)}
		if ep.Workgroup != [3]uint32{} {
			wg := ep.Workgroup
			d.Workgroup = &wg
		}
		doc.EntryPoints = append(doc.EntryPoints, d)
		if err := e.at("entry_points[%d]", i); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

//nolint:gocyclo,cyclop // one case per type variant
func (e *encoder) typ(ty *ir.Type) typeDoc {
	d := typeDoc{Name: ty.Name}
	switch t := ty.Inner.(type) {
	case ir.ScalarType:
		d.Kind, d.Scalar = "scalar", e.scalar(t)
	case ir.VectorType:
		d.Kind, d.Size, d.Scalar = "vector", size(t.Size), e.scalar(t.Scalar)
	case ir.MatrixType:
		d.Kind, d.Columns, d.Rows, d.Scalar = "matrix", uint8(t.Columns), uint8(t.Rows), e.scalar(t.Scalar)
	case ir.ArrayType:
		d.Kind, d.Base, d.Length, d.Stride = "array", idx(t.Base), t.Size.Constant, t.Stride
	case ir.StructType:
		d.Kind, d.Span = "struct", t.Span
		for _, m := range t.Members {
			d.Members = append(d.Members, memberDoc{Name: m.Name, Type: uint32(m.Type), Offset: m.Offset})
		}
	case ir.PointerType:
		d.Kind, d.Base = "pointer", idx(t.Base)
		d.Space, d.Access = named(e, spaces, t.Space), flags(e, storageAccess, t.Access)
	case ir.ValuePointerType:
		d.Kind, d.Scalar = "value_pointer", e.scalar(t.Scalar)
		if t.Size != nil {
			d.Size = size(*t.Size)
		}
		d.Space, d.Access = named(e, spaces, t.Space), flags(e, storageAccess, t.Access)
	case ir.AtomicType:
		d.Kind, d.Scalar = "atomic", e.scalar(t.Scalar)
	case ir.ImageType:
		d.Kind = "image"
		d.Dim = named(e, dims, t.Dim)
		d.Arrayed = t.Arrayed
		d.Class = named(e, imageClasses, t.Class)
		d.Multisampled = t.Multisampled
		switch t.Class {
		case ir.ImageClassSampled:
			d.SampledKind = named(e, scalarKinds, t.SampledKind)
		case ir.ImageClassStorage:
			d.Format = named(e, formats, t.Format)
			d.Access = flags(e, storageAccess, t.Access)
		}
	case ir.SamplerType:
		d.Kind, d.Comparison = "sampler", t.Comparison
	case ir.BindingArrayType:
		d.Kind, d.Base, d.Length = "binding_array", idx(t.Base), t.Size.Constant
	default:
		e.fail(fmt.Errorf("unknown type variant %T", ty.Inner))
	}
	return d
}

func (e *encoder) binding(b ir.Binding) *bindingDoc {
	switch b := b.(type) {
	case nil:
		return nil
	case ir.BuiltinBinding:
		return &bindingDoc{Kind: "builtin", Builtin: named(e, builtins, b.Builtin)}
	case ir.LocationBinding:
		d := &bindingDoc{Kind: "location", Location: idx(b.Location)}
		if b.Interpolation != nil {
			d.Interpolation = &interpolationDoc{
				Kind:     named(e, interpolations, b.Interpolation.Kind),
				Sampling: named(e, samplings, b.Interpolation.Sampling),
			}
		}
		return d
	case ir.ResourceBinding:
		return &bindingDoc{Kind: "resource", Group: idx(b.Group), Binding: idx(b.Binding)}
	default:
		e.fail(fmt.Errorf("unknown binding %T", b))
		return nil
	}
}

func (e *encoder) literal(d *exprDoc, v ir.LiteralValue) {
	var sc ir.ScalarType
	switch v := v.(type) {
	case ir.LiteralF16:
		f := float64(v)
		sc, d.Float = ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, &f
	case ir.LiteralF32:
		f := float64(v)
		sc, d.Float = ir.ScalarF32, &f
	case ir.LiteralF64:
		f := float64(v)
		sc, d.Float = ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, &f
	case ir.LiteralI32:
		i := int64(v)
		sc, d.Int = ir.ScalarI32, &i
	case ir.LiteralI64:
		i := int64(v)
		sc, d.Int = ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, &i
	case ir.LiteralU32:
		u := uint64(v)
		sc, d.Uint = ir.ScalarU32, &u
	case ir.LiteralU64:
		u := uint64(v)
		sc, d.Uint = ir.ScalarType{Kind: ir.ScalarUint, Width: 8}, &u
	case ir.LiteralBool:
		b := bool(v)
		sc, d.Bool = ir.ScalarBoolean, &b
	default:
		e.fail(fmt.Errorf("unknown literal %T", v))
		return
	}
	d.Scalar = e.scalar(sc)
}

// pattern spells a swizzle with at least size components; trailing x
// components past size are implied.
func (e *encoder) pattern(size ir.VectorSize, p [4]ir.SwizzleComponent) string {
	end := min(int(size), len(p))
	for i := end; i < len(p); i++ {
		if p[i] != ir.SwizzleX {
			end = i + 1
		}
	}
	var b strings.Builder
	for _, c := range p[:end] {
		b.WriteString(named(e, components, c))
	}
	return b.String()
}

func (e *encoder) level(l ir.SampleLevel) *levelDoc {
	switch l := l.(type) {
	case nil:
		return nil
	case ir.SampleLevelAuto:
		return &levelDoc{Kind: "auto"}
	case ir.SampleLevelZero:
		return &levelDoc{Kind: "zero"}
	case ir.SampleLevelExact:
		return &levelDoc{Kind: "exact", Value: idx(l.Level)}
	case ir.SampleLevelBias:
		return &levelDoc{Kind: "bias", Value: idx(l.Bias)}
	case ir.SampleLevelGradient:
		return &levelDoc{Kind: "gradient", X: idx(l.X), Y: idx(l.Y)}
	default:
		e.fail(fmt.Errorf("unknown sample level %T", l))
		return nil
	}
}

func (e *encoder) query(d *exprDoc, q ir.ImageQuery) {
	switch q := q.(type) {
	case ir.ImageQuerySize:
		d.Query, d.Lod = "size", optIdx(q.Level)
	case ir.ImageQueryNumLevels:
		d.Query = "num_levels"
	case ir.ImageQueryNumLayers:
		d.Query = "num_layers"
	case ir.ImageQueryNumSamples:
		d.Query = "num_samples"
	default:
		e.fail(fmt.Errorf("unknown image query %T", q))
	}
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (e *encoder) expr(kind ir.ExpressionKind) exprDoc {
	var d exprDoc
	switch k := kind.(type) {
	case ir.Literal:
		d.Kind = "literal"
		e.literal(&d, k.Value)
	case ir.ExprConstant:
		d.Kind, d.Constant = "constant", idx(k.Constant)
	case ir.ExprZeroValue:
		d.Kind, d.Type = "zero_value", idx(k.Type)
	case ir.ExprCompose:
		d.Kind, d.Type, d.Components = "compose", idx(k.Type), indices(k.Components)
	case ir.ExprAccess:
		d.Kind, d.Base, d.Index = "access", idx(k.Base), idx(k.Index)
	case ir.ExprAccessIndex:
		d.Kind, d.Base, d.Index = "access_index", idx(k.Base), idx(k.Index)
	case ir.ExprSplat:
		d.Kind, d.Size, d.Value = "splat", size(k.Size), idx(k.Value)
	case ir.ExprSwizzle:
		d.Kind, d.Size, d.Vector = "swizzle", size(k.Size), idx(k.Vector)
		d.Pattern = e.pattern(k.Size, k.Pattern)
	case ir.ExprFunctionArgument:
		d.Kind, d.Index = "function_argument", idx(k.Index)
	case ir.ExprGlobalVariable:
		d.Kind, d.Variable = "global_variable", idx(k.Variable)
	case ir.ExprLocalVariable:
		d.Kind, d.Variable = "local_variable", idx(k.Variable)
	case ir.ExprLoad:
		d.Kind, d.Pointer = "load", idx(k.Pointer)
	case ir.ExprImageSample:
		d.Kind = "image_sample"
		d.Image, d.Sampler, d.Coordinate = idx(k.Image), idx(k.Sampler), idx(k.Coordinate)
		if k.Gather != nil {
			d.Gather = named(e, components, *k.Gather)
		}
		d.ArrayIndex, d.Offset, d.DepthRef = optIdx(k.ArrayIndex), optIdx(k.Offset), optIdx(k.DepthRef)
		d.Level = e.level(k.Level)
		d.ClampToEdge = k.ClampToEdge
	case ir.ExprImageLoad:
		d.Kind = "image_load"
		d.Image, d.Coordinate = idx(k.Image), idx(k.Coordinate)
		d.ArrayIndex, d.Sample, d.Lod = optIdx(k.ArrayIndex), optIdx(k.Sample), optIdx(k.Level)
	case ir.ExprImageQuery:
		d.Kind, d.Image = "image_query", idx(k.Image)
		e.query(&d, k.Query)
	case ir.ExprUnary:
		d.Kind, d.Op, d.Expr = "unary", named(e, unaryOps, k.Op), idx(k.Expr)
	case ir.ExprBinary:
		d.Kind, d.Op, d.Left, d.Right = "binary", named(e, binaryOps, k.Op), idx(k.Left), idx(k.Right)
	case ir.ExprSelect:
		d.Kind, d.Condition, d.Accept, d.Reject = "select", idx(k.Condition), idx(k.Accept), idx(k.Reject)
	case ir.ExprDerivative:
		d.Kind, d.Expr = "derivative", idx(k.Expr)
		d.Axis, d.Control = named(e, axes, k.Axis), named(e, controls, k.Control)
	case ir.ExprRelational:
		d.Kind, d.Fun, d.Argument = "relational", named(e, relationals, k.Fun), idx(k.Argument)
	case ir.ExprMath:
		d.Kind, d.Fun, d.Arg = "math", named(e, mathFunctions, k.Fun), idx(k.Arg)
		d.Arg1, d.Arg2, d.Arg3 = optIdx(k.Arg1), optIdx(k.Arg2), optIdx(k.Arg3)
	case ir.ExprAs:
		d.Kind, d.Expr, d.To, d.Convert = "as", idx(k.Expr), named(e, scalarKinds, k.Kind), k.Convert
	case ir.ExprCallResult:
		d.Kind, d.Function = "call_result", idx(k.Function)
	case ir.ExprArrayLength:
		d.Kind, d.Array = "array_length", idx(k.Array)
	case ir.ExprAtomicResult:
		d.Kind, d.Type = "atomic_result", idx(k.Type)
	default:
		e.fail(fmt.Errorf("unknown expression kind %T", kind))
	}
	return d
}

func (e *encoder) block(b ir.Block) []stmtDoc {
	if len(b) == 0 {
		return nil
	}
	out := make([]stmtDoc, len(b))
	for i, st := range b {
		out[i] = e.stmt(st.Kind)
	}
	return out
}

func (e *encoder) atomicFun(d *stmtDoc, f ir.AtomicFunction) {
	switch f := f.(type) {
	case ir.AtomicAdd:
		d.Fun = "add"
	case ir.AtomicSubtract:
		d.Fun = "subtract"
	case ir.AtomicAnd:
		d.Fun = "and"
	case ir.AtomicExclusiveOr:
		d.Fun = "exclusive_or"
	case ir.AtomicInclusiveOr:
		d.Fun = "inclusive_or"
	case ir.AtomicMin:
		d.Fun = "min"
	case ir.AtomicMax:
		d.Fun = "max"
	case ir.AtomicExchange:
		d.Fun, d.Compare = "exchange", optIdx(f.Compare)
	default:
		e.fail(fmt.Errorf("unknown atomic function %T", f))
	}
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (e *encoder) stmt(kind ir.StatementKind) stmtDoc {
	var d stmtDoc
	switch k := kind.(type) {
	case ir.StmtEmit:
		d.Kind, d.Range = "emit", []uint32{uint32(k.Range.Start), uint32(k.Range.End)}
	case ir.StmtBlock:
		d.Kind, d.Block = "block", e.block(k.Block)
	case ir.StmtIf:
		d.Kind, d.Condition = "if", idx(k.Condition)
		d.Accept, d.Reject = e.block(k.Accept), e.block(k.Reject)
	case ir.StmtSwitch:
		d.Kind, d.Selector = "switch", idx(k.Selector)
		for _, c := range k.Cases {
			cd := caseDoc{Body: e.block(c.Body), FallThrough: c.FallThrough}
			switch v := c.Value.(type) {
			case ir.SwitchValueI32:
				i := int32(v)
				cd.I32 = &i
			case ir.SwitchValueU32:
				cd.U32 = idx(v)
			case ir.SwitchValueDefault:
				cd.Default = true
			default:
				e.fail(fmt.Errorf("unknown switch value %T", c.Value))
			}
			d.Cases = append(d.Cases, cd)
		}
	case ir.StmtLoop:
		d.Kind, d.Body, d.Continuing, d.BreakIf = "loop", e.block(k.Body), e.block(k.Continuing), optIdx(k.BreakIf)
	case ir.StmtBreak:
		d.Kind = "break"
	case ir.StmtContinue:
		d.Kind = "continue"
	case ir.StmtReturn:
		d.Kind, d.Value = "return", optIdx(k.Value)
	case ir.StmtKill:
		d.Kind = "kill"
	case ir.StmtBarrier:
		d.Kind, d.Flags = "barrier", flags(e, barrierFlags, k.Flags)
	case ir.StmtStore:
		d.Kind, d.Pointer, d.Value = "store", idx(k.Pointer), idx(k.Value)
	case ir.StmtImageStore:
		d.Kind = "image_store"
		d.Image, d.Coordinate, d.ArrayIndex, d.Value = idx(k.Image), idx(k.Coordinate), optIdx(k.ArrayIndex), idx(k.Value)
	case ir.StmtAtomic:
		d.Kind, d.Pointer, d.Value, d.Result = "atomic", idx(k.Pointer), idx(k.Value), optIdx(k.Result)
		e.atomicFun(&d, k.Fun)
	case ir.StmtCall:
		d.Kind, d.Function, d.Arguments, d.Result = "call", idx(k.Function), indices(k.Arguments), optIdx(k.Result)
	default:
		e.fail(fmt.Errorf("unknown statement kind %T", kind))
	}
	return d
}

package irio

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/shadercore/ir"
)

// decoder converts a document back into a Module. It checks the shape of
// the document (known kinds, required fields present) but not the handles:
// a decoded Module is untrusted input for the validator.
type decoder struct {
	firstError
}

func (d *decoder) missing(field string) {
	d.fail(fmt.Errorf("missing %s", field))
}

func need[T ~uint8 | ~uint32, P uint8 | uint32](d *decoder, field string, p *P) T {
	if p == nil {
		d.missing(field)
		return 0
	}
	return T(*p)
}

func opt[T ~uint32](p *uint32) *T {
	if p == nil {
		return nil
	}
	v := T(*p)
	return &v
}

func handles[T ~uint32](xs []uint32) []T {
	if len(xs) == 0 {
		return nil
	}
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = T(x)
	}
	return out
}

func lookup[T comparable](d *decoder, en enum[T], name string) T {
	v, err := en.value(name)
	if err != nil {
		d.fail(err)
	}
	return v
}

func parseFlags[T ~uint8 | ~uint32](d *decoder, f flagSet[T], s string) T {
	v, err := f.parse(s)
	if err != nil {
		d.fail(err)
	}
	return v
}

func (d *decoder) scalar(s string) ir.ScalarType {
	if s == "" {
		d.missing("scalar")
		return ir.ScalarType{}
	}
	sc, err := parseScalar(s)
	if err != nil {
		d.fail(err)
	}
	return sc
}

//nolint:gocyclo,cyclop,funlen // one section per arena
func decodeModule(doc *moduleDoc) (*ir.Module, error) {
	var (
		d decoder
		m ir.Module
	)
	m.Types = ir.NewArena[ir.Type](len(doc.Types))
	for i := range doc.Types {
		m.Types.Append(d.typ(&doc.Types[i]))
		if err := d.at("types[%d]", i); err != nil {
			return nil, err
		}
	}
	for _, c := range doc.Constants {
		m.Constants.Append(ir.Constant{Name: c.Name, Type: ir.TypeHandle(c.Type), Init: ir.ExpressionHandle(c.Init)})
	}
	for i := range doc.GlobalExpressions {
		m.GlobalExpressions.Append(ir.Expression{Kind: d.expr(&doc.GlobalExpressions[i])})
		if err := d.at("global_expressions[%d]", i); err != nil {
			return nil, err
		}
	}
	for i, g := range doc.GlobalVariables {
		gv := ir.GlobalVariable{
			Name:    g.Name,
			Access:  parseFlags(&d, storageAccess, g.Access),
			Binding: d.binding(g.Binding),
			Type:    ir.TypeHandle(g.Type),
			Init:    opt[ir.ExpressionHandle](g.Init),
		}
		if g.Space == "" {
			d.missing("space")
		} else {
			gv.Space = lookup(&d, spaces, g.Space)
		}
		m.GlobalVariables.Append(gv)
		if err := d.at("global_variables[%d]", i); err != nil {
			return nil, err
		}
	}
	for i := range doc.Functions {
		fd := &doc.Functions[i]
		fn := ir.Function{
			Name:        fd.Name,
			LocalVars:   ir.NewArena[ir.LocalVariable](len(fd.Locals)),
			Expressions: ir.NewArena[ir.Expression](len(fd.Expressions)),
		}
		for _, arg := range fd.Arguments {
			fn.Arguments = append(fn.Arguments, ir.FunctionArgument{Name: arg.Name, Type: ir.TypeHandle(arg.Type)})
		}
		if fd.Result != nil {
			fn.Result = &ir.FunctionResult{Type: ir.TypeHandle(*fd.Result)}
		}
		for _, l := range fd.Locals {
			fn.LocalVars.Append(ir.LocalVariable{Name: l.Name, Type: ir.TypeHandle(l.Type), Init: opt[ir.ExpressionHandle](l.Init)})
		}
		for j := range fd.Expressions {
			fn.Expressions.Append(ir.Expression{Kind: d.expr(&fd.Expressions[j])})
			if err := d.at("functions[%d].expressions[%d]", i, j); err != nil {
				return nil, err
			}
		}
		fn.Body = d.block(fd.Body)
		if err := d.at("functions[%d].body", i); err != nil {
			return nil, err
		}
		m.Functions.Append(fn)
	}
	for i, ep := range doc.EntryPoints {
		e := ir.EntryPoint{Name: ep.Name, Function: ir.FunctionHandle(ep.Function)}
		if ep.Stage == "" {
			d.missing("stage")
		} else {
			e.Stage = lookup(&d, stages, ep.Stage)
		}
		if ep.Workgroup != nil {
			e.Workgroup = *ep.Workgroup
		}
		m.EntryPoints.Append(e)
		if err := d.at("entry_points[%d]", i); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func arraySize(length *uint32) ir.ArraySize {
	if length == nil {
		return ir.ArraySize{}
	}
	n := *length
	return ir.ArraySize{Constant: &n}
}

//nolint:gocyclo,cyclop,funlen // one case per type variant
func (d *decoder) typ(td *typeDoc) ir.Type {
	ty := ir.Type{Name: td.Name}
	switch td.Kind {
	case "scalar":
		ty.Inner = d.scalar(td.Scalar)
	case "vector":
		ty.Inner = ir.VectorType{Size: need[ir.VectorSize](d, "size", td.Size), Scalar: d.scalar(td.Scalar)}
	case "matrix":
		ty.Inner = ir.MatrixType{
			Columns: ir.VectorSize(td.Columns),
			Rows:    ir.VectorSize(td.Rows),
			Scalar:  d.scalar(td.Scalar),
		}
	case "array":
		ty.Inner = ir.ArrayType{
			Base:   need[ir.TypeHandle](d, "base", td.Base),
			Size:   arraySize(td.Length),
			Stride: td.Stride,
		}
	case "struct":
		st := ir.StructType{Span: td.Span}
		for _, m := range td.Members {
			st.Members = append(st.Members, ir.StructMember{Name: m.Name, Type: ir.TypeHandle(m.Type), Offset: m.Offset})
		}
		ty.Inner = st
	case "pointer":
		ty.Inner = ir.PointerType{
			Base:   need[ir.TypeHandle](d, "base", td.Base),
			Space:  lookup(d, spaces, td.Space),
			Access: parseFlags(d, storageAccess, td.Access),
		}
	case "value_pointer":
		vp := ir.ValuePointerType{
			Scalar: d.scalar(td.Scalar),
			Space:  lookup(d, spaces, td.Space),
			Access: parseFlags(d, storageAccess, td.Access),
		}
		if td.Size != nil {
			s := ir.VectorSize(*td.Size)
			vp.Size = &s
		}
		ty.Inner = vp
	case "atomic":
		ty.Inner = ir.AtomicType{Scalar: d.scalar(td.Scalar)}
	case "image":
		img := ir.ImageType{
			Dim:          lookup(d, dims, td.Dim),
			Arrayed:      td.Arrayed,
			Class:        lookup(d, imageClasses, td.Class),
			Multisampled: td.Multisampled,
		}
		switch img.Class {
		case ir.ImageClassSampled:
			img.SampledKind = lookup(d, scalarKinds, td.SampledKind)
		case ir.ImageClassStorage:
			img.Format = lookup(d, formats, td.Format)
			img.Access = parseFlags(d, storageAccess, td.Access)
		}
		ty.Inner = img
	case "sampler":
		ty.Inner = ir.SamplerType{Comparison: td.Comparison}
	case "binding_array":
		ty.Inner = ir.BindingArrayType{Base: need[ir.TypeHandle](d, "base", td.Base), Size: arraySize(td.Length)}
	default:
		d.fail(unknownKind("type", td.Kind))
	}
	return ty
}

func unknownKind(what, kind string) error {
	if kind == "" {
		return fmt.Errorf("%s has no kind", what)
	}
	return fmt.Errorf("unknown %s kind %q", what, kind)
}

func (d *decoder) binding(bd *bindingDoc) ir.Binding {
	if bd == nil {
		return nil
	}
	switch bd.Kind {
	case "builtin":
		return ir.BuiltinBinding{Builtin: lookup(d, builtins, bd.Builtin)}
	case "location":
		lb := ir.LocationBinding{Location: need[uint32](d, "location", bd.Location)}
		if bd.Interpolation != nil {
			lb.Interpolation = &ir.Interpolation{
				Kind:     lookup(d, interpolations, bd.Interpolation.Kind),
				Sampling: lookup(d, samplings, bd.Interpolation.Sampling),
			}
		}
		return lb
	case "resource":
		return ir.ResourceBinding{
			Group:   need[uint32](d, "group", bd.Group),
			Binding: need[uint32](d, "binding", bd.Binding),
		}
	default:
		d.fail(unknownKind("binding", bd.Kind))
		return nil
	}
}

var (
	errLiteralValue = errors.New("literal needs exactly one value matching its scalar")
	errLiteralRange = errors.New("literal out of range")
)

// maxF16 is the largest finite half-precision value.
const maxF16 = 65504

func (d *decoder) inRange(ok bool, scalar string, v any) bool {
	if !ok {
		d.fail(fmt.Errorf("%w: %v does not fit %s", errLiteralRange, v, scalar))
	}
	return ok
}

func (d *decoder) literal(ed *exprDoc) ir.LiteralValue {
	sc := d.scalar(ed.Scalar)
	set := 0
	for _, present := range []bool{ed.Float != nil, ed.Int != nil, ed.Uint != nil, ed.Bool != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		d.fail(errLiteralValue)
		return nil
	}
	switch {
	case sc.Kind == ir.ScalarFloat && ed.Float != nil:
		switch sc.Width {
		case 2:
			if !d.inRange(math.Abs(*ed.Float) <= maxF16, ed.Scalar, *ed.Float) {
				return nil
			}
			return ir.LiteralF16(*ed.Float)
		case 4:
			if !d.inRange(math.Abs(*ed.Float) <= math.MaxFloat32, ed.Scalar, *ed.Float) {
				return nil
			}
			return ir.LiteralF32(*ed.Float)
		case 8:
			return ir.LiteralF64(*ed.Float)
		}
	case sc.Kind == ir.ScalarSint && ed.Int != nil:
		switch sc.Width {
		case 4:
			if !d.inRange(*ed.Int >= math.MinInt32 && *ed.Int <= math.MaxInt32, ed.Scalar, *ed.Int) {
				return nil
			}
			return ir.LiteralI32(*ed.Int)
		case 8:
			return ir.LiteralI64(*ed.Int)
		}
	case sc.Kind == ir.ScalarUint && ed.Uint != nil:
		switch sc.Width {
		case 4:
			if !d.inRange(*ed.Uint <= math.MaxUint32, ed.Scalar, *ed.Uint) {
				return nil
			}
			return ir.LiteralU32(*ed.Uint)
		case 8:
			return ir.LiteralU64(*ed.Uint)
		}
	case sc == ir.ScalarBoolean && ed.Bool != nil:
		return ir.LiteralBool(*ed.Bool)
	}
	d.fail(fmt.Errorf("%w: %s", errLiteralValue, ed.Scalar))
	return nil
}

func (d *decoder) pattern(s string) [4]ir.SwizzleComponent {
	var p [4]ir.SwizzleComponent
	if len(s) > len(p) {
		d.fail(fmt.Errorf("swizzle pattern %q is longer than 4", s))
		return p
	}
	for i := range len(s) {
		p[i] = lookup(d, components, s[i:i+1])
	}
	return p
}

func (d *decoder) level(ld *levelDoc) ir.SampleLevel {
	if ld == nil {
		d.missing("level")
		return nil
	}
	switch ld.Kind {
	case "auto":
		return ir.SampleLevelAuto{}
	case "zero":
		return ir.SampleLevelZero{}
	case "exact":
		return ir.SampleLevelExact{Level: need[ir.ExpressionHandle](d, "level value", ld.Value)}
	case "bias":
		return ir.SampleLevelBias{Bias: need[ir.ExpressionHandle](d, "level value", ld.Value)}
	case "gradient":
		return ir.SampleLevelGradient{
			X: need[ir.ExpressionHandle](d, "level x", ld.X),
			Y: need[ir.ExpressionHandle](d, "level y", ld.Y),
		}
	default:
		d.fail(unknownKind("sample level", ld.Kind))
		return nil
	}
}

func (d *decoder) query(ed *exprDoc) ir.ImageQuery {
	switch ed.Query {
	case "size":
		return ir.ImageQuerySize{Level: opt[ir.ExpressionHandle](ed.Lod)}
	case "num_levels":
		return ir.ImageQueryNumLevels{}
	case "num_layers":
		return ir.ImageQueryNumLayers{}
	case "num_samples":
		return ir.ImageQueryNumSamples{}
	default:
		d.fail(unknownKind("image query", ed.Query))
		return nil
	}
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (d *decoder) expr(ed *exprDoc) ir.ExpressionKind {
	h := func(field string, p *uint32) ir.ExpressionHandle {
		return need[ir.ExpressionHandle](d, field, p)
	}
	o := opt[ir.ExpressionHandle]

	switch ed.Kind {
	case "literal":
		return ir.Literal{Value: d.literal(ed)}
	case "constant":
		return ir.ExprConstant{Constant: need[ir.ConstantHandle](d, "constant", ed.Constant)}
	case "zero_value":
		return ir.ExprZeroValue{Type: need[ir.TypeHandle](d, "type", ed.Type)}
	case "compose":
		return ir.ExprCompose{
			Type:       need[ir.TypeHandle](d, "type", ed.Type),
			Components: handles[ir.ExpressionHandle](ed.Components),
		}
	case "access":
		return ir.ExprAccess{Base: h("base", ed.Base), Index: h("index", ed.Index)}
	case "access_index":
		return ir.ExprAccessIndex{Base: h("base", ed.Base), Index: need[uint32](d, "index", ed.Index)}
	case "splat":
		return ir.ExprSplat{Size: need[ir.VectorSize](d, "size", ed.Size), Value: h("value", ed.Value)}
	case "swizzle":
		return ir.ExprSwizzle{
			Size:    need[ir.VectorSize](d, "size", ed.Size),
			Vector:  h("vector", ed.Vector),
			Pattern: d.pattern(ed.Pattern),
		}
	case "function_argument":
		return ir.ExprFunctionArgument{Index: need[uint32](d, "index", ed.Index)}
	case "global_variable":
		return ir.ExprGlobalVariable{Variable: need[ir.GlobalVariableHandle](d, "variable", ed.Variable)}
	case "local_variable":
		return ir.ExprLocalVariable{Variable: need[ir.LocalVariableHandle](d, "variable", ed.Variable)}
	case "load":
		return ir.ExprLoad{Pointer: h("pointer", ed.Pointer)}
	case "image_sample":
		s := ir.ExprImageSample{
			Image:       h("image", ed.Image),
			Sampler:     h("sampler", ed.Sampler),
			Coordinate:  h("coordinate", ed.Coordinate),
			ArrayIndex:  o(ed.ArrayIndex),
			Offset:      o(ed.Offset),
			Level:       d.level(ed.Level),
			DepthRef:    o(ed.DepthRef),
			ClampToEdge: ed.ClampToEdge,
		}
		if ed.Gather != "" {
			c := lookup(d, components, ed.Gather)
			s.Gather = &c
		}
		return s
	case "image_load":
		return ir.ExprImageLoad{
			Image:      h("image", ed.Image),
			Coordinate: h("coordinate", ed.Coordinate),
			ArrayIndex: o(ed.ArrayIndex),
			Sample:     o(ed.Sample),
			Level:      o(ed.Lod),
		}
	case "image_query":
		return ir.ExprImageQuery{Image: h("image", ed.Image), Query: d.query(ed)}
	case "unary":
		return ir.ExprUnary{Op: lookup(d, unaryOps, ed.Op), Expr: h("expr", ed.Expr)}
	case "binary":
		return ir.ExprBinary{Op: lookup(d, binaryOps, ed.Op), Left: h("left", ed.Left), Right: h("right", ed.Right)}
	case "select":
		return ir.ExprSelect{
			Condition: h("condition", ed.Condition),
			Accept:    h("accept", ed.Accept),
			Reject:    h("reject", ed.Reject),
		}
	case "derivative":
		return ir.ExprDerivative{
			Axis:    lookup(d, axes, ed.Axis),
			Control: lookup(d, controls, ed.Control),
			Expr:    h("expr", ed.Expr),
		}
	case "relational":
		return ir.ExprRelational{Fun: lookup(d, relationals, ed.Fun), Argument: h("argument", ed.Argument)}
	case "math":
		return ir.ExprMath{
			Fun:  lookup(d, mathFunctions, ed.Fun),
			Arg:  h("arg", ed.Arg),
			Arg1: o(ed.Arg1),
			Arg2: o(ed.Arg2),
			Arg3: o(ed.Arg3),
		}
	case "as":
		return ir.ExprAs{Expr: h("expr", ed.Expr), Kind: lookup(d, scalarKinds, ed.To), Convert: ed.Convert}
	case "call_result":
		return ir.ExprCallResult{Function: need[ir.FunctionHandle](d, "function", ed.Function)}
	case "array_length":
		return ir.ExprArrayLength{Array: h("array", ed.Array)}
	case "atomic_result":
		return ir.ExprAtomicResult{Type: need[ir.TypeHandle](d, "type", ed.Type)}
	default:
		d.fail(unknownKind("expression", ed.Kind))
		return nil
	}
}

func (d *decoder) block(sds []stmtDoc) ir.Block {
	if len(sds) == 0 {
		return nil
	}
	b := make(ir.Block, len(sds))
	for i := range sds {
		b[i] = ir.Statement{Kind: d.stmt(&sds[i])}
	}
	return b
}

func (d *decoder) atomicFun(sd *stmtDoc) ir.AtomicFunction {
	switch sd.Fun {
	case "add":
		return ir.AtomicAdd{}
	case "subtract":
		return ir.AtomicSubtract{}
	case "and":
		return ir.AtomicAnd{}
	case "exclusive_or":
		return ir.AtomicExclusiveOr{}
	case "inclusive_or":
		return ir.AtomicInclusiveOr{}
	case "min":
		return ir.AtomicMin{}
	case "max":
		return ir.AtomicMax{}
	case "exchange":
		return ir.AtomicExchange{Compare: opt[ir.ExpressionHandle](sd.Compare)}
	default:
		d.fail(unknownKind("atomic function", sd.Fun))
		return nil
	}
}

func (d *decoder) switchCase(cd *caseDoc) ir.SwitchCase {
	c := ir.SwitchCase{Body: d.block(cd.Body), FallThrough: cd.FallThrough}
	switch {
	case cd.Default && cd.I32 == nil && cd.U32 == nil:
		c.Value = ir.SwitchValueDefault{}
	case cd.I32 != nil && cd.U32 == nil && !cd.Default:
		c.Value = ir.SwitchValueI32(*cd.I32)
	case cd.U32 != nil && cd.I32 == nil && !cd.Default:
		c.Value = ir.SwitchValueU32(*cd.U32)
	default:
		d.fail(errors.New("switch case needs exactly one of i32, u32 or default"))
	}
	return c
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (d *decoder) stmt(sd *stmtDoc) ir.StatementKind {
	h := func(field string, p *uint32) ir.ExpressionHandle {
		return need[ir.ExpressionHandle](d, field, p)
	}
	o := opt[ir.ExpressionHandle]

	switch sd.Kind {
	case "emit":
		if len(sd.Range) != 2 {
			d.fail(fmt.Errorf("emit range needs [start, end], got %v", sd.Range))
			return ir.StmtEmit{}
		}
		return ir.StmtEmit{Range: ir.Range{Start: ir.ExpressionHandle(sd.Range[0]), End: ir.ExpressionHandle(sd.Range[1])}}
	case "block":
		return ir.StmtBlock{Block: d.block(sd.Block)}
	case "if":
		return ir.StmtIf{Condition: h("condition", sd.Condition), Accept: d.block(sd.Accept), Reject: d.block(sd.Reject)}
	case "switch":
		sw := ir.StmtSwitch{Selector: h("selector", sd.Selector)}
		for i := range sd.Cases {
			sw.Cases = append(sw.Cases, d.switchCase(&sd.Cases[i]))
		}
		return sw
	case "loop":
		return ir.StmtLoop{Body: d.block(sd.Body), Continuing: d.block(sd.Continuing), BreakIf: o(sd.BreakIf)}
	case "break":
		return ir.StmtBreak{}
	case "continue":
		return ir.StmtContinue{}
	case "return":
		return ir.StmtReturn{Value: o(sd.Value)}
	case "kill":
		return ir.StmtKill{}
	case "barrier":
		return ir.StmtBarrier{Flags: parseFlags(d, barrierFlags, sd.Flags)}
	case "store":
		return ir.StmtStore{Pointer: h("pointer", sd.Pointer), Value: h("value", sd.Value)}
	case "image_store":
		return ir.StmtImageStore{
			Image:      h("image", sd.Image),
			Coordinate: h("coordinate", sd.Coordinate),
			ArrayIndex: o(sd.ArrayIndex),
			Value:      h("value", sd.Value),
		}
	case "atomic":
		return ir.StmtAtomic{
			Pointer: h("pointer", sd.Pointer),
			Fun:     d.atomicFun(sd),
			Value:   h("value", sd.Value),
			Result:  o(sd.Result),
		}
	case "call":
		return ir.StmtCall{
			Function:  need[ir.FunctionHandle](d, "function", sd.Function),
			Arguments: handles[ir.ExpressionHandle](sd.Arguments),
			Result:    o(sd.Result),
		}
	default:
		d.fail(unknownKind("statement", sd.Kind))
		return nil
	}
}

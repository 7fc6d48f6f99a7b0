package ir

import "strconv"

// typeFlags summarizes what a type may be used for.
type typeFlags uint8

const (
	// flagData types can live in memory.
	flagData typeFlags = 1 << iota
	// flagSized types have a size known at shader creation time.
	flagSized
	// flagConstructible types can be built by Compose and ZeroValue.
	flagConstructible
	// flagIO types can cross a stage boundary through Input/Output globals.
	flagIO
)

func (f typeFlags) has(want typeFlags) bool { return f&want == want }

// checkTypes is the second pass: type definitions, then the type of every
// expression, then initializers against their declared types.
func (s *validation) checkTypes() error {
	m := s.module

	s.typeFlags = make([]typeFlags, m.Types.Len())
	for h, ty := range m.Types.All() {
		flags, err := s.checkTypeDefinition(h, ty.Inner)
		if err != nil {
			return err
		}
		s.typeFlags[h] = flags
	}

	constTypes := newResolver(s, nil)
	if err := constTypes.resolveAll(); err != nil {
		return err
	}
	s.info.ConstExpressionTypes = constTypes.cache

	for h, c := range m.Constants.All() {
		if !s.typeFlags[c.Type].has(flagConstructible) {
			if err := s.errorf(KindInvalidType, []HandleRef{constantRef(h), typeRef(c.Type)},
				"constant %q has type %s, which cannot be constructed", c.Name, FormatTypeHandle(&m.Types, c.Type)); err != nil {
				return err
			}
			continue
		}
		if err := s.checkInit(constTypes, c.Type, c.Init, []HandleRef{constantRef(h), globalExprRef(c.Init)},
			"constant "+strconv.Quote(c.Name)); err != nil {
			return err
		}
	}

	for h, gv := range m.GlobalVariables.All() {
		if err := s.checkGlobalVariable(constTypes, h, gv); err != nil {
			return err
		}
	}

	s.info.Functions = make([]FunctionInfo, m.Functions.Len())
	for fh, fn := range m.Functions.All() {
		s.enterFunction(fh, fn)
		err := s.checkFunctionTypes(fh, fn)
		s.leaveFunction()
		if err != nil {
			return err
		}
	}
	return nil
}

// checkTypeDefinition validates one type and derives its flags. Nested
// types are already checked because they precede it.
//
//nolint:gocyclo,cyclop,funlen // one case per type variant
func (s *validation) checkTypeDefinition(h TypeHandle, inner TypeInner) (typeFlags, error) {
	here := []HandleRef{typeRef(h)}
	all := flagData | flagSized | flagConstructible | flagIO

	switch t := inner.(type) {
	case ScalarType:
		if err := s.checkScalar(t, here); err != nil {
			return 0, err
		}
		return all, nil

	case VectorType:
		if !t.Size.valid() {
			return 0, s.errorf(KindInvalidType, here, "vector size %d is not 2, 3 or 4", t.Size)
		}
		if err := s.checkScalar(t.Scalar, here); err != nil {
			return 0, err
		}
		return all, nil

	case MatrixType:
		if !t.Columns.valid() || !t.Rows.valid() {
			return 0, s.errorf(KindInvalidType, here, "matrix dimensions %dx%d are not in 2..4", t.Columns, t.Rows)
		}
		if t.Scalar.Kind != ScalarFloat {
			return 0, s.errorf(KindInvalidType, here, "matrix scalar must be a float, got %s", scalarName(t.Scalar))
		}
		if err := s.checkScalar(t.Scalar, here); err != nil {
			return 0, err
		}
		return flagData | flagSized | flagConstructible, nil

	case AtomicType:
		if err := s.requireCapability(CapabilityAtomics, here, "atomic type"); err != nil {
			return 0, err
		}
		switch {
		case (t.Scalar.Kind == ScalarSint || t.Scalar.Kind == ScalarUint) && t.Scalar.Width == 4:
		case (t.Scalar.Kind == ScalarSint || t.Scalar.Kind == ScalarUint) && t.Scalar.Width == 8:
			if err := s.requireCapability(CapabilityInt64Atomics, here, "64-bit atomic"); err != nil {
				return 0, err
			}
		default:
			return 0, s.errorf(KindInvalidType, here, "atomic scalar must be a 32 or 64-bit integer, got %s", scalarName(t.Scalar))
		}
		return flagData | flagSized, nil

	case ArrayType:
		base := s.typeFlags[t.Base]
		if !base.has(flagData | flagSized) {
			return 0, s.errorf(KindInvalidType, []HandleRef{typeRef(h), typeRef(t.Base)},
				"array element %s must be a sized data type", FormatTypeHandle(&s.module.Types, t.Base))
		}
		if t.Size.Constant == nil {
			return flagData, nil
		}
		if *t.Size.Constant == 0 {
			return 0, s.errorf(KindInvalidType, here, "array length must be greater than zero")
		}
		return flagData | flagSized | base&flagConstructible, nil

	case StructType:
		if len(t.Members) == 0 {
			return 0, s.errorf(KindInvalidType, here, "struct must have at least one member")
		}
		flags := flagData | flagSized | flagConstructible
		var lastOffset uint32
		for i, member := range t.Members {
			mf := s.typeFlags[member.Type]
			if !mf.has(flagData) {
				return 0, s.errorf(KindInvalidType, []HandleRef{typeRef(h), typeRef(member.Type)},
					"member %q has type %s, which is not a data type", member.Name, FormatTypeHandle(&s.module.Types, member.Type))
			}
			if !mf.has(flagSized) && i != len(t.Members)-1 {
				return 0, s.errorf(KindInvalidType, []HandleRef{typeRef(h), typeRef(member.Type)},
					"only the last member may be runtime-sized, but member %q is", member.Name)
			}
			if i > 0 && member.Offset <= lastOffset {
				return 0, s.errorf(KindInvalidType, here,
					"member %q offset %d does not follow the previous offset %d", member.Name, member.Offset, lastOffset)
			}
			lastOffset = member.Offset
			flags &= mf | flagData
		}
		if !flags.has(flagSized) {
			flags &^= flagConstructible
		}
		return flags, nil

	case PointerType:
		if s.typeFlags[t.Base]&flagData == 0 {
			return 0, s.errorf(KindInvalidType, []HandleRef{typeRef(h), typeRef(t.Base)},
				"pointer base %s is not a data type", FormatTypeHandle(&s.module.Types, t.Base))
		}
		return 0, nil

	case ValuePointerType:
		return 0, s.errorf(KindInvalidType, here, "value pointers only exist as expression types")

	case SamplerType:
		return 0, s.requireCapability(CapabilityImages, here, "sampler type")

	case ImageType:
		return 0, s.checkImageType(t, here)

	case BindingArrayType:
		if err := s.requireCapability(CapabilityBindingArrays, here, "binding array"); err != nil {
			return 0, err
		}
		switch s.module.Types.at(t.Base).Inner.(type) {
		case ImageType, SamplerType, StructType:
		default:
			return 0, s.errorf(KindInvalidType, []HandleRef{typeRef(h), typeRef(t.Base)},
				"binding array element must be an image, sampler or struct")
		}
		return 0, nil

	default:
		return 0, s.errorf(KindInvalidType, here, "unknown type variant %T", inner)
	}
}

// checkScalar enforces legal widths and the capabilities wide or narrow
// scalars require.
func (s *validation) checkScalar(sc ScalarType, handles []HandleRef) error {
	switch sc.Kind {
	case ScalarBool:
		if sc.Width != 1 {
			return s.errorf(KindInvalidType, handles, "bool width must be 1, got %d", sc.Width)
		}
	case ScalarFloat:
		switch sc.Width {
		case 4:
		case 2:
			return s.requireCapability(CapabilityFloat16, handles, "f16")
		case 8:
			return s.requireCapability(CapabilityFloat64, handles, "f64")
		default:
			return s.errorf(KindInvalidType, handles, "float width must be 2, 4 or 8, got %d", sc.Width)
		}
	case ScalarSint, ScalarUint:
		switch sc.Width {
		case 4:
		case 8:
			return s.requireCapability(CapabilityInt64, handles, "64-bit integer")
		default:
			return s.errorf(KindInvalidType, handles, "integer width must be 4 or 8, got %d", sc.Width)
		}
	default:
		return s.errorf(KindInvalidType, handles, "unknown scalar kind %d", sc.Kind)
	}
	return nil
}

func (s *validation) checkImageType(t ImageType, handles []HandleRef) error {
	if err := s.requireCapability(CapabilityImages, handles, "image type"); err != nil {
		return err
	}
	if t.Dim > DimCube {
		return s.errorf(KindInvalidType, handles, "unknown image dimension %d", t.Dim)
	}
	if t.Multisampled {
		if err := s.requireCapability(CapabilityMultisampledImages, handles, "multisampled image"); err != nil {
			return err
		}
		if t.Dim != Dim2D {
			return s.errorf(KindInvalidType, handles, "multisampled images must be 2D")
		}
	}
	if t.Dim == DimCube && t.Arrayed {
		if err := s.requireCapability(CapabilityCubeArrayTextures, handles, "cube array image"); err != nil {
			return err
		}
	}
	switch t.Class {
	case ImageClassSampled:
		if t.SampledKind == ScalarBool {
			return s.errorf(KindInvalidType, handles, "sampled images cannot hold bool texels")
		}
	case ImageClassDepth:
		if t.Dim == Dim3D || t.Dim == Dim1D {
			return s.errorf(KindInvalidType, handles, "depth images must be 2D or cube")
		}
	case ImageClassStorage:
		if err := s.requireCapability(CapabilityStorageImages, handles, "storage image"); err != nil {
			return err
		}
		if t.Multisampled {
			return s.errorf(KindInvalidType, handles, "storage images cannot be multisampled")
		}
		if t.Dim == DimCube {
			return s.errorf(KindInvalidType, handles, "storage images cannot be cube maps")
		}
		if t.Access == 0 {
			return s.errorf(KindInvalidType, handles, "storage image access must allow load or store")
		}
		if t.Format > FormatRgba32Float {
			return s.errorf(KindInvalidType, handles, "unknown storage format %d", t.Format)
		}
	default:
		return s.errorf(KindInvalidType, handles, "unknown image class %d", t.Class)
	}
	return nil
}

// checkInit compares an initializer's resolved type with the declared type.
func (s *validation) checkInit(r *resolver, declared TypeHandle, init ExpressionHandle, handles []HandleRef, what string) error {
	got, ok := r.lookup(init)
	if !ok {
		return nil
	}
	if !ResolutionsEqual(&s.module.Types, got, resolved(declared)) {
		return s.errorf(KindMismatch, handles, "%s is declared %s but initialized with %s",
			what, FormatTypeHandle(&s.module.Types, declared), FormatResolution(&s.module.Types, got))
	}
	return nil
}

//nolint:gocyclo,cyclop // one rule set per address space
func (s *validation) checkGlobalVariable(r *resolver, h GlobalVariableHandle, gv *GlobalVariable) error {
	types := &s.module.Types
	handles := []HandleRef{globalRef(h), typeRef(gv.Type)}
	flags := s.typeFlags[gv.Type]
	inner := types.at(gv.Type).Inner
	name := FormatTypeHandle(types, gv.Type)

	switch gv.Space {
	case SpaceFunction:
		return s.errorf(KindInvalidType, handles, "global %q cannot live in the function address space", gv.Name)
	case SpacePrivate, SpaceWorkGroup:
		if !flags.has(flagData | flagSized) {
			return s.errorf(KindInvalidType, handles, "global %q in %s space needs a sized data type, got %s", gv.Name, gv.Space, name)
		}
	case SpaceUniform:
		if !flags.has(flagData|flagSized) || containsAtomic(types, gv.Type) {
			return s.errorf(KindInvalidType, handles, "uniform %q needs a sized data type without atomics, got %s", gv.Name, name)
		}
	case SpaceStorage:
		if !flags.has(flagData) {
			return s.errorf(KindInvalidType, handles, "storage %q needs a data type, got %s", gv.Name, name)
		}
	case SpacePushConstant:
		if err := s.requireCapability(CapabilityPushConstants, handles, "push constant "+strconv.Quote(gv.Name)); err != nil {
			return err
		}
		if !flags.has(flagData | flagSized) {
			return s.errorf(KindInvalidType, handles, "push constant %q needs a sized data type, got %s", gv.Name, name)
		}
	case SpaceHandle:
		switch inner.(type) {
		case ImageType, SamplerType, BindingArrayType:
		default:
			return s.errorf(KindInvalidType, handles, "handle %q must be an image, sampler or binding array, got %s", gv.Name, name)
		}
	case SpaceInput, SpaceOutput:
		if !flags.has(flagIO) {
			return s.errorf(KindInvalidType, handles, "%s %q must be a scalar or vector, got %s", gv.Space, gv.Name, name)
		}
	default:
		return s.errorf(KindInvalidType, handles, "global %q has unknown address space %d", gv.Name, gv.Space)
	}

	if gv.Init == nil {
		return nil
	}
	if gv.Space != SpacePrivate {
		return s.errorf(KindInvalidType, []HandleRef{globalRef(h), globalExprRef(*gv.Init)},
			"global %q in %s space cannot have an initializer", gv.Name, gv.Space)
	}
	return s.checkInit(r, gv.Type, *gv.Init, []HandleRef{globalRef(h), globalExprRef(*gv.Init)}, "global "+strconv.Quote(gv.Name))
}

func containsAtomic(types *Arena[Type], h TypeHandle) bool {
	switch t := types.at(h).Inner.(type) {
	case AtomicType:
		return true
	case ArrayType:
		return containsAtomic(types, t.Base)
	case StructType:
		for _, m := range t.Members {
			if containsAtomic(types, m.Type) {
				return true
			}
		}
	}
	return false
}

func (s *validation) checkFunctionTypes(fh FunctionHandle, fn *Function) error {
	types := &s.module.Types

	for i, arg := range fn.Arguments {
		_, isPtr := types.at(arg.Type).Inner.(PointerType)
		if !isPtr && !s.typeFlags[arg.Type].has(flagConstructible) {
			if err := s.errorf(KindInvalidType, []HandleRef{functionRef(fh), typeRef(arg.Type)},
				"argument %d (%q) has type %s, which is neither constructible nor a pointer",
				i, arg.Name, FormatTypeHandle(types, arg.Type)); err != nil {
				return err
			}
		}
	}
	if fn.Result != nil && !s.typeFlags[fn.Result.Type].has(flagConstructible) {
		if err := s.errorf(KindInvalidType, []HandleRef{functionRef(fh), typeRef(fn.Result.Type)},
			"result type %s cannot be constructed", FormatTypeHandle(types, fn.Result.Type)); err != nil {
			return err
		}
	}

	r := newResolver(s, fn)
	if err := r.resolveAll(); err != nil {
		return err
	}

	info := &s.info.Functions[fh]
	info.Expressions = make([]ExpressionInfo, len(r.cache))
	for i, res := range r.cache {
		info.Expressions[i].Type = res
	}

	for lh, local := range fn.LocalVars.All() {
		if !s.typeFlags[local.Type].has(flagConstructible) {
			if err := s.errorf(KindInvalidType, []HandleRef{localRef(lh), typeRef(local.Type)},
				"local %q has type %s, which cannot be constructed", local.Name, FormatTypeHandle(types, local.Type)); err != nil {
				return err
			}
			continue
		}
		if local.Init != nil {
			if err := s.checkInit(r, local.Type, *local.Init, []HandleRef{localRef(lh), exprRef(*local.Init)},
				"local "+strconv.Quote(local.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

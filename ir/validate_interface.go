package ir

// builtinDirection says whether a builtin is read or written by a stage.
type builtinDirection uint8

const (
	builtinIn builtinDirection = 1 << iota
	builtinOut
)

type builtinRule struct {
	ty     TypeInner
	stages map[ShaderStage]builtinDirection
}

var vec3u32 = VectorType{Size: Vec3, Scalar: ScalarU32}

// builtinRules lists the type of each builtin and the stages that may read
// or write it.
var builtinRules = map[BuiltinValue]builtinRule{
	BuiltinPosition: {
		ty:     VectorType{Size: Vec4, Scalar: ScalarF32},
		stages: map[ShaderStage]builtinDirection{StageVertex: builtinOut, StageFragment: builtinIn},
	},
	BuiltinVertexIndex:   {ty: ScalarU32, stages: map[ShaderStage]builtinDirection{StageVertex: builtinIn}},
	BuiltinInstanceIndex: {ty: ScalarU32, stages: map[ShaderStage]builtinDirection{StageVertex: builtinIn}},
	BuiltinFrontFacing:   {ty: ScalarBoolean, stages: map[ShaderStage]builtinDirection{StageFragment: builtinIn}},
	BuiltinFragDepth:     {ty: ScalarF32, stages: map[ShaderStage]builtinDirection{StageFragment: builtinOut}},
	BuiltinSampleIndex:   {ty: ScalarU32, stages: map[ShaderStage]builtinDirection{StageFragment: builtinIn}},
	BuiltinSampleMask: {
		ty:     ScalarU32,
		stages: map[ShaderStage]builtinDirection{StageFragment: builtinIn | builtinOut},
	},
	BuiltinLocalInvocationID:    {ty: vec3u32, stages: map[ShaderStage]builtinDirection{StageCompute: builtinIn}},
	BuiltinLocalInvocationIndex: {ty: ScalarU32, stages: map[ShaderStage]builtinDirection{StageCompute: builtinIn}},
	BuiltinGlobalInvocationID:   {ty: vec3u32, stages: map[ShaderStage]builtinDirection{StageCompute: builtinIn}},
	BuiltinWorkGroupID:          {ty: vec3u32, stages: map[ShaderStage]builtinDirection{StageCompute: builtinIn}},
	BuiltinNumWorkGroups:        {ty: vec3u32, stages: map[ShaderStage]builtinDirection{StageCompute: builtinIn}},
}

// checkInterface is the fourth pass: global bindings and entry points.
func (s *validation) checkInterface() error {
	if err := s.checkBindings(); err != nil {
		return err
	}

	s.info.EntryPoints = make([]EntryPointInfo, 0, s.module.EntryPoints.Len())
	seen := make(map[string]int)
	for i, ep := range s.module.EntryPoints.Slice() {
		s.epName = ep.Name
		s.fnName = s.module.Functions.at(ep.Function).Name
		err := s.checkEntryPoint(i, &ep, seen)
		s.epName, s.fnName = "", ""
		if err != nil {
			return err
		}
		s.info.EntryPoints = append(s.info.EntryPoints, EntryPointInfo{
			Name:     ep.Name,
			Stage:    ep.Stage,
			Function: ep.Function,
		})
	}
	return nil
}

// checkBindings checks that every global carries the kind of binding its
// address space calls for and that no two resources share a slot.
//
//nolint:gocyclo,cyclop // one rule per address space
func (s *validation) checkBindings() error {
	slots := make(map[ResourceBinding]GlobalVariableHandle)
	for gh, gv := range s.module.GlobalVariables.All() {
		refs := []HandleRef{globalRef(gh)}
		switch gv.Space {
		case SpaceUniform, SpaceStorage, SpaceHandle:
			rb, ok := gv.Binding.(ResourceBinding)
			if !ok {
				if err := s.errorf(KindMissingBinding, refs,
					"%s global %q needs a resource binding", gv.Space, gv.Name); err != nil {
					return err
				}
				continue
			}
			if prev, dup := slots[rb]; dup {
				if err := s.errorf(KindDuplicateBinding, []HandleRef{globalRef(prev), globalRef(gh)},
					"globals %q and %q both use group %d binding %d",
					s.module.GlobalVariables.at(prev).Name, gv.Name, rb.Group, rb.Binding); err != nil {
					return err
				}
				continue
			}
			slots[rb] = gh

		case SpaceInput, SpaceOutput:
			switch b := gv.Binding.(type) {
			case nil:
				if err := s.errorf(KindMissingBinding, refs,
					"%s global %q needs a builtin or location binding", gv.Space, gv.Name); err != nil {
					return err
				}
			case ResourceBinding:
				if err := s.errorf(KindUnexpectedBinding, refs,
					"%s global %q cannot have a resource binding", gv.Space, gv.Name); err != nil {
					return err
				}
			case BuiltinBinding:
				if err := s.checkBuiltinType(gh, gv, b.Builtin); err != nil {
					return err
				}
			}

		default:
			if gv.Binding != nil {
				if err := s.errorf(KindUnexpectedBinding, refs,
					"%s global %q cannot have a binding", gv.Space, gv.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *validation) checkBuiltinType(gh GlobalVariableHandle, gv *GlobalVariable, b BuiltinValue) error {
	rule, ok := builtinRules[b]
	if !ok {
		return s.errorf(KindInvalidBuiltinType, []HandleRef{globalRef(gh)}, "unknown builtin %d on %q", b, gv.Name)
	}
	inner := s.module.Types.at(gv.Type).Inner
	if inner != rule.ty {
		return s.errorf(KindInvalidBuiltinType, []HandleRef{globalRef(gh), typeRef(gv.Type)},
			"builtin %s on %q must be %s, not %s", b, gv.Name,
			FormatType(&s.module.Types, rule.ty), FormatType(&s.module.Types, inner))
	}
	return nil
}

//nolint:gocyclo,cyclop,funlen // entry point rules are independent of each other
func (s *validation) checkEntryPoint(index int, ep *EntryPoint, seen map[string]int) error {
	refs := []HandleRef{entryPointRef(index)}
	fn := s.module.Functions.at(ep.Function)
	info := &s.info.Functions[ep.Function]

	if ep.Name == "" {
		if err := s.errorf(KindInvalidEntryPoint, refs, "entry point %d has no name", index); err != nil {
			return err
		}
	} else if prev, dup := seen[ep.Name]; dup {
		if err := s.errorf(KindDuplicateEntryPoint, []HandleRef{entryPointRef(prev), entryPointRef(index)},
			"entry point name %q is used twice", ep.Name); err != nil {
			return err
		}
	} else {
		seen[ep.Name] = index
	}

	if len(fn.Arguments) != 0 || fn.Result != nil {
		if err := s.errorf(KindInvalidEntryPoint, []HandleRef{entryPointRef(index), functionRef(ep.Function)},
			"entry point function %q must take no arguments and return nothing", fn.Name); err != nil {
			return err
		}
	}

	if ep.Stage == StageCompute && (ep.Workgroup[0] == 0 || ep.Workgroup[1] == 0 || ep.Workgroup[2] == 0) {
		if err := s.errorf(KindMissingWorkgroupSize, refs,
			"compute entry point needs a non-zero workgroup size, got %v", ep.Workgroup); err != nil {
			return err
		}
	}

	stageOp := func(allowed ShaderStage, what string) error {
		if ep.Stage == allowed {
			return nil
		}
		return s.errorf(KindIllegalOperationForStage, refs, "%s is only allowed in %s shaders, not %s", what, allowed, ep.Stage)
	}
	if info.Flags&FlagMayKill != 0 {
		if err := stageOp(StageFragment, "discard"); err != nil {
			return err
		}
	}
	if info.Flags&FlagUsesDerivatives != 0 {
		if err := stageOp(StageFragment, "taking derivatives"); err != nil {
			return err
		}
	}
	if info.Flags&FlagUsesImplicitLod != 0 {
		if err := stageOp(StageFragment, "sampling with an implicit level of detail"); err != nil {
			return err
		}
	}
	if info.Flags&FlagUsesBarrier != 0 {
		if err := stageOp(StageCompute, "a workgroup barrier"); err != nil {
			return err
		}
	}

	writesPosition := false
	locations := map[[2]uint32]GlobalVariableHandle{}
	for gh, gv := range s.module.GlobalVariables.All() {
		use := info.Uses(gh)
		if use == 0 {
			continue
		}
		switch gv.Space {
		case SpaceWorkGroup:
			if err := stageOp(StageCompute, "workgroup variable "+gv.Name); err != nil {
				return err
			}
		case SpaceInput, SpaceOutput:
			dir := builtinIn
			if gv.Space == SpaceOutput {
				dir = builtinOut
			}
			switch b := gv.Binding.(type) {
			case BuiltinBinding:
				if b.Builtin == BuiltinPosition && dir == builtinOut && use&GlobalUseWrite != 0 {
					writesPosition = true
				}
				if rule, ok := builtinRules[b.Builtin]; ok && rule.stages[ep.Stage]&dir == 0 {
					if err := s.errorf(KindIllegalBuiltinForStage, []HandleRef{entryPointRef(index), globalRef(gh)},
						"builtin %s cannot be used as %s %s in %s shaders", b.Builtin, directionName(dir), gv.Space, ep.Stage); err != nil {
						return err
					}
				}
			case LocationBinding:
				key := [2]uint32{uint32(dir), b.Location}
				if prev, dup := locations[key]; dup {
					if err := s.errorf(KindDuplicateBinding, []HandleRef{globalRef(prev), globalRef(gh)},
						"%s globals %q and %q share location %d", gv.Space,
						s.module.GlobalVariables.at(prev).Name, gv.Name, b.Location); err != nil {
						return err
					}
					continue
				}
				locations[key] = gh
			}
		}
	}

	if ep.Stage == StageVertex && !writesPosition {
		return s.errorf(KindInvalidEntryPoint, refs, "vertex entry point %q never writes the position builtin", ep.Name)
	}
	return nil
}

func directionName(d builtinDirection) string {
	if d == builtinOut {
		return "an output"
	}
	return "an input"
}

package ir

import "strings"

// ModuleInfo is the analysis a successful validation produces.
// Back-ends read expression types and usage from it instead of re-deriving
// them. It refers to the validated Module without owning it; the Module
// must stay unchanged while the info is in use.
type ModuleInfo struct {
	module *Module

	// ConstExpressionTypes holds the type of each global expression,
	// indexed by handle.
	ConstExpressionTypes []TypeResolution

	// Functions is indexed by FunctionHandle.
	Functions []FunctionInfo

	// EntryPoints is indexed like Module.EntryPoints.
	EntryPoints []EntryPointInfo
}

// Module returns the module the info was derived from.
func (i *ModuleInfo) Module() *Module {
	return i.module
}

// Function returns the info of a function, or nil for an unknown handle.
func (i *ModuleInfo) Function(h FunctionHandle) *FunctionInfo {
	if int(h) >= len(i.Functions) {
		return nil
	}
	return &i.Functions[h]
}

// EntryPointFunction returns the info of the function the entry point at
// index runs.
func (i *ModuleInfo) EntryPointFunction(index int) *FunctionInfo {
	if index < 0 || index >= len(i.EntryPoints) {
		return nil
	}
	return i.Function(i.EntryPoints[index].Function)
}

// ConstExpressionType returns the resolved inner type of a global expression.
func (i *ModuleInfo) ConstExpressionType(h ExpressionHandle) TypeInner {
	if int(h) >= len(i.ConstExpressionTypes) {
		return nil
	}
	return i.ConstExpressionTypes[h].Inner(&i.module.Types)
}

// EntryPointInfo records which function an entry point runs.
type EntryPointInfo struct {
	Name     string
	Stage    ShaderStage
	Function FunctionHandle
}

// FunctionFlags records what a function (including its callees) does.
type FunctionFlags uint8

const (
	// FlagMayKill is set when the function may discard the invocation.
	FlagMayKill FunctionFlags = 1 << iota
	// FlagMayReturn is set when the function contains a Return.
	FlagMayReturn
	// FlagUsesDerivatives is set when the function takes derivatives.
	FlagUsesDerivatives
	// FlagUsesImplicitLod is set when the function samples with an implicit level of detail.
	FlagUsesImplicitLod
	// FlagUsesBarrier is set when the function synchronizes the workgroup.
	FlagUsesBarrier
)

func (f FunctionFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		flag FunctionFlags
		name string
	}{
		{FlagMayKill, "may_kill"},
		{FlagMayReturn, "may_return"},
		{FlagUsesDerivatives, "derivatives"},
		{FlagUsesImplicitLod, "implicit_lod"},
		{FlagUsesBarrier, "barrier"},
	} {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// FunctionInfo is the per-function analysis.
type FunctionInfo struct {
	Flags FunctionFlags

	// Uniformity of the function's control flow.
	Uniformity Uniformity

	// Expressions is indexed by ExpressionHandle.
	Expressions []ExpressionInfo

	// GlobalUses is indexed by GlobalVariableHandle and includes uses by
	// callees.
	GlobalUses []GlobalUse

	// SamplingSet lists every image/sampler pair sampled, sorted.
	SamplingSet []SamplingKey
}

// Type returns the resolved type of an expression.
func (f *FunctionInfo) Type(h ExpressionHandle) TypeResolution {
	return f.Expressions[h].Type
}

// Uses reports how the function uses a global.
func (f *FunctionInfo) Uses(h GlobalVariableHandle) GlobalUse {
	if int(h) >= len(f.GlobalUses) {
		return 0
	}
	return f.GlobalUses[h]
}

// ExpressionInfo is the per-expression analysis.
type ExpressionInfo struct {
	Type       TypeResolution
	RefCount   int
	Uniformity Uniformity

	// AssignableGlobal is the global a pointer expression points into, if any.
	AssignableGlobal *GlobalVariableHandle
}

// Uniformity describes whether a value or control flow can differ between
// invocations. Both fields name the expression responsible, if any.
type Uniformity struct {
	// NonUniformResult is the expression that makes a result non-uniform.
	NonUniformResult *ExpressionHandle
	// RequireUniform is the expression that needs uniform control flow.
	RequireUniform *ExpressionHandle
}

func (u Uniformity) or(other Uniformity) Uniformity {
	if u.NonUniformResult == nil {
		u.NonUniformResult = other.NonUniformResult
	}
	if u.RequireUniform == nil {
		u.RequireUniform = other.RequireUniform
	}
	return u
}

// GlobalUse is the set of ways a global is accessed.
type GlobalUse uint8

const (
	GlobalUseRead GlobalUse = 1 << iota
	GlobalUseWrite
	GlobalUseQuery
)

func (u GlobalUse) String() string {
	if u == 0 {
		return "-"
	}
	var b strings.Builder
	for _, n := range []struct {
		use  GlobalUse
		name string
	}{{GlobalUseRead, "read"}, {GlobalUseWrite, "write"}, {GlobalUseQuery, "query"}} {
		if u&n.use != 0 {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(n.name)
		}
	}
	return b.String()
}

// SamplingKey is an image sampled with a sampler.
type SamplingKey struct {
	Image   GlobalVariableHandle
	Sampler GlobalVariableHandle
}

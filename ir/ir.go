package ir

// Module is a whole shader program.
// A Module exclusively owns everything reachable from its arenas.
type Module struct {
	// Types may hold structural duplicates; the validator compares types by
	// structure (see TypesEqual), never by handle.
	Types Arena[Type]

	Constants Arena[Constant]

	// GlobalExpressions holds constant expressions used by constants and
	// global variable initializers.
	GlobalExpressions Arena[Expression]

	GlobalVariables Arena[GlobalVariable]

	// Functions may only call functions with a smaller handle.
	Functions Arena[Function]

	EntryPoints Arena[EntryPoint]
}

// EntryPoint exposes a function to the pipeline as Stage.
// The referenced function must take no arguments and return nothing;
// stage inputs and outputs travel through Input and Output globals.
type EntryPoint struct {
	Name      string
	Stage     ShaderStage
	Function  FunctionHandle
	Workgroup [3]uint32 // compute only; every dimension non-zero
}

type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Type is an arena entry. Name is informational except for structs.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner is implemented by every *Type variant below.
type TypeInner interface {
	typeInner()
}

// ScalarType is a scalar kind with a byte width. Bools are width 1.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8
}

func (ScalarType) typeInner() {}

type ScalarKind uint8

const (
	ScalarSint ScalarKind = iota
	ScalarUint
	ScalarFloat
	ScalarBool
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarSint:
		return "sint"
	case ScalarUint:
		return "uint"
	case ScalarFloat:
		return "float"
	case ScalarBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Commonly used scalars.
var (
	ScalarF32     = ScalarType{Kind: ScalarFloat, Width: 4}
	ScalarI32     = ScalarType{Kind: ScalarSint, Width: 4}
	ScalarU32     = ScalarType{Kind: ScalarUint, Width: 4}
	ScalarBoolean = ScalarType{Kind: ScalarBool, Width: 1}
)

type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize is a component count; only 2, 3 and 4 are valid.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

func (s VectorSize) valid() bool {
	return s == Vec2 || s == Vec3 || s == Vec4
}

// MatrixType is Columns column vectors of Rows floats.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

// ArrayType is a fixed or runtime-sized array with an explicit stride.
type ArrayType struct {
	Base   TypeHandle
	Size   ArraySize
	Stride uint32
}

func (ArrayType) typeInner() {}

type ArraySize struct {
	Constant *uint32 // nil when runtime-sized
}

// StructType lists members by offset. Span is the total size in bytes.
type StructType struct {
	Members []StructMember
	Span    uint32
}

func (StructType) typeInner() {}

type StructMember struct {
	Name   string
	Type   TypeHandle
	Offset uint32
}

// PointerType points at an arena type in an address space.
type PointerType struct {
	Base   TypeHandle
	Space  AddressSpace
	Access StorageAccess // only meaningful for SpaceStorage
}

func (PointerType) typeInner() {}

// ValuePointerType is a pointer to a scalar or vector that has no type of its
// own in the arena, such as a vector component or a matrix column.
// It only appears in resolved expression types.
type ValuePointerType struct {
	Size   *VectorSize // nil for a scalar
	Scalar ScalarType
	Space  AddressSpace
	Access StorageAccess
}

func (ValuePointerType) typeInner() {}

// AtomicType wraps a 32- or 64-bit integer scalar.
type AtomicType struct {
	Scalar ScalarType
}

func (AtomicType) typeInner() {}

// AddressSpace is where a variable lives.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage
	SpacePushConstant
	SpaceHandle
	SpaceInput
	SpaceOutput
)

func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkGroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpacePushConstant:
		return "push_constant"
	case SpaceHandle:
		return "handle"
	case SpaceInput:
		return "input"
	case SpaceOutput:
		return "output"
	default:
		return "unknown"
	}
}

// IsResource reports whether variables in this space are bound by
// (group, binding) pairs.
func (s AddressSpace) IsResource() bool {
	return s == SpaceUniform || s == SpaceStorage || s == SpaceHandle
}

// StorageAccess represents access flags for storage buffers and images.
type StorageAccess uint8

const (
	StorageLoad  StorageAccess = 1 << 0
	StorageStore StorageAccess = 1 << 1

	StorageReadWrite = StorageLoad | StorageStore
)

// Writable reports whether a pointer in space s with access flags a may be
// stored through.
func Writable(s AddressSpace, a StorageAccess) bool {
	switch s {
	case SpaceFunction, SpacePrivate, SpaceWorkGroup, SpaceOutput:
		return true
	case SpaceStorage:
		return a&StorageStore != 0
	default:
		return false
	}
}

type SamplerType struct {
	Comparison bool
}

func (SamplerType) typeInner() {}

// ImageType is a texture. Which of the trailing fields apply depends on
// Class.
type ImageType struct {
	Dim          ImageDimension
	Arrayed      bool
	Class        ImageClass
	Multisampled bool
	SampledKind  ScalarKind    // sampled images only
	Format       StorageFormat // storage images only
	Access       StorageAccess // storage images only
}

func (ImageType) typeInner() {}

type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
)

// coordinates returns the number of coordinate components addressing a texel.
func (d ImageDimension) coordinates() int {
	switch d {
	case Dim1D:
		return 1
	case Dim2D:
		return 2
	default:
		return 3
	}
}

type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// StorageFormat represents the texel format of a storage image.
type StorageFormat uint8

const (
	FormatRgba8Unorm StorageFormat = iota
	FormatRgba8Snorm
	FormatRgba8Uint
	FormatRgba8Sint
	FormatRgba16Float
	FormatR32Uint
	FormatR32Sint
	FormatR32Float
	FormatRgba32Uint
	FormatRgba32Sint
	FormatRgba32Float
)

// Kind returns the scalar kind texels of this format are read as.
func (f StorageFormat) Kind() ScalarKind {
	switch f {
	case FormatRgba8Uint, FormatR32Uint, FormatRgba32Uint:
		return ScalarUint
	case FormatRgba8Sint, FormatR32Sint, FormatRgba32Sint:
		return ScalarSint
	default:
		return ScalarFloat
	}
}

// BindingArrayType represents an array of resources bound to one binding slot.
type BindingArrayType struct {
	Base TypeHandle
	Size ArraySize
}

func (BindingArrayType) typeInner() {}

// Constant represents a named module-scope constant.
type Constant struct {
	Name string
	Type TypeHandle
	Init ExpressionHandle // into Module.GlobalExpressions
}

// GlobalVariable is module-scope storage. Access applies to storage space
// only; zero there means read-only.
type GlobalVariable struct {
	Name    string
	Space   AddressSpace
	Access  StorageAccess
	Binding Binding
	Type    TypeHandle
	Init    *ExpressionHandle // into Module.GlobalExpressions
}

// Function owns its locals and expressions. Body refers into both.
type Function struct {
	Name        string
	Arguments   []FunctionArgument
	Result      *FunctionResult
	LocalVars   Arena[LocalVariable]
	Expressions Arena[Expression]
	Body        Block
}

type FunctionArgument struct {
	Name string
	Type TypeHandle
}

type FunctionResult struct {
	Type TypeHandle
}

// LocalVariable is function-space storage. Init, when set, is an
// expression of the same function.
type LocalVariable struct {
	Name string
	Type TypeHandle
	Init *ExpressionHandle
}

// Binding describes how a global variable is connected to the pipeline.
type Binding interface {
	binding()
}

// BuiltinBinding ties an input or output global to a pipeline builtin.
type BuiltinBinding struct {
	Builtin BuiltinValue
}

func (BuiltinBinding) binding() {}

type BuiltinValue uint8

const (
	BuiltinPosition BuiltinValue = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinSampleMask
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkGroupID
	BuiltinNumWorkGroups
)

func (b BuiltinValue) String() string {
	switch b {
	case BuiltinPosition:
		return "position"
	case BuiltinVertexIndex:
		return "vertex_index"
	case BuiltinInstanceIndex:
		return "instance_index"
	case BuiltinFrontFacing:
		return "front_facing"
	case BuiltinFragDepth:
		return "frag_depth"
	case BuiltinSampleIndex:
		return "sample_index"
	case BuiltinSampleMask:
		return "sample_mask"
	case BuiltinLocalInvocationID:
		return "local_invocation_id"
	case BuiltinLocalInvocationIndex:
		return "local_invocation_index"
	case BuiltinGlobalInvocationID:
		return "global_invocation_id"
	case BuiltinWorkGroupID:
		return "workgroup_id"
	case BuiltinNumWorkGroups:
		return "num_workgroups"
	default:
		return "unknown"
	}
}

// LocationBinding is a user-defined stage input or output slot.
type LocationBinding struct {
	Location      uint32
	Interpolation *Interpolation
}

func (LocationBinding) binding() {}

// ResourceBinding places a uniform, storage or handle global in a bind group.
type ResourceBinding struct {
	Group   uint32
	Binding uint32
}

func (ResourceBinding) binding() {}

type Interpolation struct {
	Kind     InterpolationKind
	Sampling InterpolationSampling
}

type InterpolationKind uint8

const (
	InterpolationFlat InterpolationKind = iota
	InterpolationLinear
	InterpolationPerspective
)

type InterpolationSampling uint8

const (
	SamplingCenter InterpolationSampling = iota
	SamplingCentroid
	SamplingSample
)

// TypeResolution is the type of an expression: an arena type when Handle
// is set, otherwise the inline Value.
type TypeResolution struct {
	Handle *TypeHandle
	Value  TypeInner
}

// Inner returns the TypeInner the resolution stands for.
func (r TypeResolution) Inner(types *Arena[Type]) TypeInner {
	if r.Handle != nil {
		if !types.Contains(*r.Handle) {
			return nil
		}
		return types.at(*r.Handle).Inner
	}
	return r.Value
}

func resolved(h TypeHandle) TypeResolution {
	return TypeResolution{Handle: &h}
}

func inline(inner TypeInner) TypeResolution {
	return TypeResolution{Value: inner}
}

package irio

// The document types mirror ir.Module one to one. Every tagged union is a
// struct with a kind discriminator and the fields of all of its variants;
// fields that do not belong to the variant named by kind are ignored.
// Handles are plain arena indices.

type moduleDoc struct {
	Types             []typeDoc       `yaml:"types,omitempty"`
	Constants         []constantDoc   `yaml:"constants,omitempty"`
	GlobalExpressions []exprDoc       `yaml:"global_expressions,omitempty"`
	GlobalVariables   []globalDoc     `yaml:"global_variables,omitempty"`
	Functions         []functionDoc   `yaml:"functions,omitempty"`
	EntryPoints       []entryPointDoc `yaml:"entry_points,omitempty"`
}

type typeDoc struct {
	Name string `yaml:"name,omitempty"`
	Kind string `yaml:"kind"`

	// scalar, vector, matrix, atomic, value_pointer
	Scalar string `yaml:"scalar,omitempty"`
	// vector, value_pointer
	Size *uint8 `yaml:"size,omitempty"`
	// matrix
	Columns uint8 `yaml:"columns,omitempty"`
	Rows    uint8 `yaml:"rows,omitempty"`
	// array, pointer, binding_array
	Base *uint32 `yaml:"base,omitempty"`
	// array, binding_array: element count, absent when runtime-sized
	Length *uint32 `yaml:"length,omitempty"`
	Stride uint32  `yaml:"stride,omitempty"`
	// struct
	Members []memberDoc `yaml:"members,omitempty"`
	Span    uint32      `yaml:"span,omitempty"`
	// pointer, value_pointer, image
	Space  string `yaml:"space,omitempty"`
	Access string `yaml:"access,omitempty"`
	// image
	Dim          string `yaml:"dim,omitempty"`
	Arrayed      bool   `yaml:"arrayed,omitempty"`
	Class        string `yaml:"class,omitempty"`
	Multisampled bool   `yaml:"multisampled,omitempty"`
	SampledKind  string `yaml:"sampled_kind,omitempty"`
	Format       string `yaml:"format,omitempty"`
	// sampler
	Comparison bool `yaml:"comparison,omitempty"`
}

type memberDoc struct {
	Name   string `yaml:"name,omitempty"`
	Type   uint32 `yaml:"type"`
	Offset uint32 `yaml:"offset"`
}

type constantDoc struct {
	Name string `yaml:"name,omitempty"`
	Type uint32 `yaml:"type"`
	Init uint32 `yaml:"init"`
}

type globalDoc struct {
	Name    string      `yaml:"name,omitempty"`
	Space   string      `yaml:"space"`
	Access  string      `yaml:"access,omitempty"`
	Binding *bindingDoc `yaml:"binding,omitempty"`
	Type    uint32      `yaml:"type"`
	Init    *uint32     `yaml:"init,omitempty"`
}

type bindingDoc struct {
	Kind string `yaml:"kind"`
	// builtin
	Builtin string `yaml:"builtin,omitempty"`
	// location
	Location      *uint32           `yaml:"location,omitempty"`
	Interpolation *interpolationDoc `yaml:"interpolation,omitempty"`
	// resource
	Group   *uint32 `yaml:"group,omitempty"`
	Binding *uint32 `yaml:"binding,omitempty"`
}

type interpolationDoc struct {
	Kind     string `yaml:"kind"`
	Sampling string `yaml:"sampling"`
}

type functionDoc struct {
	Name        string        `yaml:"name,omitempty"`
	Arguments   []argumentDoc `yaml:"arguments,omitempty"`
	Result      *uint32       `yaml:"result,omitempty"`
	Locals      []localDoc    `yaml:"locals,omitempty"`
	Expressions []exprDoc     `yaml:"expressions,omitempty"`
	Body        []stmtDoc     `yaml:"body,omitempty"`
}

type argumentDoc struct {
	Name string `yaml:"name,omitempty"`
	Type uint32 `yaml:"type"`
}

type localDoc struct {
	Name string  `yaml:"name,omitempty"`
	Type uint32  `yaml:"type"`
	Init *uint32 `yaml:"init,omitempty"`
}

type entryPointDoc struct {
	Name      string     `yaml:"name"`
	Stage     string     `yaml:"stage"`
	Function  uint32     `yaml:"function"`
	Workgroup *[3]uint32 `yaml:"workgroup,omitempty,flow"`
}

type exprDoc struct {
	Kind string `yaml:"kind"`

	// literal: scalar names the literal type, exactly one value field is set
	Scalar string   `yaml:"scalar,omitempty"`
	Float  *float64 `yaml:"float,omitempty"`
	Int    *int64   `yaml:"int,omitempty"`
	Uint   *uint64  `yaml:"uint,omitempty"`
	Bool   *bool    `yaml:"bool,omitempty"`

	Constant *uint32 `yaml:"constant,omitempty"`
	// zero_value, compose, atomic_result
	Type       *uint32  `yaml:"type,omitempty"`
	Components []uint32 `yaml:"components,omitempty,flow"`
	// access, access_index
	Base *uint32 `yaml:"base,omitempty"`
	// access: expression; access_index: constant index; function_argument: position
	Index *uint32 `yaml:"index,omitempty"`
	// splat, swizzle
	Size    *uint8  `yaml:"size,omitempty"`
	Value   *uint32 `yaml:"value,omitempty"`
	Vector  *uint32 `yaml:"vector,omitempty"`
	Pattern string  `yaml:"pattern,omitempty"`
	// global_variable, local_variable
	Variable *uint32 `yaml:"variable,omitempty"`
	Pointer  *uint32 `yaml:"pointer,omitempty"`

	// image_sample, image_load, image_query
	Image       *uint32   `yaml:"image,omitempty"`
	Sampler     *uint32   `yaml:"sampler,omitempty"`
	Gather      string    `yaml:"gather,omitempty"`
	Coordinate  *uint32   `yaml:"coordinate,omitempty"`
	ArrayIndex  *uint32   `yaml:"array_index,omitempty"`
	Offset      *uint32   `yaml:"offset,omitempty"`
	Level       *levelDoc `yaml:"level,omitempty"`
	DepthRef    *uint32   `yaml:"depth_ref,omitempty"`
	ClampToEdge bool      `yaml:"clamp_to_edge,omitempty"`
	Sample      *uint32   `yaml:"sample,omitempty"`
	// image_load: mip level; image_query size: queried level
	Lod   *uint32 `yaml:"lod,omitempty"`
	Query string  `yaml:"query,omitempty"`

	Op    string  `yaml:"op,omitempty"`
	Expr  *uint32 `yaml:"expr,omitempty"`
	Left  *uint32 `yaml:"left,omitempty"`
	Right *uint32 `yaml:"right,omitempty"`

	Condition *uint32 `yaml:"condition,omitempty"`
	Accept    *uint32 `yaml:"accept,omitempty"`
	Reject    *uint32 `yaml:"reject,omitempty"`

	Axis    string `yaml:"axis,omitempty"`
	Control string `yaml:"control,omitempty"`

	// relational, math
	Fun      string  `yaml:"fun,omitempty"`
	Argument *uint32 `yaml:"argument,omitempty"`
	Arg      *uint32 `yaml:"arg,omitempty"`
	Arg1     *uint32 `yaml:"arg1,omitempty"`
	Arg2     *uint32 `yaml:"arg2,omitempty"`
	Arg3     *uint32 `yaml:"arg3,omitempty"`

	// as
	To      string `yaml:"to,omitempty"`
	Convert *uint8 `yaml:"convert,omitempty"`

	// call_result
	Function *uint32 `yaml:"function,omitempty"`
	// array_length
	Array *uint32 `yaml:"array,omitempty"`
}

type levelDoc struct {
	Kind  string  `yaml:"kind"`
	Value *uint32 `yaml:"value,omitempty"`
	X     *uint32 `yaml:"x,omitempty"`
	Y     *uint32 `yaml:"y,omitempty"`
}

type stmtDoc struct {
	Kind string `yaml:"kind"`

	// emit: [start, end)
	Range []uint32 `yaml:"range,omitempty,flow"`
	// block
	Block []stmtDoc `yaml:"block,omitempty"`
	// if
	Condition *uint32   `yaml:"condition,omitempty"`
	Accept    []stmtDoc `yaml:"accept,omitempty"`
	Reject    []stmtDoc `yaml:"reject,omitempty"`
	// switch
	Selector *uint32   `yaml:"selector,omitempty"`
	Cases    []caseDoc `yaml:"cases,omitempty"`
	// loop
	Body       []stmtDoc `yaml:"body,omitempty"`
	Continuing []stmtDoc `yaml:"continuing,omitempty"`
	BreakIf    *uint32   `yaml:"break_if,omitempty"`
	// barrier
	Flags string `yaml:"flags,omitempty"`

	// store, image_store, atomic
	Pointer    *uint32 `yaml:"pointer,omitempty"`
	Image      *uint32 `yaml:"image,omitempty"`
	Coordinate *uint32 `yaml:"coordinate,omitempty"`
	ArrayIndex *uint32 `yaml:"array_index,omitempty"`
	Fun        string  `yaml:"fun,omitempty"`
	Compare    *uint32 `yaml:"compare,omitempty"`
	// return, store, image_store, atomic
	Value *uint32 `yaml:"value,omitempty"`
	// atomic, call
	Result *uint32 `yaml:"result,omitempty"`
	// call
	Function  *uint32  `yaml:"function,omitempty"`
	Arguments []uint32 `yaml:"arguments,omitempty,flow"`
}

type caseDoc struct {
	I32         *int32    `yaml:"i32,omitempty"`
	U32         *uint32   `yaml:"u32,omitempty"`
	Default     bool      `yaml:"default,omitempty"`
	Body        []stmtDoc `yaml:"body,omitempty"`
	FallThrough bool      `yaml:"fallthrough,omitempty"`
}

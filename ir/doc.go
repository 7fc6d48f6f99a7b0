// Package ir defines the shader intermediate representation that front-ends
// produce and back-ends consume, and the Validator that stands between them.
//
// # Structure
//
// A Module owns a set of append-only arenas:
//   - Types: every type, interned by TypeRegistry
//   - Constants and GlobalExpressions: module-scope constant expressions
//   - GlobalVariables: uniforms, storage buffers, textures, stage inputs and outputs
//   - Functions: each with its own expression and local variable arenas
//   - EntryPoints: the functions a pipeline stage starts in
//
// Objects refer to each other through typed handles (Handle[T]), which are
// indices into the owning arena. Within an arena a reference always points
// backwards, so expressions form a DAG and types cannot be recursive.
//
// # Expressions and statements
//
// Expressions are pure. A function body is a tree of statements; an Emit
// statement marks the point where a range of expressions is evaluated, and
// the evaluated values stay visible until the enclosing block ends. Use
// Emitter to produce Emit statements while appending expressions.
//
// # Validation
//
// A back-end must only ever see a validated module:
//
//	info, err := ir.NewValidator(ir.CapabilityFloat64).Validate(module)
//	if err != nil {
//		for _, d := range ir.Diagnostics(err) {
//			fmt.Println(d)
//		}
//		return err
//	}
//
// Validation runs four passes (handles, types, control flow, interface) and
// returns a ModuleInfo with the resolved type of every expression, global
// usage, sampling pairs and uniformity, indexed by the module's handles.
// Diagnostics are *ValidationError values matching their ErrorKind with
// errors.Is.
package ir

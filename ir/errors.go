package ir

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrorCategory groups error kinds by the invariant family they protect.
type ErrorCategory uint8

const (
	CategoryHandle ErrorCategory = iota
	CategoryType
	CategoryControlFlow
	CategoryInterface
	CategoryCapability
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryHandle:
		return "handle"
	case CategoryType:
		return "type"
	case CategoryControlFlow:
		return "control flow"
	case CategoryInterface:
		return "interface"
	case CategoryCapability:
		return "capability"
	default:
		return "unknown"
	}
}

// ErrorKind identifies a specific validation failure.
// ErrorKind implements error so callers can match with errors.Is:
//
//	if errors.Is(err, ir.KindForwardReference) { ... }
type ErrorKind uint8

const (
	// Handle errors.
	KindOutOfBounds ErrorKind = iota
	KindForwardReference

	// Type errors.
	KindInvalidType
	KindMismatch
	KindNotScalar
	KindNotIndexable
	KindNotPointer
	KindIndexOutOfBounds
	KindInvalidOperand
	KindWrongArgumentCount
	KindExpectedGlobalVariable
	KindInvalidConstant

	// Control-flow errors.
	KindBreakOutsideLoop
	KindInvalidInContinuing
	KindMissingReturn
	KindWriteToReadOnly
	KindNotEmitted
	KindAlreadyEmitted
	KindInvalidSwitch
	KindInvalidCall
	KindNonUniformControlFlow

	// Interface errors.
	KindDuplicateBinding
	KindIllegalBuiltinForStage
	KindInvalidBuiltinType
	KindMissingBinding
	KindUnexpectedBinding
	KindMissingWorkgroupSize
	KindInvalidEntryPoint
	KindDuplicateEntryPoint
	KindIllegalOperationForStage

	// Capability errors.
	KindMissingCapability
)

var kindNames = [...]string{
	KindOutOfBounds:              "OutOfBounds",
	KindForwardReference:         "ForwardReference",
	KindInvalidType:              "InvalidType",
	KindMismatch:                 "Mismatch",
	KindNotScalar:                "NotScalar",
	KindNotIndexable:             "NotIndexable",
	KindNotPointer:               "NotPointer",
	KindIndexOutOfBounds:         "IndexOutOfBounds",
	KindInvalidOperand:           "InvalidOperand",
	KindWrongArgumentCount:       "WrongArgumentCount",
	KindExpectedGlobalVariable:   "ExpectedGlobalVariable",
	KindInvalidConstant:          "InvalidConstant",
	KindBreakOutsideLoop:         "BreakOutsideLoop",
	KindInvalidInContinuing:      "InvalidInContinuing",
	KindMissingReturn:            "MissingReturn",
	KindWriteToReadOnly:          "WriteToReadOnly",
	KindNotEmitted:               "NotEmitted",
	KindAlreadyEmitted:           "AlreadyEmitted",
	KindInvalidSwitch:            "InvalidSwitch",
	KindInvalidCall:              "InvalidCall",
	KindNonUniformControlFlow:    "NonUniformControlFlow",
	KindDuplicateBinding:         "DuplicateBinding",
	KindIllegalBuiltinForStage:   "IllegalBuiltinForStage",
	KindInvalidBuiltinType:       "InvalidBuiltinType",
	KindMissingBinding:           "MissingBinding",
	KindUnexpectedBinding:        "UnexpectedBinding",
	KindMissingWorkgroupSize:     "MissingWorkgroupSize",
	KindInvalidEntryPoint:        "InvalidEntryPoint",
	KindDuplicateEntryPoint:      "DuplicateEntryPoint",
	KindIllegalOperationForStage: "IllegalOperationForStage",
	KindMissingCapability:        "MissingCapability",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error implements error.
func (k ErrorKind) Error() string {
	return k.Category().String() + " error: " + k.String()
}

// Category returns the family the kind belongs to.
func (k ErrorKind) Category() ErrorCategory {
	switch {
	case k <= KindForwardReference:
		return CategoryHandle
	case k <= KindInvalidConstant:
		return CategoryType
	case k <= KindNonUniformControlFlow:
		return CategoryControlFlow
	case k <= KindIllegalOperationForStage:
		return CategoryInterface
	default:
		return CategoryCapability
	}
}

// ArenaKind names the arena a HandleRef points into.
type ArenaKind uint8

const (
	ArenaType ArenaKind = iota
	ArenaConstant
	ArenaGlobalExpression
	ArenaGlobalVariable
	ArenaFunction
	ArenaEntryPoint
	ArenaExpression
	ArenaLocalVariable
)

func (a ArenaKind) String() string {
	switch a {
	case ArenaType:
		return "type"
	case ArenaConstant:
		return "constant"
	case ArenaGlobalExpression:
		return "global expression"
	case ArenaGlobalVariable:
		return "global variable"
	case ArenaFunction:
		return "function"
	case ArenaEntryPoint:
		return "entry point"
	case ArenaExpression:
		return "expression"
	case ArenaLocalVariable:
		return "local variable"
	default:
		return "unknown"
	}
}

// HandleRef identifies one IR object involved in a diagnostic.
type HandleRef struct {
	Arena ArenaKind
	Index uint32
}

func (r HandleRef) String() string {
	return fmt.Sprintf("%s [%d]", r.Arena, r.Index)
}

func typeRef(h TypeHandle) HandleRef             { return HandleRef{ArenaType, uint32(h)} }
func constantRef(h ConstantHandle) HandleRef     { return HandleRef{ArenaConstant, uint32(h)} }
func globalExprRef(h ExpressionHandle) HandleRef { return HandleRef{ArenaGlobalExpression, uint32(h)} }
func globalRef(h GlobalVariableHandle) HandleRef { return HandleRef{ArenaGlobalVariable, uint32(h)} }
func functionRef(h FunctionHandle) HandleRef     { return HandleRef{ArenaFunction, uint32(h)} }
func entryPointRef(i int) HandleRef              { return HandleRef{ArenaEntryPoint, uint32(i)} }
func exprRef(h ExpressionHandle) HandleRef       { return HandleRef{ArenaExpression, uint32(h)} }
func localRef(h LocalVariableHandle) HandleRef   { return HandleRef{ArenaLocalVariable, uint32(h)} }

// ValidationError is a single validation diagnostic.
type ValidationError struct {
	Kind    ErrorKind
	Message string

	// Optional context
	Function   string // enclosing function name, if any
	EntryPoint string // enclosing entry point name, if any
	Statement  int    // pre-order index of the statement in the function body, or -1
	Handles    []HandleRef
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.EntryPoint != "" {
		fmt.Fprintf(&b, "in entry point %s, ", e.EntryPoint)
	}
	if e.Function != "" {
		fmt.Fprintf(&b, "in function %s, ", e.Function)
	}
	if e.Statement >= 0 {
		fmt.Fprintf(&b, "statement %d, ", e.Statement)
	}
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Handles) > 0 {
		b.WriteString(" (")
		for i, h := range e.Handles {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(h.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is matches an ErrorKind target against the diagnostic's kind.
func (e *ValidationError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// Diagnostics flattens an error returned by Validate into its diagnostics,
// looking through fmt.Errorf wrapping. It returns nil for errors that carry
// no ValidationError.
func Diagnostics(err error) []*ValidationError {
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		if errs := multierr.Errors(e); len(errs) > 1 {
			for _, inner := range errs {
				walk(inner)
			}
			return
		}
		if inner := errors.Unwrap(e); inner != nil {
			walk(inner)
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}

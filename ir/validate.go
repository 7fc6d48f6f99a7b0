package ir

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// Mode selects how many diagnostics a validation run reports.
type Mode uint8

const (
	// ModeFailFast stops at the first diagnostic.
	ModeFailFast Mode = iota
	// ModeAccumulate reports every diagnostic of the first failing pass.
	ModeAccumulate
)

// Option configures a Validator.
type Option func(*Validator)

// WithMode sets the reporting mode.
func WithMode(mode Mode) Option {
	return func(v *Validator) { v.mode = mode }
}

// WithLogger sets the logger used for pass-level tracing.
func WithLogger(log logr.Logger) Option {
	return func(v *Validator) { v.log = log }
}

// Validator validates IR modules.
// A Validator holds only its configuration, so one value may be shared by
// concurrent callers and repeated calls on the same input give identical
// results.
type Validator struct {
	caps Capabilities
	mode Mode
	log  logr.Logger
}

// NewValidator creates a validator permitting the given capabilities.
func NewValidator(caps Capabilities, opts ...Option) *Validator {
	v := &Validator{
		caps: caps,
		mode: ModeFailFast,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Capabilities returns the capability set the validator permits.
func (v *Validator) Capabilities() Capabilities {
	return v.caps
}

// Validate checks module with the given capabilities in fail-fast mode.
func Validate(module *Module, caps Capabilities) (*ModuleInfo, error) {
	return NewValidator(caps).Validate(module)
}

// Validate checks the module and derives its ModuleInfo.
//
// The returned error is a *ValidationError in fail-fast mode, or a
// multierr-combined list of them in accumulate mode; use Diagnostics to
// flatten it. The module is never modified.
func (v *Validator) Validate(module *Module) (*ModuleInfo, error) {
	if module == nil {
		return nil, errors.New("module is nil")
	}

	s := newValidation(v, module)
	passes := []struct {
		name string
		run  func() error
	}{
		{"handles", s.checkHandles},
		{"types", s.checkTypes},
		{"control flow", s.checkFunctions},
		{"interface", s.checkInterface},
	}

	for _, pass := range passes {
		err := pass.run()
		if err == nil && len(s.diags) > 0 {
			err = multierr.Combine(s.diags...)
		}
		if err != nil {
			v.log.V(1).Info("validation failed", "pass", pass.name, "diagnostics", len(multierr.Errors(err)))
			return nil, err
		}
		v.log.V(1).Info("validation pass complete", "pass", pass.name)
	}
	return s.info, nil
}

// validation is the per-call state of one Validate run.
type validation struct {
	caps   Capabilities
	mode   Mode
	module *Module
	info   *ModuleInfo
	diags  []error

	typeFlags []typeFlags

	// current function context
	fn        *Function
	fnHandle  FunctionHandle
	fnName    string
	epName    string
	exprArena ArenaKind
	stmt      int // pre-order index of the statement being checked, or -1
	next      int // pre-order index the next visited statement receives
}

func newValidation(v *Validator, module *Module) *validation {
	return &validation{
		caps:      v.caps,
		mode:      v.mode,
		module:    module,
		info:      &ModuleInfo{module: module},
		exprArena: ArenaGlobalExpression,
		stmt:      -1,
	}
}

// enterFunction switches the diagnostic context to a function body.
func (s *validation) enterFunction(h FunctionHandle, fn *Function) {
	s.fn = fn
	s.fnHandle = h
	s.fnName = fn.Name
	s.epName = ""
	for _, ep := range s.module.EntryPoints.Slice() {
		if ep.Function == h {
			s.epName = ep.Name
			break
		}
	}
	s.exprArena = ArenaExpression
	s.stmt = -1
}

// leaveFunction returns to module scope.
func (s *validation) leaveFunction() {
	s.fn = nil
	s.fnName = ""
	s.epName = ""
	s.exprArena = ArenaGlobalExpression
	s.stmt = -1
}

// newError builds a diagnostic carrying the current context.
func (s *validation) newError(kind ErrorKind, handles []HandleRef, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Function:   s.fnName,
		EntryPoint: s.epName,
		Statement:  s.stmt,
		Handles:    handles,
	}
}

// report records a diagnostic. In fail-fast mode it returns the diagnostic so
// the caller unwinds; in accumulate mode it returns nil and the caller goes on.
func (s *validation) report(e *ValidationError) error {
	if s.mode == ModeAccumulate {
		s.diags = append(s.diags, e)
		return nil
	}
	return e
}

// errorf builds and reports a diagnostic in one step.
func (s *validation) errorf(kind ErrorKind, handles []HandleRef, format string, args ...any) error {
	return s.report(s.newError(kind, handles, format, args...))
}

// reportErr reports err if it is a diagnostic that has not been reported yet.
// errSkip is swallowed: it marks work skipped because of an earlier failure.
func (s *validation) reportErr(err error) error {
	if err == nil || errors.Is(err, errSkip) {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return s.report(ve)
	}
	return err
}

// errSkip signals that a check depends on something that already failed.
var errSkip = errors.New("skipped after earlier failure")

func (s *validation) exprRef(h ExpressionHandle) HandleRef {
	return HandleRef{Arena: s.exprArena, Index: uint32(h)}
}

func (s *validation) requireCapability(c Capabilities, handles []HandleRef, what string) error {
	if s.caps.Contains(c) {
		return nil
	}
	return s.errorf(KindMissingCapability, handles, "%s requires capability %s", what, c)
}

// Package shadercore connects shader front-ends and back-ends through one
// validated intermediate representation.
//
// A Frontend turns source into an ir.Module, the validator checks it against
// a capability set, and only then does a Backend see the module together
// with the ir.ModuleInfo the validator derived:
//
//	out, info, err := shadercore.Translate(source, frontend, backend, shadercore.DefaultOptions())
//	if err != nil {
//		for _, d := range ir.Diagnostics(err) {
//			log.Println(d)
//		}
//	}
//
// Package irio provides a YAML Frontend and Backend that read and write the
// IR itself.
package shadercore

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/gogpu/shadercore/ir"
)

// Frontend produces a module from source code.
type Frontend interface {
	Parse(source []byte) (*ir.Module, error)
}

// Backend generates target code from a validated module.
type Backend interface {
	Generate(module *ir.Module, info *ir.ModuleInfo) ([]byte, error)
}

// Options configures validation between the two ends.
type Options struct {
	// Capabilities the target supports. Features outside the set are
	// rejected during validation.
	Capabilities ir.Capabilities

	// Mode selects fail-fast or accumulated diagnostics.
	Mode ir.Mode

	// Logger receives pass-level tracing. The zero value discards.
	Logger logr.Logger
}

// DefaultOptions returns fail-fast validation with the default capabilities.
func DefaultOptions() Options {
	return Options{
		Capabilities: ir.CapabilitiesDefault,
		Mode:         ir.ModeFailFast,
		Logger:       logr.Discard(),
	}
}

// Validator builds the validator the options describe.
func (o Options) Validator() *ir.Validator {
	log := o.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return ir.NewValidator(o.Capabilities, ir.WithMode(o.Mode), ir.WithLogger(log))
}

// ErrNoModule is returned when a front-end reports success without a module.
var ErrNoModule = errors.New("front-end returned no module")

// Translate parses source with fe, validates the module and generates code
// with be. The back-end is not called when validation fails; the returned
// error then carries the diagnostics (see ir.Diagnostics).
func Translate(source []byte, fe Frontend, be Backend, opts Options) ([]byte, *ir.ModuleInfo, error) {
	module, err := fe.Parse(source)
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	if module == nil {
		return nil, nil, ErrNoModule
	}

	info, err := opts.Validator().Validate(module)
	if err != nil {
		return nil, nil, fmt.Errorf("validation: %w", err)
	}

	out, err := be.Generate(module, info)
	if err != nil {
		return nil, info, fmt.Errorf("generate: %w", err)
	}
	return out, info, nil
}

package command

import (
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/gogpu/shadercore/ir"
)

// ValidateResult is what the validate command reports per run.
type ValidateResult struct {
	Files []FileResult `yaml:"files"`
}

// FileResult is the outcome for one input.
type FileResult struct {
	File        string       `yaml:"file"`
	Status      string       `yaml:"status"`
	Error       string       `yaml:"error,omitempty"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty"`
}

// Diagnostic mirrors ir.ValidationError for output.
type Diagnostic struct {
	Kind       string   `yaml:"kind"`
	Category   string   `yaml:"category"`
	Message    string   `yaml:"message"`
	Function   string   `yaml:"function,omitempty"`
	EntryPoint string   `yaml:"entry_point,omitempty"`
	Statement  *int     `yaml:"statement,omitempty"`
	Handles    []string `yaml:"handles,omitempty,flow"`
}

const (
	statusValid   = "valid"
	statusInvalid = "invalid"
	statusError   = "error"
)

func (r ValidateResult) HasErrors() bool {
	for _, f := range r.Files {
		if f.Status != statusValid {
			return true
		}
	}
	return false
}

func newDiagnostic(e *ir.ValidationError) Diagnostic {
	d := Diagnostic{
		Kind:       e.Kind.String(),
		Category:   e.Kind.Category().String(),
		Message:    e.Message,
		Function:   e.Function,
		EntryPoint: e.EntryPoint,
	}
	if e.Statement >= 0 {
		st := e.Statement
		d.Statement = &st
	}
	for _, h := range e.Handles {
		d.Handles = append(d.Handles, h.String())
	}
	return d
}

func renderYAML(w io.Writer, v any) error {
	return yaml.NewEncoder(w, yaml.Indent(2), yaml.IndentSequence(true)).Encode(v)
}

func renderValidateText(w io.Writer, r ValidateResult) {
	for _, f := range r.Files {
		switch f.Status {
		case statusValid:
			fmt.Fprintln(w, Highlight("Valid!"), f.File+":", "no errors found.")
		case statusError:
			fmt.Fprintln(w, Failure("Error!"), f.File+":", f.Error)
		default:
			for _, d := range f.Diagnostics {
				fmt.Fprintln(w, Failure("Invalid!"), f.File+":", d.text())
			}
		}
	}
}

func (d Diagnostic) text() string {
	s := ""
	if d.EntryPoint != "" {
		s += "in entry point " + d.EntryPoint + ", "
	}
	if d.Function != "" {
		s += "in function " + d.Function + ", "
	}
	if d.Statement != nil {
		s += fmt.Sprintf("statement %d, ", *d.Statement)
	}
	s += d.Kind + ": " + d.Message
	if len(d.Handles) > 0 {
		s += fmt.Sprintf(" %v", d.Handles)
	}
	return s
}

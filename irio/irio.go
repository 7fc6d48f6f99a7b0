// Package irio reads and writes shader modules as YAML documents.
//
// The document is a direct image of ir.Module: one list per arena, handles
// written as arena indices, and every tagged union written as a mapping with
// a kind field. For example:
//
//	types:
//	  - kind: scalar
//	    scalar: f32
//	functions:
//	  - name: main
//	    expressions:
//	      - kind: literal
//	        scalar: f32
//	        float: 1
//	    body:
//	      - kind: return
//
// Decoding checks only the shape of the document. A decoded Module has not
// been validated and must go through ir.Validate before a back-end sees it.
package irio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/gogpu/shadercore/ir"
)

// ErrEmptyDocument is returned when decoding input that holds no document.
var ErrEmptyDocument = errors.New("irio: empty document")

func encodeOptions() []yaml.EncodeOption {
	return []yaml.EncodeOption{yaml.Indent(2), yaml.IndentSequence(true)}
}

// Encode writes m to w as a YAML document.
func Encode(w io.Writer, m *ir.Module) error {
	if m == nil {
		return errors.New("irio: nil module")
	}
	doc, err := encodeModule(m)
	if err != nil {
		return fmt.Errorf("irio: encode: %w", err)
	}
	if err := yaml.NewEncoder(w, encodeOptions()...).Encode(doc); err != nil {
		return fmt.Errorf("irio: encode: %w", err)
	}
	return nil
}

// Marshal returns the YAML document for m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one YAML document from r. Unknown fields are rejected.
func Decode(r io.Reader) (*ir.Module, error) {
	var doc moduleDoc
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("irio: decode: %w", err)
	}
	m, err := decodeModule(&doc)
	if err != nil {
		return nil, fmt.Errorf("irio: decode: %w", err)
	}
	return m, nil
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data))
}

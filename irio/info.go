package irio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/gogpu/shadercore/ir"
)

// The info document is a report, not a round-trippable image: it names
// things instead of indexing them and has no decoder.

type infoDoc struct {
	EntryPoints []entryInfoDoc    `yaml:"entry_points,omitempty"`
	Functions   []functionInfoDoc `yaml:"functions,omitempty"`
}

type entryInfoDoc struct {
	Name     string `yaml:"name"`
	Stage    string `yaml:"stage"`
	Function string `yaml:"function"`
}

type functionInfoDoc struct {
	Name           string           `yaml:"name"`
	Flags          string           `yaml:"flags"`
	RequireUniform *uint32          `yaml:"require_uniform,omitempty"`
	Globals        []globalUseDoc   `yaml:"globals,omitempty"`
	Sampling       []samplingDoc    `yaml:"sampling,omitempty"`
	Expressions    []expressionInfo `yaml:"expressions,omitempty"`
}

type globalUseDoc struct {
	Name string `yaml:"name"`
	Use  string `yaml:"use"`
}

type samplingDoc struct {
	Image   string `yaml:"image"`
	Sampler string `yaml:"sampler"`
}

type expressionInfo struct {
	Type       string  `yaml:"type"`
	Refs       int     `yaml:"refs"`
	NonUniform *uint32 `yaml:"non_uniform,omitempty"`
}

func globalName(m *ir.Module, h ir.GlobalVariableHandle) string {
	gv, err := m.GlobalVariables.Get(h)
	if err != nil || gv.Name == "" {
		return fmt.Sprintf("global%d", h)
	}
	return gv.Name
}

func functionName(m *ir.Module, h ir.FunctionHandle) string {
	fn, err := m.Functions.Get(h)
	if err != nil || fn.Name == "" {
		return fmt.Sprintf("function%d", h)
	}
	return fn.Name
}

func encodeInfo(info *ir.ModuleInfo) *infoDoc {
	m := info.Module()
	var doc infoDoc
	for _, ep := range info.EntryPoints {
		doc.EntryPoints = append(doc.EntryPoints, entryInfoDoc{
			Name:     ep.Name,
			Stage:    ep.Stage.String(),
			Function: functionName(m, ep.Function),
		})
	}
	for i := range info.Functions {
		fi := &info.Functions[i]
		fd := functionInfoDoc{
			Name:           functionName(m, ir.FunctionHandle(i)),
			Flags:          fi.Flags.String(),
			RequireUniform: optIdx(fi.Uniformity.RequireUniform),
		}
		for gh, use := range fi.GlobalUses {
			if use != 0 {
				fd.Globals = append(fd.Globals, globalUseDoc{
					Name: globalName(m, ir.GlobalVariableHandle(gh)),
					Use:  use.String(),
				})
			}
		}
		for _, key := range fi.SamplingSet {
			fd.Sampling = append(fd.Sampling, samplingDoc{
				Image:   globalName(m, key.Image),
				Sampler: globalName(m, key.Sampler),
			})
		}
		for _, ei := range fi.Expressions {
			fd.Expressions = append(fd.Expressions, expressionInfo{
				Type:       ir.FormatResolution(&m.Types, ei.Type),
				Refs:       ei.RefCount,
				NonUniform: optIdx(ei.Uniformity.NonUniformResult),
			})
		}
		doc.Functions = append(doc.Functions, fd)
	}
	return &doc
}

// EncodeInfo writes a readable report of a validation result to w.
func EncodeInfo(w io.Writer, info *ir.ModuleInfo) error {
	if info == nil || info.Module() == nil {
		return errors.New("irio: nil module info")
	}
	if err := yaml.NewEncoder(w, encodeOptions()...).Encode(encodeInfo(info)); err != nil {
		return fmt.Errorf("irio: encode info: %w", err)
	}
	return nil
}

// MarshalInfo returns the report EncodeInfo writes.
func MarshalInfo(info *ir.ModuleInfo) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeInfo(&buf, info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

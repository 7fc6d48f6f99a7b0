package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercore"
	"github.com/gogpu/shadercore/ir"
	"github.com/gogpu/shadercore/irio"
)

func NewInfoCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the analysis of a valid module",
		Long: Highlight("nagac info <file>") + "\n\n" +
			"Validate a module and print what the validator derived for it:\n" +
			"function flags, global uses, sampling pairs and uniformity.\n\n" +
			"Examples:\n" +
			"  nagac info shader.yaml\n" +
			"  nagac info -o yaml shader.yaml\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunInfo(cli, args[0])
		},
	}
}

func RunInfo(cli *CLI, path string) error {
	opts, err := cli.Options()
	if err != nil {
		return err
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}

	report, info, err := shadercore.Translate(src, irio.Frontend{}, irio.Backend{Info: true}, opts)
	if err != nil {
		if diags := ir.Diagnostics(err); len(diags) > 0 {
			renderValidateText(cli.Out, ValidateResult{Files: []FileResult{{
				File:        path,
				Status:      statusInvalid,
				Diagnostics: toDiagnostics(diags),
			}}})
			return errSilent
		}
		return err
	}

	if cli.Global.Output == OutputYAML {
		_, err := cli.Out.Write(report)
		return err
	}
	renderInfoText(cli.Out, info)
	return nil
}

func toDiagnostics(diags []*ir.ValidationError) []Diagnostic {
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = newDiagnostic(d)
	}
	return out
}

func renderInfoText(w io.Writer, info *ir.ModuleInfo) {
	m := info.Module()
	for _, ep := range info.EntryPoints {
		fn, _ := m.Functions.Get(ep.Function)
		fmt.Fprintf(w, "%s %s (%s) -> %s\n", Highlight("entry point"), ep.Name, ep.Stage, fn.Name)
	}
	for i := range info.Functions {
		fi := &info.Functions[i]
		fn, _ := m.Functions.Get(ir.FunctionHandle(i))
		fmt.Fprintf(w, "%s %s: %s\n", Highlight("function"), fn.Name, fi.Flags)
		if r := fi.Uniformity.RequireUniform; r != nil {
			fmt.Fprintf(w, "  requires uniform control flow at expression %d\n", *r)
		}
		for h, use := range fi.GlobalUses {
			if use == 0 {
				continue
			}
			gv, _ := m.GlobalVariables.Get(ir.GlobalVariableHandle(h))
			fmt.Fprintf(w, "  global %s: %s\n", gv.Name, use)
		}
		for _, key := range fi.SamplingSet {
			img, _ := m.GlobalVariables.Get(key.Image)
			smp, _ := m.GlobalVariables.Get(key.Sampler)
			fmt.Fprintf(w, "  samples %s with %s\n", img.Name, smp.Name)
		}
	}
}

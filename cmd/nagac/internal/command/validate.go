package command

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shadercore/ir"
	"github.com/gogpu/shadercore/irio"
)

func NewValidateCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate shader modules",
		Long: Highlight("nagac validate <file>...") + "\n\n" +
			"Decode each file as an irio module and validate it against the\n" +
			"selected capabilities. Use - to read standard input.\n\n" +
			"Examples:\n" +
			"  # Validate with the default capabilities\n" +
			"  nagac validate shader.yaml\n\n" +
			"  # Report every diagnostic of the first failing pass\n" +
			"  nagac validate --accumulate a.yaml b.yaml\n",
		Args: MinArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunValidate(cli, args)
		},
	}
}

func RunValidate(cli *CLI, paths []string) error {
	opts, err := cli.Options()
	if err != nil {
		return err
	}
	v := opts.Validator()

	var result ValidateResult
	for _, path := range paths {
		fr := validateFile(v, path)
		cli.Log.V(1).Info("validated", "file", path, "status", fr.Status, "diagnostics", len(fr.Diagnostics))
		result.Files = append(result.Files, fr)
	}

	if cli.Global.Output == OutputYAML {
		if err := renderYAML(cli.Out, result); err != nil {
			return err
		}
	} else {
		renderValidateText(cli.Out, result)
	}
	if result.HasErrors() {
		return errSilent
	}
	return nil
}

func validateFile(v *ir.Validator, path string) FileResult {
	fr := FileResult{File: path, Status: statusValid}
	src, err := readSource(path)
	if err != nil {
		fr.Status, fr.Error = statusError, err.Error()
		return fr
	}
	m, err := irio.Frontend{}.Parse(src)
	if err != nil {
		fr.Status, fr.Error = statusError, err.Error()
		return fr
	}
	if _, err := v.Validate(m); err != nil {
		diags := ir.Diagnostics(err)
		if len(diags) == 0 {
			fr.Status, fr.Error = statusError, err.Error()
			return fr
		}
		fr.Status, fr.Diagnostics = statusInvalid, toDiagnostics(diags)
	}
	return fr
}

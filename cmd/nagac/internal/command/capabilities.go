package command

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shadercore/ir"
)

// CapabilityState is one row of the capabilities listing.
type CapabilityState struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

func NewCapabilitiesCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List capabilities and whether the current settings allow them",
		Args:  ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunCapabilities(cli)
		},
	}
}

func RunCapabilities(cli *CLI) error {
	opts, err := cli.Options()
	if err != nil {
		return err
	}

	var rows []CapabilityState
	for _, name := range ir.CapabilityNames() {
		c, err := ir.ParseCapabilities(name)
		if err != nil {
			return err
		}
		rows = append(rows, CapabilityState{Name: name, Enabled: opts.Capabilities.Contains(c)})
	}

	if cli.Global.Output == OutputYAML {
		return renderYAML(cli.Out, rows)
	}
	for _, r := range rows {
		mark := Failure("-")
		if r.Enabled {
			mark = Highlight("+")
		}
		cli.Println(mark, r.Name)
	}
	return nil
}

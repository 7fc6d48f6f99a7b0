package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/shadercore/ir"
)

// Version is reported by --version.
var Version = "0.2.0-dev"

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nagac",
		Short: "Validate and inspect shader IR modules",
		Long: Highlight("Usage: nagac [global options] <subcommand> [args]") + "\n\n" +
			"nagac reads shader modules written as irio YAML documents, runs the\n" +
			"validator against a capability set and reports diagnostics or the\n" +
			"analysis a back-end would receive.\n",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.sync != nil {
				_ = cli.sync()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	flags := cmd.PersistentFlags()
	flags.StringVar(&cli.Global.ConfigPath, "config", "", "Path to a TOML settings file")
	flags.StringSliceVarP(&cli.Global.Capabilities, "capability", "c", nil,
		"Capabilities to allow, replacing the configured set. One or more of: "+strings.Join(ir.CapabilityNames(), ", ")+
			" (or all, default, none)")
	flags.BoolVar(&cli.Global.Accumulate, "accumulate", false, "Report every diagnostic of the first failing pass")
	flags.StringVarP(&cli.Global.Output, "output", "o", OutputText, "Output format. One of: (text | yaml)")
	flags.BoolVar(&cli.Global.Debug, "debug", false, "Set log level to debug")

	AddCommands(cmd, cli)
	return cmd
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewValidateCommand(cli),
		NewInfoCommand(cli),
		NewCapabilitiesCommand(cli),
	)
}

func setCobraUsageTemplate(root *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := root.UsageTemplate()
	usageTemplate = strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Additional Commands:`, `{{StyleHeading "Additional Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(usageTemplate)
	root.SetUsageTemplate(usageTemplate)
}

func Execute() {
	// Disable color output if NO_COLOR is set in the environment
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}

	cli := NewCLI(os.Stdout, os.Stderr)
	root := NewRootCommand(cli)
	setCobraUsageTemplate(root)
	root.SetVersionTemplate("{{.Version}}\n")

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(cli.ErrOut, Failure("Error:"), msg)
		}
		os.Exit(1)
	}
}

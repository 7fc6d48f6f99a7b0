package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gogpu/shadercore"
	"github.com/gogpu/shadercore/config"
)

// Output formats for --output.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// errSilent fails a command whose problems were already printed.
var errSilent = errors.New("")

// GlobalOptions are the persistent flags shared by every subcommand.
type GlobalOptions struct {
	ConfigPath   string
	Capabilities []string
	Accumulate   bool
	Output       string
	Debug        bool
}

// CLI holds the state shared from the root command down to subcommands.
type CLI struct {
	Out    io.Writer
	ErrOut io.Writer
	Log    logr.Logger

	Global GlobalOptions

	config *config.Config
	sync   func() error
}

// NewCLI creates a CLI writing results to out and diagnostics to errOut.
func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{
		Out:    out,
		ErrOut: errOut,
		Log:    logr.Discard(),
		Global: GlobalOptions{Output: OutputText},
	}
}

// Highlight applies the heading color to the given format and arguments.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// Failure applies the error color to the given format and arguments.
func Failure(format string, a ...any) string {
	return color.RGB(229, 50, 50).Sprintf(format, a...)
}

// Println writes a line to the command output.
func (c *CLI) Println(a ...any) {
	fmt.Fprintln(c.Out, a...)
}

// setup loads the configuration and the logger once flags are parsed.
func (c *CLI) setup() error {
	switch c.Global.Output {
	case OutputText, OutputYAML:
	default:
		return fmt.Errorf("invalid output format %q; expected %s or %s", c.Global.Output, OutputText, OutputYAML)
	}

	cfg := config.Default()
	if c.Global.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(c.Global.ConfigPath); err != nil {
			return err
		}
	}
	if len(c.Global.Capabilities) > 0 {
		cfg.Validator.Capabilities = c.Global.Capabilities
	}
	if c.Global.Accumulate {
		cfg.Validator.Mode = config.ModeAccumulate
	}
	if c.Global.Debug {
		cfg.Log.Level = zapcore.DebugLevel.String()
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	c.config = cfg

	zc, err := cfg.Log.Zap()
	if err != nil {
		return err
	}
	enc := zapcore.NewConsoleEncoder(zc.EncoderConfig)
	if zc.Encoding == config.FormatJSON {
		enc = zapcore.NewJSONEncoder(zc.EncoderConfig)
	}
	zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(c.ErrOut), zc.Level))
	c.Log = zapr.NewLogger(zl).WithName("nagac")
	c.sync = zl.Sync
	return nil
}

// Options returns the translation options the flags and config file select.
func (c *CLI) Options() (shadercore.Options, error) {
	cfg := c.config
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg.Options(c.Log)
}

// ExactArgs returns an error if there is not the exact number of args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		return fmt.Errorf("expected %d arguments, got %d", number, len(args))
	}
}

// MinArgs returns an error if there are fewer than number args.
func MinArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= number {
			return nil
		}
		return fmt.Errorf("expected at least %d arguments, got %d", number, len(args))
	}
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

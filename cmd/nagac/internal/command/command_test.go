package command_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadercore/cmd/nagac/internal/command"
	"github.com/gogpu/shadercore/ir"
)

var textured = filepath.Join("..", "..", "..", "..", "irio", "testdata", "textured.yaml")

// missingPosition is a vertex stage that never writes its position.
const missingPosition = `
functions:
  - name: vs
    body:
      - kind: return
entry_points:
  - name: vs
    stage: vertex
    function: 0
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cli := command.NewCLI(&out, &errOut)
	root := command.NewRootCommand(cli)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidate_Valid(t *testing.T) {
	out, _, err := run(t, "validate", textured)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid!")
}

func TestValidate_Invalid(t *testing.T) {
	bad := writeFile(t, "vs.yaml", missingPosition)

	out, _, err := run(t, "validate", textured, bad)
	require.Error(t, err)
	assert.Empty(t, err.Error(), "diagnostics are printed, not returned")
	assert.Contains(t, out, "Valid!")
	assert.Contains(t, out, "Invalid!")
	assert.Contains(t, out, "InvalidEntryPoint")
}

func TestValidate_YAML(t *testing.T) {
	bad := writeFile(t, "vs.yaml", missingPosition)

	out, _, err := run(t, "validate", "-o", "yaml", bad, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var result command.ValidateResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	require.Len(t, result.Files, 2)

	assert.Equal(t, "invalid", result.Files[0].Status)
	require.Len(t, result.Files[0].Diagnostics, 1)
	d := result.Files[0].Diagnostics[0]
	assert.Equal(t, "InvalidEntryPoint", d.Kind)
	assert.Equal(t, "interface", d.Category)
	assert.Equal(t, "vs", d.EntryPoint)

	assert.Equal(t, "error", result.Files[1].Status)
	assert.NotEmpty(t, result.Files[1].Error)
}

func TestValidate_CapabilityFlag(t *testing.T) {
	out, _, err := run(t, "validate", "-c", "none", textured)
	require.Error(t, err)
	assert.Contains(t, out, "MissingCapability")

	_, _, err = run(t, "validate", "-c", "warp_speed", textured)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator.capabilities")
}

func TestValidate_ConfigFile(t *testing.T) {
	cfg := writeFile(t, "nagac.toml", "[validator]\ncapabilities = [\"none\"]\nmode = \"accumulate\"\n")

	out, _, err := run(t, "--config", cfg, "validate", textured)
	require.Error(t, err)
	assert.Contains(t, out, "MissingCapability")

	// Flags override the file.
	_, _, err = run(t, "--config", cfg, "-c", "default", "validate", textured)
	require.NoError(t, err)
}

func TestValidate_NoArgs(t *testing.T) {
	_, _, err := run(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 1 arguments")
}

func TestInfo(t *testing.T) {
	out, _, err := run(t, "info", textured)
	require.NoError(t, err)
	assert.Contains(t, out, "entry point fs_main (fragment) -> fs_main")
	assert.Contains(t, out, "samples tex with samp")
	assert.Contains(t, out, "global color: write")

	out, _, err = run(t, "info", "-o", "yaml", textured)
	require.NoError(t, err)
	assert.Contains(t, out, "entry_points:")
	assert.Contains(t, out, "sampler: samp")
}

func TestInfo_Invalid(t *testing.T) {
	bad := writeFile(t, "vs.yaml", missingPosition)
	out, _, err := run(t, "info", bad)
	require.Error(t, err)
	assert.Contains(t, out, "InvalidEntryPoint")
}

func TestCapabilities(t *testing.T) {
	out, _, err := run(t, "capabilities", "-c", "float64")
	require.NoError(t, err)
	assert.Contains(t, out, "+ float64")
	assert.Contains(t, out, "- images")

	out, _, err = run(t, "capabilities", "-o", "yaml")
	require.NoError(t, err)
	var rows []command.CapabilityState
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	enabled := map[string]bool{}
	for _, r := range rows {
		enabled[r.Name] = r.Enabled
	}
	assert.True(t, enabled["images"])
	assert.False(t, enabled["float64"])
}

func TestCapabilities_OneLinePerCapability(t *testing.T) {
	out, _, err := run(t, "capabilities", "-c", "none")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, len(ir.CapabilityNames()))
	for i, name := range ir.CapabilityNames() {
		assert.Equal(t, "- "+name, lines[i])
	}
}

func TestDebugLogging(t *testing.T) {
	_, errOut, err := run(t, "--debug", "validate", textured)
	require.NoError(t, err)
	assert.Contains(t, errOut, "validated")
}

func TestInvalidOutput(t *testing.T) {
	_, _, err := run(t, "-o", "json", "capabilities")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

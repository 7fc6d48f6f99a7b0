// Command nagac validates shader modules written as irio documents.
//
// Usage:
//
//	nagac [global options] <subcommand> [args]
//
// Examples:
//
//	nagac validate shader.yaml                  # Validate with the default capabilities
//	nagac validate -c float64 -c int64 a.yaml   # Allow 64-bit types as well
//	nagac info -o yaml shader.yaml              # Print the analysis as YAML
//	nagac capabilities --config target.toml     # Show the effective capability set
package main

import "github.com/gogpu/shadercore/cmd/nagac/internal/command"

func main() {
	command.Execute()
}

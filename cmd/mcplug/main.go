// Command mcplug is the CLI entry point wiring argsyntax, runtime,
// mcplugcfg, oauth, and mcplugerr end to end (§6, SPEC_FULL.md §4).
// Grounded in the teacher's cmd/smolcode/main.go die()/os.Exit(1) error
// convention, generalized from the teacher's per-subcommand
// flag.NewFlagSet dispatch to github.com/spf13/cobra's command tree, which
// the rest of the retrieval pack's MCP-client CLIs converge on for this
// same shape of nested subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/hydai/mcplug/mcplugerr"
	"github.com/spf13/cobra"
)

var jsonOutput bool

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		die(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mcplug",
		Short:         "A toolkit for discovering, calling, and composing MCP servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit structured JSON on error")

	root.AddCommand(newListCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newDaemonCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newGenerateCliCmd())
	root.AddCommand(newEmitRsCmd())

	return root
}

// die prints err (plain text or the structured {error:{...}} object when
// --json is set) and exits 1, matching §6's "exit code is 0 on success, 1
// on any error" contract.
func die(err error) {
	if jsonOutput {
		if merr, ok := err.(*mcplugerr.Error); ok {
			rendered, renderErr := merr.Render()
			if renderErr == nil {
				fmt.Fprintln(os.Stderr, string(rendered))
				os.Exit(1)
			}
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

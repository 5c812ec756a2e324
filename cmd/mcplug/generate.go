package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newGenerateCliCmd and newEmitRsCmd are inert stubs: static CLI/bindings
// code generation from a server's tool schema is an explicit spec
// Non-goal. They exist only so a user who remembers the original's
// command names gets an explanation rather than "unknown command".
func newGenerateCliCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "generate-cli",
		Short:  "Not implemented: static CLI generation is out of scope",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("mcplug: generate-cli is out of scope for this build")
			return nil
		},
	}
}

func newEmitRsCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "emit-rs",
		Short:  "Not implemented: generated-binding emission is out of scope",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("mcplug: emit-rs is out of scope for this build")
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/hydai/mcplug/internal/daemonfiles"
	"github.com/spf13/cobra"
)

// newDaemonCmd reports the daemon sentinel paths and declines to run one.
// The background daemon itself is out of scope for this build (SPEC_FULL.md
// §4); these subcommands exist so tooling that probes for daemon.sock /
// daemon.pid gets a clear answer rather than a missing command.
func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background mcplug daemon (not implemented in this build)",
	}
	for _, action := range []string{"start", "stop", "restart", "status"} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemonStub(action)
			},
		})
	}
	return cmd
}

func runDaemonStub(action string) error {
	_, statErr := os.Stat(daemonfiles.PIDPath())
	running := statErr == nil

	switch action {
	case "status":
		if running {
			fmt.Printf("daemon sentinel present at %s, but the daemon itself is not implemented in this build\n", daemonfiles.PIDPath())
		} else {
			fmt.Println("daemon not running")
		}
		return nil
	default:
		fmt.Fprintf(os.Stderr, "mcplug: daemon %s is not implemented in this build (sentinels live under %s)\n", action, daemonfiles.Root())
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hydai/mcplug/argsyntax"
	"github.com/hydai/mcplug/calllog"
	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/hydai/mcplug/runtime"
	"github.com/spf13/cobra"
)

// EnvCallTimeout names the per-call timeout override of §6.
const EnvCallTimeout = "MCPLUG_CALL_TIMEOUT"

// defaultCallTimeout matches the original's 30-second default.
const defaultCallTimeout = 30 * time.Second

// parseCallTimeout reads EnvCallTimeout, falling back to
// defaultCallTimeout on an empty, unparsable, or negative value, per the
// original's parse_timeout_secs (zero is accepted as a valid, if useless,
// timeout; arbitrarily large values pass through unclamped).
func parseCallTimeout() time.Duration {
	raw := os.Getenv(EnvCallTimeout)
	if raw == "" {
		return defaultCallTimeout
	}
	secs, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return defaultCallTimeout
	}
	return time.Duration(secs) * time.Second
}

func newCallCmd() *cobra.Command {
	var rawFlag bool
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "call <server.tool|server.tool(args)> [key:value ...]",
		Short: "Invoke a tool on an MCP server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := resolveOutputMode(jsonOutput, rawFlag, outputFlag)
			return runCall(cmd.Context(), args[0], args[1:], mode)
		},
	}
	cmd.Flags().BoolVar(&rawFlag, "raw", false, "print the raw JSON of the tools/call result")
	cmd.Flags().StringVar(&outputFlag, "output", "", `output mode: "pretty" (default), "raw", or "json"`)
	return cmd
}

// runCall dispatches between the function-call syntax ("server.tool(...)")
// and the flat "server.tool key:value..." syntax, then calls through the
// Runtime with the §6 per-call timeout.
func runCall(ctx context.Context, ref string, rest []string, mode OutputMode) error {
	var server, tool string
	var toolArgs map[string]interface{}

	if isFunctionCallSyntax(ref) {
		s, t, parsed, err := argsyntax.ParseFunctionCall(ref)
		if err != nil {
			return err
		}
		server, tool = s, t
		named, ok := parsed.(map[string]interface{})
		if !ok {
			return mcplugerr.NewProtocolError("positional function-call arguments are not supported for named tool parameters; use server.tool(key:value) form")
		}
		toolArgs = named
	} else {
		s, t, err := argsyntax.ParseToolRef(ref)
		if err != nil {
			return err
		}
		server, tool = s, t
		toolArgs, err = argsyntax.ParseArgs(rest)
		if err != nil {
			return err
		}
	}

	loader := mcplugcfg.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	rt := runtime.New(cfg)
	defer rt.Close()

	timeout := parseCallTimeout()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := checkToolExists(callCtx, rt, server, tool); err != nil {
		return err
	}

	started := time.Now()
	result, err := rt.CallTool(callCtx, server, tool, toolArgs)
	duration := time.Since(started)

	if err != nil {
		logCall(server, tool, toolArgs, err.Error(), true, duration)
		if callCtx.Err() != nil {
			return mcplugerr.NewTimeout(server, tool, timeout)
		}
		return err
	}

	logCall(server, tool, toolArgs, result.Text(), result.IsError, duration)
	return printCallResult(result, mode)
}

// logCall best-effort records the call outcome to the local call log; a
// logging failure never fails the call itself.
func logCall(server, tool string, args map[string]interface{}, resultText string, isError bool, duration time.Duration) {
	_ = calllog.Append(calllog.DefaultDatabasePath, server, tool, args, resultText, isError, duration)
}

// isFunctionCallSyntax reports whether ref uses the "server.tool(args)"
// form rather than the flat "server.tool" form.
func isFunctionCallSyntax(ref string) bool {
	for _, r := range ref {
		if r == '(' {
			return true
		}
	}
	return false
}

// checkToolExists lists server's tools and, if tool isn't among them,
// prints the nearest-tool suggestion (when there is one) to stderr and
// fails fast with a ToolNotFound error, mirroring
// the original's run_call (src/cli/call.rs), which lists tools and checks
// membership before ever issuing tools/call so the nearest-tool
// suggestion (§4.7, testable property 8) can actually fire. Without this
// check, an unknown tool would only ever surface as the server's own
// JSON-RPC error (ProtocolError), and ToolNotFound/SuggestTool would be
// unreachable from a real call.
func checkToolExists(ctx context.Context, rt *runtime.Runtime, server, tool string) error {
	defs, err := rt.ListTools(ctx, server)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.Name == tool {
			return nil
		}
		names = append(names, d.Name)
	}

	merr := mcplugerr.NewToolNotFound(server, tool)
	if suggestion, found := argsyntax.SuggestTool(tool, names); found {
		fmt.Fprintf(os.Stderr, "did you mean %q?\n", suggestion)
	}
	return merr
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hydai/mcplug/transport"
)

// OutputMode selects how a CallResult is rendered to stdout (§6). Coloured
// pretty-printing is an explicit Non-goal, so unlike the original's use of
// the colored crate for TTY highlighting, every mode here renders plain
// text.
type OutputMode int

const (
	OutputPretty OutputMode = iota
	OutputRaw
	OutputJSON
)

// resolveOutputMode mirrors the original cli/call.rs precedence: an
// explicit --json flag wins outright, then --raw, then the --output string
// value ("json"/"raw", case-sensitive, anything else including an empty or
// misspelled value falls back to Pretty).
func resolveOutputMode(jsonFlag, rawFlag bool, outputFlag string) OutputMode {
	if jsonFlag {
		return OutputJSON
	}
	if rawFlag {
		return OutputRaw
	}
	switch outputFlag {
	case "json":
		return OutputJSON
	case "raw":
		return OutputRaw
	default:
		return OutputPretty
	}
}

// printCallResult renders result in mode to stdout.
func printCallResult(result transport.CallResult, mode OutputMode) error {
	switch mode {
	case OutputJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case OutputRaw:
		fmt.Println(strings.TrimRight(string(result.RawResponse), "\n"))
		return nil
	default:
		if result.IsError {
			fmt.Printf("error: %s\n", result.Text())
			return nil
		}
		fmt.Println(result.Text())
		return nil
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/runtime"
	"github.com/hydai/mcplug/transport"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var allParameters bool
	var httpURL string
	var stdioCommand string

	cmd := &cobra.Command{
		Use:   "list [server]",
		Short: "List the tools exposed by a server, or every configured server name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), args, allParameters, httpURL, stdioCommand)
		},
	}
	cmd.Flags().BoolVar(&allParameters, "all-parameters", false, "include full inputSchema for each tool")
	cmd.Flags().StringVar(&httpURL, "http-url", "", "list tools from an ad-hoc HTTP server instead of a configured one")
	cmd.Flags().StringVar(&stdioCommand, "stdio", "", "list tools from an ad-hoc stdio command instead of a configured one")
	return cmd
}

func runList(ctx context.Context, args []string, allParameters bool, httpURL, stdioCommand string) error {
	if httpURL != "" || stdioCommand != "" {
		return runListAdHoc(ctx, httpURL, stdioCommand, allParameters)
	}

	loader := mcplugcfg.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	rt := runtime.New(cfg)
	defer rt.Close()

	if len(args) == 0 {
		for _, name := range rt.ServerNames() {
			fmt.Println(name)
		}
		return nil
	}

	tools, err := rt.ListTools(ctx, args[0])
	if err != nil {
		return err
	}
	return printTools(tools, allParameters)
}

// runListAdHoc connects directly to a one-off server spec, bypassing the
// config-discovery pipeline entirely, per §4.2's allowance for a CLI-level
// transport override. An ad-hoc --http-url is the one case permitted to
// opt into cleartext HTTP (§4.3).
func runListAdHoc(ctx context.Context, httpURL, stdioCommand string, allParameters bool) error {
	var tr transport.Transport
	var err error

	switch {
	case httpURL != "":
		tr, err = transport.NewHTTPTransport("adhoc", httpURL, nil, true)
	case stdioCommand != "":
		tr, err = transport.NewStdioTransport(ctx, "adhoc", stdioCommand, nil, nil, "")
	}
	if err != nil {
		return err
	}
	defer tr.Close()

	if _, err := tr.Initialize(ctx); err != nil {
		return err
	}
	tools, err := tr.ListTools(ctx)
	if err != nil {
		return err
	}
	return printTools(tools, allParameters)
}

func printTools(tools []transport.ToolDefinition, allParameters bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}
	for _, t := range tools {
		fmt.Printf("%s: %s\n", t.Name, t.Description)
		if allParameters && len(t.InputSchema) > 0 {
			fmt.Printf("  parameters: %s\n", string(t.InputSchema))
		}
	}
	return nil
}

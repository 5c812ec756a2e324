package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// projectConfigPath is the rank-3 discovery path of §4.6, the one `config
// add` writes to: a project-scoped file checked into the repo alongside
// the code that needs it.
const projectConfigPath = "config/mcplug.json"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit mcplug's configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigAddCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully merged configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mcplugcfg.NewLoader().Load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}

func newConfigAddCmd() *cobra.Command {
	var baseURL, command string
	var args []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a server entry to the project configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			return runConfigAdd(cmdArgs[0], baseURL, command, args)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "the server's HTTPS base URL (mutually exclusive with --command)")
	cmd.Flags().StringVar(&command, "command", "", "the subprocess command to launch (mutually exclusive with --base-url)")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "an argument to pass to --command; repeatable")
	return cmd
}

func runConfigAdd(name, baseURL, command string, args []string) error {
	sc := mcplugcfg.ServerConfig{BaseURL: baseURL, Command: command, Args: args}
	if err := sc.Validate(name); err != nil {
		return err
	}

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(filepath.Dir(projectConfigPath), 0o755); err != nil {
		return mcplugerr.NewIoError(err)
	}

	doc := struct {
		McpServers map[string]mcplugcfg.ServerConfig `json:"mcpServers"`
		Imports    []string                          `json:"imports,omitempty"`
	}{McpServers: map[string]mcplugcfg.ServerConfig{}}

	if existing, err := afero.ReadFile(fs, projectConfigPath); err == nil {
		stripped := mcplugcfg.StripJSONCComments(string(existing))
		if err := json.Unmarshal([]byte(stripped), &doc); err != nil {
			return mcplugerr.NewConfigError(projectConfigPath, err.Error())
		}
	}
	if doc.McpServers == nil {
		doc.McpServers = map[string]mcplugcfg.ServerConfig{}
	}
	doc.McpServers[name] = sc

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcplugerr.NewIoError(err)
	}
	if err := afero.WriteFile(fs, projectConfigPath, encoded, 0o644); err != nil {
		return mcplugerr.NewIoError(err)
	}
	fmt.Printf("added %q to %s\n", name, projectConfigPath)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/hydai/mcplug/oauth"
	"github.com/spf13/cobra"
)

// EnvOAuthTimeoutMS names the browser-round-trip timeout override of §6,
// expressed in milliseconds to match the original's env var.
const EnvOAuthTimeoutMS = "MCPLUG_OAUTH_TIMEOUT_MS"

const defaultOAuthTimeout = 5 * time.Minute

func parseOAuthTimeout() time.Duration {
	raw := os.Getenv(EnvOAuthTimeoutMS)
	if raw == "" {
		return defaultOAuthTimeout
	}
	ms, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return defaultOAuthTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func newAuthCmd() *cobra.Command {
	var timeoutFlag time.Duration

	cmd := &cobra.Command{
		Use:   "auth <server>",
		Short: "Run the interactive OAuth2 login flow for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), args[0], timeoutFlag)
		},
	}
	cmd.Flags().DurationVar(&timeoutFlag, "oauth-timeout", 0, "override the browser round-trip timeout (defaults to MCPLUG_OAUTH_TIMEOUT_MS or 5m)")
	return cmd
}

func runAuth(ctx context.Context, serverName string, timeoutFlag time.Duration) error {
	loader := mcplugcfg.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	sc, ok := cfg.Servers[serverName]
	if !ok {
		return mcplugerr.NewServerNotFound(serverName)
	}
	if sc.BaseURL == "" {
		return mcplugerr.NewOAuthError(fmt.Sprintf("server %q has no baseUrl; OAuth login only applies to HTTP servers", serverName))
	}

	timeout := timeoutFlag
	if timeout == 0 {
		timeout = parseOAuthTimeout()
	}

	engine := oauth.NewEngine()
	if _, err := engine.Login(ctx, serverName, sc.BaseURL, timeout); err != nil {
		return err
	}
	fmt.Printf("authenticated with %s\n", serverName)
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that studio-bridge can reach the server and mint tokens",
	Long: `Check the health of studio-bridge by verifying:
  • Configuration loading
  • Server reachability and API version
  • Access token minting
  • Default web application discovery

This command is useful for debugging connection and authentication issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		fmt.Fprintln(out, sectionStyle.Render("studio-bridge health check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		env, err := loadEnvironment()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ Failed to load configuration:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer env.Close()

		conn := env.cfg.Connection
		fmt.Fprintln(out, successStyle.Render("✓ Configuration loaded"))
		if verbose {
			if env.paths.ConfigFileExists() {
				fmt.Fprintf(out, "   Config file: %s\n", env.paths.ConfigFile)
			}
			fmt.Fprintf(out, "   Server: %s\n", conn.BaseURL())
			fmt.Fprintf(out, "   Namespace: %s\n", conn.Namespace)
			if env.cfg.Token.Database != "" {
				fmt.Fprintf(out, "   Token database: %s\n", env.cfg.Token.Database)
			}
		}
		fmt.Fprintln(out)

		failures := 0

		// Step 2: Server
		fmt.Fprintln(out, infoStyle.Render("Step 2: Contacting server..."))
		info, err := env.client.ServerInfo(ctx)
		if err != nil {
			failures++
			fmt.Fprintln(out, errorStyle.Render("✗ Server unreachable:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render("✓ Server reachable"))
			if verbose {
				fmt.Fprintf(out, "   Version: %s\n", info.Version)
				fmt.Fprintf(out, "   API: v%d\n", info.API)
			}
		}
		fmt.Fprintln(out)

		// Step 3: Token
		fmt.Fprintln(out, infoStyle.Render("Step 3: Minting an access token..."))
		probePath := "/csp/" + strings.ToLower(conn.Namespace) + "/"
		if err := checkToken(env, cmd, probePath); err != nil {
			failures++
			fmt.Fprintln(out, errorStyle.Render("✗ No token:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render("✓ Token minted"))
			if verbose {
				fmt.Fprintf(out, "   Path: %s\n", probePath)
			}
		}
		fmt.Fprintln(out)

		// Step 4: Web application
		fmt.Fprintln(out, infoStyle.Render("Step 4: Finding the web application..."))
		checkWebApp(env, cmd, out)
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("Summary"))
		fmt.Fprintln(out)
		if failures > 0 {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ Health check failed (%d problem(s))", failures)))
			return fmt.Errorf("health check failed")
		}
		fmt.Fprintln(out, successStyle.Render("✓ Health check passed!"))
		return nil
	},
}

func checkToken(env *environment, cmd *cobra.Command, path string) error {
	rows, err := env.querier.Query(cmd.Context(), env.cfg.Token.Query, path)
	if err != nil {
		return err
	}
	if len(rows) == 0 || rows[0].String("csptoken") == "" {
		return &internal.AuthenticationError{Path: path}
	}
	return nil
}

func checkWebApp(env *environment, cmd *cobra.Command, out io.Writer) {
	if env.cfg.Connection.WebApp != "" {
		fmt.Fprintln(out, successStyle.Render("✓ Configured:"), env.cfg.Connection.WebApp)
		return
	}
	webapp, err := env.client.DefaultWebApp(cmd.Context())
	switch {
	case err != nil:
		fmt.Fprintln(out, warningStyle.Render("⚠ Could not discover the default web application:"), err)
		fmt.Fprintln(out, "   The direct variant needs connection.webapp to be set")
	case webapp == "":
		fmt.Fprintln(out, warningStyle.Render("⚠ The namespace has no default web application"))
	default:
		fmt.Fprintln(out, successStyle.Render("✓ Default web application:"), webapp)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/spf13/cobra"
)

var (
	verbose       bool
	configPath    string
	namespaceFlag string
	version       string = "dev"
	commit        string = "unknown"
	date          string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "studio-bridge",
	Short: "Open remote BPL and DTL visual editors from the terminal",
	Long: `Bridge the remote system's visual editors for business processes (BPL)
and data transformations (DTL) into a local editing session.

The editor page runs in a browser surface served by this tool. Its unsaved
state is mirrored onto a local copy of the proxy document, confirmations and
alerts are asked on the terminal, and saving the document reloads the editor.

Quick Start:
  studio-bridge classify Demo.Order.cls        # Is it a process or a transform?
  studio-bridge url Demo.Order.bpl             # Print the authenticated editor URL
  studio-bridge open Demo.Order.bpl            # Open the editor and bridge it
  studio-bridge sessions                       # List sessions of a running bridge`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to studio-bridge.yaml or the directory holding it")
	rootCmd.PersistentFlags().StringVarP(&namespaceFlag, "namespace", "n", "", "Namespace to work in (overrides connection.namespace)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

package cmd

import (
	"fmt"

	"github.com/iksnae/studio-bridge/internal/bridge"
	"github.com/iksnae/studio-bridge/internal/termhost"
	"github.com/spf13/cobra"
)

var (
	othersMirror  string
	othersPreview int
)

var othersCmd = &cobra.Command{
	Use:   "others [document]",
	Short: "Open the documents related to a document",
	Long: `List the documents related to a document on the server, such as the class
behind a proxy document, and open one of them.

Nothing happens when there are none. A single related document is opened
directly; several are offered in a picker. Without an argument the document
of the active session of a running bridge (see open) is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			active, err := fetchActiveSession(cmd.Context(), env.cfg.Listen)
			if err != nil {
				return err
			}
			if active == nil {
				return fmt.Errorf("no document given and no active session on %s", env.cfg.Listen)
			}
			name = active.Proxy
		}

		dir, err := env.mirrorDir(othersMirror)
		if err != nil {
			return err
		}
		console := termhost.StdConsole()
		docs := termhost.NewDocuments(termhost.NewMirror(dir, env.cfg.Connection.Namespace, env.client))

		views := &bridge.RelatedViews{
			Index:  env.client,
			Picker: termhost.NewDialogs(console),
			Viewer: termhost.NewViewer(docs, console, othersPreview),
		}
		shown, err := views.Open(cmd.Context(), name)
		if err != nil {
			return err
		}
		if shown == "" {
			console.Info(fmt.Sprintf("Nothing opened for %s", name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(othersCmd)
	othersCmd.Flags().StringVar(&othersMirror, "mirror", "", "Directory for local copies of documents")
	othersCmd.Flags().IntVar(&othersPreview, "preview", 10, "Lines of the opened document to print")
}

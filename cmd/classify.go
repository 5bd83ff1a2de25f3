package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <class>...",
	Short: "Tell whether classes are business processes or data transforms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Class")+"\t"+titleStyle.Render("Kind")+"\t"+titleStyle.Render("Proxy")+"\t")

		for _, name := range args {
			class := internal.Artifact{Name: name}.Class()
			kind, err := env.client.Classify(cmd.Context(), class)
			if err != nil {
				return fmt.Errorf("failed to classify %s: %w", class.Name, err)
			}

			proxy := dimStyle.Render("—")
			if kind != internal.KindNone {
				proxy = class.Proxy(kind).Name
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", class.Name, kindStyle(kind).Render(kind.String()), proxy)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

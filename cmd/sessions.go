package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/export"
	"github.com/spf13/cobra"
)

var (
	sessionsListen string
	sessionsFormat string
	sessionsOut    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List or export the sessions of a running bridge",
	Long: `List the editor sessions of a bridge started with open, or export one.

Without an argument the sessions are listed. With a session ID (or proxy
document name) the session is exported in the --format given (json, jsonl,
yaml, md), to standard output or to a file in --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := sessionsListen
		if listen == "" {
			paths, err := internal.GetConfigPaths(configPath)
			if err != nil {
				return fmt.Errorf("failed to get config paths: %w", err)
			}
			cfg, err := internal.LoadConfig(paths)
			if err != nil {
				return err
			}
			listen = cfg.Listen
		}

		if len(args) == 0 {
			snapshots, err := fetchSessions(cmd.Context(), listen)
			if err != nil {
				return err
			}
			displaySessions(cmd.OutOrStdout(), snapshots)
			return nil
		}

		return exportSession(cmd.Context(), listen, args[0], cmd.OutOrStdout())
	},
}

var apiClient = &http.Client{Timeout: 10 * time.Second}

func apiGet(ctx context.Context, listen, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+listen+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("no bridge running on %s: %w", listen, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func fetchSessions(ctx context.Context, listen string) ([]*internal.SessionSnapshot, error) {
	body, err := apiGet(ctx, listen, "/api/sessions")
	if err != nil {
		return nil, err
	}
	var snapshots []*internal.SessionSnapshot
	if err := sonic.Unmarshal(body, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return snapshots, nil
}

// fetchActiveSession returns the focused session of a running bridge, or
// nil when none has focus.
func fetchActiveSession(ctx context.Context, listen string) (*internal.SessionSnapshot, error) {
	snapshots, err := fetchSessions(ctx, listen)
	if err != nil {
		return nil, err
	}
	for _, s := range snapshots {
		if s.Active {
			return s, nil
		}
	}
	return nil, nil
}

func exportSession(ctx context.Context, listen, id string, stdout io.Writer) error {
	exporter, err := export.NewExporter(sessionsFormat)
	if err != nil {
		return err
	}

	body, err := apiGet(ctx, listen, "/api/sessions/"+url.PathEscape(id)+"?format="+url.QueryEscape(sessionsFormat))
	if err != nil {
		return err
	}

	if sessionsOut == "" {
		_, err := stdout.Write(body)
		return err
	}

	if err := os.MkdirAll(sessionsOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(id)
	path := filepath.Join(sessionsOut, fmt.Sprintf("session_%s.%s", name, exporter.Extension()))
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	internal.LogInfo("Exported session %s to %s", id, path)
	return nil
}

func displaySessions(out io.Writer, snapshots []*internal.SessionSnapshot) {
	if len(snapshots) == 0 {
		fmt.Fprintln(out, headerStyle.Render("No sessions open"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(snapshots))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Document")+"\t"+titleStyle.Render("Kind")+"\t"+
		titleStyle.Render("Variant")+"\t"+titleStyle.Render("State")+"\t"+titleStyle.Render("Editor")+"\t"+titleStyle.Render("Opened")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, s := range snapshots {
		shortID := s.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		doc := s.Proxy
		if s.Dirty {
			doc += " ●"
		}
		if s.Active {
			doc = lipgloss.NewStyle().Bold(true).Render(doc)
		}

		editor := dimStyle.Render(s.Compatibility)
		switch s.Compatibility {
		case "confirmed":
			editor = successStyle.Render(s.Compatibility)
		case "timed-out":
			editor = warningStyle.Render(s.Compatibility)
		}

		kind, _ := internal.ParseArtifactKind(s.Kind)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID), doc, kindStyle(kind).Render(s.Kind), s.Variant, s.State, editor, formatOpened(s.OpenedAt))
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("Tip: export one with `studio-bridge sessions ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(snapshots[0].ID)+
		idStyle.Render(" --format md`"))
}

func formatOpened(ts string) string {
	if ts == "" {
		return dimStyle.Render("—")
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return dimStyle.Render(ts)
	}
	if time.Since(t) < 24*time.Hour {
		return dimStyle.Render(t.Format("Today 15:04"))
	}
	return dimStyle.Render(t.Format("Jan 02 15:04"))
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVar(&sessionsListen, "listen", "", "Address of the running bridge (defaults to listen from the config)")
	sessionsCmd.Flags().StringVarP(&sessionsFormat, "format", "f", "json", "Export format (jsonl, md, yaml, json)")
	sessionsCmd.Flags().StringVarP(&sessionsOut, "out", "o", "", "Write the export to this directory instead of standard output")
}

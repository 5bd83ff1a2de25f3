package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
)

// MarkdownExporter exports snapshots in Markdown format
type MarkdownExporter struct{}

// Export exports a snapshot to Markdown format
func (e *MarkdownExporter) Export(snapshot *internal.SessionSnapshot, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Session %s\n\n", snapshot.ID)

	_, _ = fmt.Fprintf(w, "**Artifact:** %s  \n", snapshot.Artifact)
	_, _ = fmt.Fprintf(w, "**Proxy:** %s  \n", snapshot.Proxy)
	_, _ = fmt.Fprintf(w, "**Kind:** %s  \n", snapshot.Kind)
	if snapshot.Variant != "" {
		_, _ = fmt.Fprintf(w, "**Variant:** %s  \n", snapshot.Variant)
	}
	_, _ = fmt.Fprintf(w, "**State:** %s  \n", snapshot.State)
	_, _ = fmt.Fprintf(w, "**Compatibility:** %s  \n", snapshot.Compatibility)
	_, _ = fmt.Fprintf(w, "**Dirty:** %t  \n", snapshot.Dirty)
	_, _ = fmt.Fprintf(w, "**Events:** %d\n\n", len(snapshot.Events))

	if snapshot.URL != "" {
		_, _ = fmt.Fprintf(w, "**URL:** `%s`\n\n", snapshot.URL)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Events\n\n")

	for _, ev := range snapshot.Events {
		timestamp := ""
		if ev.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", ev.Timestamp)
		}
		line := fmt.Sprintf("- **%s** `%s`%s", ev.Kind, ev.Direction, timestamp)
		if ev.Detail != "" {
			line += ": " + escapeMarkdown(ev.Detail)
		}
		_, _ = fmt.Fprintln(w, line)
	}

	return nil
}

// escapeMarkdown escapes markdown emphasis in free text such as dialog
// prompts
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	text = strings.ReplaceAll(text, "__", "\\_\\_")
	return text
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

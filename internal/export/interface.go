package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
)

// Exporter renders a session snapshot in one format
type Exporter interface {
	Export(snapshot *internal.SessionSnapshot, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter returns the exporter for a format name. Names are matched
// case-insensitively and accept the common aliases of each format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl", "ndjson":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q (supported: jsonl, md, yaml, json)", format)
	}
}

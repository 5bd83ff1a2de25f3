package export

import (
	"io"

	"github.com/bytedance/sonic"

	"github.com/iksnae/studio-bridge/internal"
)

// JSONExporter exports snapshots in JSON format (pretty-printed)
type JSONExporter struct{}

// Export exports a snapshot to JSON format
func (e *JSONExporter) Export(snapshot *internal.SessionSnapshot, w io.Writer) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(snapshot)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}

func (e *JSONExporter) ContentType() string {
	return "application/json"
}

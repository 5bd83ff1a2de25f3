package export

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/iksnae/studio-bridge/internal"
)

// JSONLExporter exports a snapshot's event log in JSONL format (one event
// per line)
type JSONLExporter struct{}

// Export exports a snapshot to JSONL format
func (e *JSONLExporter) Export(snapshot *internal.SessionSnapshot, w io.Writer) error {
	enc := sonic.ConfigStd.NewEncoder(w)

	for _, ev := range snapshot.Events {
		obj := map[string]interface{}{
			"session":   snapshot.ID,
			"direction": ev.Direction,
			"kind":      ev.Kind,
		}

		if ev.Timestamp != "" {
			obj["timestamp"] = ev.Timestamp
		}
		if ev.Detail != "" {
			obj["detail"] = ev.Detail
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

func (e *JSONLExporter) ContentType() string {
	return "application/x-ndjson"
}

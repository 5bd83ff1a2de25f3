package export

import (
	"io"

	"github.com/iksnae/studio-bridge/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports snapshots in YAML format
type YAMLExporter struct{}

// Export exports a snapshot to YAML format
func (e *YAMLExporter) Export(snapshot *internal.SessionSnapshot, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(snapshot)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}

func (e *YAMLExporter) ContentType() string {
	return "application/yaml"
}

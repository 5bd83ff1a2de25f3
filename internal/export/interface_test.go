package export

import (
	"testing"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format      string
		wantExt     string
		wantContent string
		wantErr     bool
	}{
		{format: "jsonl", wantExt: "jsonl", wantContent: "application/x-ndjson"},
		{format: "md", wantExt: "md", wantContent: "text/markdown; charset=utf-8"},
		{format: "markdown", wantExt: "md", wantContent: "text/markdown; charset=utf-8"},
		{format: "yaml", wantExt: "yaml", wantContent: "application/yaml"},
		{format: "json", wantExt: "json", wantContent: "application/json"},
		{format: "YML", wantExt: "yaml", wantContent: "application/yaml"},
		{format: "ndjson", wantExt: "jsonl", wantContent: "application/x-ndjson"},
		{format: "xml", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr {
				if exporter != nil {
					t.Errorf("NewExporter() returned exporter %T, want nil", exporter)
				}
				return
			}

			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %v, want %v", got, tt.wantExt)
			}
			if got := exporter.ContentType(); got != tt.wantContent {
				t.Errorf("ContentType() = %v, want %v", got, tt.wantContent)
			}
		})
	}
}

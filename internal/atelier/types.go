package atelier

import "github.com/iksnae/studio-bridge/internal"

// Status is the status block every response carries.
type Status struct {
	Errors  []StatusError `json:"errors"`
	Summary string        `json:"summary"`
}

// StatusError is one error reported by the server.
type StatusError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// messages flattens the reported errors.
func (s Status) messages() []string {
	out := make([]string, 0, len(s.Errors)+1)
	for _, e := range s.Errors {
		if e.Error != "" {
			out = append(out, e.Error)
		}
	}
	if len(out) == 0 && s.Summary != "" {
		out = append(out, s.Summary)
	}
	return out
}

type envelope[T any] struct {
	Status  Status   `json:"status"`
	Console []string `json:"console"`
	Result  T        `json:"result"`
}

type contentResult[T any] struct {
	Content T `json:"content"`
}

// QueryRequest is the body of action/query.
type QueryRequest struct {
	Query      string `json:"query"`
	Parameters []any  `json:"parameters"`
}

// CSPApp is a web application deployed for a namespace.
type CSPApp struct {
	Name      string `json:"name"`
	Default   bool   `json:"default"`
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// Document is a source document as stored on the server.
type Document struct {
	Name    string   `json:"name"`
	Cat     string   `json:"cat"`
	TS      string   `json:"ts"`
	Content []string `json:"content"`
}

// IndexEntry describes one document in an action/index response.
type IndexEntry struct {
	Name   string   `json:"name"`
	Others []string `json:"others"`
	Status string   `json:"status"`
}

// ServerInfo is the server description returned by the API root.
type ServerInfo struct {
	Version    string   `json:"version"`
	ID         string   `json:"id"`
	API        int      `json:"api"`
	Namespaces []string `json:"namespaces"`
}

// rowsOf converts decoded query rows.
func rowsOf(content []map[string]any) []internal.Row {
	rows := make([]internal.Row, 0, len(content))
	for _, c := range content {
		rows = append(rows, internal.Row(c))
	}
	return rows
}

package internal

import (
	"fmt"
	"strings"
)

// Superclasses that mark a class as visually authored.
const (
	SuperBusinessProcess = "Ens.BusinessProcessBPL"
	SuperDataTransform   = "Ens.DataTransformDTL"
)

// ArtifactKind classifies a remote class
type ArtifactKind int

const (
	KindNone ArtifactKind = iota
	KindProcess
	KindTransform
)

// String returns the lowercase kind name
func (k ArtifactKind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindTransform:
		return "transform"
	default:
		return "none"
	}
}

// Param returns the query parameter that identifies the artifact on the
// editor page ("BP" or "DT").
func (k ArtifactKind) Param() string {
	switch k {
	case KindProcess:
		return "BP"
	case KindTransform:
		return "DT"
	default:
		return ""
	}
}

// Extension returns the proxy document extension without the dot
func (k ArtifactKind) Extension() string {
	switch k {
	case KindProcess:
		return "bpl"
	case KindTransform:
		return "dtl"
	default:
		return ""
	}
}

// Label returns the short upper-case editor label ("BPL" or "DTL")
func (k ArtifactKind) Label() string {
	return strings.ToUpper(k.Extension())
}

// EditorPage returns the remote page hosting the visual editor
func (k ArtifactKind) EditorPage() string {
	switch k {
	case KindProcess:
		return "EnsPortal.BPLEditor.zen"
	case KindTransform:
		return "EnsPortal.DTLEditor.zen"
	default:
		return ""
	}
}

// Title returns the panel title for the direct embed surface
func (k ArtifactKind) Title() string {
	if k == KindNone {
		return ""
	}
	return k.Label() + " Editor"
}

// ParseArtifactKind parses a kind name as accepted on the command line
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "process", "bp", "bpl":
		return KindProcess, nil
	case "transform", "dt", "dtl":
		return KindTransform, nil
	default:
		return KindNone, fmt.Errorf("unknown artifact kind: %q (supported: process, transform)", s)
	}
}

// KindFromSuperclasses classifies a class from its superclass chain.
// Transforms win over processes, matching the order the editors check them.
func KindFromSuperclasses(supers []string) ArtifactKind {
	for _, s := range supers {
		if s == SuperDataTransform {
			return KindTransform
		}
	}
	for _, s := range supers {
		if s == SuperBusinessProcess {
			return KindProcess
		}
	}
	return KindNone
}

// Artifact identifies a document on the remote system, e.g. "Demo.Order.cls"
// or "Demo.Order.bpl".
type Artifact struct {
	Name string `json:"name" yaml:"name"`
}

// Base returns the name without its extension
func (a Artifact) Base() string {
	if i := strings.LastIndex(a.Name, "."); i > 0 {
		return a.Name[:i]
	}
	return a.Name
}

// Ext returns the lowercase extension without the dot
func (a Artifact) Ext() string {
	if i := strings.LastIndex(a.Name, "."); i > 0 {
		return strings.ToLower(a.Name[i+1:])
	}
	return ""
}

// IsClass reports whether the artifact is a class definition
func (a Artifact) IsClass() bool {
	return a.Ext() == "cls"
}

// ClassName returns the class name without the .cls extension
func (a Artifact) ClassName() string {
	return a.Base()
}

// Class returns the underlying class artifact paired with a proxy document
func (a Artifact) Class() Artifact {
	if a.IsClass() {
		return a
	}
	return Artifact{Name: a.Base() + ".cls"}
}

// Proxy returns the proxy document paired with a class for the given kind
func (a Artifact) Proxy(kind ArtifactKind) Artifact {
	return Artifact{Name: a.Base() + "." + kind.Extension()}
}

// ProxyKind returns the kind implied by a proxy document extension
func (a Artifact) ProxyKind() ArtifactKind {
	switch a.Ext() {
	case "bpl":
		return KindProcess
	case "dtl":
		return KindTransform
	default:
		return KindNone
	}
}

// Key returns the canonical identity used to pair sessions with artifacts
func (a Artifact) Key() string {
	return strings.ToLower(a.Name)
}

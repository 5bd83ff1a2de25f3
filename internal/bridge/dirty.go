package bridge

// DirtyMarker mirrors the remote page's dirty state onto a host document.
type DirtyMarker interface {
	MarkDirty() error
	MarkClean() error
}

// NewDirtyMarker picks the first-class marker when doc supports it and the
// edit/undo marker otherwise. A nil doc yields a nil marker.
func NewDirtyMarker(doc Document) DirtyMarker {
	if doc == nil {
		return nil
	}
	if fd, ok := doc.(ForceDirtier); ok {
		return ForceMarker{doc: fd}
	}
	return UndoMarker{doc: doc}
}

// UndoMarker marks a document dirty by inserting one blank at its start and
// clean by undoing the latest edit.
//
// MarkClean assumes the latest entry in the undo history is the blank
// inserted by MarkDirty. If the user edited the proxy document in between,
// the undo reverts their edit instead and the blank stays.
type UndoMarker struct {
	doc Document
}

func (m UndoMarker) MarkDirty() error { return m.doc.Insert(0, " ") }
func (m UndoMarker) MarkClean() error { return m.doc.Undo() }

// ForceMarker toggles the dirty flag directly.
type ForceMarker struct {
	doc ForceDirtier
}

func (m ForceMarker) MarkDirty() error { return m.doc.SetDirty(true) }
func (m ForceMarker) MarkClean() error { return m.doc.SetDirty(false) }

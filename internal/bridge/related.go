package bridge

import (
	"context"
	"fmt"

	"github.com/iksnae/studio-bridge/internal"
)

// Indexer lists the documents related to a document on the remote system,
// e.g. the class generated from a process and its proxy document.
type Indexer interface {
	Others(ctx context.Context, name string) ([]string, error)
}

// Picker lets the user choose one of several items. ok is false when the
// user dismissed the choice.
type Picker interface {
	Pick(ctx context.Context, items []string) (choice string, ok bool, err error)
}

// Viewer shows a document in the host.
type Viewer interface {
	Show(ctx context.Context, name string) error
}

// RelatedViews opens the documents related to the current one.
type RelatedViews struct {
	Index    Indexer
	Picker   Picker
	Viewer   Viewer
	Registry *Registry
}

// Open looks up the documents related to name and shows one: directly when
// there is a single one, through the picker when there are several. An empty
// name falls back to the proxy document of the active session. It returns
// the document shown, or "" when there was nothing to show.
func (r *RelatedViews) Open(ctx context.Context, name string) (string, error) {
	if name == "" {
		if r.Registry == nil {
			return "", nil
		}
		active := r.Registry.Active()
		if active == nil {
			internal.LogDebug("others: no document given and no active session")
			return "", nil
		}
		name = active.Proxy().Name
	}

	others, err := r.Index.Others(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to list documents related to %s: %w", name, err)
	}

	var choice string
	switch len(others) {
	case 0:
		internal.LogDebug("others: nothing related to %s", name)
		return "", nil
	case 1:
		choice = others[0]
	default:
		if r.Picker == nil {
			return "", fmt.Errorf("%d documents related to %s and no picker", len(others), name)
		}
		var ok bool
		choice, ok, err = r.Picker.Pick(ctx, others)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}

	if err := r.Viewer.Show(ctx, choice); err != nil {
		return "", fmt.Errorf("failed to show %s: %w", choice, err)
	}
	return choice, nil
}

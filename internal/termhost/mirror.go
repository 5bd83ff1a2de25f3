package termhost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/atelier"
)

const indexFileName = "mirror.yaml"

// DocFetcher loads a document from the remote system.
type DocFetcher interface {
	GetDoc(ctx context.Context, name string) (*atelier.Document, error)
}

// MirrorEntry records one mirrored document
type MirrorEntry struct {
	Name      string    `yaml:"name"`
	Timestamp string    `yaml:"ts,omitempty"` // server timestamp of the fetched version
	FetchedAt time.Time `yaml:"fetched_at"`
}

// MirrorIndex is the YAML index of every mirrored document
type MirrorIndex struct {
	Namespace string        `yaml:"namespace,omitempty"`
	Documents []MirrorEntry `yaml:"documents"`
}

// Mirror keeps local copies of remote documents in a directory so that
// local editors can open them and the save watcher can see them change.
type Mirror struct {
	dir       string
	namespace string
	fetcher   DocFetcher

	mu sync.Mutex
}

// NewMirror creates a mirror in dir. fetcher may be nil, in which case only
// documents already in dir can be opened.
func NewMirror(dir, namespace string, fetcher DocFetcher) *Mirror {
	return &Mirror{dir: dir, namespace: namespace, fetcher: fetcher}
}

// Dir returns the mirror directory
func (m *Mirror) Dir() string { return m.dir }

// EnsureDir ensures the mirror directory exists
func (m *Mirror) EnsureDir() error {
	return os.MkdirAll(m.dir, 0755)
}

// Path returns the local file of a document
func (m *Mirror) Path(name string) string {
	return filepath.Join(m.dir, filepath.Base(name))
}

// IndexPath returns the path to the mirror index YAML file
func (m *Mirror) IndexPath() string {
	return filepath.Join(m.dir, indexFileName)
}

// Fetch makes sure a local copy of name exists and returns its path. With a
// fetcher, the document is downloaded unless the mirrored copy has the same
// server timestamp. Without one, an existing local file is used as is.
func (m *Mirror) Fetch(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.Path(name)
	if m.fetcher == nil {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("document %s is not mirrored: %w", name, err)
		}
		return path, nil
	}

	doc, err := m.fetcher.GetDoc(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", name, err)
	}

	index, err := m.loadIndex()
	if err != nil {
		return "", err
	}

	if entry, ok := index.find(name); ok && entry.Timestamp != "" && entry.Timestamp == doc.TS {
		if _, err := os.Stat(path); err == nil {
			internal.LogDebug("mirror: %s is current (%s)", name, doc.TS)
			return path, nil
		}
	}

	if err := m.EnsureDir(); err != nil {
		return "", err
	}
	content := strings.Join(doc.Content, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	index.put(MirrorEntry{Name: name, Timestamp: doc.TS, FetchedAt: time.Now()})
	if err := m.saveIndex(index); err != nil {
		return "", err
	}
	internal.LogDebug("mirror: fetched %s to %s", name, path)
	return path, nil
}

// Entries returns the mirrored documents sorted by name.
func (m *Mirror) Entries() ([]MirrorEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	return index.Documents, nil
}

// Clear removes every mirrored document and the index.
func (m *Mirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return err
	}
	for _, entry := range index.Documents {
		if err := os.Remove(m.Path(entry.Name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", entry.Name, err)
		}
	}
	if err := os.Remove(m.IndexPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove mirror index: %w", err)
	}
	return nil
}

// loadIndex loads the index, returning an empty one when none exists yet
func (m *Mirror) loadIndex() (*MirrorIndex, error) {
	data, err := os.ReadFile(m.IndexPath())
	if os.IsNotExist(err) {
		return &MirrorIndex{Namespace: m.namespace}, nil
	}
	if err != nil {
		return nil, err
	}

	var index MirrorIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mirror index: %w", err)
	}
	if index.Namespace != "" && m.namespace != "" && !strings.EqualFold(index.Namespace, m.namespace) {
		internal.LogWarn("mirror: %s holds namespace %s, not %s; starting over", m.dir, index.Namespace, m.namespace)
		return &MirrorIndex{Namespace: m.namespace}, nil
	}
	return &index, nil
}

func (m *Mirror) saveIndex(index *MirrorIndex) error {
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror index: %w", err)
	}
	return os.WriteFile(m.IndexPath(), data, 0644)
}

func (idx *MirrorIndex) find(name string) (MirrorEntry, bool) {
	for _, e := range idx.Documents {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return MirrorEntry{}, false
}

func (idx *MirrorIndex) put(entry MirrorEntry) {
	for i, e := range idx.Documents {
		if strings.EqualFold(e.Name, entry.Name) {
			idx.Documents[i] = entry
			return
		}
	}
	idx.Documents = append(idx.Documents, entry)
	sort.Slice(idx.Documents, func(i, j int) bool {
		return idx.Documents[i].Name < idx.Documents[j].Name
	})
}

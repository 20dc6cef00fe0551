package pagestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// nodeDirName is the subdirectory of the index directory that holds one
	// page file per node.
	nodeDirName = "leaves"

	// nodeFilePrefix is the filename prefix for node page files. The page id
	// is appended in decimal, e.g. leaves/leaf_7.
	nodeFilePrefix = "leaf_"
)

// NodeStore maps node page ids to fixed-size page files on disk. It owns the
// monotonic node-id counter; ids start at 1 and are never reused.
//
// The store performs no caching: every read goes to disk and every write
// overwrites the whole page file.
type NodeStore struct {
	dir    string
	nextID PageID
}

// NewNodeStore opens (or creates) the node directory under dir. The id
// counter starts at 1; a restored index overrides it via SetNextID.
func NewNodeStore(dir string) (*NodeStore, error) {
	nodeDir := filepath.Join(dir, nodeDirName)
	if err := os.MkdirAll(nodeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create node directory %s: %w", nodeDir, err)
	}
	return &NodeStore{
		dir:    dir,
		nextID: 1,
	}, nil
}

// Allocate hands out a fresh page id and advances the counter. No page file
// is created until the first WritePage for that id.
func (s *NodeStore) Allocate() PageID {
	id := s.nextID
	s.nextID++
	return id
}

// NextID returns the next id the store would allocate. Persisted in the
// session page so that a reopened index keeps ids unique.
func (s *NodeStore) NextID() PageID { return s.nextID }

// SetNextID restores the id counter from a session page.
func (s *NodeStore) SetNextID(id PageID) { s.nextID = id }

// ReadPage reads the page file for the given id. It returns ErrNodeNotFound
// if no such page exists and ErrShortRead if the file holds fewer than
// PageSize bytes.
func (s *NodeStore) ReadPage(id PageID) (*Page, error) {
	data, err := os.ReadFile(s.pagePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("page %d: %w", id, ErrNodeNotFound)
		}
		return nil, fmt.Errorf("failed to read page %d: %w: %v", id, ErrIO, err)
	}
	if len(data) < PageSize {
		return nil, fmt.Errorf("page %d has %d bytes: %w", id, len(data), ErrShortRead)
	}
	page := NewPage(id)
	copy(page.data, data[:PageSize])
	return page, nil
}

// WritePage overwrites the page file for page.GetPageID(). The write is
// whole-file; atomicity is whatever the OS provides for a single write.
func (s *NodeStore) WritePage(page *Page) error {
	if err := os.WriteFile(s.pagePath(page.id), page.data, 0644); err != nil {
		return fmt.Errorf("failed to write page %d: %w: %v", page.id, ErrIO, err)
	}
	return nil
}

func (s *NodeStore) pagePath(id PageID) string {
	return filepath.Join(s.dir, nodeDirName, fmt.Sprintf("%s%d", nodeFilePrefix, id))
}

package rtree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

// sessionFileName is the fixed-size checkpoint page inside the index
// directory. It records the root id, the node-id counter and the object
// counter, in that order, little-endian; the tail of the page is unused and
// readers must not depend on its contents.
const sessionFileName = "session"

type sessionState struct {
	RootID      pagestore.PageID
	NextNodeID  pagestore.PageID
	ObjectCount int64
}

// loadSession reads the session page from dir. It returns (nil, nil) when no
// session page exists, which the caller treats as a fresh index.
func loadSession(dir string) (*sessionState, error) {
	data, err := os.ReadFile(filepath.Join(dir, sessionFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session page: %w: %v", pagestore.ErrIO, err)
	}
	if len(data) < pagestore.PageSize {
		return nil, fmt.Errorf("session page has %d bytes: %w", len(data), pagestore.ErrShortRead)
	}

	return &sessionState{
		RootID:      pagestore.PageID(binary.LittleEndian.Uint64(data[0:])),
		NextNodeID:  pagestore.PageID(binary.LittleEndian.Uint64(data[8:])),
		ObjectCount: int64(binary.LittleEndian.Uint64(data[16:])),
	}, nil
}

// saveSession writes the session page to dir, overwriting any previous one.
func saveSession(dir string, s *sessionState) error {
	buf := make([]byte, pagestore.PageSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(s.RootID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(s.NextNodeID))
	binary.LittleEndian.PutUint64(buf[16:], uint64(s.ObjectCount))

	if err := os.WriteFile(filepath.Join(dir, sessionFileName), buf, 0644); err != nil {
		return fmt.Errorf("failed to write session page: %w: %v", pagestore.ErrIO, err)
	}
	return nil
}

// Package rtree implements a disk-backed R-tree index over fixed-dimension
// points, paired with a line-addressed object log for payloads. Every node
// lives in its own fixed-size page; traversals load nodes by id and store
// them back after mutation, so the tree can be arbitrarily larger than
// memory.
//
// The core is single-threaded: one operation at a time, driven by the
// caller. Callers that need interior serialization wrap the tree (see
// core/indexmanager).
package rtree

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sushant-115/rtreedb/core/storage/objectlog"
	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

// RTree is one open index over a directory. It owns the node-id and object
// counters for its lifetime; both are checkpointed on close. On open the
// node-id counter is restored from the session page, while the object counter
// is the object log's line count (the session value is only compared with it).
type RTree struct {
	dir     string
	store   *pagestore.NodeStore
	objects *objectlog.Log
	rootID  pagestore.PageID
	logger  *zap.Logger
}

// InsertResult reports the outcome of one insertion. RootID is the root
// after the insertion; a caller that cached the previous root id compares
// against it instead of relying on side effects.
type InsertResult struct {
	ObjectID int64
	RootID   pagestore.PageID
	Splits   int
}

// Stats is a point-in-time snapshot of the open index.
type Stats struct {
	RootID  pagestore.PageID
	Objects int64
	Nodes   int64
	Height  int
}

// Open opens the index in dir, restoring its state from the session page if
// one exists. Otherwise it initializes a fresh index whose root is a single
// empty leaf.
func Open(dir string, logger *zap.Logger) (*RTree, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", dir, err)
	}

	store, err := pagestore.NewNodeStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open node store: %w", err)
	}
	objects, err := objectlog.Open(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open object log: %w", err)
	}

	t := &RTree{
		dir:     dir,
		store:   store,
		objects: objects,
		logger:  logger,
	}

	sess, err := loadSession(dir)
	if err != nil {
		objects.Close()
		return nil, fmt.Errorf("failed to load session page: %w", err)
	}
	if sess != nil {
		t.rootID = sess.RootID
		store.SetNextID(sess.NextNodeID)
		objects.SetCount(sess.ObjectCount)
		if _, err := t.fetchNode(t.rootID); err != nil {
			objects.Close()
			return nil, fmt.Errorf("failed to load root node %d: %w", t.rootID, err)
		}
		logger.Info("restored index from session page",
			zap.Int64("root", int64(t.rootID)),
			zap.Int64("next_node_id", int64(sess.NextNodeID)),
			zap.Int64("objects", sess.ObjectCount),
		)
		return t, nil
	}

	root := NewNode(store.Allocate(), true, pagestore.InvalidPageID)
	if err := t.storeNode(root); err != nil {
		objects.Close()
		return nil, fmt.Errorf("failed to store initial root: %w", err)
	}
	t.rootID = root.ID
	logger.Info("initialized fresh index", zap.String("dir", dir), zap.Int64("root", int64(t.rootID)))
	return t, nil
}

// RootID returns the id of the current root node.
func (t *RTree) RootID() pagestore.PageID { return t.rootID }

// Insert appends the payload to the object log and inserts the point into
// the tree, splitting nodes as needed. All touched pages are on disk when it
// returns.
func (t *RTree) Insert(coords []float64, payload string) (InsertResult, error) {
	pt, err := toPoint(coords)
	if err != nil {
		return InsertResult{}, err
	}

	objectID, err := t.objects.Append(payload)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to append object record: %w", err)
	}
	res := InsertResult{ObjectID: objectID}

	node, err := t.fetchNode(t.rootID)
	if err != nil {
		return res, fmt.Errorf("failed to fetch root node %d: %w", t.rootID, err)
	}

	target := PointRect(pt)
	for !node.Leaf {
		idx, err := t.chooseSubtree(node, target)
		if err != nil {
			return res, err
		}
		// Tentatively enlarge the chosen entry and the node's own MBR on the
		// way down; a later split rewrites these entries anyway.
		node.Entries[idx].Rect = node.Entries[idx].Rect.Union(target)
		node.MBR = node.MBR.Union(target)
		node.SubtreeSize++
		if err := t.storeNode(node); err != nil {
			return res, err
		}

		childID := pagestore.PageID(node.Entries[idx].ChildID)
		node, err = t.fetchNode(childID)
		if err != nil {
			return res, fmt.Errorf("failed to fetch child node %d: %w", childID, err)
		}
	}

	node.Entries = append(node.Entries, Entry{ChildID: objectID, Rect: target})
	node.SubtreeSize++
	node.MBR = node.MBR.Union(target)

	if len(node.Entries) > MaxEntries {
		splits, err := t.splitNode(node)
		res.Splits = splits
		if err != nil {
			return res, err
		}
	} else if err := t.storeNode(node); err != nil {
		return res, err
	}

	res.RootID = t.rootID
	return res, nil
}

// chooseSubtree picks the entry of an internal node whose rectangle needs
// the least enlargement to cover the target. Ties go to the entry with the
// smaller subtree size — loading the candidate children is the accepted
// cost — and a full tie keeps the lowest entry index.
func (t *RTree) chooseSubtree(node *Node, target Rect) (int, error) {
	if len(node.Entries) == 0 {
		return 0, fmt.Errorf("internal node %d has no entries: %w", node.ID, ErrInvariantViolation)
	}

	bestIdx := 0
	bestEnl := node.Entries[0].Rect.Enlargement(target)
	bestSize := int64(-1) // loaded lazily on the first tie

	for i := 1; i < len(node.Entries); i++ {
		enl := node.Entries[i].Rect.Enlargement(target)
		if enl < bestEnl {
			bestIdx, bestEnl, bestSize = i, enl, -1
			continue
		}
		if enl == bestEnl {
			if bestSize < 0 {
				size, err := t.subtreeSize(node.Entries[bestIdx].ChildID)
				if err != nil {
					return 0, err
				}
				bestSize = size
			}
			size, err := t.subtreeSize(node.Entries[i].ChildID)
			if err != nil {
				return 0, err
			}
			if size < bestSize {
				bestIdx, bestSize = i, size
			}
		}
	}
	return bestIdx, nil
}

// Stats walks the leftmost path to measure height and reports the counters.
func (t *RTree) Stats() (Stats, error) {
	stats := Stats{
		RootID:  t.rootID,
		Objects: t.objects.Count(),
		Nodes:   int64(t.store.NextID()) - 1,
	}

	node, err := t.fetchNode(t.rootID)
	if err != nil {
		return stats, err
	}
	stats.Height = 1
	for !node.Leaf {
		if len(node.Entries) == 0 {
			return stats, fmt.Errorf("internal node %d has no entries: %w", node.ID, ErrInvariantViolation)
		}
		node, err = t.fetchNode(pagestore.PageID(node.Entries[0].ChildID))
		if err != nil {
			return stats, err
		}
		stats.Height++
	}
	return stats, nil
}

// Checkpoint writes the session page so the current root id and counters
// survive a restart. All node mutations are already on disk; only the
// counters and root id need saving.
func (t *RTree) Checkpoint() error {
	err := saveSession(t.dir, &sessionState{
		RootID:      t.rootID,
		NextNodeID:  t.store.NextID(),
		ObjectCount: t.objects.Count(),
	})
	if err == nil {
		t.logger.Info("checkpointed index session", zap.Int64("root", int64(t.rootID)))
	}
	return err
}

// Close checkpoints the session page and closes the object log.
func (t *RTree) Close() error {
	err := t.Checkpoint()
	if cerr := t.objects.Close(); err == nil {
		err = cerr
	}
	return err
}

func (t *RTree) fetchNode(id pagestore.PageID) (*Node, error) {
	page, err := t.store.ReadPage(id)
	if err != nil {
		return nil, err
	}
	node, err := decodeNode(page)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node from page %d: %w", id, err)
	}
	return node, nil
}

func (t *RTree) storeNode(node *Node) error {
	page := pagestore.NewPage(node.ID)
	if err := encodeNode(node, page); err != nil {
		return fmt.Errorf("failed to encode node %d: %w", node.ID, err)
	}
	return t.store.WritePage(page)
}

func (t *RTree) subtreeSize(childID int64) (int64, error) {
	child, err := t.fetchNode(pagestore.PageID(childID))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch child %d for tie-break: %w", childID, err)
	}
	return child.SubtreeSize, nil
}

func toPoint(coords []float64) (Point, error) {
	var pt Point
	if len(coords) != Dimensions {
		return pt, fmt.Errorf("got %d coordinates, index has %d: %w",
			len(coords), Dimensions, ErrDimensionMismatch)
	}
	copy(pt[:], coords)
	return pt, nil
}

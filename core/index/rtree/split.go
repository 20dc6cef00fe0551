package rtree

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

// splitNode partitions an overflowing node's entries between the node and a
// freshly allocated sibling using Guttman's quadratic seeds, then inserts
// the sibling into the parent, splitting upward as long as parents overflow.
// A root split grows the tree by one level.
//
// It returns the number of splits performed, the immediate one included, and
// stores every node it touches.
func (t *RTree) splitNode(node *Node) (int, error) {
	seedA, seedB := pickSeeds(node.Entries)
	groupA, groupB := distributeEntries(node.Entries, seedA, seedB)
	if len(groupA) < MinEntries || len(groupB) < MinEntries {
		return 0, fmt.Errorf("split of node %d produced groups of %d and %d entries: %w",
			node.ID, len(groupA), len(groupB), ErrInvariantViolation)
	}

	sibling := NewNode(t.store.Allocate(), node.Leaf, node.ParentID)
	node.Entries = groupA
	sibling.Entries = groupB
	node.RecomputeMBR()
	sibling.RecomputeMBR()
	if err := t.refreshChildren(node); err != nil {
		return 0, err
	}
	if err := t.refreshChildren(sibling); err != nil {
		return 0, err
	}

	t.logger.Debug("split node",
		zap.Int64("node", int64(node.ID)),
		zap.Int64("sibling", int64(sibling.ID)),
		zap.Bool("leaf", node.Leaf),
		zap.Int("node_entries", len(node.Entries)),
		zap.Int("sibling_entries", len(sibling.Entries)),
	)

	if node.IsRoot() {
		root := NewNode(t.store.Allocate(), false, pagestore.InvalidPageID)
		node.ParentID = root.ID
		sibling.ParentID = root.ID
		root.Entries = append(root.Entries,
			Entry{ChildID: int64(node.ID), Rect: node.MBR},
			Entry{ChildID: int64(sibling.ID), Rect: sibling.MBR},
		)
		root.SubtreeSize = node.SubtreeSize + sibling.SubtreeSize
		root.RecomputeMBR()

		if err := t.storeNode(node); err != nil {
			return 1, err
		}
		if err := t.storeNode(sibling); err != nil {
			return 1, err
		}
		if err := t.storeNode(root); err != nil {
			return 1, err
		}
		t.rootID = root.ID
		t.logger.Info("root split, tree grew one level", zap.Int64("new_root", int64(root.ID)))
		return 1, nil
	}

	if err := t.storeNode(node); err != nil {
		return 1, err
	}
	if err := t.storeNode(sibling); err != nil {
		return 1, err
	}

	parent, err := t.fetchNode(node.ParentID)
	if err != nil {
		return 1, fmt.Errorf("failed to fetch parent %d of split node %d: %w",
			node.ParentID, node.ID, err)
	}

	replaced := false
	for i := range parent.Entries {
		if parent.Entries[i].ChildID == int64(node.ID) {
			parent.Entries[i].Rect = node.MBR
			replaced = true
			break
		}
	}
	if !replaced {
		return 1, fmt.Errorf("parent %d has no entry for child %d: %w",
			parent.ID, node.ID, ErrInvariantViolation)
	}
	parent.Entries = append(parent.Entries, Entry{ChildID: int64(sibling.ID), Rect: sibling.MBR})
	// A child split leaves the parent's MBR and subtree size unchanged; only
	// its entry count grows by one.

	if len(parent.Entries) > MaxEntries {
		splits, err := t.splitNode(parent)
		return splits + 1, err
	}
	if err := t.storeNode(parent); err != nil {
		return 1, err
	}
	return 1, nil
}

// refreshChildren recomputes the node's subtree size from its entries and,
// for internal nodes, rewrites the parent pointer of any child that migrated
// during distribution.
func (t *RTree) refreshChildren(node *Node) error {
	if node.Leaf {
		node.SubtreeSize = int64(len(node.Entries))
		return nil
	}
	var total int64
	for _, e := range node.Entries {
		child, err := t.fetchNode(pagestore.PageID(e.ChildID))
		if err != nil {
			return fmt.Errorf("failed to fetch child %d during split: %w", e.ChildID, err)
		}
		total += child.SubtreeSize
		if child.ParentID != node.ID {
			child.ParentID = node.ID
			if err := t.storeNode(child); err != nil {
				return err
			}
		}
	}
	node.SubtreeSize = total
	return nil
}

// pickSeeds chooses the pair of entries with the maximum waste — the dead
// volume of their union. Ties keep the lowest (i, j) in lexicographic order.
func pickSeeds(entries []Entry) (int, int) {
	seedA, seedB := 0, 1
	worst := math.Inf(-1)
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			w := waste(entries[i].Rect, entries[j].Rect)
			if w > worst {
				worst = w
				seedA, seedB = i, j
			}
		}
	}
	return seedA, seedB
}

// distributeEntries assigns each remaining entry, in index order, to the
// seed it wastes less volume with. Once either group holds M − m + 1
// entries, the rest go to the other group so both stay at or above the lower
// bound.
func distributeEntries(entries []Entry, seedA, seedB int) ([]Entry, []Entry) {
	maxGroup := MaxEntries - MinEntries + 1
	groupA := make([]Entry, 0, MaxEntries)
	groupB := make([]Entry, 0, MaxEntries)
	groupA = append(groupA, entries[seedA])
	groupB = append(groupB, entries[seedB])
	rectA := entries[seedA].Rect
	rectB := entries[seedB].Rect

	for k, e := range entries {
		if k == seedA || k == seedB {
			continue
		}
		switch {
		case len(groupA) >= maxGroup:
			groupB = append(groupB, e)
		case len(groupB) >= maxGroup:
			groupA = append(groupA, e)
		case waste(rectA, e.Rect) <= waste(rectB, e.Rect):
			groupA = append(groupA, e)
		default:
			groupB = append(groupB, e)
		}
	}
	return groupA, groupB
}

// waste is the volume of the union not covered by either rectangle alone.
func waste(a, b Rect) float64 {
	return a.Union(b).Volume() - a.Volume() - b.Volume()
}

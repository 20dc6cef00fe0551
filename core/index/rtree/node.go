package rtree

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

const (
	// nodeHeaderSize covers leaf flag, id, parent id, subtree size, the node
	// MBR (upper then lower corner) and the entry count.
	nodeHeaderSize = 1 + 8 + 8 + 8 + 8*Dimensions + 8*Dimensions + 8

	// nodeEntrySize covers the child id plus a (lower, upper) double pair
	// per dimension.
	nodeEntrySize = 8 + 16*Dimensions

	// computedMaxEntries is the fan-out the page layout could hold.
	computedMaxEntries = (pagestore.PageSize - nodeHeaderSize) / nodeEntrySize

	// MaxEntries is the fan-out cap M. The page layout admits far more, but
	// a small cap keeps trees deep enough to exercise splits; capacity below
	// the cap (tiny pages or high dimensions) wins.
	MaxEntries = min(computedMaxEntries, 4)

	// MinEntries is the lower bound m for every non-root node.
	MinEntries = MaxEntries / 2
)

// Entry is one (child id, child MBR) pair inside a node. In a leaf the child
// id is an object id in the object log and the rectangle is degenerate at
// the indexed point; in an internal node the child id is a node page id and
// the rectangle is that subtree's MBR.
type Entry struct {
	ChildID int64
	Rect    Rect
}

// Node is one R-tree node. The struct holds ids, never in-memory references
// to other decoded nodes: the tree exists only through the node store.
type Node struct {
	ID          pagestore.PageID
	ParentID    pagestore.PageID
	Leaf        bool
	SubtreeSize int64
	MBR         Rect
	Entries     []Entry
}

// NewNode creates an empty node. Its MBR is the Union identity so the first
// entry tightens it.
func NewNode(id pagestore.PageID, leaf bool, parentID pagestore.PageID) *Node {
	return &Node{
		ID:       id,
		ParentID: parentID,
		Leaf:     leaf,
		MBR:      EmptyRect(),
		Entries:  make([]Entry, 0, MaxEntries),
	}
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == pagestore.InvalidPageID }

// RecomputeMBR resets the node MBR to the exact union of its entries.
func (n *Node) RecomputeMBR() {
	mbr := EmptyRect()
	for _, e := range n.Entries {
		mbr = mbr.Union(e.Rect)
	}
	n.MBR = mbr
}

// encodeNode serializes a node into a fixed-size page.
//
// Layout, little-endian, packed:
//   - leaf (1 byte), id (int64), parent id (int64), subtree size (int64)
//   - node MBR upper corner, then lower corner (Dimensions doubles each)
//   - entry count (int64)
//   - per entry: child id (int64), then per dimension the pair
//     (child lower, child upper) as two doubles
//
// Bytes past the last entry are left as-is; readers must not depend on them.
func encodeNode(node *Node, page *pagestore.Page) error {
	if nodeHeaderSize+len(node.Entries)*nodeEntrySize > pagestore.PageSize {
		return fmt.Errorf("node %d with %d entries overflows page: %w",
			node.ID, len(node.Entries), ErrInvariantViolation)
	}

	buf := page.GetData()
	offset := 0

	if node.Leaf {
		buf[offset] = 1
	} else {
		buf[offset] = 0
	}
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], uint64(node.ID))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(node.ParentID))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(node.SubtreeSize))
	offset += 8

	for d := 0; d < Dimensions; d++ {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(node.MBR.Upper[d]))
		offset += 8
	}
	for d := 0; d < Dimensions; d++ {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(node.MBR.Lower[d]))
		offset += 8
	}

	binary.LittleEndian.PutUint64(buf[offset:], uint64(int64(len(node.Entries))))
	offset += 8

	for _, entry := range node.Entries {
		binary.LittleEndian.PutUint64(buf[offset:], uint64(entry.ChildID))
		offset += 8
		for d := 0; d < Dimensions; d++ {
			binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(entry.Rect.Lower[d]))
			offset += 8
			binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(entry.Rect.Upper[d]))
			offset += 8
		}
	}

	return nil
}

// decodeNode deserializes a node from a page. It fails with ErrMalformedPage
// when the declared entry count cannot fit in the page.
func decodeNode(page *pagestore.Page) (*Node, error) {
	buf := page.GetData()
	if len(buf) < pagestore.PageSize {
		return nil, fmt.Errorf("page %d has %d bytes: %w",
			page.GetPageID(), len(buf), pagestore.ErrShortRead)
	}

	node := &Node{}
	offset := 0

	node.Leaf = buf[offset] == 1
	offset++

	node.ID = pagestore.PageID(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	node.ParentID = pagestore.PageID(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	node.SubtreeSize = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8

	for d := 0; d < Dimensions; d++ {
		node.MBR.Upper[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
	}
	for d := 0; d < Dimensions; d++ {
		node.MBR.Lower[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
	}

	numEntries := int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8

	if numEntries < 0 || nodeHeaderSize+numEntries*nodeEntrySize > pagestore.PageSize {
		return nil, fmt.Errorf("page %d declares %d entries: %w",
			page.GetPageID(), numEntries, ErrMalformedPage)
	}

	node.Entries = make([]Entry, numEntries)
	for i := int64(0); i < numEntries; i++ {
		var entry Entry
		entry.ChildID = int64(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
		for d := 0; d < Dimensions; d++ {
			entry.Rect.Lower[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[offset:]))
			offset += 8
			entry.Rect.Upper[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[offset:]))
			offset += 8
		}
		node.Entries[i] = entry
	}

	return node, nil
}

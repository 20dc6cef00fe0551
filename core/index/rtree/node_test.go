package rtree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

func TestNodeBounds(t *testing.T) {
	// D = 2, P = 2048: header is 65 bytes, entries 40 bytes. The layout
	// admits far more than 4 entries, so the hard cap applies.
	require.Equal(t, 65, nodeHeaderSize)
	require.Equal(t, 40, nodeEntrySize)
	require.GreaterOrEqual(t, computedMaxEntries, MaxEntries)
	require.Equal(t, 4, MaxEntries)
	require.Equal(t, 2, MinEntries)
}

func TestNodeCodec_LeafRoundTrip(t *testing.T) {
	node := NewNode(3, true, 7)
	node.SubtreeSize = 2
	node.Entries = append(node.Entries,
		Entry{ChildID: 0, Rect: PointRect(Point{1, 2})},
		Entry{ChildID: 1, Rect: PointRect(Point{-3.5, 9})},
	)
	node.RecomputeMBR()

	page := pagestore.NewPage(3)
	require.NoError(t, encodeNode(node, page))

	decoded, err := decodeNode(page)
	require.NoError(t, err)
	require.Equal(t, node, decoded)
}

func TestNodeCodec_InternalRoundTrip(t *testing.T) {
	node := NewNode(9, false, pagestore.InvalidPageID)
	node.SubtreeSize = 11
	node.Entries = append(node.Entries,
		Entry{ChildID: 3, Rect: Rect{Lower: Point{1, 1}, Upper: Point{3, 4}}},
		Entry{ChildID: 5, Rect: Rect{Lower: Point{2, 6}, Upper: Point{5, 10}}},
	)
	node.RecomputeMBR()

	page := pagestore.NewPage(9)
	require.NoError(t, encodeNode(node, page))

	decoded, err := decodeNode(page)
	require.NoError(t, err)
	require.Equal(t, node, decoded)
	require.Equal(t, pagestore.InvalidPageID, decoded.ParentID)
	require.False(t, decoded.Leaf)
}

func TestNodeCodec_EmptyRootRoundTrip(t *testing.T) {
	node := NewNode(1, true, pagestore.InvalidPageID)

	page := pagestore.NewPage(1)
	require.NoError(t, encodeNode(node, page))

	decoded, err := decodeNode(page)
	require.NoError(t, err)
	require.Equal(t, node, decoded)
	require.Equal(t, EmptyRect(), decoded.MBR)
}

func TestNodeCodec_IgnoresTrailingGarbage(t *testing.T) {
	node := NewNode(2, true, pagestore.InvalidPageID)
	node.Entries = append(node.Entries, Entry{ChildID: 0, Rect: PointRect(Point{1, 1})})
	node.SubtreeSize = 1
	node.RecomputeMBR()

	page := pagestore.NewPage(2)
	// Dirty the whole page first; the encoder only owns the leading bytes.
	data := page.GetData()
	for i := range data {
		data[i] = 0xAB
	}
	require.NoError(t, encodeNode(node, page))

	decoded, err := decodeNode(page)
	require.NoError(t, err)
	require.Equal(t, node, decoded)
}

func TestNodeCodec_MalformedEntryCount(t *testing.T) {
	node := NewNode(4, true, pagestore.InvalidPageID)
	page := pagestore.NewPage(4)
	require.NoError(t, encodeNode(node, page))

	// Corrupt the entry count to one that cannot fit in the page.
	countOffset := nodeHeaderSize - 8
	binary.LittleEndian.PutUint64(page.GetData()[countOffset:], 1000)

	_, err := decodeNode(page)
	require.ErrorIs(t, err, ErrMalformedPage)

	// A negative count is malformed too.
	binary.LittleEndian.PutUint64(page.GetData()[countOffset:], ^uint64(0))
	_, err = decodeNode(page)
	require.ErrorIs(t, err, ErrMalformedPage)
}

func TestNodeCodec_EncodeRejectsOverflowingNode(t *testing.T) {
	node := NewNode(5, true, pagestore.InvalidPageID)
	for i := 0; i < computedMaxEntries+1; i++ {
		node.Entries = append(node.Entries, Entry{ChildID: int64(i), Rect: PointRect(Point{0, 0})})
	}

	err := encodeNode(node, pagestore.NewPage(5))
	require.ErrorIs(t, err, ErrInvariantViolation)
}

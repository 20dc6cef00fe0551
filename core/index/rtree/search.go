package rtree

import (
	"fmt"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

// Search returns a lazy iterator over the payloads of every record whose
// stored point equals the query coordinate-wise. The traversal is read-only
// and depth-first; branches whose rectangle does not contain the query are
// pruned. The iterator is finite and not restartable.
func (t *RTree) Search(coords []float64) (*SearchIterator, error) {
	pt, err := toPoint(coords)
	if err != nil {
		return nil, err
	}
	return &SearchIterator{
		tree:  t,
		query: pt,
		stack: []pagestore.PageID{t.rootID},
	}, nil
}

// SearchIterator streams search results on demand, loading one node page at
// a time. It holds node ids, never decoded nodes.
type SearchIterator struct {
	tree    *RTree
	query   Point
	stack   []pagestore.PageID
	pending []int64
	err     error
	done    bool
}

// Next returns the next matching payload. The second result is false when
// the iteration is exhausted or failed; check Err afterwards.
func (it *SearchIterator) Next() (string, bool) {
	if it.done {
		return "", false
	}

	for len(it.pending) == 0 && len(it.stack) > 0 {
		id := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		node, err := it.tree.fetchNode(id)
		if err != nil {
			return it.fail(fmt.Errorf("failed to fetch node %d during search: %w", id, err))
		}

		if node.Leaf {
			for _, e := range node.Entries {
				if e.Rect.Lower == it.query && e.Rect.Upper == it.query {
					it.pending = append(it.pending, e.ChildID)
				}
			}
			continue
		}
		// Push matching children in reverse so the lowest entry is visited
		// first. Multiple branches may contain the query point.
		for i := len(node.Entries) - 1; i >= 0; i-- {
			if node.Entries[i].Rect.ContainsPoint(it.query) {
				it.stack = append(it.stack, pagestore.PageID(node.Entries[i].ChildID))
			}
		}
	}

	if len(it.pending) == 0 {
		it.done = true
		return "", false
	}

	objectID := it.pending[0]
	it.pending = it.pending[1:]
	payload, err := it.tree.objects.Get(objectID)
	if err != nil {
		return it.fail(fmt.Errorf("failed to fetch object %d: %w", objectID, err))
	}
	return payload, true
}

// Err returns the error that terminated the iteration, if any.
func (it *SearchIterator) Err() error { return it.err }

func (it *SearchIterator) fail(err error) (string, bool) {
	it.err = err
	it.done = true
	return "", false
}

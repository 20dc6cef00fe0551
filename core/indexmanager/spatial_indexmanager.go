// Package indexmanager exposes the driver API over one open R-tree index:
// open, insert, search, close. It serializes access with a read-write mutex
// so callers may share a manager across goroutines even though the core
// below it is single-threaded.
package indexmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/sushant-115/rtreedb/core/index/rtree"
)

// SpatialIndexManager manages one open spatial index directory.
type SpatialIndexManager struct {
	tree   *rtree.RTree
	mu     sync.RWMutex
	logger *zap.Logger

	insertCount    metric.Int64Counter
	searchCount    metric.Int64Counter
	splitCount     metric.Int64Counter
	insertDuration metric.Float64Histogram
}

// NewSpatialIndexManager opens (or initializes) the index in dir. A nil
// meter disables metrics.
func NewSpatialIndexManager(dir string, logger *zap.Logger, meter metric.Meter) (*SpatialIndexManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}

	tree, err := rtree.Open(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open spatial index: %w", err)
	}

	sm := &SpatialIndexManager{
		tree:   tree,
		logger: logger,
	}
	if sm.insertCount, err = meter.Int64Counter("rtreedb.index.inserts"); err != nil {
		return nil, fmt.Errorf("failed to create insert counter: %w", err)
	}
	if sm.searchCount, err = meter.Int64Counter("rtreedb.index.searches"); err != nil {
		return nil, fmt.Errorf("failed to create search counter: %w", err)
	}
	if sm.splitCount, err = meter.Int64Counter("rtreedb.index.node_splits"); err != nil {
		return nil, fmt.Errorf("failed to create split counter: %w", err)
	}
	if sm.insertDuration, err = meter.Float64Histogram("rtreedb.index.insert_duration_ms"); err != nil {
		return nil, fmt.Errorf("failed to create insert duration histogram: %w", err)
	}
	return sm, nil
}

// InsertPoint inserts one record into the index.
func (sm *SpatialIndexManager) InsertPoint(ctx context.Context, point []float64, payload string) (rtree.InsertResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	start := time.Now()
	res, err := sm.tree.Insert(point, payload)
	if err != nil {
		return res, err
	}

	sm.insertCount.Add(ctx, 1)
	if res.Splits > 0 {
		sm.splitCount.Add(ctx, int64(res.Splits))
	}
	sm.insertDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	sm.logger.Debug("inserted point",
		zap.Float64s("point", point),
		zap.Int64("object_id", res.ObjectID),
		zap.Int("splits", res.Splits),
	)
	return res, nil
}

// SearchPoint collects the payloads of every record stored at exactly the
// given point, in traversal order.
func (sm *SpatialIndexManager) SearchPoint(ctx context.Context, point []float64) ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	it, err := sm.tree.Search(point)
	if err != nil {
		return nil, err
	}
	results := []string{}
	for {
		payload, ok := it.Next()
		if !ok {
			break
		}
		results = append(results, payload)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sm.searchCount.Add(ctx, 1)
	return results, nil
}

// Stats returns a snapshot of the open index.
func (sm *SpatialIndexManager) Stats() (rtree.Stats, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.tree.Stats()
}

// Checkpoint persists the session page without closing the index.
func (sm *SpatialIndexManager) Checkpoint() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.tree.Checkpoint()
}

// Close checkpoints the session page and releases the index.
func (sm *SpatialIndexManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.tree.Close()
}

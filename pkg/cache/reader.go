// Package cache exposes point lookups of cached columnlets over a mapped
// (index, data) region pair produced by the offline writer.
package cache

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/eunmann/columnlet-cache/pkg/cachekey"
	"github.com/eunmann/columnlet-cache/pkg/logging"
	"github.com/eunmann/columnlet-cache/pkg/mmap"
	"github.com/eunmann/columnlet-cache/pkg/radix"
)

// Key identifies one columnlet.
type Key = cachekey.Key

// Metrics counts lookup outcomes. Absence and error are separate misses so
// a degraded index is visible without failing queries.
type Metrics struct {
	Hits        atomic.Uint64
	Misses      atomic.Uint64
	ErrorMisses atomic.Uint64
	BytesRead   atomic.Uint64
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Hits        uint64
	Misses      uint64
	ErrorMisses uint64
	BytesRead   uint64
}

// Snapshot returns a consistent-enough copy for reporting.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Hits:        m.Hits.Load(),
		Misses:      m.Misses.Load(),
		ErrorMisses: m.ErrorMisses.Load(),
		BytesRead:   m.BytesRead.Load(),
	}
}

// Reader composes the radix index and the data region.
//
// Thread Safety: Reader is safe for concurrent use from multiple goroutines.
// Get and BatchGet allocate all per-lookup scratch per call. Close should
// only be called once all lookups have completed; lookups racing Close see
// implementation-defined behavior, as with any unmap.
type Reader struct {
	enabled   bool
	dataFile  *mmap.Region
	indexFile *mmap.Region
	index     *radix.Index

	metrics   Metrics
	closeOnce sync.Once
	logger    zerolog.Logger
}

// Open maps both regions and validates the index region header. A disabled
// configuration yields a reader that misses on every key without mapping
// anything. Construction errors propagate; per-lookup errors never do.
func Open(cfg Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithComponent("cache-reader")
	if !cfg.Enabled {
		logger.Info().Msg("cache disabled, every get degrades to storage")
		return &Reader{enabled: false, logger: logger}, nil
	}

	dataSize, err := regionSize(cfg.CacheLocation, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	indexSize, err := regionSize(cfg.IndexLocation, cfg.IndexSize)
	if err != nil {
		return nil, err
	}

	dataFile, err := mmap.Open(cfg.CacheLocation, dataSize)
	if err != nil {
		return nil, fmt.Errorf("map data region: %w", err)
	}
	indexFile, err := mmap.Open(cfg.IndexLocation, indexSize)
	if err != nil {
		dataFile.Unmap()
		return nil, fmt.Errorf("map index region: %w", err)
	}

	reader, err := NewFromRegions(dataFile, indexFile)
	if err != nil {
		dataFile.Unmap()
		indexFile.Unmap()
		return nil, err
	}

	logger.Info().
		Str("data_region", cfg.CacheLocation).
		Str("index_region", cfg.IndexLocation).
		Uint64("generation", reader.Generation()).
		Msg("cache reader attached")
	return reader, nil
}

// NewFromRegions composes a reader over regions the caller already mapped,
// taking ownership of both. After a writer publishes a new pair, attach a
// fresh reader this way without restarting the process.
func NewFromRegions(dataRegion, indexRegion *mmap.Region) (*Reader, error) {
	index, err := radix.New(indexRegion)
	if err != nil {
		return nil, fmt.Errorf("attach index region: %w", err)
	}
	return &Reader{
		enabled:   true,
		dataFile:  dataRegion,
		indexFile: indexRegion,
		index:     index,
		logger:    logging.WithComponent("cache-reader"),
	}, nil
}

func regionSize(path string, configured int64) (int64, error) {
	if configured > 0 {
		return configured, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat region %s: %w", path, err)
	}
	return info.Size(), nil
}

// Metrics returns the reader's counters.
func (r *Reader) Metrics() *Metrics {
	return &r.metrics
}

// Generation returns the generation of the attached index region, or zero
// for a disabled reader.
func (r *Reader) Generation() uint64 {
	if !r.enabled {
		return 0
	}
	return r.index.Generation()
}

// Get returns a copy of the cached columnlet for (blockID, rowGroupID,
// columnID), or nil and false on a miss. A corrupt index degrades to a miss:
// the cache is an optimisation and must never fail the query above it.
func (r *Reader) Get(blockID uint64, rowGroupID, columnID uint16) ([]byte, bool) {
	if !r.enabled {
		return nil, false
	}

	key := cachekey.Encode(blockID, rowGroupID, columnID)
	entry, ok, err := r.index.Search(key)
	if err != nil {
		r.metrics.ErrorMisses.Add(1)
		r.logger.Warn().Err(err).
			Uint64("block_id", blockID).
			Uint16("row_group_id", rowGroupID).
			Uint16("column_id", columnID).
			Msg("index lookup failed, treating as miss")
		return nil, false
	}
	if !ok {
		r.metrics.Misses.Add(1)
		return nil, false
	}

	content := make([]byte, entry.Length)
	if err := r.dataFile.GetBytes(int64(entry.Offset), content, 0, int(entry.Length)); err != nil {
		r.metrics.ErrorMisses.Add(1)
		r.logger.Warn().Err(err).
			Uint64("offset", entry.Offset).
			Uint32("length", entry.Length).
			Msg("index entry addresses bytes outside the data region, treating as miss")
		return nil, false
	}

	r.metrics.Hits.Add(1)
	r.metrics.BytesRead.Add(uint64(entry.Length))
	return content, true
}

// Search runs only the index half of a Get. It exists for diagnostics and
// tooling; query paths should use Get.
func (r *Reader) Search(blockID uint64, rowGroupID, columnID uint16) (radix.Entry, bool) {
	if !r.enabled {
		return radix.Entry{}, false
	}
	entry, ok, err := r.index.Search(cachekey.Encode(blockID, rowGroupID, columnID))
	if err != nil {
		return radix.Entry{}, false
	}
	return entry, ok
}

// batchRange is one coalesced read of the data region covering consecutive
// entries after sorting by offset.
type batchRange struct {
	start uint64
	end   uint64
}

// BatchGet looks up all keys and copies the hits out of the data region with
// one read per run of overlapping or adjacent ranges. Results match the
// input order; a miss yields a nil slice at its position.
func (r *Reader) BatchGet(keys []Key) [][]byte {
	results := make([][]byte, len(keys))
	if !r.enabled || len(keys) == 0 {
		return results
	}

	type hit struct {
		pos   int
		entry radix.Entry
	}
	hits := make([]hit, 0, len(keys))
	for i, k := range keys {
		entry, ok, err := r.index.Search(k.Bytes())
		if err != nil {
			r.metrics.ErrorMisses.Add(1)
			r.logger.Warn().Err(err).Msg("index lookup failed in batch, treating as miss")
			continue
		}
		if !ok {
			r.metrics.Misses.Add(1)
			continue
		}
		hits = append(hits, hit{pos: i, entry: entry})
	}
	if len(hits) == 0 {
		return results
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].entry.Offset < hits[j].entry.Offset
	})

	// Coalesce sorted ranges, then slice each key's bytes out of the run's
	// single copy.
	run := batchRange{start: hits[0].entry.Offset, end: hits[0].entry.Offset}
	runStart := 0
	flush := func(upto int) {
		length := int(run.end - run.start)
		buf := make([]byte, length)
		if err := r.dataFile.GetBytes(int64(run.start), buf, 0, length); err != nil {
			r.metrics.ErrorMisses.Add(uint64(upto - runStart))
			r.logger.Warn().Err(err).
				Uint64("offset", run.start).
				Int("length", length).
				Msg("batch range outside the data region, treating as misses")
			return
		}
		for _, h := range hits[runStart:upto] {
			lo := h.entry.Offset - run.start
			results[h.pos] = buf[lo : lo+uint64(h.entry.Length) : lo+uint64(h.entry.Length)]
			r.metrics.Hits.Add(1)
		}
		r.metrics.BytesRead.Add(uint64(length))
	}

	for i, h := range hits {
		end := h.entry.Offset + uint64(h.entry.Length)
		if h.entry.Offset <= run.end {
			if end > run.end {
				run.end = end
			}
			continue
		}
		flush(i)
		run = batchRange{start: h.entry.Offset, end: end}
		runStart = i
	}
	flush(len(hits))

	return results
}

// Close unmaps both regions. It is idempotent and must only run after all
// in-flight lookups have completed.
func (r *Reader) Close() error {
	var firstErr error
	r.closeOnce.Do(func() {
		if !r.enabled {
			return
		}
		r.logger.Info().Msg("cache reader unmaps data/index regions")
		if err := r.dataFile.Unmap(); err != nil {
			firstErr = err
		}
		if err := r.indexFile.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

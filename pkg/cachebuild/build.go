// Package cachebuild constructs a (data, index) region pair from a
// columnlet manifest.
package cachebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/eunmann/columnlet-cache/internal/logctx"
	"github.com/eunmann/columnlet-cache/pkg/cachekey"
	"github.com/eunmann/columnlet-cache/pkg/manifest"
	"github.com/eunmann/columnlet-cache/pkg/radix"
	"github.com/eunmann/columnlet-cache/pkg/storage"
)

// Config holds configuration for a region build.
type Config struct {
	// ManifestPath is the Parquet columnlet manifest to admit.
	ManifestPath string
	// CachePath is the output path of the data region.
	CachePath string
	// IndexPath is the output path of the index region.
	IndexPath string
	// TmpDir holds in-progress region files before the atomic rename.
	TmpDir string
	// Generation is stamped into the index region header.
	Generation uint64
	// Source supplies the columnlet bytes named by the manifest.
	// Defaults to the local filesystem.
	Source storage.Storage
}

// Summary reports what a build produced.
type Summary struct {
	Columnlets int
	DataBytes  int64
	Elapsed    time.Duration
}

// Build reads the manifest, copies every columnlet into the data region,
// and serializes the radix index over the resulting addresses. Both regions
// are published with tmp+rename so readers attach to complete files only.
func Build(ctx context.Context, cfg Config) (Summary, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)

	if cfg.ManifestPath == "" {
		return Summary{}, fmt.Errorf("manifest path required")
	}
	if cfg.CachePath == "" || cfg.IndexPath == "" {
		return Summary{}, fmt.Errorf("cache and index output paths required")
	}
	source := cfg.Source
	if source == nil {
		source = storage.NewLocal()
	}

	records, err := manifest.ReadFile(cfg.ManifestPath)
	if err != nil {
		return Summary{}, err
	}
	log.Info().Int("columnlets", len(records)).Str("manifest", cfg.ManifestPath).Msg("build started")

	dataWriter, err := radix.NewDataWriter(cfg.TmpDir, cfg.CachePath)
	if err != nil {
		return Summary{}, err
	}

	serializer := radix.NewSerializer()
	serializer.Generation = cfg.Generation

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			dataWriter.Abort()
			return Summary{}, err
		}
		content, err := source.ReadRange(ctx, rec.Source, int64(rec.SourceOffset), int(rec.Length))
		if err != nil {
			dataWriter.Abort()
			return Summary{}, fmt.Errorf("fetch columnlet (%d,%d,%d): %w",
				rec.BlockID, rec.RowGroupID, rec.ColumnID, err)
		}
		entry, err := dataWriter.Append(content)
		if err != nil {
			dataWriter.Abort()
			return Summary{}, err
		}
		serializer.Put(cachekey.Encode(rec.BlockID, rec.RowGroupID, rec.ColumnID), entry)
	}

	dataBytes := dataWriter.Size()
	if err := dataWriter.Close(); err != nil {
		return Summary{}, err
	}
	if err := serializer.WriteFile(cfg.TmpDir, cfg.IndexPath); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Columnlets: serializer.Count(),
		DataBytes:  dataBytes,
		Elapsed:    time.Since(start),
	}
	log.Info().
		Int("columnlets", summary.Columnlets).
		Int64("data_bytes", summary.DataBytes).
		Dur("elapsed", summary.Elapsed).
		Uint64("generation", cfg.Generation).
		Msg("build finished")
	return summary, nil
}

// Package cli implements the command-line interface for columnlet-cache.
package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/eunmann/columnlet-cache/internal/logctx"
	"github.com/eunmann/columnlet-cache/pkg/cache"
	"github.com/eunmann/columnlet-cache/pkg/cachebuild"
	"github.com/eunmann/columnlet-cache/pkg/humanfmt"
	"github.com/eunmann/columnlet-cache/pkg/logging"
	"github.com/eunmann/columnlet-cache/pkg/mmap"
	"github.com/eunmann/columnlet-cache/pkg/radix"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: columnlet-cache <command> [options]\ncommands: build, get, stat")
	}

	switch args[0] {
	case "build":
		return runBuild(args[1:])
	case "get":
		return runGet(args[1:])
	case "stat":
		return runStat(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	manifestPath := fs.String("manifest", "", "columnlet manifest (parquet)")
	cachePath := fs.String("cache", "", "output path for the data region")
	indexPath := fs.String("index", "", "output path for the index region")
	tmpDir := fs.String("tmp", "", "temporary directory for in-progress regions")
	generation := fs.Uint64("generation", 0, "generation stamped into the index header")
	debug := fs.Bool("debug", false, "debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *manifestPath == "" {
		return errors.New("--manifest is required")
	}
	if *cachePath == "" || *indexPath == "" {
		return errors.New("--cache and --index are required")
	}
	if *tmpDir == "" {
		return errors.New("--tmp is required")
	}

	logging.Init(*debug, *human)
	ctx := logctx.WithLogger(context.Background(), logctx.NewConfiguredLogger(*debug, *human))

	summary, err := cachebuild.Build(ctx, cachebuild.Config{
		ManifestPath: *manifestPath,
		CachePath:    *cachePath,
		IndexPath:    *indexPath,
		TmpDir:       *tmpDir,
		Generation:   *generation,
	})
	if err != nil {
		return err
	}

	fmt.Printf("built %d columnlets, %s data region, in %s (%s)\n",
		summary.Columnlets,
		humanfmt.Bytes(summary.DataBytes),
		summary.Elapsed,
		humanfmt.Throughput(summary.DataBytes, summary.Elapsed))
	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML file with cache.*/index.* options")
	blockID := fs.Uint64("block", 0, "block id")
	rowGroupID := fs.Uint("rg", 0, "row group id")
	columnID := fs.Uint("col", 0, "column id")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("--config is required")
	}

	cfg, err := cache.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	reader, err := cache.Open(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	content, ok := reader.Get(*blockID, uint16(*rowGroupID), uint16(*columnID))
	if !ok {
		fmt.Printf("miss (%d,%d,%d)\n", *blockID, *rowGroupID, *columnID)
		return nil
	}
	fmt.Printf("hit (%d,%d,%d): %d bytes\n%s\n",
		*blockID, *rowGroupID, *columnID, len(content), hex.Dump(content))
	return nil
}

func runStat(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ContinueOnError)
	indexPath := fs.String("index", "", "index region file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexPath == "" {
		return errors.New("--index is required")
	}

	info, err := os.Stat(*indexPath)
	if err != nil {
		return fmt.Errorf("stat index region: %w", err)
	}
	region, err := mmap.Open(*indexPath, info.Size())
	if err != nil {
		return err
	}
	defer region.Unmap()

	index, err := radix.New(region)
	if err != nil {
		return err
	}

	fmt.Printf("index region: %s\n", *indexPath)
	fmt.Printf("  size:       %s (%d bytes)\n", humanfmt.Bytes(info.Size()), info.Size())
	fmt.Printf("  generation: %d\n", index.Generation())
	return nil
}

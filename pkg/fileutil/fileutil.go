// Package fileutil provides file utilities for region publication with
// tmp+mv semantics.
package fileutil

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eunmann/columnlet-cache/pkg/logging"
)

// Index region header constants (must match pkg/radix/format.go).
const (
	regionMagicNumber = 0x50584C43 // "PXLC"
	regionVersion     = 1
	regionHeaderSize  = 16 // 4+4+8 bytes
)

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNonEmpty returns true if the file exists and has non-zero size.
func IsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// IndexRegionValid checks that an index region file exists, carries the
// expected magic and version, and is at least large enough to hold the
// global header plus an empty root node.
func IndexRegionValid(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	headerBuf := make([]byte, regionHeaderSize)
	n, err := f.Read(headerBuf)
	if err != nil || n < regionHeaderSize {
		return false
	}

	magic := binary.LittleEndian.Uint32(headerBuf[0:4])
	version := binary.LittleEndian.Uint32(headerBuf[4:8])
	if magic != regionMagicNumber {
		return false
	}
	if version != regionVersion {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}
	// Header plus the root node header.
	return info.Size() >= regionHeaderSize+4
}

// TmpPath ensures tmpDir exists and returns the temporary path used while
// writing outPath.
func TmpPath(tmpDir, outPath string) (string, error) {
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}
	return filepath.Join(tmpDir, filepath.Base(outPath)+".tmp"), nil
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to
// the final path. The writeFunc receives the temporary path and should write
// the complete file. On success, the file is moved to outPath atomically, so
// a reader attaching to outPath sees either the old region or the new one.
func WriteTmpThenMove(tmpDir, outPath string, writeFunc func(tmpPath string) error) error {
	tmpPath, err := TmpPath(tmpDir, outPath)
	if err != nil {
		return err
	}

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	return nil
}

// syncFile opens, syncs, and closes a file.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}

// CleanupTmpFiles removes all .tmp files in the given directory recursively.
func CleanupTmpFiles(dir string) error {
	log := logging.L()

	var removed int
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			// Continue walking even if individual paths fail
			return nil //nolint:nilerr
		}
		if !info.IsDir() && strings.HasSuffix(path, ".tmp") {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})

	if removed > 0 {
		log.Debug().Int("files_removed", removed).Str("dir", dir).Msg("cleaned up tmp files")
	}

	return err
}

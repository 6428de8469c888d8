// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// extractCopyBufferSize defines per-worker buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   EntryInfo
}

// Extract writes selected entries to dstDir. Extraction is parallelized
// by MaxWorkers; on failure it returns the first encountered error.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	opts.applyDefaults()
	logger := discardLogger(opts.Logger)

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := opts.Entries
	if entries == nil {
		entries = r.Entries()
	}

	entries, err := FilterEntries(entries, opts.Filter, opts.FilterMatcherOptions)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workItems, err := prepareExtractWorkItems(entries, opts.RawNames)
	if err != nil {
		return err
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, task := range workItems {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			outPath := filepath.Join(dstRootAbs, task.relPath)
			written, err := r.extractEntryTo(task.entry, outPath, opts.FileMode)
			if err != nil {
				return err
			}

			logger.Debug("extracted entry",
				slog.String("entry", task.entry.Name),
				slog.String("path", outPath),
				slog.Int64("size", written),
			)

			if opts.OnEntryDone != nil {
				opts.OnEntryDone(task.entry, written, outPath)
			}

			return nil
		})
	}

	return eg.Wait()
}

// ExtractEntry writes one named entry to outPath, creating parent directories.
// An existing file at outPath is truncated.
func (r *Reader) ExtractEntry(name string, outPath string) (int64, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	entry, err := r.Find(name)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	return r.extractEntryTo(entry, outPath, ExtractFileModeTruncate)
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(entries []EntryInfo, rawNames bool) ([]extractWorkItem, error) {
	var sanitized []string
	if !rawNames {
		var err error
		sanitized, err = sanitizeEntryNames(entries)
		if err != nil {
			return nil, err
		}
	}

	workItems := make([]extractWorkItem, 0, len(entries))
	for i, entry := range entries {
		var normalizedPath string
		if rawNames {
			var err error
			normalizedPath, err = normalizeExtractEntryPath(entry.Name)
			if err != nil {
				return nil, fmt.Errorf("normalize entry path %s: %w", entry.Name, err)
			}
		} else {
			normalizedPath = sanitized[i]
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractEntryTo copies one entry payload into outPath.
func (r *Reader) extractEntryTo(entry EntryInfo, outPath string, fileMode ExtractFileMode) (int64, error) {
	file, err := openExtractFile(outPath, fileMode)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", entry.Name, err)
	}

	copyBuf := make([]byte, min(extractCopyBufferSize, max(int(entry.Size), 1)))
	written, copyErr := io.CopyBuffer(file, r.openEntryByInfo(entry), copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return written, fmt.Errorf("write %s: %w", entry.Name, copyErr)
	}

	if closeErr != nil {
		return written, fmt.Errorf("close %s: %w", entry.Name, closeErr)
	}

	return written, nil
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return file, nil
		}

		if !os.IsExist(err) {
			return nil, err
		}

		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// normalizeExtractEntryPath normalizes entry name and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryName string) (string, error) {
	raw := strings.TrimSpace(entryName)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	c := path[0]
	isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isAlpha && path[1] == ':' && path[2] == '/'
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Reader provides read-only access to a parsed BSA file.
// All read methods are safe for concurrent use.
type Reader struct {
	// Index holds parsed immutable entry metadata.
	*Index
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// logger receives validation warnings.
	logger *slog.Logger
	// mismatches stores entries whose stored hash is stale (lenient mode only).
	mismatches []EntryInfo
	// overlapping reports payload regions sharing bytes (lenient mode only).
	overlapping bool
	// size is total source size in bytes.
	size int64
	// dataStart is absolute offset of first payload byte.
	dataStart int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens BSA file by path and parses its index.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens BSA file by path and parses its index using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReader parses BSA from an in-memory buffer. The buffer must not be modified while the reader is in use.
func NewReader(data []byte) (*Reader, error) {
	return NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
}

// NewReaderFromReaderAt parses BSA from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses BSA from existing ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	r := &Reader{ra: ra, size: size, logger: discardLogger(opts.Logger)}
	if err := r.parse(opts); err != nil {
		return nil, err
	}

	return r, nil
}

// Size returns total source size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// DataStart returns absolute offset of the data region.
// Entry offsets are relative to it.
func (r *Reader) DataStart() int64 {
	return r.dataStart
}

// HashMismatches returns entries whose stored hash disagrees with the recomputed one.
// It is always empty in strict mode, where such archives fail to open.
func (r *Reader) HashMismatches() []EntryInfo {
	if r == nil {
		return nil
	}

	out := make([]EntryInfo, len(r.mismatches))
	copy(out, r.mismatches)
	return out
}

// HasOverlappingPayloads reports whether two payload regions share bytes.
// It is always false in strict mode, where such archives fail to open.
func (r *Reader) HasOverlappingPayloads() bool {
	return r != nil && r.overlapping
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// isClosed reports whether Close was called.
func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// tableLayout holds header values and derived table positions.
type tableLayout struct {
	count      uint32
	hashOffset uint32
	// nameBlockLen is the name block length in bytes.
	nameBlockLen uint32
	// dataStart is absolute offset of the data region.
	dataStart int64
}

// parse reads and validates BSA structure from ReaderAt.
func (r *Reader) parse(opts ReaderOptions) error {
	layout, err := parseHeader(r.ra, r.size)
	if err != nil {
		return err
	}

	tables := make([]byte, layout.dataStart-headerSize)
	if err := readFullAt(r.ra, tables, headerSize); err != nil {
		return fmt.Errorf("read index tables: %w", err)
	}

	entries, err := parseTables(tables, layout)
	if err != nil {
		return err
	}

	r.dataStart = layout.dataStart
	if err := validatePayloadBounds(entries, layout.dataStart, r.size); err != nil {
		return err
	}

	strict := opts.Validation == ValidationStrict
	for i := range entries {
		computed := HashName(entries[i].Name)
		if computed == entries[i].Hash {
			continue
		}

		if strict {
			return fmt.Errorf("%w: %w: entry %s stored %016x, computed %016x",
				ErrCorrupt, ErrHashMismatch, entries[i].Name, entries[i].Hash, computed)
		}

		r.logger.Warn("stale name hash",
			slog.String("entry", entries[i].Name),
			slog.String("stored", fmt.Sprintf("%016x", entries[i].Hash)),
			slog.String("computed", fmt.Sprintf("%016x", computed)),
		)
		r.mismatches = append(r.mismatches, entries[i])
	}

	if err := validateNoOverlap(entries); err != nil {
		if strict {
			return err
		}

		r.logger.Warn("overlapping payloads", slog.String("error", err.Error()))
		r.overlapping = true
	}

	r.Index = newIndex(entries)
	r.logger.Debug("parsed archive",
		slog.Int("entries", len(entries)),
		slog.Int64("data_start", layout.dataStart),
		slog.Int64("size", r.size),
	)

	return nil
}

// parseHeader reads the fixed header and checks declared table extents against size.
func parseHeader(ra io.ReaderAt, size int64) (tableLayout, error) {
	var header [headerSize]byte
	if size < 4 {
		return tableLayout{}, fmt.Errorf("%w: short header (%d bytes)", ErrTruncated, size)
	}
	if err := readFullAt(ra, header[:4], 0); err != nil {
		return tableLayout{}, fmt.Errorf("read header: %w", err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != versionTag {
		return tableLayout{}, ErrInvalidHeader
	}
	if size < headerSize {
		return tableLayout{}, fmt.Errorf("%w: short header (%d bytes)", ErrTruncated, size)
	}
	if err := readFullAt(ra, header[4:], 4); err != nil {
		return tableLayout{}, fmt.Errorf("read header: %w", err)
	}

	layout := tableLayout{
		hashOffset: binary.LittleEndian.Uint32(header[4:8]),
		count:      binary.LittleEndian.Uint32(header[8:12]),
	}

	remaining := uint64(size - headerSize) //nolint:gosec // size >= headerSize checked above
	count := uint64(layout.count)

	// Every entry takes at least minEntryBytes of index, so a larger count cannot fit.
	if count*minEntryBytes > remaining {
		return tableLayout{}, fmt.Errorf("%w: %d entries declared in %d index bytes", ErrTruncated, count, remaining)
	}

	fixed := count * (dirRecordSize + nameOffsetSize)
	if uint64(layout.hashOffset) < fixed {
		return tableLayout{}, fmt.Errorf("%w: hash table offset %d inside fixed tables (%d bytes)",
			ErrCorrupt, layout.hashOffset, fixed)
	}

	tablesEnd := uint64(layout.hashOffset) + count*hashSize
	if tablesEnd > remaining {
		return tableLayout{}, fmt.Errorf("%w: index needs %d bytes, %d available", ErrTruncated, tablesEnd, remaining)
	}

	layout.nameBlockLen = uint32(uint64(layout.hashOffset) - fixed) //nolint:gosec // bounded by hashOffset
	layout.dataStart = int64(headerSize + tablesEnd)               //nolint:gosec // bounded by size
	return layout, nil
}

// parseTables decodes directory, name offsets, name block, and hash table.
// tables starts right after the fixed header.
func parseTables(tables []byte, layout tableLayout) ([]EntryInfo, error) {
	n := int(layout.count)
	dir := tables[:n*dirRecordSize]
	nameOffsets := tables[n*dirRecordSize : n*(dirRecordSize+nameOffsetSize)]
	nameBlock := tables[n*(dirRecordSize+nameOffsetSize) : layout.hashOffset]
	hashes := tables[layout.hashOffset:]

	entries := make([]EntryInfo, n)
	seenNames := make(map[uint32]struct{}, n)
	for i := 0; i < n; i++ {
		entries[i].Size = binary.LittleEndian.Uint32(dir[i*dirRecordSize:])
		entries[i].Offset = binary.LittleEndian.Uint32(dir[i*dirRecordSize+4:])

		nameOff := binary.LittleEndian.Uint32(nameOffsets[i*nameOffsetSize:])
		if nameOff >= layout.nameBlockLen {
			return nil, fmt.Errorf("%w: entry %d name offset %d beyond name block (%d bytes)",
				ErrCorrupt, i, nameOff, layout.nameBlockLen)
		}
		if _, dup := seenNames[nameOff]; dup {
			return nil, fmt.Errorf("%w: entry %d reuses name offset %d", ErrCorrupt, i, nameOff)
		}
		seenNames[nameOff] = struct{}{}

		name, err := readNameAt(nameBlock, nameOff)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorrupt, i, err)
		}
		entries[i].Name = name

		low := binary.LittleEndian.Uint32(hashes[i*hashSize:])
		high := binary.LittleEndian.Uint32(hashes[i*hashSize+4:])
		entries[i].Hash = uint64(low) | uint64(high)<<32
	}

	return entries, nil
}

// readNameAt returns the NUL-terminated name starting at off inside block.
func readNameAt(block []byte, off uint32) (string, error) {
	rest := block[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("name at %d is not NUL-terminated", off)
	}
	if end == 0 {
		return "", fmt.Errorf("name at %d is empty", off)
	}

	return string(rest[:end]), nil
}

// validatePayloadBounds checks that every payload lies inside the source.
func validatePayloadBounds(entries []EntryInfo, dataStart int64, totalSize int64) error {
	for i := range entries {
		end := uint64(dataStart) + entries[i].End() //nolint:gosec // dataStart is non-negative
		if end > uint64(totalSize) {                  //nolint:gosec // totalSize is non-negative
			return fmt.Errorf("%w: entry %s payload ends at %d, archive has %d bytes",
				ErrTruncated, entries[i].Name, end, totalSize)
		}
	}

	return nil
}

// validateNoOverlap checks that non-empty payload regions do not overlap.
func validateNoOverlap(entries []EntryInfo) error {
	order := make([]int, 0, len(entries))
	for i := range entries {
		if entries[i].Size > 0 {
			order = append(order, i)
		}
	}

	sort.Slice(order, func(a, b int) bool {
		return entries[order[a]].Offset < entries[order[b]].Offset
	})

	for k := 1; k < len(order); k++ {
		prev := &entries[order[k-1]]
		cur := &entries[order[k]]
		if prev.End() > uint64(cur.Offset) {
			return fmt.Errorf("%w: payloads of %s and %s overlap", ErrCorrupt, prev.Name, cur.Name)
		}
	}

	return nil
}

// readFullAt fills buf from ra at offset, reporting short reads as ErrTruncated.
func readFullAt(ra io.ReaderAt, buf []byte, offset int64) error {
	n, err := ra.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: read %d of %d bytes at %d", ErrTruncated, n, len(buf), offset)
	}

	return err
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open BSA: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"io"
	"log/slog"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	versionTag     = 0x00000100 // Morrowind BSA version tag, bytes 00 01 00 00
	headerSize     = 12         // version + hash table offset + file count
	dirRecordSize  = 8          // size + offset per entry
	nameOffsetSize = 4          // name block offset per entry
	hashSize       = 8          // low + high hash words per entry
	minEntryBytes  = dirRecordSize + nameOffsetSize + 1 + hashSize
	maxBSAData     = 1 << 32 // max addressable payload (4 GiB)
)

// MaxNameLen is the maximum stored entry name length in bytes, NUL excluded.
const MaxNameLen = 255

// Default packer tuning values.
const (
	DefaultWriteBuffer = 4 * 1024 * 1024
)

// EntryInfo describes a single BSA entry.
type EntryInfo struct {
	// Name is the entry name as stored in the name block.
	Name string `json:"name" yaml:"name"`
	// Hash is the name hash (low word in bits 0-31, high word in bits 32-63).
	Hash uint64 `json:"hash" yaml:"hash"`
	// Size is payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// Offset is payload offset relative to the start of the data region.
	Offset uint32 `json:"offset" yaml:"offset"`
}

// End returns the offset one past the last payload byte, relative to the data region.
func (e *EntryInfo) End() uint64 {
	return uint64(e.Offset) + uint64(e.Size)
}

// Input describes one source to be packed into a BSA entry.
// Data is used when Open is nil.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Name is destination name inside the archive.
	Name string `json:"name" yaml:"name"`
	// Data is in-memory payload.
	Data []byte `json:"-" yaml:"-"`
	// SizeHint is expected size in bytes for Open-based inputs (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Name is entry name written to archive.
	Name string `json:"name" yaml:"name"`
	// Offset is payload offset relative to the data region.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written to archive payload.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Logger receives debug records for written entries. Nil disables logging.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// SortByHash writes entries ordered by name hash, as vanilla archives are.
	// When false, caller order is kept.
	SortByHash bool `json:"sort_by_hash,omitempty" yaml:"sort_by_hash,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// Entries is written entry metadata in directory order.
	Entries []EntryInfo `json:"entries,omitempty" yaml:"entries,omitempty"`
	// WrittenEntries is number of entries written to archive.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// DataSize is total payload bytes written.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexSize is total header and table bytes written.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// Duration is end-to-end pack core duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ValidationMode controls how strictly reader checks index consistency.
type ValidationMode string

// Reader validation modes.
const (
	// ValidationLenient logs stale name hashes and overlapping payloads, keeping them visible
	// through Reader.HashMismatches and Reader.HasOverlappingPayloads.
	ValidationLenient ValidationMode = "lenient"
	// ValidationStrict fails on stale name hashes and on overlapping payload regions.
	ValidationStrict ValidationMode = "strict"
)

// ReaderOptions configures reader validation behavior.
type ReaderOptions struct {
	// Logger receives validation warnings. Nil disables logging.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Validation controls hash and layout checks.
	Validation ValidationMode `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Logger receives debug records for extracted entries. Nil disables logging.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits extraction to selected metadata list; nil means all parsed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// Filter defines ordered name rules selecting entries to extract; empty means all.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// FilterMatcherOptions control filter rule matching. A zero value matches case-insensitively;
	// an unset DefaultAction is exclude when Filter has an include rule, include otherwise.
	FilterMatcherOptions pathrules.MatcherOptions `json:"filter_matcher_options,omitzero" yaml:"filter_matcher_options,omitzero"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables default path sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.Validation == "" {
		opts.Validation = ValidationLenient
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	opts.FilterMatcherOptions = withFilterDefaults(opts.Filter, opts.FilterMatcherOptions)
}

// discardLogger returns logger or a discard logger when nil.
func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return logger
}

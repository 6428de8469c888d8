// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

var (
	// defaultPackWriterPool reuses default-sized bufio writers between Pack calls.
	defaultPackWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
	// defaultPackCopyBufferPool reuses payload copy buffers between Pack calls.
	defaultPackCopyBufferPool = sync.Pool{
		New: func() any {
			return new([packCopyBufferSize]byte)
		},
	}
)

const (
	// packCopyBufferSize is per-pack temporary buffer used by streaming payload copy.
	packCopyBufferSize = 64 * 1024
)

// planEntry is one validated input in final directory order.
type planEntry struct {
	input *Input
	name  string
	hash  uint64
}

// indexLayout holds sizes derived from entry names alone.
type indexLayout struct {
	count      uint32
	hashOffset uint32
	// dataStart is index size in bytes, which is also the data region offset.
	dataStart int64
}

// Build assembles a complete archive in memory from inputs.
// Caller order is the directory order. Inputs with Open set are read through it,
// all other inputs use Data.
func Build(inputs []Input) ([]byte, error) {
	return BuildWithOptions(inputs, PackOptions{})
}

// BuildWithOptions assembles a complete archive in memory using pack options.
// Only SortByHash applies; buffering options are ignored.
func BuildWithOptions(inputs []Input, opts PackOptions) ([]byte, error) {
	plan, err := preparePackPlan(inputs, opts.SortByHash)
	if err != nil {
		return nil, err
	}

	payloads := make([][]byte, len(plan))
	sizes := make([]uint32, len(plan))
	var total uint64
	for i := range plan {
		data, err := readInputData(plan[i].input)
		if err != nil {
			return nil, err
		}

		if uint64(len(data)) > maxBSAData-1-total {
			return nil, fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, plan[i].name)
		}

		payloads[i] = data
		sizes[i] = uint32(len(data)) //nolint:gosec // bounded by check above
		total += uint64(len(data))
	}

	layout := planIndexLayout(plan)
	out := make([]byte, layout.dataStart, uint64(layout.dataStart)+total) //nolint:gosec // dataStart is non-negative
	encodeIndex(out, plan, layout, sizes)
	for _, data := range payloads {
		out = append(out, data...)
	}

	return out, nil
}

// Pack writes a BSA to out from the given inputs.
// The directory is written with placeholders first and patched after payloads are streamed,
// so inputs with unknown size can be packed without buffering them.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()
	logger := discardLogger(opts.Logger)

	plan, err := preparePackPlan(inputs, opts.SortByHash)
	if err != nil {
		return nil, err
	}

	archiveStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek archive start: %w", err)
	}

	w, releaseWriter := acquirePackWriter(out, opts.WriterBufferSize)
	defer releaseWriter()

	layout := planIndexLayout(plan)
	index := make([]byte, layout.dataStart)
	encodeIndex(index, plan, layout, nil)
	if _, err := w.Write(index); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	copyBuf, releaseCopyBuffer := acquirePackCopyBuffer()
	defer releaseCopyBuffer()

	entries := make([]EntryInfo, 0, len(plan))
	sizes := make([]uint32, 0, len(plan))
	var currentOffset uint32
	for i := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size, err := writeInputPayload(w, plan[i].input, currentOffset, copyBuf)
		if err != nil {
			return nil, err
		}

		entry := EntryInfo{
			Name:   plan[i].name,
			Hash:   plan[i].hash,
			Size:   size,
			Offset: currentOffset,
		}
		entries = append(entries, entry)
		sizes = append(sizes, size)

		logger.Debug("packed entry",
			slog.String("entry", entry.Name),
			slog.Uint64("offset", uint64(entry.Offset)),
			slog.Uint64("size", uint64(entry.Size)),
		)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{Name: entry.Name, Offset: entry.Offset, Size: entry.Size})
		}

		currentOffset += size
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush payloads: %w", err)
	}

	archiveEnd, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek archive end: %w", err)
	}

	if _, err := out.Seek(archiveStart+headerSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to directory: %w", err)
	}

	directory := make([]byte, len(sizes)*dirRecordSize)
	encodeDirectory(directory, sizes)
	if _, err := out.Write(directory); err != nil {
		return nil, fmt.Errorf("patch directory: %w", err)
	}

	if _, err := out.Seek(archiveEnd, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek archive end: %w", err)
	}

	return &PackResult{
		Entries:        entries,
		WrittenEntries: len(entries),
		DataSize:       int64(currentOffset),
		IndexSize:      layout.dataStart,
		Duration:       time.Since(startedAt),
	}, nil
}

// PackFile writes a BSA to outPath.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create BSA file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := Pack(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync BSA file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close BSA file: %w", err)
	}
	f = nil

	return res, nil
}

// acquirePackWriter returns a buffered writer and release callback for Pack.
func acquirePackWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultPackWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultPackWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// acquirePackCopyBuffer returns reusable payload copy buffer and release callback.
func acquirePackCopyBuffer() ([]byte, func()) {
	arr := defaultPackCopyBufferPool.Get().(*[packCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	buf := arr[:]

	return buf, func() {
		defaultPackCopyBufferPool.Put(arr)
	}
}

// preparePackPlan validates names and fixes directory order.
func preparePackPlan(inputs []Input, sortByHash bool) ([]planEntry, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	plan := make([]planEntry, len(inputs))
	for i := range inputs {
		if err := validateEntryName(inputs[i].Name); err != nil {
			return nil, err
		}

		plan[i] = planEntry{
			input: &inputs[i],
			name:  inputs[i].Name,
			hash:  HashName(inputs[i].Name),
		}
	}

	if err := validateUniqueEntryNames(plan); err != nil {
		return nil, err
	}

	if sortByHash {
		sort.SliceStable(plan, func(i, j int) bool {
			return hashLess(plan[i].hash, plan[j].hash)
		})
	}

	// Names are at most MaxNameLen bytes, so the index only overflows for absurd entry counts.
	var indexBytes uint64 = headerSize
	for i := range plan {
		indexBytes += dirRecordSize + nameOffsetSize + uint64(len(plan[i].name)) + 1 + hashSize
	}
	if indexBytes >= maxBSAData {
		return nil, fmt.Errorf("%w: index of %d entries is %d bytes", ErrSizeOverflow, len(plan), indexBytes)
	}

	return plan, nil
}

// validateUniqueEntryNames ensures there are no duplicate logical entry names.
func validateUniqueEntryNames(plan []planEntry) error {
	seen := make(map[string]string, len(plan))
	for i := range plan {
		key := NormalizeName(plan[i].name)
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %w: %q conflicts with %q", ErrInvalidName, ErrDuplicateName, plan[i].name, existing)
		}

		seen[key] = plan[i].name
	}

	return nil
}

// planIndexLayout computes table sizes for validated plan.
func planIndexLayout(plan []planEntry) indexLayout {
	count := uint32(len(plan)) //nolint:gosec // bounded by preparePackPlan index size check
	hashOffset := count * (dirRecordSize + nameOffsetSize)
	for i := range plan {
		hashOffset += uint32(len(plan[i].name)) + 1 //nolint:gosec // bounded by MaxNameLen
	}

	return indexLayout{
		count:      count,
		hashOffset: hashOffset,
		dataStart:  headerSize + int64(hashOffset) + int64(count)*hashSize,
	}
}

// encodeIndex writes header and all tables into dst, which must be layout.dataStart bytes long.
// A nil sizes leaves the directory zeroed for later patching.
func encodeIndex(dst []byte, plan []planEntry, layout indexLayout, sizes []uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], versionTag)
	binary.LittleEndian.PutUint32(dst[4:8], layout.hashOffset)
	binary.LittleEndian.PutUint32(dst[8:12], layout.count)

	n := len(plan)
	tables := dst[headerSize:]
	if sizes != nil {
		encodeDirectory(tables[:n*dirRecordSize], sizes)
	}

	nameOffsets := tables[n*dirRecordSize : n*(dirRecordSize+nameOffsetSize)]
	nameBlock := tables[n*(dirRecordSize+nameOffsetSize):layout.hashOffset]
	var nameOff uint32
	for i := range plan {
		binary.LittleEndian.PutUint32(nameOffsets[i*nameOffsetSize:], nameOff)
		copy(nameBlock[nameOff:], plan[i].name)
		nameBlock[int(nameOff)+len(plan[i].name)] = 0
		nameOff += uint32(len(plan[i].name)) + 1 //nolint:gosec // bounded by MaxNameLen
	}

	hashes := tables[layout.hashOffset:]
	for i := range plan {
		binary.LittleEndian.PutUint32(hashes[i*hashSize:], hashLow(plan[i].hash))
		binary.LittleEndian.PutUint32(hashes[i*hashSize+4:], hashHigh(plan[i].hash))
	}
}

// encodeDirectory writes size/offset records with sequential offsets.
func encodeDirectory(dst []byte, sizes []uint32) {
	var offset uint32
	for i, size := range sizes {
		binary.LittleEndian.PutUint32(dst[i*dirRecordSize:], size)
		binary.LittleEndian.PutUint32(dst[i*dirRecordSize+4:], offset)
		offset += size
	}
}

// readInputData returns in-memory payload for one input.
func readInputData(in *Input) ([]byte, error) {
	if in.Open == nil {
		return in.Data, nil
	}

	rc, err := openInputReader(in)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if in.SizeHint > 0 && in.SizeHint < maxBSAData {
		buf.Grow(int(in.SizeHint))
	}

	_, copyErr := copyPayloadBounded(&buf, rc, maxBSAData-1, nil)
	closeErr := rc.Close()
	if copyErr != nil {
		return nil, fmt.Errorf("read input %s: %w", in.Name, copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close input %s: %w", in.Name, closeErr)
	}

	return buf.Bytes(), nil
}

// openInputReader opens source stream for one input.
func openInputReader(in *Input) (io.ReadCloser, error) {
	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.Name, err)
	}

	return rc, nil
}

// writeInputPayload writes one entry payload and returns its size.
func writeInputPayload(dst io.Writer, in *Input, currentOffset uint32, copyBuf []byte) (uint32, error) {
	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	if in.Open == nil {
		size, err := checkedDataSize(in.Name, int64(len(in.Data)), currentOffset)
		if err != nil {
			return 0, err
		}

		if _, err := dst.Write(in.Data); err != nil {
			return 0, fmt.Errorf("write payload %s: %w", in.Name, err)
		}

		return size, nil
	}

	rc, err := openInputReader(in)
	if err != nil {
		return 0, err
	}

	streamed, copyErr := copyPayloadBounded(dst, rc, maxEntrySize, copyBuf)
	closeErr := rc.Close()
	if copyErr != nil {
		return 0, fmt.Errorf("stream input %s: %w", in.Name, copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close input %s: %w", in.Name, closeErr)
	}

	return checkedDataSize(in.Name, streamed, currentOffset)
}

// copyPayloadBounded streams payload from src to dst and enforces strict size limit.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		remaining := limit - written
		if int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// At the limit, read one extra byte to make sure the source is not longer.
	if written == limit {
		var extra [1]byte
		n, err := src.Read(extra[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

// checkedDataSize validates entry size for uint32 fields and running offset.
func checkedDataSize(name string, size int64, currentOffset uint32) (uint32, error) {
	if size < 0 || size > int64(^uint32(0)) {
		return 0, fmt.Errorf("%w: entry %s size %d is out of uint32 range", ErrSizeOverflow, name, size)
	}

	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	if size > maxEntrySize {
		return 0, fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, name)
	}

	return uint32(size), nil
}

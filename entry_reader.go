// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"errors"
	"fmt"
	"io"

	digest "github.com/opencontainers/go-digest"
)

// exactReader yields exactly remaining bytes or fails with ErrTruncated.
type exactReader struct {
	r         io.Reader
	name      string
	remaining int64
}

// Read implements io.Reader.
func (e *exactReader) Read(p []byte) (int, error) {
	if e.remaining <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > e.remaining {
		p = p[:e.remaining]
	}

	n, err := e.r.Read(p)
	e.remaining -= int64(n)
	if e.remaining > 0 && errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: entry %s is %d bytes short", ErrTruncated, e.name, e.remaining)
	}
	if e.remaining == 0 && errors.Is(err, io.EOF) {
		err = nil
	}

	return n, err
}

// Close closes exactReader (no-op).
func (*exactReader) Close() error {
	return nil
}

// checkOpen returns an error when reader is nil or closed.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	if r.isClosed() {
		return ErrClosed
	}

	return nil
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
func (r *Reader) openEntryByInfo(info EntryInfo) io.ReadCloser {
	sr := io.NewSectionReader(r.ra, r.dataStart+int64(info.Offset), int64(info.Size))
	return &exactReader{r: sr, name: info.Name, remaining: int64(info.Size)}
}

// OpenEntry opens named entry for reading.
// The stream fails with ErrTruncated when backing storage ends before the payload does.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info, err := r.Find(name)
	if err != nil {
		return nil, err
	}

	return r.openEntryByInfo(info), nil
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(info), nil
}

// ReadEntry reads full content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info, err := r.Find(name)
	if err != nil {
		return nil, err
	}

	return r.readEntryInfo(info)
}

// ReadEntryInfo reads exactly info.Size bytes at info.Offset of the data region.
func (r *Reader) ReadEntryInfo(info EntryInfo) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.readEntryInfo(info)
}

// readEntryInfo reads one payload with a single positioned read.
func (r *Reader) readEntryInfo(info EntryInfo) ([]byte, error) {
	buf := make([]byte, info.Size)
	if err := readFullAt(r.ra, buf, r.dataStart+int64(info.Offset)); err != nil {
		return nil, fmt.Errorf("read entry %s: %w", info.Name, err)
	}

	return buf, nil
}

// Digest returns the canonical (sha256) content digest of the named entry.
func (r *Reader) Digest(name string) (digest.Digest, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	d, err := digest.FromReader(rc)
	if err != nil {
		return "", fmt.Errorf("digest entry %s: %w", name, err)
	}

	return d, nil
}

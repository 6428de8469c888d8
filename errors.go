// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import "errors"

// Sentinel errors for BSA operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the file does not start with the Morrowind BSA version tag.
	ErrInvalidHeader = errors.New("invalid BSA file: bad version tag")
	// ErrTruncated means the source is shorter than a declared table or payload extent.
	ErrTruncated = errors.New("BSA archive is truncated")
	// ErrCorrupt means offsets, sizes, names, or hashes are inconsistent within a well-formed header.
	ErrCorrupt = errors.New("BSA archive is corrupt")
	// ErrHashMismatch means a stored name hash disagrees with the hash recomputed from the name.
	// It is always reported together with ErrCorrupt.
	ErrHashMismatch = errors.New("name hash mismatch")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidName means an input name is empty, too long, or contains unsupported bytes.
	ErrInvalidName = errors.New("invalid entry name")
	// ErrNameTooLong means the entry name exceeds the maximum length.
	// It is always reported together with ErrInvalidName.
	ErrNameTooLong = errors.New("entry name exceeds maximum length")
	// ErrDuplicateName means two inputs resolve to the same name (case-insensitive).
	// It is always reported together with ErrInvalidName.
	ErrDuplicateName = errors.New("duplicate entry name")
	// ErrEmptyInputs means no inputs provided for pack.
	ErrEmptyInputs = errors.New("no inputs provided for pack")
	// ErrSizeOverflow means the size exceeds the uint32 or 4 GiB BSA limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 or 4 GiB BSA limit")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrInvalidExtractPath means archive entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidFilterPattern means one or more entry filter rules are invalid.
	ErrInvalidFilterPattern = errors.New("invalid filter rules")
)

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/woozymasta/bsa"
)

// progress prints extract-all progress as entries complete.
// done may be called from several workers at once.
type progress struct {
	out   io.Writer
	total int

	// mu guards counters and line redraws.
	mu      sync.Mutex
	entries int
	bytes   uint64
}

// newProgress returns a tracker for total entries writing to out.
func newProgress(out io.Writer, total int) *progress {
	return &progress{out: out, total: total}
}

// done records one extracted entry and redraws the progress line.
func (p *progress) done(_ bsa.EntryInfo, written int64, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries++
	if written > 0 {
		p.bytes += uint64(written)
	}

	_, _ = fmt.Fprintf(p.out, "\rextracted %d/%d entries, %s", p.entries, p.total, formatSize(p.bytes))
}

// finish terminates the progress line.
func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entries > 0 {
		_, _ = fmt.Fprintln(p.out)
	}
}

// formatSize returns a human-readable size string.
func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

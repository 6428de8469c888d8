// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"fmt"
	"iter"
)

// Index is an ordered, immutable set of entries with hash-based lookup.
// Entry order is the on-disk directory order.
type Index struct {
	entries []EntryInfo
	// lookup maps recomputed name hash to directory positions sharing it.
	lookup map[uint64][]int
}

// newIndex takes ownership of entries and builds the hash lookup.
func newIndex(entries []EntryInfo) *Index {
	lookup := make(map[uint64][]int, len(entries))
	for i := range entries {
		h := HashName(entries[i].Name)
		lookup[h] = append(lookup[h], i)
	}

	return &Index{entries: entries, lookup: lookup}
}

// Len returns number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}

	return len(x.entries)
}

// Entries returns a copy of entries in directory order.
func (x *Index) Entries() []EntryInfo {
	if x == nil {
		return nil
	}

	entries := make([]EntryInfo, len(x.entries))
	copy(entries, x.entries)
	return entries
}

// All returns a restartable iterator over entries in directory order.
func (x *Index) All() iter.Seq[EntryInfo] {
	return func(yield func(EntryInfo) bool) {
		if x == nil {
			return
		}

		for i := range x.entries {
			if !yield(x.entries[i]) {
				return
			}
		}
	}
}

// Find resolves an entry by name, ignoring letter case and separator style.
// Hash collisions are resolved by comparing canonical names.
func (x *Index) Find(name string) (EntryInfo, error) {
	if x != nil {
		key := NormalizeName(name)
		for _, i := range x.lookup[HashName(key)] {
			if NormalizeName(x.entries[i].Name) == key {
				return x.entries[i], nil
			}
		}
	}

	return EntryInfo{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// Exists reports whether an entry with name exists.
func (x *Index) Exists(name string) bool {
	_, err := x.Find(name)
	return err == nil
}

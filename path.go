// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeName returns the canonical lookup key for an entry name:
// ASCII lower-case with "/" converted to "\". Stored names are not rewritten;
// the key is used only for hashing and comparison.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '/':
			c = '\\'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}

		b.WriteByte(c)
	}

	return b.String()
}

// ArchiveName converts a relative filesystem path into the stored entry name form:
// cleaned, lower-case, with "\" separators and no leading "./" or "/".
func ArchiveName(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.ReplaceAll(strings.ToLower(raw), "/", `\`)
}

// normalizePathForMatching converts entry names to slash-separated form for matcher use.
func normalizePathForMatching(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, `\`, `/`)
	name = strings.TrimPrefix(name, "./")
	return name
}

// validateEntryName checks that name can be stored in a BSA name block.
func validateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %w: %d > %d bytes", ErrInvalidName, ErrNameTooLong, len(name), MaxNameLen)
	}

	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] >= 0x7f {
			return fmt.Errorf("%w: %q has unsupported byte 0x%02x at %d", ErrInvalidName, name, name[i], i)
		}
	}

	return nil
}

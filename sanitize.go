// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"path"
	"strconv"
	"strings"
)

// SanitizeName rewrites one entry name to a deterministic filesystem-safe
// slash-separated relative path. Traversal segments never survive.
func SanitizeName(name string) (string, error) {
	parts := strings.Split(strings.ReplaceAll(name, `\`, `/`), "/")
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		sanitized = append(sanitized, sanitizePathSegment(part))
	}
	if len(sanitized) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(sanitized, "/"), nil
}

// sanitizeEntryNames maps entries to unique sanitized relative paths, in entry order.
func sanitizeEntryNames(entries []EntryInfo) ([]string, error) {
	out := make([]string, len(entries))
	used := make(map[string]struct{}, len(entries))
	nextSuffix := make(map[string]int, len(entries))

	for i := range entries {
		sanitized, err := SanitizeName(entries[i].Name)
		if err != nil {
			return nil, err
		}

		out[i], err = makeSanitizedPathUnique(sanitized, used, nextSuffix)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// sanitizePathSegment sanitizes one path segment for broad filesystem compatibility.
func sanitizePathSegment(segment string) string {
	if segment == ".." {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(segment))
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte(`<>:"|?*`, c) >= 0 {
			b.WriteByte('_')
			continue
		}

		b.WriteByte(c)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		return "_"
	}

	if isReservedDeviceName(sanitized) {
		sanitized = "_" + sanitized
	}

	return sanitized
}

// isReservedDeviceName reports whether name base matches a reserved DOS/Windows device name.
func isReservedDeviceName(name string) bool {
	base := strings.ToLower(name)
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	switch base {
	case "con", "prn", "aux", "nul", "clock$":
		return true
	}

	if len(base) == 4 && (strings.HasPrefix(base, "com") || strings.HasPrefix(base, "lpt")) {
		return base[3] >= '1' && base[3] <= '9'
	}

	return false
}

// makeSanitizedPathUnique resolves collisions by adding deterministic numeric suffix.
func makeSanitizedPathUnique(pathValue string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	key := strings.ToLower(pathValue)
	if _, exists := used[key]; !exists {
		used[key] = struct{}{}
		return pathValue, nil
	}

	dir := path.Dir(pathValue)
	name := path.Base(pathValue)
	startIdx := 2
	if savedIdx, exists := nextSuffix[key]; exists && savedIdx > startIdx {
		startIdx = savedIdx
	}

	for idx := startIdx; idx < 1000000; idx++ {
		ext := path.Ext(name)
		candidate := strings.TrimSuffix(name, ext) + "~" + strconv.Itoa(idx) + ext
		if dir != "." {
			candidate = dir + "/" + candidate
		}

		candidateKey := strings.ToLower(candidate)
		if _, exists := used[candidateKey]; exists {
			continue
		}

		used[candidateKey] = struct{}{}
		nextSuffix[key] = idx + 1
		return candidate, nil
	}

	return "", ErrInvalidExtractPath
}

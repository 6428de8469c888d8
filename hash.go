// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import "math/bits"

// HashName returns the Morrowind BSA name hash of name.
// The name is canonicalized with NormalizeName first, so names that differ
// only in letter case or path separator style hash identically.
//
// The low word XORs the first half of the bytes, each shifted by a running
// 8-bit step. The high word XORs the second half with the same shifting and
// rotates the accumulator right by the low five bits of each shifted byte.
//
// Tools that hash the NUL-terminated name, or run the high word over the whole
// name, produce different values. Readers report those as stale hashes.
func HashName(name string) uint64 {
	key := NormalizeName(name)
	half := len(key) >> 1

	var low, off uint32
	for i := 0; i < half; i++ {
		low ^= uint32(key[i]) << (off & 0x1f)
		off += 8
	}

	var high uint32
	off = 0
	for i := half; i < len(key); i++ {
		temp := uint32(key[i]) << (off & 0x1f)
		high ^= temp
		high = bits.RotateLeft32(high, -int(temp&0x1f))
		off += 8
	}

	return uint64(low) | uint64(high)<<32
}

// hashLow returns the low 32-bit word of a stored hash.
func hashLow(h uint64) uint32 {
	return uint32(h) //nolint:gosec // intentional truncation to low word
}

// hashHigh returns the high 32-bit word of a stored hash.
func hashHigh(h uint64) uint32 {
	return uint32(h >> 32)
}

// hashLess orders hashes the way vanilla archives sort their directory: low word first.
func hashLess(a, b uint64) bool {
	if hashLow(a) != hashLow(b) {
		return hashLow(a) < hashLow(b)
	}

	return hashHigh(a) < hashHigh(b)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"errors"
	"testing"
)

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.txt", want: "_CON.txt"},
		{in: "COM8.c", want: "_COM8.c"},
		{in: "a:b?.txt", want: "a_b_.txt"},
		{in: "name. ", want: "name"},
		{in: "AUX:", want: "AUX_"},
		{in: "CLOCK$.cfg", want: "_CLOCK$.cfg"},
		{in: "..", want: "_"},
		{in: "...", want: "_"},
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "a\x7fb.txt", want: "a_b.txt"},
		{in: `a<b>c"d|e*f`, want: "a_b_c_d_e_f"},
	}

	for _, tc := range testCases {
		got := sanitizePathSegment(tc.in)
		if got != tc.want {
			t.Fatalf("sanitizePathSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "COM1", want: true},
		{name: "lpt9.log", want: true},
		{name: "CLOCK$", want: true},
		{name: "com0", want: false},
		{name: "console", want: false},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
	}

	for _, tc := range testCases {
		got := isReservedDeviceName(tc.name)
		if got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "backslashes", in: `meshes\a\boots.nif`, want: "meshes/a/boots.nif"},
		{name: "traversal", in: `..\..\evil.txt`, want: "_/_/evil.txt"},
		{name: "rooted", in: `\abs\x.dds`, want: "abs/x.dds"},
		{name: "drive", in: `C:\x.txt`, want: "C_/x.txt"},
		{name: "dot segments", in: `a\.\b\\c.txt`, want: "a/b/c.txt"},
		{name: "reserved", in: `sound\nul.wav`, want: "sound/_nul.wav"},
		{name: "trailing dot", in: `dir\name. `, want: "dir/name"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := SanitizeName(tc.in)
			if err != nil {
				t.Fatalf("SanitizeName(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("SanitizeName(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}

	for _, in := range []string{"", `.\.`, "/"} {
		if _, err := SanitizeName(in); !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("SanitizeName(%q): expected ErrInvalidExtractPath, got %v", in, err)
		}
	}
}

func TestSanitizeEntryNamesCollision(t *testing.T) {
	t.Parallel()

	entries := []EntryInfo{
		{Name: "a:b.txt"},
		{Name: "a?b.txt"},
		{Name: "a_b.txt"},
		{Name: `dir\A.txt`},
		{Name: "dir/a.txt"},
	}

	got, err := sanitizeEntryNames(entries)
	if err != nil {
		t.Fatalf("sanitizeEntryNames: %v", err)
	}

	want := []string{"a_b.txt", "a_b~2.txt", "a_b~3.txt", "dir/A.txt", "dir/a~2.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%q, want %q", i, got[i], want[i])
		}
	}
}

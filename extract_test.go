// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func createExtractArchive(t *testing.T, inputs []Input) *Reader {
	t.Helper()

	data, err := Build(inputs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r, err := Open(writeArchiveFile(t, data))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func extractTestInputs() []Input {
	return []Input{
		{Name: `meshes\a\boots.nif`, Data: []byte("boots")},
		{Name: `textures\tx_a.dds`, Data: []byte("dds texture")},
		{Name: "readme.txt", Data: []byte("hello")},
		{Name: "empty.txt", Data: nil},
	}
}

func TestExtractRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := extractTestInputs()
	r := createExtractArchive(t, inputs)
	outDir := t.TempDir()

	var (
		mu   sync.Mutex
		done = make(map[string]int64)
	)
	err := r.Extract(context.Background(), outDir, ExtractOptions{
		MaxWorkers: 2,
		OnEntryDone: func(entry EntryInfo, written int64, _ string) {
			mu.Lock()
			defer mu.Unlock()
			done[entry.Name] = written
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(done) != len(inputs) {
		t.Fatalf("OnEntryDone called for %d entries, want %d", len(done), len(inputs))
	}

	for _, in := range inputs {
		rel, err := SanitizeName(in.Name)
		if err != nil {
			t.Fatalf("SanitizeName(%q): %v", in.Name, err)
		}

		got, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read extracted %s: %v", rel, err)
		}
		if !bytes.Equal(got, in.Data) {
			t.Fatalf("extracted %s=%q, want %q", rel, got, in.Data)
		}
		if done[in.Name] != int64(len(in.Data)) {
			t.Fatalf("written %s=%d, want %d", in.Name, done[in.Name], len(in.Data))
		}
	}
}

func TestExtract_Filter(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, extractTestInputs())
	outDir := t.TempDir()

	err := r.Extract(context.Background(), outDir, ExtractOptions{
		Filter: includeRules("*.dds"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "textures", "tx_a.dds")); err != nil {
		t.Fatalf("filtered entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "readme.txt")); !os.IsNotExist(err) {
		t.Fatalf("readme.txt must not be extracted, stat err=%v", err)
	}
}

func TestExtract_SelectedEntries(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, extractTestInputs())
	info, err := r.Find("readme.txt")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	outDir := t.TempDir()
	if err := r.Extract(context.Background(), outDir, ExtractOptions{Entries: []EntryInfo{info}}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	items, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(items) != 1 || items[0].Name() != "readme.txt" {
		t.Fatalf("extracted %v, want only readme.txt", items)
	}
}

func TestExtract_SanitizesUnsafeEntryNames(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, []Input{
		{Name: `..\..\evil.txt`, Data: []byte("evil")},
		{Name: `\rooted.txt`, Data: []byte("rooted")},
	})

	root := t.TempDir()
	outDir := filepath.Join(root, "out")
	if err := r.Extract(context.Background(), outDir, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "_", "_", "evil.txt"))
	if err != nil {
		t.Fatalf("read sanitized entry: %v", err)
	}
	if string(got) != "evil" {
		t.Fatalf("payload=%q, want evil", got)
	}
	if _, err := os.Stat(filepath.Join(root, "evil.txt")); !os.IsNotExist(err) {
		t.Fatalf("entry escaped output dir, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "rooted.txt")); err != nil {
		t.Fatalf("rooted entry missing: %v", err)
	}
}

func TestExtract_RawNamesRejectsTraversal(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, []Input{
		{Name: `..\evil.txt`, Data: []byte("evil")},
	})

	err := r.Extract(context.Background(), t.TempDir(), ExtractOptions{RawNames: true})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}
}

func TestExtract_FileModes(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, []Input{{Name: "readme.txt", Data: []byte("new")}})
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "readme.txt")
	if err := os.WriteFile(outPath, []byte("old content"), 0o600); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	err := r.Extract(context.Background(), outDir, ExtractOptions{FileMode: ExtractFileModeCreateOnly})
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("create_only: expected os.ErrExist, got %v", err)
	}

	if err := r.Extract(context.Background(), outDir, ExtractOptions{}); err != nil {
		t.Fatalf("Extract default mode: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("payload=%q, want new", got)
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, extractTestInputs())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Extract(ctx, t.TempDir(), ExtractOptions{MaxWorkers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractEntry(t *testing.T) {
	t.Parallel()

	r := createExtractArchive(t, extractTestInputs())
	outPath := filepath.Join(t.TempDir(), "nested", "dir", "boots.nif")

	written, err := r.ExtractEntry("MESHES/A/BOOTS.NIF", outPath)
	if err != nil {
		t.Fatalf("ExtractEntry: %v", err)
	}
	if written != 5 {
		t.Fatalf("written=%d, want 5", written)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "boots" {
		t.Fatalf("payload=%q, want boots", got)
	}

	if _, err := r.ExtractEntry("missing.nif", outPath); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	got, err := normalizeExtractEntryPath(`meshes\.\a\boots.nif`)
	if err != nil {
		t.Fatalf("normalizeExtractEntryPath: %v", err)
	}
	if got != "meshes/a/boots.nif" {
		t.Fatalf("got=%q, want meshes/a/boots.nif", got)
	}

	for _, in := range []string{"", `\abs`, "/abs", `C:\x`, `a\..\b`, "a\x00b"} {
		if _, err := normalizeExtractEntryPath(in); !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("normalizeExtractEntryPath(%q): expected ErrInvalidExtractPath, got %v", in, err)
		}
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/bsa"
)

// runTool runs the command with captured output.
func runTool(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// createSourceTree writes a small input tree and returns its root.
func createSourceTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"meshes/Boots.NIF": "boots",
		"readme.txt":       "hello",
		"textures/a.dds":   "dds",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

// createArchive packs a source tree with the create command.
func createArchive(t *testing.T, extra ...string) string {
	t.Helper()

	src := createSourceTree(t)
	archive := filepath.Join(t.TempDir(), "test.bsa")

	args := append([]string{"create", "-C", src}, extra...)
	args = append(args, archive, ".")
	code, _, stderr := runTool(t, args...)
	require.Equal(t, exitOK, code, stderr)

	return archive
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)

	code, stdout, stderr := runTool(t, "list", archive)
	require.Equal(t, exitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `meshes\boots.nif`, strings.TrimSpace(lines[0]))
	assert.Equal(t, "readme.txt", strings.TrimSpace(lines[1]))
	assert.Equal(t, `textures\a.dds`, strings.TrimSpace(lines[2]))

	r, err := bsa.Open(archive)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := r.ReadEntry("MESHES/BOOTS.NIF")
	require.NoError(t, err)
	assert.Equal(t, "boots", string(data))
}

func TestListLong(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)

	code, stdout, stderr := runTool(t, "list", "-l", "-digest", "-include", "*.txt", archive)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, fmt.Sprintf("%016x", bsa.HashName("readme.txt")))
	assert.Contains(t, stdout, "sha256:")
	assert.Contains(t, stdout, "readme.txt")
	assert.NotContains(t, stdout, "boots.nif")
}

func TestCreateSortByHash(t *testing.T) {
	t.Parallel()

	archive := createArchive(t, "-sort-hash")

	entries, err := bsa.ListEntries(archive)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i := 1; i < len(entries); i++ {
		prevLow, curLow := uint32(entries[i-1].Hash), uint32(entries[i].Hash)
		assert.LessOrEqual(t, prevLow, curLow, "entries %d and %d out of hash order", i-1, i)
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)
	outDir := t.TempDir()

	code, _, stderr := runTool(t, "extract", archive, "MESHES/BOOTS.NIF", outDir)
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(filepath.Join(outDir, "boots.nif"))
	require.NoError(t, err)
	assert.Equal(t, "boots", string(data))
	assert.NoDirExists(t, filepath.Join(outDir, "meshes"))
}

func TestExtractFullPath(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)
	outDir := t.TempDir()

	code, _, stderr := runTool(t, "extract", "-f", archive, `meshes\boots.nif`, outDir)
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(filepath.Join(outDir, "meshes", "boots.nif"))
	require.NoError(t, err)
	assert.Equal(t, "boots", string(data))
}

func TestExtractNotFound(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)

	code, _, stderr := runTool(t, "extract", archive, "missing.nif", t.TempDir())
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "not found")
}

func TestExtractAllWithFilter(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)
	outDir := t.TempDir()

	code, _, stderr := runTool(t, "extract-all", "-workers", "2", "-exclude", "*.txt", archive, outDir)
	require.Equal(t, exitOK, code, stderr)

	assert.FileExists(t, filepath.Join(outDir, "meshes", "boots.nif"))
	assert.FileExists(t, filepath.Join(outDir, "textures", "a.dds"))
	assert.NoFileExists(t, filepath.Join(outDir, "readme.txt"))
}

func TestExtractAllProgress(t *testing.T) {
	t.Parallel()

	archive := createArchive(t)

	code, _, stderr := runTool(t, "extract-all", archive, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "extracted 3/3 entries, 13 B")

	code, _, stderr = runTool(t, "extract-all", "-q", archive, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.NotContains(t, stderr, "extracted")
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "13 B", formatSize(13))
	assert.Equal(t, "1.5 KiB", formatSize(1536))
	assert.Equal(t, "2.0 MiB", formatSize(2*1024*1024))
}

func TestInvalidArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.bsa")
	require.NoError(t, os.WriteFile(path, []byte("this is not an archive"), 0o600))

	code, _, stderr := runTool(t, "list", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "format error")

	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01}, 0o600))
	code, _, stderr = runTool(t, "list", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "truncated archive")
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{name: "no command", args: nil, want: exitUsage},
		{name: "unknown command", args: []string{"frobnicate"}, want: exitUsage},
		{name: "list without archive", args: []string{"list"}, want: exitUsage},
		{name: "extract missing name", args: []string{"extract", "a.bsa"}, want: exitUsage},
		{name: "create without files", args: []string{"create", "a.bsa"}, want: exitUsage},
		{name: "unknown flag", args: []string{"list", "-nope", "a.bsa"}, want: exitUsage},
		{name: "help", args: []string{"help"}, want: exitOK},
		{name: "command help", args: []string{"list", "-h"}, want: exitOK},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, _, _ := runTool(t, tc.args...)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestCreateRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("1"), 0o600))
	archive := filepath.Join(t.TempDir(), "dup.bsa")

	code, _, stderr := runTool(t, "create", "-C", src, archive, "a.txt", "a.txt")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "invalid name")
}

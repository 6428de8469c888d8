// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"fmt"
	"io"
	"os"
)

// InputFromFile returns an input that streams fsPath into entry name.
// The file is opened lazily during pack.
func InputFromFile(fsPath string, name string) (Input, error) {
	fi, err := os.Stat(fsPath)
	if err != nil {
		return Input{}, fmt.Errorf("stat input %s: %w", fsPath, err)
	}

	if !fi.Mode().IsRegular() {
		return Input{}, fmt.Errorf("input %s: not a regular file", fsPath)
	}

	if fi.Size() >= maxBSAData {
		return Input{}, fmt.Errorf("%w: input %s is %d bytes", ErrSizeOverflow, fsPath, fi.Size())
	}

	return Input{
		Name:     name,
		SizeHint: fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(fsPath)
		},
	}, nil
}

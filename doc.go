// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

/*
Package bsa provides read, list, extract, and create operations for
Morrowind BSA archives (version tag 0x00000100).

Archive layout (all integers little-endian):
  - header: version tag, hash table offset (relative to header end), file count;
  - directory: size and data-relative offset per entry;
  - name offsets into the name block, then NUL-terminated names;
  - hash table: low and high 32-bit name hash words per entry;
  - data region: payloads in directory order, stored verbatim.

Names are looked up case-insensitively, and "/" is treated as "\".
The name hash is computed over that canonical form, see HashName.

# Reading

Open an archive and list or read entries:

	r, err := bsa.Open("Morrowind.bsa")
	if err != nil {
	    return err
	}
	defer r.Close()
	for e := range r.All() {
	    data, _ := r.ReadEntryInfo(e)
	    // use data
	}

	data, err := r.ReadEntry(`meshes\a\a_bonemold_boots_gnd.nif`)

Archives with stale hashes open in the default lenient mode and are reported
by HashMismatches. Use strict validation to reject them:

	r, err := bsa.OpenWithOptions("mod.bsa", bsa.ReaderOptions{
	    Validation: bsa.ValidationStrict,
	})

# Extracting

Extract all entries to a directory (parallel workers):

	if err := r.Extract(ctx, "out/", bsa.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

Select entries with github.com/woozymasta/pathrules rules:

	err := r.Extract(ctx, "out/", bsa.ExtractOptions{
	    Filter: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "textures/**"},
	    },
	})

# Creating

Build an archive in memory (caller order is the directory order):

	data, err := bsa.Build([]bsa.Input{
	    {Name: `meshes\x.nif`, Data: nif},
	    {Name: `textures\x.dds`, Data: dds},
	})

Or stream file inputs into a file:

	in, err := bsa.InputFromFile("src/x.nif", bsa.ArchiveName("meshes/x.nif"))
	if err != nil {
	    return err
	}
	res, err := bsa.PackFile(ctx, "mod.bsa", []bsa.Input{in}, bsa.PackOptions{SortByHash: true})
*/
package bsa

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"text/tabwriter"

	"github.com/woozymasta/bsa"
)

// newFlagSet returns a command flag set writing errors to stderr.
func newFlagSet(cfg *config, name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(cfg.stderr)
	return flags
}

// parseCommand parses flags and checks positional argument count.
func parseCommand(flags *flag.FlagSet, args []string, minArgs int, maxArgs int) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s: %w", errUsage, flags.Name(), err)
	}

	rest := flags.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		return nil, fmt.Errorf("%w: %s: unexpected number of arguments", errUsage, flags.Name())
	}

	return rest, nil
}

// runList prints archive entries in directory order.
func runList(cfg *config, args []string) error {
	flags := newFlagSet(cfg, "list")
	long := flags.Bool("l", false, "print size, offset, and hash columns")
	withDigest := flags.Bool("digest", false, "print sha256 digest of each entry")
	var rules ruleList
	rules.register(flags)

	rest, err := parseCommand(flags, args, 1, 1)
	if err != nil {
		return err
	}

	r, err := bsa.OpenWithOptions(rest[0], cfg.readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	entries, err := bsa.FilterEntries(r.Entries(), rules.rules, rules.matcherOptions())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cfg.stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		if *long {
			_, _ = fmt.Fprintf(tw, "%d\t%d\t%016x\t", entry.Size, entry.Offset, entry.Hash)
		}

		if *withDigest {
			d, err := r.Digest(entry.Name)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(tw, "%s\t", d)
		}

		_, _ = fmt.Fprintf(tw, "%s\t\n", entry.Name)
	}

	return tw.Flush()
}

// runExtract writes one entry to outdir under its base name,
// or under its full relative path with -f.
func runExtract(cfg *config, args []string) error {
	flags := newFlagSet(cfg, "extract")
	fullPath := flags.Bool("f", false, "create the entry directory hierarchy under outdir")
	rest, err := parseCommand(flags, args, 2, 3)
	if err != nil {
		return err
	}

	outDir := "."
	if len(rest) == 3 {
		outDir = rest[2]
	}

	r, err := bsa.OpenWithOptions(rest[0], cfg.readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	entry, err := r.Find(rest[1])
	if err != nil {
		return err
	}

	relPath, err := bsa.SanitizeName(entry.Name)
	if err != nil {
		return fmt.Errorf("entry %s: %w", entry.Name, err)
	}

	if !*fullPath {
		relPath = path.Base(relPath)
	}

	outPath := filepath.Join(outDir, filepath.FromSlash(relPath))
	written, err := r.ExtractEntry(entry.Name, outPath)
	if err != nil {
		return err
	}

	cfg.logger.Info("extracted", slog.String("entry", entry.Name), slog.String("path", outPath), slog.Int64("size", written))
	return nil
}

// runExtractAll writes every selected entry to outdir using parallel workers.
func runExtractAll(ctx context.Context, cfg *config, args []string) error {
	flags := newFlagSet(cfg, "extract-all")
	workers := flags.Int("workers", 0, "number of extraction workers (0 = GOMAXPROCS)")
	raw := flags.Bool("raw", false, "keep raw entry names instead of sanitizing them")
	quiet := flags.Bool("q", false, "do not print progress")
	var rules ruleList
	rules.register(flags)

	rest, err := parseCommand(flags, args, 1, 2)
	if err != nil {
		return err
	}

	outDir := "."
	if len(rest) == 2 {
		outDir = rest[1]
	}

	r, err := bsa.OpenWithOptions(rest[0], cfg.readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	opts := bsa.ExtractOptions{
		Logger:               cfg.logger,
		Filter:               rules.rules,
		FilterMatcherOptions: rules.matcherOptions(),
		MaxWorkers:           *workers,
		RawNames:             *raw,
	}

	if !*quiet {
		selected, err := bsa.FilterEntries(r.Entries(), opts.Filter, opts.FilterMatcherOptions)
		if err != nil {
			return err
		}

		pb := newProgress(cfg.stderr, len(selected))
		defer pb.finish()

		opts.Entries = selected
		opts.OnEntryDone = pb.done
	}

	return r.Extract(ctx, outDir, opts)
}

// runCreate packs files and directories into a new archive.
func runCreate(ctx context.Context, cfg *config, args []string) error {
	flags := newFlagSet(cfg, "create")
	baseDir := flags.String("C", ".", "resolve inputs and entry names relative to `dir`")
	sortByHash := flags.Bool("sort-hash", false, "order directory by name hash like vanilla archives")

	rest, err := parseCommand(flags, args, 2, -1)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(*baseDir, rest[1:])
	if err != nil {
		return err
	}

	res, err := bsa.PackFile(ctx, rest[0], inputs, bsa.PackOptions{
		Logger:     cfg.logger,
		SortByHash: *sortByHash,
	})
	if err != nil {
		return err
	}

	cfg.logger.Info("created",
		slog.String("archive", rest[0]),
		slog.Int("entries", res.WrittenEntries),
		slog.Int64("data_size", res.DataSize),
		slog.Duration("duration", res.Duration),
	)

	return nil
}

// collectInputs turns file and directory arguments into pack inputs in walk order.
// Entry names are paths relative to baseDir in archive form.
func collectInputs(baseDir string, paths []string) ([]bsa.Input, error) {
	var inputs []bsa.Input
	add := func(rel string) error {
		in, err := bsa.InputFromFile(filepath.Join(baseDir, rel), bsa.ArchiveName(filepath.ToSlash(rel)))
		if err != nil {
			return err
		}

		inputs = append(inputs, in)
		return nil
	}

	for _, p := range paths {
		root := filepath.Join(baseDir, p)
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}

		if !info.IsDir() {
			rel, err := filepath.Rel(baseDir, root)
			if err != nil {
				return nil, fmt.Errorf("resolve input %s: %w", p, err)
			}

			if err := add(rel); err != nil {
				return nil, err
			}

			continue
		}

		err = filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(baseDir, walkPath)
			if err != nil {
				return err
			}

			return add(rel)
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}

	return inputs, nil
}

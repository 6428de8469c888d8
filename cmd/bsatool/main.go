// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

// Command bsatool lists, extracts, and creates Morrowind BSA archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/woozymasta/bsa"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks command line errors.
var errUsage = errors.New("usage error")

// config holds global flags shared by all commands.
type config struct {
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	verbose bool
	strict  bool
}

// readerOptions returns reader options for global flags.
func (c *config) readerOptions() bsa.ReaderOptions {
	opts := bsa.ReaderOptions{Logger: c.logger}
	if c.strict {
		opts.Validation = bsa.ValidationStrict
	}

	return opts
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, dispatches one command, and returns process exit code.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	cfg := &config{stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("bsatool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&cfg.strict, "strict", false, "reject archives with stale name hashes or overlapping payloads")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	cfg.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	var err error
	switch rest[0] {
	case "list":
		err = runList(cfg, rest[1:])
	case "extract":
		err = runExtract(cfg, rest[1:])
	case "extract-all":
		err = runExtractAll(ctx, cfg, rest[1:])
	case "create":
		err = runCreate(ctx, cfg, rest[1:])
	case "help":
		printUsage(stdout)
		return exitOK
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}

	if err == nil {
		return exitOK
	}

	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}

	_, _ = fmt.Fprintf(stderr, "bsatool: %s: %v\n", errorKind(err), err)
	if errors.Is(err, errUsage) {
		return exitUsage
	}

	return exitError
}

// errorKind returns a short error category for console output.
func errorKind(err error) string {
	switch {
	case errors.Is(err, errUsage):
		return "usage"
	case errors.Is(err, bsa.ErrInvalidHeader):
		return "format error"
	case errors.Is(err, bsa.ErrTruncated):
		return "truncated archive"
	case errors.Is(err, bsa.ErrCorrupt):
		return "corrupt archive"
	case errors.Is(err, bsa.ErrEntryNotFound):
		return "not found"
	case errors.Is(err, bsa.ErrInvalidName):
		return "invalid name"
	default:
		return "io error"
	}
}

// printUsage writes command overview.
func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: bsatool [-v] [-strict] <command> [flags] <archive> [args]

Commands:
  list [-l] [-digest] [-include P]... [-exclude P]... <archive>
  extract [-f] <archive> <name> [outdir]
  extract-all [-workers N] [-raw] [-q] [-include P]... [-exclude P]... <archive> [outdir]
  create [-C dir] [-sort-hash] <archive> <files or dirs...>
`)
}

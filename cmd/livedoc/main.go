// Package main is the entry point for the livedoc command.
//
// livedoc loads a document given as a model string, runs a Lua editing
// script against it and prints the resulting model string. With -watch it
// reruns whenever the script, document, schema or configuration changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !opts.Watch {
		if err := runOnce(ctx, opts, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := watch(ctx, opts, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() Options {
	var opts Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (TOML, YAML or JSON)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.SchemaPath, "schema", "", "Schema file applied on top of the default schema")
	flag.StringVar(&opts.DocumentPath, "document", "", "File holding the initial document as a model string")
	flag.StringVar(&opts.DocumentPath, "d", "", "Initial document file (shorthand)")
	flag.StringVar(&opts.ScriptPath, "script", "", "Lua script to run against the document")
	flag.StringVar(&opts.ScriptPath, "s", "", "Lua script (shorthand)")
	flag.BoolVar(&opts.Watch, "watch", false, "Rerun whenever an input file changes")
	flag.BoolVar(&opts.Watch, "w", false, "Rerun on change (shorthand)")
	flag.DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "Quiet period before a rerun in watch mode")
	flag.BoolVar(&opts.NoSelection, "no-selection", false, "Print the document without selection markers")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "livedoc - scriptable rich-text document model\n\n")
		fmt.Fprintf(os.Stderr, "Usage: livedoc [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  livedoc -d doc.txt -s bold.lua           Run a script once\n")
		fmt.Fprintf(os.Stderr, "  livedoc -d doc.txt -s bold.lua -w        Rerun on every save\n")
		fmt.Fprintf(os.Stderr, "  livedoc -c livedoc.toml -s bold.lua      Use a configuration file\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("livedoc %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %v\n", flag.Args())
		flag.Usage()
		os.Exit(2)
	}

	return opts
}

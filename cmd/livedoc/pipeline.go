package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dshills/livedoc/internal/config"
	"github.com/dshills/livedoc/internal/engine/content"
	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
	"github.com/dshills/livedoc/internal/script"
	"github.com/dshills/livedoc/internal/watcher"
)

// Options holds the command line settings.
type Options struct {
	ConfigPath   string
	SchemaPath   string
	DocumentPath string
	ScriptPath   string
	Watch        bool
	Debounce     time.Duration
	NoSelection  bool
}

// loadConfig reads the configuration file and the LIVEDOC_ environment.
func loadConfig(ctx context.Context, opts Options) (*config.Config, error) {
	cfg := config.New(config.WithFile(opts.ConfigPath))
	if err := cfg.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// schemaPath prefers the -schema flag over the configured schema file.
func schemaPath(opts Options, cfg *config.Config) string {
	if opts.SchemaPath != "" {
		return opts.SchemaPath
	}
	return cfg.Schema().Path
}

// runOnce builds a model from the inputs, runs the script and writes the
// resulting document to out. Script output from print goes to out as well.
func runOnce(ctx context.Context, opts Options, out io.Writer) error {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log(), os.Stderr)

	sch := schema.NewDefault()
	if path := schemaPath(opts, cfg); path != "" {
		if err := sch.LoadFile(path); err != nil {
			return err
		}
	}

	editing := cfg.Editing()
	m := model.New(sch, model.WithLogger(logger), model.WithHistorySize(editing.HistorySize))

	if opts.DocumentPath != "" {
		data, err := os.ReadFile(opts.DocumentPath)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		if err := devutil.SetData(m, strings.TrimSpace(string(data))); err != nil {
			return fmt.Errorf("document %s: %w", opts.DocumentPath, err)
		}
	}

	if opts.ScriptPath != "" {
		sc := cfg.Script()
		st := script.New(m,
			script.WithLogger(logger),
			script.WithOutput(out),
			script.WithTimeout(sc.Timeout),
			script.WithCallLimit(sc.CallLimit),
			script.WithEditing(content.Unit(editing.DefaultUnit), editing.WordBoundaries),
		)
		defer st.Close()

		start := time.Now()
		if err := st.RunFile(ctx, opts.ScriptPath); err != nil {
			return err
		}
		logger.Debug("script finished",
			"script", opts.ScriptPath,
			"calls", st.Calls(),
			"version", m.Document().Version(),
			"duration", time.Since(start))
	}

	var dataOpts []devutil.Option
	if opts.NoSelection {
		dataOpts = append(dataOpts, devutil.WithoutSelection())
	}
	_, err = fmt.Fprintln(out, devutil.GetData(m, dataOpts...))
	return err
}

// watchedInputs lists the input files that trigger a rerun.
func watchedInputs(opts Options, cfg *config.Config) []string {
	var paths []string
	for _, p := range []string{opts.ConfigPath, schemaPath(opts, cfg), opts.DocumentPath, opts.ScriptPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// watch runs once, then again after every burst of changes to the inputs,
// until ctx is cancelled. Failed runs are reported and do not stop watching.
func watch(ctx context.Context, opts Options, out io.Writer) error {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log(), os.Stderr)

	fw, err := watcher.NewFSNotifyWatcher(watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	d := watcher.NewDebouncer(fw, opts.Debounce)
	defer d.Close()

	for _, path := range watchedInputs(opts, cfg) {
		if err := d.Watch(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	rerun := func() {
		if err := runOnce(ctx, opts, out); err != nil {
			logger.Error("run failed", "error", err)
		}
	}
	rerun()

	return watcher.Run(ctx, d, logger, func(batch []watcher.Event) {
		for _, ev := range batch {
			logger.Info("input changed", "path", ev.Path, "op", ev.Op.String())
		}
		rerun()
	})
}

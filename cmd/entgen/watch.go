package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/syssam/entgen/compiler/gen"
	"github.com/syssam/entgen/compiler/load"
)

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) error {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Duration("debounce", 0, "quiet period after a change before regenerating")
	fset.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	cfg, err := parseCommand(fset, args, lookup)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := gen.NewMetrics(reg)
	if err != nil {
		return err
	}
	g, err := newGenerator(cfg, logger, metrics)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	for _, dir := range watchDirs(cfg.Schema) {
		if err := fw.Add(dir); err != nil {
			return err
		}
		logger.Debug("watching directory", "dir", dir)
	}

	w := newWatcher(g, cfg.Watch.Debounce, logger)
	if addr := cfg.Watch.MetricsAddr; addr != "" {
		srv := newServer(addr, newRouter(reg, w.health), logger)
		go srv.serve()
		defer srv.shutdown()
	}
	return w.loop(ctx, fw.Events, fw.Errors)
}

// watchDirs returns the directories to watch for the schema paths. A file
// path watches its parent; a directory is watched with its subdirectories.
func watchDirs(paths []string) []string {
	var dirs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			dirs = append(dirs, filepath.Dir(p))
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		})
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// isSchemaEvent reports whether ev may change the loaded schemas.
func isSchemaEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(load.Extensions, filepath.Ext(ev.Name))
}

// watcher regenerates the code after schema changes settle.
type watcher struct {
	gen      *generator
	debounce time.Duration
	logger   *slog.Logger
	health   *health
	// prev holds the entities of the last successful run, by name.
	prev map[string]*gen.Type
}

func newWatcher(g *generator, debounce time.Duration, logger *slog.Logger) *watcher {
	if debounce <= 0 {
		debounce = defaultConfig().Watch.Debounce
	}
	return &watcher{
		gen:      g,
		debounce: debounce,
		logger:   logger,
		health:   &health{},
	}
}

// loop generates once, then again after each burst of schema events. It
// returns when ctx is done or a channel closes. Generation failures are
// logged and reported on /healthz; watching goes on.
func (w *watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	w.regenerate(ctx)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if isSchemaEvent(ev) {
				w.logger.Debug("schema changed", "file", ev.Name, "op", ev.Op.String())
				timer.Reset(w.debounce)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timer.C:
			w.regenerate(ctx)
		}
	}
}

// regenerate runs the generator and removes the files of the entities that
// disappeared since the previous run.
func (w *watcher) regenerate(ctx context.Context) {
	start := time.Now()
	graph, err := w.gen.run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("generation failed", "error", err)
		}
		w.health.fail(err)
		return
	}
	next := make(map[string]*gen.Type, len(graph.Nodes))
	for _, t := range graph.Nodes {
		next[t.Name] = t
	}
	for name, t := range w.prev {
		if _, ok := next[name]; ok {
			continue
		}
		if err := gen.Clean(graph.Target, t); err != nil {
			w.logger.Warn("remove stale files", "entity", name, "error", err)
			continue
		}
		w.logger.Info("removed entity", "entity", name)
	}
	w.prev = next
	w.health.ok(len(graph.Nodes), time.Since(start))
}

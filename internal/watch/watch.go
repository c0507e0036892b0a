// Package watch reruns a conversion whenever its input rasters change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/shetran.soils/internal/monitoring"
)

// DefaultDebounce is how long to wait for more changes before rerunning.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dirs are the directories to watch (not recursively).
	Dirs []string

	// Debounce is how long to wait for more changes before rerunning.
	Debounce time.Duration

	// Ext is the file extension that triggers a rerun, ".asc" by default.
	Ext string

	// Ignore lists paths whose changes never trigger a rerun, typically the
	// conversion's own outputs.
	Ignore []string
}

// Func is called once per settled batch of changes. changed lists the
// paths seen since the previous call, sorted.
type Func func(ctx context.Context, changed []string) error

// Watcher batches raster changes and calls a Func for each batch.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	ignore  map[string]bool
	pending map[string]fsnotify.Op

	runs int
}

// New creates a watcher on cfg.Dirs.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, fmt.Errorf("no directories to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Ext == "" {
		cfg.Ext = ".asc"
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range cfg.Dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		monitoring.Debugf("watching %s", dir)
	}

	ignore := make(map[string]bool, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		ignore[clean(p)] = true
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		ignore:  ignore,
		pending: make(map[string]fsnotify.Op),
	}, nil
}

func clean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// relevant reports whether ev should schedule a rerun.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !strings.EqualFold(filepath.Ext(base), w.cfg.Ext) {
		return false
	}
	return !w.ignore[clean(ev.Name)]
}

// Run processes events until ctx is cancelled, calling fn after each
// quiet period. Errors from fn are logged and watching continues. Run
// closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			monitoring.Debugf("change: %s %s", ev.Op, ev.Name)
			w.pending[ev.Name] |= ev.Op
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			monitoring.Warnf("watcher error: %v", err)

		case <-timer.C:
			w.flush(ctx, fn)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, fn Func) {
	if len(w.pending) == 0 {
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	clear(w.pending)

	w.runs++
	monitoring.Logf("%d raster(s) changed, rerunning (run %d)", len(changed), w.runs)
	if err := fn(ctx, changed); err != nil {
		monitoring.Warnf("rerun failed: %v", err)
	}
}

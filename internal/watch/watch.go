package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/config"
)

// LintFunc runs one lint pass over the given sketch files.
type LintFunc func(ctx context.Context, paths []string)

// Watcher re-lints sketch files as they change on disk. Bursts of events
// (editors often write a file several times per save) are coalesced into a
// single pass per debounce window.
type Watcher struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	debounce time.Duration
	lint     LintFunc
}

func New(cfg *config.Config, log *zap.SugaredLogger, lint LintFunc) *Watcher {
	return &Watcher{
		cfg:      cfg,
		log:      log,
		debounce: cfg.Debounce(),
		lint:     lint,
	}
}

// Run watches root recursively until ctx is cancelled. An initial pass over
// every sketch file runs before watching starts.
func (w *Watcher) Run(ctx context.Context, root string) error {
	initial, err := w.cfg.SketchFiles(root)
	if err != nil {
		return err
	}
	if len(initial) > 0 {
		w.lint(ctx, initial)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "starting file watcher")
	}
	defer fw.Close()

	if err := w.addDirs(fw, root); err != nil {
		return err
	}
	w.log.Infow("watching for changes", "root", root, "debounce", w.debounce)

	dirty := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addDirs(fw, ev.Name); err != nil {
						w.log.Warnw("cannot watch new directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(root, ev.Name) {
				continue
			}
			dirty[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			paths := make([]string, 0, len(dirty))
			for p := range dirty {
				if _, err := os.Stat(p); err == nil {
					paths = append(paths, p)
				}
			}
			dirty = make(map[string]struct{})
			if len(paths) == 0 {
				continue
			}
			sort.Strings(paths)
			w.log.Debugw("change detected", "files", len(paths))
			w.lint(ctx, paths)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(root, path string) bool {
	if !config.IsSketchFile(path) {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return !w.cfg.Ignored(filepath.ToSlash(rel))
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
}

package knowledgesync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow coalesces the burst of filesystem events a single
// snapshot write produces into one import.
const debounceWindow = 500 * time.Millisecond

// Watcher imports snapshots dropped into a shared sync directory.
//
// The offline sync flow is: each agent exports its snapshot into a
// directory all agents can reach, and each agent runs a Watcher on that
// directory. Whenever a new .json snapshot appears, the watcher merges
// it. Importing your own snapshot back is a harmless no-op (nothing in
// it is newer than the store it came from), so the watcher does not try
// to tell snapshots apart by author.
//
// The watcher mutates the store from its own goroutine. The store itself
// has no internal locking, so a caller that also mutates the store while
// a Watcher runs must serialize with it externally — the usual pattern
// is to run the watcher during idle periods only.
type Watcher struct {
	store   *Store
	dir     string
	fsw     *fsnotify.Watcher
	logger  *zap.Logger
	pending map[string]*time.Timer
	done    chan struct{}
}

// NewWatcher creates a watcher for dir, creating the directory if
// needed. Call Run to start it.
func NewWatcher(store *Store, dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sync directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{
		store:   store,
		dir:     dir,
		fsw:     fsw,
		logger:  store.logger.Named("watcher"),
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// Run imports any snapshots already present, then blocks processing
// filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.fsw.Close()

	w.importExisting()

	imports := make(chan string)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSnapshot(event.Name) {
				continue
			}
			w.schedule(event.Name, imports)

		case path := <-imports:
			delete(w.pending, path)
			w.importOne(path)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Done is closed when Run has returned.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// schedule (re)arms the debounce timer for a path. Repeated writes keep
// pushing the import back until the file goes quiet.
func (w *Watcher) schedule(path string, imports chan<- string) {
	if timer, ok := w.pending[path]; ok {
		timer.Reset(debounceWindow)
		return
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		select {
		case imports <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) importExisting() {
	names, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("could not list sync directory", zap.Error(err))
		return
	}
	for _, d := range names {
		if d.IsDir() || !isSnapshot(d.Name()) {
			continue
		}
		w.importOne(filepath.Join(w.dir, d.Name()))
	}
}

func (w *Watcher) importOne(path string) {
	stats, err := w.store.ImportFile(path)
	if err != nil {
		w.logger.Warn("snapshot import failed",
			zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("snapshot imported",
		zap.String("path", filepath.Base(path)),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("conflicts", stats.Conflicts))
}

func isSnapshot(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

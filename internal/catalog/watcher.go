package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"peerloop/internal/logging"
)

// Watcher hot-reloads the catalog directory. On any change to one of the
// three catalog files it reloads the whole directory and hands the new
// snapshot to the callback; a snapshot that fails to load or validate is
// dropped and the previous one stays in effect.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	onReload func(*Catalog)

	debounceMap map[string]time.Time
	debounceDur time.Duration

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the catalog directory. onReload is
// invoked with each successfully loaded snapshot.
func NewWatcher(dir string, onReload func(*Catalog)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fsw,
		dir:         dir,
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // absorb rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine
// until Close or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	// running flips only once the directory is registered; a failed Add
	// must leave Close with nothing to wait for.
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Unlock()
		return err
	}
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	logging.Catalog("watching %s for catalog changes", w.dir)
	return nil
}

// Close stops the watch loop and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.CatalogError("watch error: %v", err)
		}
	}
}

// relevant filters to write/create events on the three catalog files, with
// per-file debouncing.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if name != PersonasFile && name != KnowledgeFile && name != ResourcesFile {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.debounceMap[name]; ok && time.Since(last) < w.debounceDur {
		return false
	}
	w.debounceMap[name] = time.Now()
	return true
}

func (w *Watcher) reload() {
	cat, err := Load(w.dir)
	if err != nil {
		logging.CatalogError("reload failed, keeping previous catalog: %v", err)
		return
	}
	if err := cat.Validate(); err != nil {
		logging.CatalogError("reloaded catalog invalid, keeping previous: %v", err)
		return
	}
	logging.Catalog("catalog reloaded")
	w.onReload(cat)
}

package workspace

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/logging"
)

// Watcher invalidates cached workspace roots when marker files are added
// or removed under a resolved root. Without it the cache never changes
// for the lifetime of the process.
type Watcher struct {
	watcher  *fsnotify.Watcher
	resolver *Resolver
	bus      *event.Bus

	mu      sync.Mutex
	watched map[string]bool
	started bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher bound to the resolver: every root the
// resolver produces from here on is placed under observation. The bus
// may be nil.
func NewWatcher(resolver *Resolver, bus *event.Bus) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		resolver: resolver,
		bus:      bus,
		watched:  make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	resolver.setObserver(w.track)
	return w, nil
}

// track adds a resolved root to the watch set.
func (w *Watcher) track(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watched[root] {
		return
	}
	if err := w.watcher.Add(root); err != nil {
		logging.Warn().Err(err).Str("root", root).Msg("cannot watch workspace root")
		return
	}
	w.watched[root] = true
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.process(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("workspace watcher error")
		}
	}
}

// process invalidates cache entries when a marker file changes.
func (w *Watcher) process(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	name := filepath.Base(ev.Name)
	if !w.isMarker(name) {
		return
	}

	root := filepath.Dir(ev.Name)
	removed := w.resolver.InvalidateUnder(root)

	logging.Debug().
		Str("root", root).
		Str("marker", name).
		Int("invalidated", removed).
		Msg("workspace markers changed")

	if w.bus != nil {
		w.bus.Publish(event.Event{
			Type: event.WorkspaceInvalidated,
			Data: event.WorkspaceInvalidatedData{Root: root, Marker: name},
		})
	}
}

func (w *Watcher) isMarker(name string) bool {
	for _, marker := range w.resolver.Markers() {
		if name == marker {
			return true
		}
	}
	return false
}

// Stop stops the watcher and detaches it from the resolver.
func (w *Watcher) Stop() error {
	w.resolver.setObserver(nil)

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}

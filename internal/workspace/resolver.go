// Package workspace resolves the project root directory for source files.
//
// The root is the nearest ancestor of a file's directory that contains a
// marker (a Gemfile or a .git directory by default). Results are memoized
// per containing directory so repeated lookups skip the ancestor walk.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMarkers are the file names that identify a workspace root.
var DefaultMarkers = []string{"Gemfile", ".git"}

// Resolver maps file paths to workspace roots.
type Resolver struct {
	markers []string

	mu    sync.RWMutex
	cache map[string]string
	walks int

	// observer, when set, is told about every newly resolved root.
	observer func(root string)
}

// NewResolver creates a resolver. An empty marker list falls back to
// DefaultMarkers.
func NewResolver(markers []string) *Resolver {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return &Resolver{
		markers: markers,
		cache:   make(map[string]string),
	}
}

// Find returns the workspace root for the given file path. A path with
// no containing directory (an unsaved buffer) yields "". When no marker
// exists anywhere up to the filesystem root, the file's own directory is
// the root. The result is cached under the containing directory either way.
func (r *Resolver) Find(filePath string) string {
	if filePath == "" {
		return ""
	}

	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return ""
	}

	r.mu.RLock()
	if root, ok := r.cache[dir]; ok {
		r.mu.RUnlock()
		return root
	}
	r.mu.RUnlock()

	root := r.findRoot(dir)
	if root == "" {
		root = dir
	}

	r.mu.Lock()
	r.cache[dir] = root
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(root)
	}
	return root
}

// findRoot walks upward from dir looking for a marker.
func (r *Resolver) findRoot(dir string) string {
	r.mu.Lock()
	r.walks++
	r.mu.Unlock()

	for current := dir; ; {
		for _, marker := range r.markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// Invalidate drops the cached entry for a single directory.
func (r *Resolver) Invalidate(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, dir)
}

// InvalidateUnder drops every cached entry whose directory or resolved
// root lies within the given root. Used when marker files appear or
// disappear during a long-running session.
func (r *Resolver) InvalidateUnder(root string) int {
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for dir, resolved := range r.cache {
		if dir == root || resolved == root ||
			strings.HasPrefix(dir+string(filepath.Separator), prefix) ||
			strings.HasPrefix(resolved+string(filepath.Separator), prefix) {
			delete(r.cache, dir)
			removed++
		}
	}
	return removed
}

// Reset drops the entire cache.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]string)
}

// Markers returns the configured marker names.
func (r *Resolver) Markers() []string {
	return r.markers
}

// setObserver installs the root observer used by the watcher.
func (r *Resolver) setObserver(fn func(root string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// walkCount reports how many ancestor walks have happened (test hook).
func (r *Resolver) walkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.walks
}

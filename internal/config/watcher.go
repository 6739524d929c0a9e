// internal/config/watcher.go
package config

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/logging"
)

// watchDebounce coalesces the rename+create bursts editors emit when
// saving before the callback fires.
const watchDebounce = time.Second

// Watcher watches a set of files and fires a debounced callback when any
// of them changes. The parent directories are watched rather than the
// files themselves so atomic saves (write-to-temp, rename-over) keep being
// seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     map[string]bool
	onChange  func(files []string)
	stopCh    chan struct{}
	interval  time.Duration

	mu      sync.Mutex
	active  bool
	changed map[string]time.Time
	ticker  *time.Ticker
}

// NewWatcher builds a watcher over the given files. onChange receives the
// files that changed since the previous tick. A stopped watcher cannot be
// restarted.
func NewWatcher(files []string, onChange func(files []string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	w := &Watcher{
		fsWatcher: fw,
		paths:     make(map[string]bool),
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		interval:  watchDebounce,
		changed:   make(map[string]time.Time),
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			logging.Warning("Could not resolve watch path %s: %v", f, err)
			continue
		}
		w.paths[abs] = true
	}
	return w, nil
}

// Start begins watching. Directories that do not exist yet are skipped
// with a warning; their files are picked up after a restart.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		logging.Debug("Config watcher already active")
		return
	}
	w.active = true
	w.ticker = time.NewTicker(w.interval)
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for f := range w.paths {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			logging.Warning("Could not watch %s: %v", dir, err)
		}
	}

	go w.loop()
}

// Stop ends watching. Safe to call once only.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.active = false
	w.mu.Unlock()
	close(w.stopCh)
}

func (w *Watcher) loop() {
	defer w.cleanup()
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcess(event) {
				w.recordChange(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Error("Config watcher error: %v", err)
		case <-w.ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.paths[abs]
}

func (w *Watcher) recordChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.changed[path] = time.Now()
	logging.Debug("Config change detected: %s", path)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.changed) == 0 {
		w.mu.Unlock()
		return
	}
	files := make([]string, 0, len(w.changed))
	for f := range w.changed {
		files = append(files, f)
	}
	w.changed = make(map[string]time.Time)
	w.mu.Unlock()

	sort.Strings(files)
	w.onChange(files)
}

func (w *Watcher) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ticker != nil {
		w.ticker.Stop()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	w.active = false
}

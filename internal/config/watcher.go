// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
)

// Watcher reloads a config file when it changes on disk and notifies
// subscribers with the parsed result. A reload that fails to parse or
// validate keeps the previous configuration in effect; subscribers are
// only ever handed configs that passed Validate.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  utils.Logger

	mu        sync.RWMutex
	callbacks []func(*Config)
	stopped   bool
}

// NewWatcher starts watching path. The parent directory is watched as
// well because editors and config management tools typically replace
// the file rather than write it in place.
func NewWatcher(path string, logger utils.Logger) (*Watcher, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		path:    filepath.Clean(path),
		logger:  logger,
	}

	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.path, err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warnf("config watcher: cannot watch directory of %s: %v", w.path, err)
	}

	go w.run()
	return w, nil
}

// OnChange registers a callback invoked with each successfully reloaded
// configuration. Callbacks run on the watcher goroutine and should
// return quickly.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	stopped := w.stopped
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	if stopped {
		return
	}

	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Errorf("config reload failed, keeping previous config: %v", err)
		return
	}

	w.logger.WithField("file", w.path).Info("configuration reloaded")
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops the watcher. Pending callbacks may still run.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	return w.watcher.Close()
}

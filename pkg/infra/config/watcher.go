// Package config watches the configuration file and applies the settings
// that can change without a restart.
package config

import (
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/spf13/viper"
)

// ChangeHandler is invoked with the reloaded viper instance after the
// configuration file changed.
type ChangeHandler func(v *viper.Viper) error

// Watcher dispatches configuration file changes to subscribed handlers.
type Watcher struct {
	viper    *viper.Viper
	handlers map[string]ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a new configuration watcher for v.
func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{
		viper:    v,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe registers a handler under id, replacing any previous one.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
}

// Unsubscribe removes a handler by its identifier.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers, id)
}

// Start begins watching the configuration file. Without a config file in use
// it does nothing and returns false. Calling Start again has no effect.
func (w *Watcher) Start() bool {
	if w.viper.ConfigFileUsed() == "" {
		return false
	}

	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return true
	}
	w.watching = true
	w.mu.Unlock()

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Infow("Config file changed", "file", e.Name, "op", e.Op.String())
		w.Notify()
	})
	w.viper.WatchConfig()

	logger.Infow("Config watcher started", "file", w.viper.ConfigFileUsed())
	return true
}

// Notify runs every handler in id order. A failing handler is logged and
// does not stop the others.
func (w *Watcher) Notify() {
	w.mu.RLock()
	ids := make([]string, 0, len(w.handlers))
	for id := range w.handlers {
		ids = append(ids, id)
	}
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	sort.Strings(ids)
	for _, id := range ids {
		if err := handlers[id](w.viper); err != nil {
			logger.Errorw("Config change handler failed", "handler", id, "error", err.Error())
		}
	}
}

// IsWatching returns whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

package lifecycle

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"wassette/pkg/logging"
)

// Watch watches the plugin directory for files dropped in by an external
// process (a human copying a component into place) and rehydrates the
// same way startup does, without bypassing the capability policy: a
// ".wasm" arrival is compiled and inserted, a ".policy.yaml" arrival
// reloads the policy registry from disk. Watch blocks until ctx is
// cancelled or the watcher fails to start.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(m.pluginDir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			m.handleWatchEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(subsystem, "plugin directory watch error: %v", err)
		}
	}
}

func (m *Manager) handleWatchEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	name := filepath.Base(event.Name)
	switch {
	case strings.HasSuffix(name, ".wasm") && !strings.Contains(name, ".tmp"):
		identity := strings.TrimSuffix(name, ".wasm")
		if err := m.loadFromCache(ctx, identity); err != nil {
			logging.Warn(subsystem, "failed to load %s from plugin directory watch: %v", identity, err)
			return
		}
		logging.Info(subsystem, "picked up component %s from plugin directory watch", identity)
		m.notify()

	case strings.HasSuffix(name, ".policy.yaml"):
		if err := m.policies.LoadFromDisk(); err != nil {
			logging.Warn(subsystem, "failed to reload policies after watch event: %v", err)
		}
	}
}

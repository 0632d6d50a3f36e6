package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals the foreground loop when the workspace config file changes,
// so it can reload configuration and re-resolve the linter registry. The
// foreground polls Changed() non-blockingly, like any other bridge queue.
type Watcher struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
}

// NewWatcher starts watching the workspace config directory. The directory
// (not the file) is watched so edits that replace the file are still seen.
func NewWatcher(workspacePath string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	dir := filepath.Dir(LocalConfigPath(workspacePath))
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher: fsw,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop(filepath.Base(LocalConfigPath(workspacePath)))
	return w, nil
}

func (w *Watcher) loop(filename string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Coalesce: one pending signal is enough.
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case <-w.watcher.Errors:
			// Watch errors are not actionable here; keep watching.
		case <-w.done:
			return
		}
	}
}

// Changed reports (without blocking) whether the config file changed since
// the last call.
func (w *Watcher) Changed() bool {
	select {
	case <-w.changed:
		return true
	default:
		return false
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

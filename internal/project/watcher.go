package project

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/opencode-engine/internal/event"
	"github.com/opencode-ai/opencode-engine/internal/logging"
)

// log tags every line this package emits with the project component.
var log = logging.For("project")

// Watcher reports file-system changes under a project root so a
// long-lived caller (the `lsp watch` command) can invalidate pooled
// state that was built from the tree's previous shape: a renamed or
// deleted file can leave a language server's pooled client pointed at
// a root marker that no longer exists.
type Watcher struct {
	fsw  *fsnotify.Watcher
	root string
}

// NewWatcher creates a Watcher over root, recursively adding every
// directory found at construction time. Directories created later are
// picked up as Create events arrive and added on the fly by Run.
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, root: root}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole walk
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Close stops watching and releases the underlying OS resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks, invoking onChange with the changed path every time a
// write, create, remove or rename is observed, until ctx is canceled
// or the watcher errors out. New directories are added to the watch
// set as they're created so the tree stays fully covered.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				event.Publish(event.Event{Type: event.FileChanged, Data: event.FileChangedData{Path: ev.Name}})
				onChange(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("root", w.root).Msg("watch error")
		}
	}
}

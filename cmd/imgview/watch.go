package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/phanxgames/imgview"
)

// fileWatcher reports changes to the displayed image files. Events arrive
// on fsnotify's goroutine; apply hands them to the viewport on the UI
// goroutine.
type fileWatcher struct {
	log     *slog.Logger
	watcher *fsnotify.Watcher
	primary string
	compare string
	changed chan string
	done    chan struct{}
}

func newFileWatcher(log *slog.Logger, primary, compare string) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &fileWatcher{
		log:     log,
		watcher: watcher,
		primary: filepath.Clean(primary),
		changed: make(chan string, 4),
		done:    make(chan struct{}),
	}
	if compare != "" {
		w.compare = filepath.Clean(compare)
	}
	// Watch directories: editors often replace files instead of writing
	// them in place, which drops a watch on the file itself.
	dirs := map[string]bool{filepath.Dir(w.primary): true}
	if w.compare != "" {
		dirs[filepath.Dir(w.compare)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	go w.loop()
	return w, nil
}

func (w *fileWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			if name != w.primary && name != w.compare {
				continue
			}
			select {
			case w.changed <- name:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher", "err", err)
		}
	}
}

// apply reloads every image that changed since the last call.
func (w *fileWatcher) apply(v *imgview.Viewport) {
	for {
		select {
		case name := <-w.changed:
			w.log.Info("file changed, reloading", "path", name)
			if name == w.primary {
				v.Reload()
			} else {
				v.SetCompareURL("")
				v.SetCompareURL(name)
			}
		default:
			return
		}
	}
}

// Close stops watching.
func (w *fileWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

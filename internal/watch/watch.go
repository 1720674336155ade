package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Debounce is how long Watch waits for a burst of events to settle.
var Debounce = 100 * time.Millisecond

// Watch calls fn each time one of files is written, created or renamed
// into place, until ctx is done. Events arriving within Debounce of each
// other produce one call. The parent directories are watched so editors
// that replace files atomically are seen.
func Watch(ctx context.Context, files []string, fn func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	targets := make([]string, 0, len(files))
	var dirs []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f, err)
		}
		targets = append(targets, abs)
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(Debounce)
	timer.Stop()
	var pending string

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !slices.Contains(targets, filepath.Clean(ev.Name)) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.WithFields(log.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("watched file changed")
			pending = ev.Name
			timer.Reset(Debounce)
		case <-timer.C:
			fn(pending)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithFields(log.Fields{"err": err}).Warn("watcher error")
		}
	}
}

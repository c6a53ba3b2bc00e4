package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoArtifact is returned when no new finished file appeared in time
var ErrNoArtifact = errors.New("no new artifact appeared")

// WaitForArtifact blocks until a finished file not present in existing shows
// up in dir, the timeout passes, or ctx ends. It returns the file name.
func WaitForArtifact(ctx context.Context, dir string, existing map[string]bool, timeout time.Duration) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return "", fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// A download may have finished between the snapshot and Add
	store := &Store{dir: dir}
	if name, ok := firstNew(store, existing); ok {
		return name, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return "", ErrNoArtifact
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(event.Name)
			if IsPartial(name) || existing[name] {
				continue
			}
			// Renames report the old name; rescan to confirm what exists now
			if found, ok := firstNew(store, existing); ok {
				return found, nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", ErrNoArtifact
			}
			return "", fmt.Errorf("watcher error: %w", err)

		case <-timer.C:
			return "", ErrNoArtifact

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func firstNew(store *Store, existing map[string]bool) (string, bool) {
	names, err := store.ListFiles()
	if err != nil {
		return "", false
	}
	for _, n := range names {
		if !existing[n] {
			return n, true
		}
	}
	return "", false
}

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/docgraph-go/internal/loader"
	"github.com/Benny93/docgraph-go/internal/logger"
)

// DefaultDebounce is the quiet period after the last file event before a
// batch of changes is handed to the handler.
const DefaultDebounce = 2 * time.Second

// ChangeSet is one debounced batch of document changes.
type ChangeSet struct {
	// Updated holds created or modified documents, sorted by path.
	Updated []FileEntry

	// Removed holds relative paths of deleted documents, sorted.
	Removed []string
}

// Empty reports whether the batch carries no change.
func (c ChangeSet) Empty() bool {
	return len(c.Updated) == 0 && len(c.Removed) == 0
}

// ChangeHandler processes a batch of changes. Errors are logged and the
// watch continues.
type ChangeHandler func(ctx context.Context, changes ChangeSet) error

// WatchDocuments monitors root for document changes and calls handler
// with debounced batches. Blocks until the context is cancelled.
func WatchDocuments(ctx context.Context, root string, debounce time.Duration, handler ChangeHandler) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	patterns, err := loadIgnorePatterns(root)
	if err != nil {
		return fmt.Errorf("loading ignore files: %w", err)
	}
	matcher := newMatcher(patterns)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root, root, matcher); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	logger.Info("Watching for document changes", "root", root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(watcher, root, event.Name, matcher); err != nil {
						logger.Warn("Failed to watch new directory", "path", event.Name, "err", err)
					}
					continue
				}
			}

			if !shouldWatchFile(event.Name, root, matcher) {
				continue
			}
			relPath, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			changed[relPath] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", "err", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			changes := collectChanges(root, changed)
			changed = make(map[string]bool)
			if changes.Empty() {
				continue
			}

			logger.Info("Processing document changes",
				"updated", len(changes.Updated),
				"removed", len(changes.Removed),
			)
			if err := handler(ctx, changes); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Error("Error processing changes", "err", err)
			}
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root, dir string, matcher gitignore.Matcher) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// collectChanges reads the current state of every changed path.
func collectChanges(root string, changed map[string]bool) ChangeSet {
	var changes ChangeSet
	for relPath := range changed {
		absPath := filepath.Join(root, relPath)

		info, err := os.Stat(absPath)
		if os.IsNotExist(err) {
			changes.Removed = append(changes.Removed, relPath)
			continue
		}
		if err != nil || info.IsDir() {
			continue
		}

		entry, err := readEntry(absPath, relPath)
		if err != nil {
			logger.Warn("Failed to read changed document", "path", relPath, "err", err)
			continue
		}
		changes.Updated = append(changes.Updated, entry)
	}

	sort.Slice(changes.Updated, func(i, j int) bool {
		return changes.Updated[i].RelPath < changes.Updated[j].RelPath
	})
	sort.Strings(changes.Removed)
	return changes
}

// shouldWatchFile reports whether path is a supported, non-ignored document.
func shouldWatchFile(path, root string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if matcher != nil && matcher.Match(splitPath(relPath), false) {
		return false
	}
	return loader.IsSupported(path)
}

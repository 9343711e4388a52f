package server

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a page must be quiet before it is reloaded.
// Editors often save a file as several writes or a rename and a create.
const settleDelay = 100 * time.Millisecond

// Watcher watches a site directory for markdown changes and triggers reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	onReload func(filePath string) error
	done     chan struct{}
	debug    bool

	mu      sync.Mutex
	pending map[string]bool // relative paths changed since the last flush
	timer   *time.Timer
}

// NewWatcher creates a new file watcher for the given directory.
func NewWatcher(rootDir string, onReload func(string) error, debug bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		rootDir:  rootDir,
		onReload: onReload,
		done:     make(chan struct{}),
		debug:    debug,
		pending:  make(map[string]bool),
	}

	if err := w.addDirectoryRecursive(rootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addDirectoryRecursive adds a directory and all its subdirectories to the
// watcher, skipping hidden ones like .git.
func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return err
		}
		if w.debug {
			log.Printf("[Watch] Added directory: %s", path)
		}
		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories may hold pages; watch them as well.
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if err := w.addDirectoryRecursive(event.Name); err != nil {
			log.Printf("[Watch] Failed to watch %s: %v", event.Name, err)
		}
		return
	}

	if filepath.Ext(event.Name) != ".md" {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	relPath, err := filepath.Rel(w.rootDir, event.Name)
	if err != nil {
		relPath = event.Name
	}
	relPath = filepath.ToSlash(relPath)

	if w.debug {
		log.Printf("[Watch] %s: %s", event.Op, relPath)
	}

	w.mu.Lock()
	w.pending[relPath] = true
	if w.timer == nil {
		w.timer = time.AfterFunc(settleDelay, w.flush)
	} else {
		w.timer.Reset(settleDelay)
	}
	w.mu.Unlock()
}

// flush reloads every page changed during the settle delay, in path order.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	sort.Strings(paths)
	for _, relPath := range paths {
		if err := w.onReload(relPath); err != nil {
			log.Printf("[Watch] Reload failed for %s: %v", relPath, err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Stop stops the watcher. Changes still settling are dropped.
func (w *Watcher) Stop() error {
	close(w.done)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

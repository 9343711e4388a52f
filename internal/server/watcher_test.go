package server

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *reloadLog) record(path string) error {
	l.mu.Lock()
	l.paths = append(l.paths, path)
	l.mu.Unlock()
	return nil
}

func (l *reloadLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newTestWatcher(t *testing.T) (*Watcher, *reloadLog, string) {
	t.Helper()
	dir := t.TempDir()
	log := &reloadLog{}
	w, err := NewWatcher(dir, log.record, false)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })
	return w, log, dir
}

func TestWatcherCoalescesBursts(t *testing.T) {
	w, log, dir := newTestWatcher(t)

	page := filepath.Join(dir, "a.md")
	for i := 0; i < 5; i++ {
		w.handle(fsnotify.Event{Name: page, Op: fsnotify.Write})
	}
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "sub", "b.md"), Op: fsnotify.Create})

	require.Eventually(t, func() bool { return len(log.get()) == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(2 * settleDelay)
	assert.Equal(t, []string{"a.md", "sub/b.md"}, log.get())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	w, log, dir := newTestWatcher(t)

	w.handle(fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "a.md"), Op: fsnotify.Chmod})

	time.Sleep(3 * settleDelay)
	assert.Empty(t, log.get())
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	w, log, dir := newTestWatcher(t)
	w.Start()

	sub := filepath.Join(dir, "new")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the watcher time to add the directory
	time.Sleep(3 * settleDelay)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "page.md"), []byte("# New\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range log.get() {
			if p == "new/page.md" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherStopDropsPending(t *testing.T) {
	dir := t.TempDir()
	log := &reloadLog{}
	w, err := NewWatcher(dir, log.record, false)
	require.NoError(t, err)

	w.handle(fsnotify.Event{Name: filepath.Join(dir, "a.md"), Op: fsnotify.Write})
	require.NoError(t, w.Stop())

	time.Sleep(3 * settleDelay)
	assert.Empty(t, log.get())
}

package watch

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestWatcher_BatchesEventsAndSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0755))

	w, err := NewWatcher(root, []string{"dist"}, 100*time.Millisecond)
	require.NoError(t, err)

	batches := make(chan []FileEvent, 10)
	w.AddHandler(func(events []FileEvent) { batches <- events })
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.True(t, w.IsRunning())
	for _, p := range w.WatchedPaths() {
		assert.NotEqual(t, filepath.Join(w.root, "dist"), p)
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "ignored.css"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "style.css"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("b"), 0644))

	seen := map[string]bool{}
	timeout := time.After(5 * time.Second)
	for !seen["style.css"] || !seen["index.html"] {
		select {
		case events := <-batches:
			for _, e := range events {
				seen[filepath.Base(e.Path)] = true
			}
		case <-timeout:
			t.Fatalf("events not received, got %v", seen)
		}
	}
	assert.False(t, seen["ignored.css"])
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

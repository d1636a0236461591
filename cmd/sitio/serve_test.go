package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/watch"
)

func TestWatchIgnore(t *testing.T) {
	assert.Equal(t, []string{"/srv/dist", "logs"}, watchIgnore("/srv/dist", ""))
	assert.Equal(t, []string{"/srv/dist", "/var/log/sitio"}, watchIgnore("/srv/dist", "/var/log/sitio"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/dist", filepath.Join(wd, "var", "logs")}, watchIgnore("/srv/dist", "var/logs"))
}

func TestWatchIgnore_CustomLogsDirDoesNotTriggerRebuild(t *testing.T) {
	root := t.TempDir()
	logs := filepath.Join(root, "var", "logs")
	require.NoError(t, os.MkdirAll(logs, 0755))

	w, err := watch.NewWatcher(root, watchIgnore(filepath.Join(root, "dist"), logs), 50*time.Millisecond)
	require.NoError(t, err)
	batches := make(chan []watch.FileEvent, 10)
	w.AddHandler(func(events []watch.FileEvent) { batches <- events })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(logs, "info.log"), []byte("line"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>"), 0644))

	select {
	case events := <-batches:
		for _, e := range events {
			assert.NotContains(t, e.Path, "info.log")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild for index.html")
	}
}

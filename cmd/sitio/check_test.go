package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	m.Run()
}

const checkPage = `<html><body>
<article class="portfolio-item"><img src="assets/ok.png" alt="Bien"></article>
<article class="portfolio-item"><img src="assets/missing.png" alt="Roto"></article>
<article class="portfolio-group" data-title="Serie" data-images="assets/ok.png|assets/gone.png"></article>
</body></html>`

func TestCheckSite_ReportsFailedItems(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "portfolio.html"), []byte(checkPage), 0644))

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "ok.png"), img.Bytes(), 0644))

	cfg := config.Default()
	cfg.Site.Root = root
	cfg.Site.Pages = []string{"portfolio.html", "index.html"}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	failures, err := checkSite(context.Background(), cfg, cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, failures)
	assert.Contains(t, out.String(), "assets/missing.png")
	assert.Contains(t, out.String(), "assets/gone.png")
	assert.Contains(t, out.String(), "portfolio.html: 3 entries, 4 items checked")
	assert.Contains(t, out.String(), "index.html: not found, skipped")
}

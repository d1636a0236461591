package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, Init(dir))
	t.Cleanup(func() { _ = Init("") })

	InfoLog.Printf("hola %d", 1)
	ErrorLog.Printf("fallo %d", 2)
	require.NoError(t, Cleanup())

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "hola 1")

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "fallo 2")
}

func TestInit_EmptyPathUsesStderr(t *testing.T) {
	require.NoError(t, Init(""))
	assert.NotNil(t, InfoLog)
	assert.NotNil(t, ErrorLog)
	assert.NoError(t, Cleanup())
}

package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZIP(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestExtractZIPFirstCSV(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{
		"leiame.txt":       "ignore",
		"2020_Emendas.csv": "Ano;Autor\n2020;X",
	})

	dest := t.TempDir()
	path, err := ExtractZIPFirstCSV(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "2020_Emendas.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ano;Autor\n2020;X", string(data))
}

func TestExtractZIPFirstCSVCaseInsensitive(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{"DATA.CSV": "a;b"})

	path, err := ExtractZIPFirstCSV(zipPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "DATA.CSV", filepath.Base(path))
}

func TestExtractZIPFirstCSVNoCSV(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{"leiame.txt": "nope"})

	_, err := ExtractZIPFirstCSV(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV file")
}

func TestExtractZIPFile(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{
		"a.json": `{"a":1}`,
		"b.json": `{"b":2}`,
	})

	path, err := ExtractZIPFile(zipPath, "b.json", t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))
}

func TestExtractZIPFileMissing(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{"a.json": "{}"})

	_, err := ExtractZIPFile(zipPath, "missing.json", t.TempDir())
	require.Error(t, err)
}

func TestExtractZIPEntryStripsDirectories(t *testing.T) {
	zipPath := writeZIP(t, map[string]string{"nested/dir/data.csv": "x"})

	dest := t.TempDir()
	path, err := ExtractZIPFirstCSV(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "data.csv"), path)
}

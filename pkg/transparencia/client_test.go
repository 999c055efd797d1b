package transparencia

import (
	"archive/zip"
	"context"
	"os"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

type fakeFetcher struct {
	zipContent  map[string]string // csv entry name -> content, written on DownloadToFile
	downloadErr error
	lastOpts    fetcher.FetchOptions
	pages       []map[string]any
	paginateErr error
	lastParams  map[string]string
}

func (f *fakeFetcher) Fetch(context.Context, string, fetcher.FetchOptions) ([]byte, error) {
	return nil, eris.New("unexpected fetch")
}

func (f *fakeFetcher) FetchJSON(context.Context, string, fetcher.FetchOptions, any) error {
	return eris.New("unexpected fetch json")
}

func (f *fakeFetcher) DownloadToFile(_ context.Context, _ string, path string, opt fetcher.FetchOptions) (int64, error) {
	f.lastOpts = opt
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close() //nolint:errcheck

	zw := zip.NewWriter(out)
	for name, content := range f.zipContent {
		w, err := zw.Create(name)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return 0, err
		}
	}
	return 0, zw.Close()
}

func (f *fakeFetcher) Paginate(_ context.Context, _ string, opt fetcher.PaginateOptions) ([]map[string]any, error) {
	f.lastParams = opt.Params
	if f.paginateErr != nil {
		return nil, f.paginateErr
	}
	return f.pages, nil
}

func TestDownloadAmendmentsCSVUsesBrowserProfile(t *testing.T) {
	ff := &fakeFetcher{zipContent: map[string]string{
		"Emendas.csv": "Autor;Ano\nJOAO;2020\n",
	}}
	c := New(ff, Config{DownloadURL: "https://portal.test/emendas"})

	data, err := c.DownloadAmendmentsCSV(context.Background(), 2020, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "Autor;Ano\nJOAO;2020\n", string(data))
	assert.True(t, ff.lastOpts.BrowserProfile)
}

func TestDownloadAmendmentsCSVFailureIsSourceUnavailable(t *testing.T) {
	ff := &fakeFetcher{downloadErr: eris.New("http 403")}
	c := New(ff, Config{DownloadURL: "https://portal.test/emendas"})

	_, err := c.DownloadAmendmentsCSV(context.Background(), 2020, t.TempDir())
	require.Error(t, err)
	assert.True(t, resilience.IsSourceUnavailable(err))
}

func TestListAmendmentsRequiresAPIKey(t *testing.T) {
	c := New(&fakeFetcher{}, Config{APIURL: "https://api.portal.test"})

	_, err := c.ListAmendments(context.Background(), 2020, fetcher.PaginateOptions{})
	require.Error(t, err)
	assert.True(t, resilience.IsSourceUnavailable(err))
}

func TestListAmendmentsPassesYearAndKey(t *testing.T) {
	ff := &fakeFetcher{pages: []map[string]any{{"codigoEmenda": "202012340001"}}}
	c := New(ff, Config{APIURL: "https://api.portal.test", APIKey: "k"})

	items, err := c.ListAmendments(context.Background(), 2020, fetcher.PaginateOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2020", ff.lastParams["ano"])
}

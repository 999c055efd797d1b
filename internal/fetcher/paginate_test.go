package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageServer serves a Dados Abertos style envelope with totalPages pages of
// perPage items each, linking pages with rel=next.
func pageServer(t *testing.T, totalPages, perPage int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("pagina"))
		require.GreaterOrEqual(t, page, 1)

		items := make([]map[string]any, 0, perPage)
		if page <= totalPages {
			for i := 0; i < perPage; i++ {
				items = append(items, map[string]any{"id": (page-1)*perPage + i + 1})
			}
		}

		env := map[string]any{"dados": items}
		if page < totalPages {
			env["links"] = []map[string]string{
				{"rel": "next", "href": fmt.Sprintf("%s?pagina=%d", srv.URL, page+1)},
			}
		}
		_ = json.NewEncoder(w).Encode(env)
	}))
	return srv
}

func TestPaginateFollowsNextLinks(t *testing.T) {
	srv := pageServer(t, 3, 2)
	defer srv.Close()

	f := newTestClient(nil)
	items, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{ItemsPerPage: 2})
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, float64(1), items[0]["id"])
	assert.Equal(t, float64(6), items[5]["id"])
}

func TestPaginateStopsWithoutNextLink(t *testing.T) {
	srv := pageServer(t, 1, 3)
	defer srv.Close()

	f := newTestClient(nil)
	items, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestPaginateMaxPages(t *testing.T) {
	srv := pageServer(t, 5, 2)
	defer srv.Close()

	f := newTestClient(nil)
	items, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestPaginateMaxItemsTruncates(t *testing.T) {
	srv := pageServer(t, 5, 2)
	defer srv.Close()

	f := newTestClient(nil)
	items, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{MaxItems: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestPaginateEmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dados":[]}`))
	}))
	defer srv.Close()

	f := newTestClient(nil)
	items, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPaginatePassesBaseParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2020", r.URL.Query().Get("ano"))
		assert.NotEmpty(t, r.URL.Query().Get("pagina"))
		assert.NotEmpty(t, r.URL.Query().Get("itens"))
		_, _ = w.Write([]byte(`{"dados":[]}`))
	}))
	defer srv.Close()

	f := newTestClient(nil)
	_, err := f.Paginate(context.Background(), srv.URL, PaginateOptions{
		Params: map[string]string{"ano": "2020"},
	})
	require.NoError(t, err)
}

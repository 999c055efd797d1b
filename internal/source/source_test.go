package source

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/config"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/dedup"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/store"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/transparencia"
)

// memStore is an in-memory Store covering the methods sources use.
type memStore struct {
	store.Store

	mu          sync.Mutex
	legislators []model.Legislator
	exps        map[string]model.Expenditure
	amendments  map[string]model.Amendment
	bills       map[int64]model.Bill
	votes       map[string]model.Vote
	ballots     map[string]model.BallotChoice
}

func newMemStore(legs ...model.Legislator) *memStore {
	return &memStore{
		legislators: legs,
		exps:        make(map[string]model.Expenditure),
		amendments:  make(map[string]model.Amendment),
		bills:       make(map[int64]model.Bill),
		votes:       make(map[string]model.Vote),
		ballots:     make(map[string]model.BallotChoice),
	}
}

func (s *memStore) ListLegislators(context.Context) ([]model.Legislator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Legislator(nil), s.legislators...), nil
}

func (s *memStore) UpsertLegislator(_ context.Context, l *model.Legislator) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.legislators {
		if s.legislators[i].ExternalID == l.ExternalID {
			id := s.legislators[i].ID
			l.ID = id
			s.legislators[i] = *l
			return id, false, nil
		}
	}
	l.ID = int64(len(s.legislators) + 1)
	s.legislators = append(s.legislators, *l)
	return l.ID, true, nil
}

func (s *memStore) InsertExpenditure(_ context.Context, e *model.Expenditure) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dedup.String(dedup.ExpenditureKey(e))
	if _, dup := s.exps[key]; dup {
		return false, nil
	}
	s.exps[key] = *e
	return true, nil
}

func (s *memStore) InsertAmendment(_ context.Context, a *model.Amendment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.amendments[a.ExternalCode]; dup {
		return false, nil
	}
	s.amendments[a.ExternalCode] = *a
	return true, nil
}

func (s *memStore) BulkInsertAmendments(_ context.Context, amendments []model.Amendment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range amendments {
		if _, dup := s.amendments[a.ExternalCode]; dup {
			continue
		}
		s.amendments[a.ExternalCode] = a
		n++
	}
	return n, nil
}

func (s *memStore) InsertBill(_ context.Context, b *model.Bill) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.bills[b.ExternalID]; dup {
		return false, nil
	}
	s.bills[b.ExternalID] = *b
	return true, nil
}

func (s *memStore) InsertVote(_ context.Context, v *model.Vote) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.votes[v.ExternalID]; dup {
		return false, nil
	}
	s.votes[v.ExternalID] = *v
	return true, nil
}

func (s *memStore) InsertBallots(_ context.Context, ballots []model.BallotChoice) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range ballots {
		key := fmt.Sprintf("%s|%d", b.VoteExternalID, b.LegislatorID)
		if _, dup := s.ballots[key]; dup {
			continue
		}
		s.ballots[key] = b
		n++
	}
	return n, nil
}

// stubFetcher serves canned pages and raw bodies, builds ZIP or plain
// files for downloads.
type stubFetcher struct {
	pages     map[string][]map[string]any
	raw       map[string]string
	downloads map[string]downloadSpec
}

type downloadSpec struct {
	zipEntries map[string]string // nil means write body as-is
	body       string
	err        error
}

func (f *stubFetcher) Fetch(_ context.Context, url string, _ fetcher.FetchOptions) ([]byte, error) {
	body, ok := f.raw[url]
	if !ok {
		return nil, eris.Errorf("unexpected fetch %s", url)
	}
	return []byte(body), nil
}

func (f *stubFetcher) FetchJSON(ctx context.Context, url string, opt fetcher.FetchOptions, v any) error {
	body, err := f.Fetch(ctx, url, opt)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (f *stubFetcher) DownloadToFile(_ context.Context, url string, path string, _ fetcher.FetchOptions) (int64, error) {
	dl, ok := f.downloads[url]
	if !ok {
		return 0, eris.Errorf("unexpected download %s", url)
	}
	if dl.err != nil {
		return 0, dl.err
	}
	if dl.zipEntries == nil {
		return int64(len(dl.body)), os.WriteFile(path, []byte(dl.body), 0o644)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close() //nolint:errcheck
	zw := zip.NewWriter(out)
	for name, content := range dl.zipEntries {
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

func (f *stubFetcher) Paginate(_ context.Context, endpoint string, _ fetcher.PaginateOptions) ([]map[string]any, error) {
	items, ok := f.pages[endpoint]
	if !ok {
		return nil, eris.Errorf("unexpected paginate %s", endpoint)
	}
	return items, nil
}

func testDeps(t *testing.T, st store.Store, ff fetcher.Fetcher) Deps {
	t.Helper()
	cfg := &config.Config{}
	cfg.Collect.Year = 2020
	cfg.Collect.TempDir = t.TempDir()
	cfg.Collect.Workers = 2
	cfg.Collect.BillTypes = []string{"PL"}
	cfg.Camara.BaseURL = "https://api.test/api/v2"
	cfg.Camara.ArchiveURL = "https://api.test/arquivos"
	cfg.Transparencia.DownloadURL = "https://portal.test/emendas"
	cfg.Transparencia.APIURL = "https://api.portal.test"

	return Deps{
		Store:         st,
		Fetcher:       ff,
		Camara:        camara.New(ff, camara.Config{BaseURL: cfg.Camara.BaseURL, ArchiveURL: cfg.Camara.ArchiveURL}),
		Transparencia: transparencia.New(ff, transparencia.Config{DownloadURL: cfg.Transparencia.DownloadURL, APIURL: cfg.Transparencia.APIURL, APIKey: cfg.Transparencia.APIKey}),
		Cfg:           cfg,
	}
}

func newTransparenciaWithKey(deps Deps, key string) *transparencia.Client {
	return transparencia.New(deps.Fetcher, transparencia.Config{
		DownloadURL: deps.Cfg.Transparencia.DownloadURL,
		APIURL:      deps.Cfg.Transparencia.APIURL,
		APIKey:      key,
	})
}

func knownLegislator() model.Legislator {
	return model.Legislator{
		ID:         1,
		ExternalID: 204554,
		Name:       "João da Silva",
		CivilName:  "João Silva Pereira",
		State:      "SP",
		InOffice:   true,
	}
}

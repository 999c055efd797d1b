package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
)

// dumpBill is one element of the yearly proposals dump.
type dumpBill struct {
	ID               int64  `json:"id"`
	SiglaTipo        string `json:"siglaTipo"`
	Numero           int    `json:"numero"`
	Ano              int    `json:"ano"`
	Ementa           string `json:"ementa"`
	DataApresentacao string `json:"dataApresentacao"`
	UltimoStatus     struct {
		DescricaoSituacao string `json:"descricaoSituacao"`
	} `json:"ultimoStatus"`
	URLInteiroTeor string `json:"urlInteiroTeor"`
}

// BillsDump collects proposals from the yearly full-dump JSON file; one
// download replaces thousands of listing pages.
type BillsDump struct {
	deps Deps
}

func NewBillsDump(deps Deps) *BillsDump {
	return &BillsDump{deps: deps}
}

func (s *BillsDump) Name() string { return "camara-dump" }

func (s *BillsDump) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetBills))
	cfg := s.deps.Cfg.Collect

	url := s.deps.Camara.BillsDumpURL(cfg.Year)
	dumpPath := filepath.Join(cfg.TempDir, fmt.Sprintf("proposicoes-%d.json", cfg.Year))
	if _, err := s.deps.Fetcher.DownloadToFile(ctx, url, dumpPath, fetcher.FetchOptions{ReuseTTL: s.deps.Cfg.Cache.BulkTTL}); err != nil {
		return &resilience.SourceUnavailableError{Source: s.Name(), Err: err}
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	wanted := make(map[string]bool, len(cfg.BillTypes))
	for _, t := range cfg.BillTypes {
		wanted[t] = true
	}

	// The decoder goroutine blocks sending once its channel buffer fills;
	// cancelling releases it on every path that stops reading early.
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items, errs := fetcher.DecodeJSONArray[dumpBill](dctx, f)
	var count int
	var stopped bool
	for item := range items {
		if len(wanted) > 0 && !wanted[item.SiglaTipo] {
			continue
		}
		if cfg.MaxItems > 0 && count >= cfg.MaxItems {
			stopped = true
			break
		}
		count++
		result.AddFound(1)

		bill := model.Bill{
			ExternalID:  item.ID,
			Type:        item.SiglaTipo,
			Number:      item.Numero,
			Year:        item.Ano,
			Summary:     item.Ementa,
			StatusText:  item.UltimoStatus.DescricaoSituacao,
			FullTextURL: item.URLInteiroTeor,
		}
		if t, err := time.Parse("2006-01-02T15:04:05", item.DataApresentacao); err == nil {
			bill.PresentedAt = &t
		}

		inserted, err := s.deps.Store.InsertBill(ctx, &bill)
		if err != nil {
			return err
		}
		if !inserted {
			result.RecordSkipped()
			continue
		}
		result.RecordSaved(false, 0)
	}
	cancel()
	if err := <-errs; err != nil && !stopped {
		// A truncated or malformed dump: surface as malformed so the
		// orchestrator falls back to the API.
		return &resilience.MalformedDataError{Err: err}
	}

	log.Info("bills collected from dump", zap.Int("kept", count))
	return nil
}

// BillsAPI is the fallback path through the paginated listing, which also
// resolves authorship via the per-bill authors endpoint.
type BillsAPI struct {
	deps Deps
}

func NewBillsAPI(deps Deps) *BillsAPI {
	return &BillsAPI{deps: deps}
}

func (s *BillsAPI) Name() string { return "camara-api" }

func (s *BillsAPI) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetBills))
	cfg := s.deps.Cfg.Collect

	matcher, _, err := loadMatcher(ctx, s.deps.Store, s.deps.Cfg.Resolve)
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 10
	}

	for _, billType := range cfg.BillTypes {
		bills, err := s.deps.Camara.ListBills(ctx, billType, cfg.Year, camara.PageOptions{
			MaxPages: cfg.MaxPages,
			MaxItems: cfg.MaxItems,
		})
		if err != nil {
			return err
		}
		result.AddFound(len(bills))
		log.Info("bills listed", zap.String("type", billType), zap.Int("count", len(bills)))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range bills {
			bill := bills[i]
			g.Go(func() error {
				matched := false
				authors, err := s.deps.Camara.GetBillAuthors(gctx, bill.ExternalID)
				if err != nil {
					log.Warn("author fetch failed", zap.Int64("bill", bill.ExternalID), zap.Error(err))
					result.RecordError()
				} else if len(authors) > 0 {
					bill.AuthorName = authors[0].Name
					if hit, ok := matcher.ResolveCode(authors[0].ExternalID, authors[0].Name); ok {
						bill.LegislatorID = hit.EntityID
						matched = true
					}
				}

				inserted, err := s.deps.Store.InsertBill(gctx, &bill)
				if err != nil {
					return err
				}
				if !inserted {
					result.RecordSkipped()
					return nil
				}
				result.RecordSaved(matched, 0)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

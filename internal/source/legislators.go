package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
)

// LegislatorsAPI collects the current membership from the open data API.
// The listing is cheap; detail records are fetched concurrently to pick
// up civil names and office status for the resolver index.
type LegislatorsAPI struct {
	deps Deps
}

func NewLegislatorsAPI(deps Deps) *LegislatorsAPI {
	return &LegislatorsAPI{deps: deps}
}

func (s *LegislatorsAPI) Name() string { return "camara-api" }

func (s *LegislatorsAPI) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetLegislators))

	listed, err := s.deps.Camara.ListLegislators(ctx, camara.PageOptions{
		MaxPages: s.deps.Cfg.Collect.MaxPages,
		MaxItems: s.deps.Cfg.Collect.MaxItems,
	})
	if err != nil {
		return err
	}
	result.AddFound(len(listed))
	log.Info("membership listed", zap.Int("count", len(listed)))

	workers := s.deps.Cfg.Collect.Workers
	if workers <= 0 {
		workers = 10
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range listed {
		leg := listed[i]
		g.Go(func() error {
			detail, err := s.deps.Camara.GetLegislator(gctx, leg.ExternalID)
			if err != nil {
				// The listing row is still worth saving.
				log.Warn("detail fetch failed, saving listing data",
					zap.Int64("external_id", leg.ExternalID), zap.Error(err))
				result.RecordError()
				detail = &leg
			}
			if detail.Email == "" {
				detail.Email = leg.Email
			}

			_, created, err := s.deps.Store.UpsertLegislator(gctx, detail)
			if err != nil {
				return eris.Wrapf(err, "source: save legislator %d", leg.ExternalID)
			}
			if created {
				result.RecordSaved(true, 0)
			} else {
				result.RecordSkipped()
			}
			return nil
		})
	}
	return g.Wait()
}

package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/dedup"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
)

// ExpendituresAPI collects CEAP reimbursement lines for every known
// legislator, one paginated listing per member, fanned out over a
// bounded worker pool.
type ExpendituresAPI struct {
	deps Deps
}

func NewExpendituresAPI(deps Deps) *ExpendituresAPI {
	return &ExpendituresAPI{deps: deps}
}

func (s *ExpendituresAPI) Name() string { return "camara-api" }

func (s *ExpendituresAPI) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetExpenditures))
	cfg := s.deps.Cfg.Collect

	legs, err := s.deps.Store.ListLegislators(ctx)
	if err != nil {
		return eris.Wrap(err, "source: load legislators for expenditures")
	}
	if len(legs) == 0 {
		return eris.New("source: no legislators collected yet, run the legislators target first")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 10
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range legs {
		leg := legs[i]
		g.Go(func() error {
			expenses, err := s.deps.Camara.ListExpenses(gctx, leg.ExternalID, cfg.Year, cfg.Months, camara.PageOptions{
				MaxPages: cfg.MaxPages,
				MaxItems: cfg.MaxItems,
			})
			if err != nil {
				// One member failing must not abort the whole run.
				log.Warn("expense listing failed",
					zap.Int64("external_id", leg.ExternalID), zap.Error(err))
				result.RecordError()
				return nil
			}

			seen := dedup.NewSeen()
			result.AddFound(len(expenses))
			for j := range expenses {
				e := &expenses[j]
				e.LegislatorID = leg.ID

				if seen.Check(dedup.ExpenditureKey(e)) {
					result.RecordSkipped()
					continue
				}

				inserted, err := s.deps.Store.InsertExpenditure(gctx, e)
				if err != nil {
					return eris.Wrapf(err, "source: save expenditure for %d", leg.ExternalID)
				}
				if !inserted {
					result.RecordSkipped()
					continue
				}
				result.RecordSaved(true, e.NetValue)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	snap := result.Snapshot()
	log.Info("expenditures collected",
		zap.Int("found", snap.Found),
		zap.Int("saved", snap.Saved),
		zap.Int("skipped", snap.Skipped),
		zap.Float64("total_value", snap.TotalValue),
	)
	return nil
}

// Package source implements the collection strategies behind each
// orchestration target. Every source fetches from one upstream, maps the
// payload onto canonical models, resolves authorship where it applies,
// and persists through the store.
package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/config"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/objstore"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/orchestrate"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resolve"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/store"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/transparencia"
)

// Deps bundles the collaborators every source draws from.
type Deps struct {
	Store         store.Store
	Fetcher       fetcher.Fetcher
	Camara        *camara.Client
	Transparencia *transparencia.Client
	Objects       objstore.Store
	Cfg           *config.Config
}

// Target names, also the collection-log keys.
const (
	TargetLegislators  = "legislators"
	TargetExpenditures = "expenditures"
	TargetAmendments   = "amendments"
	TargetBills        = "bills"
	TargetVotes        = "votes"
)

// BuildRegistry wires every target's source chain in dependency order:
// legislators first, since the other targets attribute records to them.
func BuildRegistry(deps Deps) *orchestrate.Registry {
	reg := orchestrate.NewRegistry()

	reg.Register(orchestrate.Target{
		Name:    TargetLegislators,
		Sources: []orchestrate.Source{NewLegislatorsAPI(deps)},
	})
	reg.Register(orchestrate.Target{
		Name:    TargetExpenditures,
		Sources: []orchestrate.Source{NewExpendituresAPI(deps)},
	})
	reg.Register(orchestrate.Target{
		Name: TargetAmendments,
		Sources: []orchestrate.Source{
			NewAmendmentsBulk(deps),
			NewAmendmentsAPI(deps),
		},
	})
	reg.Register(orchestrate.Target{
		Name: TargetBills,
		Sources: []orchestrate.Source{
			NewBillsDump(deps),
			NewBillsAPI(deps),
		},
	})
	reg.Register(orchestrate.Target{
		Name: TargetVotes,
		Sources: []orchestrate.Source{
			NewVotesAPI(deps),
			NewVotesArchive(deps),
		},
	})

	return reg
}

// loadMatcher builds the author-name matcher from every known legislator.
// Both the parliamentary and the civil name are indexed; bulk files use
// either.
func loadMatcher(ctx context.Context, st store.Store, cfg config.ResolveConfig) (*resolve.Matcher, map[int64]int64, error) {
	legs, err := st.ListLegislators(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]resolve.Entry, 0, len(legs)*2)
	externalToID := make(map[int64]int64, len(legs))
	for _, l := range legs {
		entries = append(entries, resolve.Entry{ID: l.ID, Name: l.Name, Code: l.ExternalID})
		if l.CivilName != "" && l.CivilName != l.Name {
			entries = append(entries, resolve.Entry{ID: l.ID, Name: l.CivilName, Code: l.ExternalID})
		}
		externalToID[l.ExternalID] = l.ID
	}

	zap.L().Debug("author matcher loaded",
		zap.Int("legislators", len(legs)),
		zap.Int("indexed_names", len(entries)),
	)
	matcher := resolve.NewMatcher(entries, resolve.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TokenWindow:         cfg.TokenWindow,
	})
	return matcher, externalToID, nil
}

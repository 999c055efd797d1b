package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
)

// VotesAPI collects roll-call votes for the configured date range,
// including each vote's individual ballots.
type VotesAPI struct {
	deps Deps
}

func NewVotesAPI(deps Deps) *VotesAPI {
	return &VotesAPI{deps: deps}
}

func (s *VotesAPI) Name() string { return "camara-api" }

func (s *VotesAPI) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetVotes))
	cfg := s.deps.Cfg.Collect

	dateStart, dateEnd := cfg.DateStart, cfg.DateEnd
	if dateStart == "" {
		dateStart = fmt.Sprintf("%d-01-01", cfg.Year)
	}
	if dateEnd == "" {
		dateEnd = fmt.Sprintf("%d-12-31", cfg.Year)
	}

	votes, err := s.deps.Camara.ListVotes(ctx, dateStart, dateEnd, camara.PageOptions{
		MaxPages: cfg.MaxPages,
		MaxItems: cfg.MaxItems,
	})
	if err != nil {
		return err
	}
	result.AddFound(len(votes))
	log.Info("votes listed", zap.Int("count", len(votes)))

	_, externalToID, err := loadMatcher(ctx, s.deps.Store, s.deps.Cfg.Resolve)
	if err != nil {
		return err
	}

	for i := range votes {
		v := &votes[i]

		ballots, err := s.deps.Camara.GetVoteBallots(ctx, v.ExternalID)
		if err != nil {
			// A vote without ballots is still a vote.
			log.Warn("ballot fetch failed", zap.String("vote", v.ExternalID), zap.Error(err))
			result.RecordError()
			ballots = nil
		}

		// Ballot payloads reference members by their upstream id; keep
		// only ballots attributable to a known legislator.
		kept := make([]model.BallotChoice, 0, len(ballots))
		for _, b := range ballots {
			switch b.Choice {
			case "Sim":
				v.YesCount++
			case "Não", "Nao":
				v.NoCount++
			}
			if id, ok := externalToID[b.LegislatorID]; ok {
				b.LegislatorID = id
				kept = append(kept, b)
			}
		}

		inserted, err := s.deps.Store.InsertVote(ctx, v)
		if err != nil {
			return err
		}
		if !inserted {
			result.RecordSkipped()
			continue
		}
		if _, err := s.deps.Store.InsertBallots(ctx, kept); err != nil {
			return err
		}
		result.RecordSaved(len(kept) > 0, 0)
	}
	return nil
}

// dumpVote is one element of the yearly roll-call dump.
type dumpVote struct {
	ID               string `json:"id"`
	Data             string `json:"data"`
	DataHoraRegistro string `json:"dataHoraRegistro"`
	SiglaOrgao       string `json:"siglaOrgao"`
	Descricao        string `json:"descricao"`
	Aprovacao        int    `json:"aprovacao"`
	VotosSim         int    `json:"votosSim"`
	VotosNao         int    `json:"votosNao"`
}

// VotesArchive is the fallback through the yearly archive dump. It
// carries aggregate counts but no individual ballots.
type VotesArchive struct {
	deps Deps
}

func NewVotesArchive(deps Deps) *VotesArchive {
	return &VotesArchive{deps: deps}
}

func (s *VotesArchive) Name() string { return "camara-archive" }

func (s *VotesArchive) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetVotes))
	cfg := s.deps.Cfg.Collect

	url := s.deps.Camara.VotesDumpURL(cfg.Year)
	dumpPath := filepath.Join(cfg.TempDir, fmt.Sprintf("votacoes-%d.json", cfg.Year))
	if _, err := s.deps.Fetcher.DownloadToFile(ctx, url, dumpPath, fetcher.FetchOptions{ReuseTTL: s.deps.Cfg.Cache.BulkTTL}); err != nil {
		return &resilience.SourceUnavailableError{Source: s.Name(), Err: err}
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	// The decoder goroutine blocks sending once its channel buffer fills;
	// cancelling releases it on every path that stops reading early.
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items, errs := fetcher.DecodeJSONArray[dumpVote](dctx, f)
	var count int
	var stopped bool
	for item := range items {
		if cfg.MaxItems > 0 && count >= cfg.MaxItems {
			stopped = true
			break
		}
		count++
		result.AddFound(1)

		vote := model.Vote{
			ExternalID:  item.ID,
			Description: item.Descricao,
			Organ:       item.SiglaOrgao,
			Approved:    item.Aprovacao == 1,
			YesCount:    item.VotosSim,
			NoCount:     item.VotosNao,
		}
		if t, err := time.Parse("2006-01-02T15:04:05", item.DataHoraRegistro); err == nil {
			vote.VotedAt = &t
		}

		inserted, err := s.deps.Store.InsertVote(ctx, &vote)
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
		return &resilience.MalformedDataError{Err: err}
	}

	log.Info("votes collected from archive", zap.Int("kept", count))
	return nil
}

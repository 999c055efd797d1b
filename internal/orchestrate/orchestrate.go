// Package orchestrate runs collection targets over their ordered source
// chains. Each target names the entity being collected; each source in
// its chain is a complete strategy for obtaining that entity, tried in
// priority order until one succeeds.
package orchestrate

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/store"
)

// Source is one strategy for collecting a target's records: fetch,
// normalize, resolve, and persist, accumulating counters into result.
type Source interface {
	// Name identifies the source in logs and the collection log.
	Name() string
	Collect(ctx context.Context, result *model.CollectionResult) error
}

// Target is a named entity collection with its fallback chain.
type Target struct {
	Name    string
	Sources []Source
}

// state tracks one target's progress through its chain.
type state int

const (
	stateNotStarted state = iota
	stateTrying
	stateSucceeded
	stateAllFailed
)

// Orchestrator drives targets and records outcomes in the collection log.
type Orchestrator struct {
	store store.Store
	reg   *Registry
}

func New(st store.Store, reg *Registry) *Orchestrator {
	return &Orchestrator{store: st, reg: reg}
}

// Run collects the named targets in registration order; an empty names
// slice means all targets. A target exhausting its chain is recorded as
// failed and does not stop the remaining targets. Run returns an error
// only when the context is cancelled or no selected target succeeded.
func (o *Orchestrator) Run(ctx context.Context, names []string) error {
	log := zap.L().With(zap.String("component", "orchestrate"))

	targets, err := o.reg.Select(names)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		log.Info("no targets selected")
		return nil
	}

	var succeeded, failed int
	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := o.runTarget(ctx, target); err != nil {
			if eris.Is(err, context.Canceled) {
				return err
			}
			log.Error("target failed", zap.String("target", target.Name), zap.Error(err))
			failed++
			continue
		}
		succeeded++
	}

	log.Info("run complete", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	if succeeded == 0 && failed > 0 {
		return eris.Errorf("orchestrate: all %d targets failed", failed)
	}
	return nil
}

func (o *Orchestrator) runTarget(ctx context.Context, target Target) error {
	log := zap.L().With(zap.String("target", target.Name))

	logID, err := o.store.StartCollection(ctx, target.Name)
	if err != nil {
		return eris.Wrapf(err, "orchestrate: start collection log for %s", target.Name)
	}

	result := model.NewCollectionResult(target.Name)
	st := stateNotStarted
	var attemptErrs []string

	for _, src := range target.Sources {
		if ctx.Err() != nil {
			o.recordFailure(ctx, logID, ctx.Err().Error(), log)
			return ctx.Err()
		}
		st = stateTrying

		srcLog := log.With(zap.String("source", src.Name()))
		srcLog.Info("trying source")
		start := time.Now()
		foundBefore := result.Snapshot().Found

		err := src.Collect(ctx, result)
		elapsed := time.Since(start)
		if err == nil {
			// A clean return with nothing found is still a failed source;
			// the next source may reach records this one could not.
			if result.Snapshot().Found == foundBefore {
				attemptErrs = append(attemptErrs, src.Name()+": no records found")
				srcLog.Warn("source returned no records, falling back", zap.Duration("elapsed", elapsed))
				continue
			}
			st = stateSucceeded
			result.Finalize(src.Name())
			srcLog.Info("source succeeded",
				zap.Duration("elapsed", elapsed),
				zap.Int("saved", result.Snapshot().Saved),
			)
			break
		}

		if eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded) {
			o.recordFailure(ctx, logID, err.Error(), log)
			return err
		}

		attemptErrs = append(attemptErrs, src.Name()+": "+err.Error())
		if resilience.IsSourceUnavailable(err) || resilience.IsTransient(err) || resilience.IsRateLimited(err) {
			srcLog.Warn("source unavailable, falling back", zap.Error(err), zap.Duration("elapsed", elapsed))
			continue
		}
		// Data-shape errors also fall through to the next source; a
		// malformed dump must not block the API path.
		srcLog.Warn("source failed, falling back", zap.Error(err), zap.Duration("elapsed", elapsed))
	}

	if st != stateSucceeded {
		st = stateAllFailed
		msg := "all sources failed: " + strings.Join(attemptErrs, "; ")
		o.recordFailure(ctx, logID, msg, log)
		return eris.Errorf("orchestrate: %s: %s", target.Name, msg)
	}

	if err := o.store.CompleteCollection(ctx, logID, result); err != nil {
		log.Error("failed to record collection completion", zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, logID int64, msg string, log *zap.Logger) {
	if err := o.store.FailCollection(ctx, logID, msg); err != nil {
		log.Error("failed to record collection failure", zap.Error(err))
	}
}

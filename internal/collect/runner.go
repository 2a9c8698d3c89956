package collect

import (
	"context"
	"time"

	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/otel"
)

// CursorStore persists high-water marks. *store.Store satisfies it.
type CursorStore interface {
	LoadCursor(entityID int64, source model.SourceType) (cursor.Mark, error)
	SaveCursor(m cursor.Mark) error
}

// Runner drives one collector over entities one at a time. Network pacing
// lives in the fetch client; the runner adds no concurrency of its own.
type Runner struct {
	Guard   *guard.Guard
	Cursors CursorStore
	Events  *otel.Logger
}

// Run collects for each entity in order and returns aggregate counters.
// A cancelled context stops the run between entities; whatever was already
// persisted stays valid.
func (r *Runner) Run(ctx context.Context, c Collector, entities []model.Entity) Totals {
	events := r.Events
	comp := string(c.Source())

	var totals Totals
	for _, e := range entities {
		if ctx.Err() != nil {
			logging.Warn("collect: run interrupted", "source", comp, "remaining", len(entities)-totals.Entities)
			break
		}
		totals.Add(r.one(ctx, c, e, events))
	}

	logging.Info("collect: run complete", "source", comp, "totals", totals.String())
	return totals
}

func (r *Runner) one(ctx context.Context, c Collector, e model.Entity, events *otel.Logger) Result {
	comp := string(c.Source())
	start := time.Now()

	v := r.Guard.Validate(ctx, e)
	if !v.Proceed {
		logging.Info("collect: entity skipped", "entity", e.ID, "name", e.Name, "source", comp, "reason", v.Reason)
		events.Emit(otel.Event{
			Level:    otel.LevelInfo,
			Kind:     otel.KindGuardReject,
			Comp:     comp,
			EntityID: e.ID,
			Source:   comp,
			Reason:   string(v.Reason),
		})
		res := Skip(v.Reason, cursor.New(e.ID, c.Source()))
		events.Collect(comp, e.ID, comp, 0, 0, string(res.SkipReason), time.Since(start))
		return res
	}

	mark, err := r.Cursors.LoadCursor(e.ID, c.Source())
	if err != nil {
		logging.Error("collect: load cursor", "entity", e.ID, "source", comp, "err", err)
		events.EntityError(otel.KindStoreError, comp, e.ID, comp, err)
		mark = cursor.New(e.ID, c.Source())
	}

	events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCollectStart, Comp: comp, EntityID: e.ID, Source: comp})

	res, err := c.Collect(ctx, Target{Entity: e, Verdict: v}, mark)
	if err != nil {
		res.Errors++
		logging.Error("collect: collector failed", "entity", e.ID, "source", comp, "err", err)
		events.EntityError(otel.KindCollectError, comp, e.ID, comp, err)
	}

	if res.NewCursor.After.After(mark.After) {
		if err := r.Cursors.SaveCursor(res.NewCursor); err != nil {
			res.Errors++
			logging.Error("collect: save cursor", "entity", e.ID, "source", comp, "err", err)
			events.EntityError(otel.KindStoreError, comp, e.ID, comp, err)
		}
	}

	logging.Debug("collect: entity done",
		"entity", e.ID, "source", comp,
		"saved", res.Saved, "skipped", res.Skipped, "extracted", res.Extracted,
		"errors", res.Errors, "reason", res.SkipReason, "cursor", res.NewCursor.String())
	events.Collect(comp, e.ID, comp, res.Saved, res.Skipped, string(res.SkipReason), time.Since(start))
	return res
}

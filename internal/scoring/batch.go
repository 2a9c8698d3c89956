package scoring

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/pythia/internal/model"
)

// SnippetSource reads an entity's current snippet set.
type SnippetSource interface {
	SnippetsForEntity(entityID int64) ([]model.Snippet, error)
}

// Outcome is the result of scoring one entity in a batch.
type Outcome struct {
	EntityID  int64
	Breakdown Breakdown
	Err       error
}

// Batch scores entities with at most workers in flight. Outcomes are in ids
// order. One entity's failure does not stop the others; a cancelled ctx
// leaves the remaining outcomes with ctx's error.
func (e *Engine) Batch(ctx context.Context, src SnippetSource, ids []int64, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}
	out := make([]Outcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		out[i].EntityID = id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			snippets, err := src.SnippetsForEntity(id)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Breakdown, out[i].Err = e.Compute(id, snippets)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/pythia/internal/features"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/otel"
	"github.com/abelbrown/pythia/internal/scoring"
)

func runScore() error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	ids := fs.String("ids", "", "Comma-separated entity ids (default: the catalog)")
	limit := fs.Int("limit", 0, "Max entities when -ids is empty (0 = all)")
	workers := fs.Int("workers", 4, "Entities scored concurrently")
	verbose := fs.Bool("v", false, "Print the breakdown for each entity")
	fs.Parse(os.Args[1:])

	rt, err := setup("score")
	if err != nil {
		return err
	}
	defer rt.Close()

	entities, err := selectEntities(rt.st, *ids, *limit)
	if err != nil {
		return err
	}
	idList := make([]int64, len(entities))
	names := make(map[int64]string, len(entities))
	for i, e := range entities {
		idList[i] = e.ID
		names[e.ID] = e.Name
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine := scoring.New(scoring.WithExtractor(features.New(rt.lex)))
	start := time.Now()
	outcomes := engine.Batch(ctx, rt.st, idList, *workers)

	var scored, empty, failed int
	for _, o := range outcomes {
		switch {
		case errors.Is(o.Err, scoring.ErrNoSnippets):
			empty++
			continue
		case o.Err != nil:
			failed++
			logging.Error("score: compute failed", "entity", o.EntityID, "err", o.Err)
			rt.events.EntityError(otel.KindScoreError, "scoring", o.EntityID, "", o.Err)
			continue
		}

		sc := o.Breakdown.Score
		if _, err := rt.st.InsertScore(sc); err != nil {
			failed++
			logging.Error("score: persist failed", "entity", o.EntityID, "err", err)
			rt.events.EntityError(otel.KindStoreError, "scoring", o.EntityID, "", err)
			continue
		}
		scored++
		rt.events.Emit(otel.Event{
			Level:    otel.LevelInfo,
			Kind:     otel.KindScoreComplete,
			Comp:     "scoring",
			EntityID: o.EntityID,
			Count:    sc.SnippetCount,
			Extra:    map[string]any{"pythia": sc.Pythia, "confidence": sc.Confidence},
		})

		if *verbose {
			printBreakdown(names[o.EntityID], o.Breakdown)
		}
	}

	fmt.Printf("scored=%d no_snippets=%d errors=%d elapsed=%s\n",
		scored, empty, failed, time.Since(start).Round(time.Millisecond))
	return nil
}

func printBreakdown(name string, b scoring.Breakdown) {
	sc := b.Score
	fmt.Printf("%-28s pythia=%3d conf=%.2f  tiers=%.0f/%.0f/%.0f%%  C=%.1f M=%.1f R=%.1f  pen=%.1f addon=%.1f",
		truncate(name, 28), sc.Pythia, sc.Confidence,
		sc.Tier1Pct, sc.Tier2Pct, sc.Tier3Pct,
		sc.ConstraintScore, sc.MechanismScore, sc.RealityScore,
		sc.PenaltyTotal, sc.OntologyAddon)
	if b.Discounted {
		fmt.Print("  (tier discount)")
	}
	fmt.Println()
}

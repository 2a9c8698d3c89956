package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/otel"
)

func runIngestNews() error {
	fs := flag.NewFlagSet("ingest-news", flag.ExitOnError)
	defaults := fs.Bool("defaults", false, "Use the built-in startup news feeds instead of PYTHIA_NEWS_FEEDS")
	fs.Parse(os.Args[1:])

	rt, err := setup("news")
	if err != nil {
		return err
	}
	defer rt.Close()

	var sources []fetch.NewsSource
	switch feeds := rt.cfg.Feeds(); {
	case *defaults || len(feeds) == 0:
		sources = fetch.DefaultNewsSources()
	default:
		sources = fetch.SourcesFromURLs(feeds)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fetcher := fetch.NewNewsFetcher(rt.client())
	var fetched, stored, failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		articles, err := fetcher.Fetch(ctx, src)
		if err != nil {
			failed++
			logging.Warn("news: fetch failed", "source", src.Name, "url", src.URL, "err", err)
			rt.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFetchError, Comp: "news", Source: src.Name, Err: err.Error()})
			continue
		}
		n, err := rt.st.SaveArticles(articles)
		if err != nil {
			failed++
			logging.Error("news: save failed", "source", src.Name, "err", err)
			rt.events.Error(otel.KindStoreError, "news", err)
			continue
		}
		fetched += len(articles)
		stored += n
		logging.Info("news: ingested", "source", src.Name, "fetched", len(articles), "new", n)
		rt.events.Emit(otel.Event{
			Level:  otel.LevelInfo,
			Kind:   otel.KindNewsIngest,
			Comp:   "news",
			Source: src.Name,
			Count:  n,
			Dur:    time.Since(start),
		})
	}

	total, _ := rt.st.ArticleCount()
	fmt.Printf("feeds=%d fetched=%d new=%d errors=%d corpus=%d\n", len(sources), fetched, stored, failed, total)
	return nil
}

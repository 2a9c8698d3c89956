package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/collect/blog"
	"github.com/abelbrown/pythia/internal/collect/code"
	"github.com/abelbrown/pythia/internal/collect/forum"
	"github.com/abelbrown/pythia/internal/collect/press"
	"github.com/abelbrown/pythia/internal/config"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/tier"
)

func runCollect() error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	source := fs.String("source", "", "Source to collect: forum, blog, press, code")
	ids := fs.String("ids", "", "Comma-separated entity ids (default: the catalog)")
	limit := fs.Int("limit", 0, "Max entities when -ids is empty (0 = all)")
	fs.Parse(os.Args[1:])

	st, ok := model.ParseSourceType(*source)
	if !ok {
		return fmt.Errorf("-source must be one of forum, blog, press, code (got %q)", *source)
	}

	reqs := []config.Requirement{}
	switch st {
	case model.SourceForum:
		reqs = append(reqs, config.RequireForum)
	case model.SourceCode:
		reqs = append(reqs, config.RequireCode)
	}
	rt, err := setup("collect", reqs...)
	if err != nil {
		return err
	}
	defer rt.Close()

	entities, err := selectEntities(rt.st, *ids, *limit)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Println("no entities; add some with 'pythia entity add'")
		return nil
	}

	client := rt.client()
	g := guard.New(client, guard.WithLexicon(rt.lex))
	deps := collect.Deps{
		Getter:   client,
		Sink:     rt.st,
		Guard:    g,
		Tiers:    tier.New(rt.lex),
		Founders: collect.NewLexiconFounders(rt.lex),
		Lexicon:  rt.lex,
		Events:   rt.events,
	}

	var c collect.Collector
	switch st {
	case model.SourceForum:
		c = forum.New(deps, forum.Options{SearchURL: rt.cfg.ForumSearchURL, TopN: rt.cfg.ForumTopN})
	case model.SourceBlog:
		c = blog.New(deps, blog.Options{MaxPages: rt.cfg.SitemapPages})
	case model.SourcePress:
		window := time.Duration(rt.cfg.PressWindow) * 24 * time.Hour
		c = press.New(deps, rt.st, press.Options{Window: window})
	case model.SourceCode:
		c = code.New(deps, code.Options{APIURL: rt.cfg.CodeAPIURL, Token: rt.cfg.GitHubToken})
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := &collect.Runner{Guard: g, Cursors: rt.st, Events: rt.events}
	start := time.Now()
	totals := runner.Run(ctx, c, entities)

	fmt.Printf("%-16s %s\n", st, totals.String())
	fmt.Printf("elapsed          %s\n", time.Since(start).Round(time.Millisecond))
	if errs := rt.recent.Errors(5); len(errs) > 0 {
		fmt.Println("\nrecent errors:")
		for _, ev := range errs {
			fmt.Printf("  %-12s entity=%d %s\n", ev.Kind, ev.EntityID, truncate(ev.Err, 100))
		}
	}
	return nil
}

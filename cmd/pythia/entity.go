package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/pythia/internal/model"
)

func runEntity() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: pythia entity add|list [flags]")
	}
	sub := os.Args[1]
	os.Args = os.Args[1:]

	switch sub {
	case "add":
		return runEntityAdd()
	case "list":
		return runEntityList()
	default:
		return fmt.Errorf("unknown entity command %q (want add or list)", sub)
	}
}

func runEntityAdd() error {
	fs := flag.NewFlagSet("entity add", flag.ExitOnError)
	id := fs.Int64("id", 0, "Catalog id (0 allocates a new one)")
	name := fs.String("name", "", "Company name")
	domain := fs.String("domain", "", "Company domain")
	repo := fs.String("repo", "", "Primary code repository, owner/name")
	fs.Parse(os.Args[1:])

	rt, err := setup("entity")
	if err != nil {
		return err
	}
	defer rt.Close()

	e, err := rt.st.UpsertEntity(model.Entity{ID: *id, Name: *name, Domain: *domain, Repo: *repo})
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\t%s\n", e.ID, e.Name, e.Domain, e.Repo)
	return nil
}

func runEntityList() error {
	fs := flag.NewFlagSet("entity list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Max entities (0 = all)")
	fs.Parse(os.Args[1:])

	rt, err := setup("entity")
	if err != nil {
		return err
	}
	defer rt.Close()

	entities, err := rt.st.Entities(*limit)
	if err != nil {
		return err
	}
	for _, e := range entities {
		score := "-"
		if sc, err := rt.st.LatestScore(e.ID); err == nil && sc != nil {
			score = fmt.Sprintf("%d (%.2f)", sc.Pythia, sc.Confidence)
		}
		fmt.Printf("%-5d %-28s %-24s %-28s %s\n", e.ID, truncate(e.Name, 28), e.Domain, e.Repo, score)
	}
	return nil
}

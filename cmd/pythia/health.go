package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/abelbrown/pythia/internal/health"
)

func runHealth() error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	days := fs.Int("days", 7, "Window in days")
	fs.Parse(os.Args[1:])

	rt, err := setup("health")
	if err != nil {
		return err
	}
	defer rt.Close()

	sum, err := health.Build(rt.st, clockwork.NewRealClock(), *days)
	if err != nil {
		return err
	}
	fmt.Print(health.Render(sum))
	return nil
}

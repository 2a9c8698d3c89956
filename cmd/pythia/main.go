// Command pythia is the operational CLI for the credibility profiler.
//
// Usage:
//
//	pythia                          Show help
//	pythia collect -source forum    Collect snippets for entities from one source
//	pythia score                    Recompute scores for entities
//	pythia health -days 7           Summary of the last N days
//	pythia ingest-news              Pull news feeds into the article corpus
//	pythia entity add|list          Manage the local entity catalog
//	pythia events                   JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `pythia - attributed-speech credibility profiler

Usage:
  pythia <command> [flags]

Commands:
  collect       Collect snippets for entities from one source (forum, blog, press, code)
  score         Recompute credibility scores from stored snippets
  health        Snippets, scores and coverage over the last N days
  ingest-news   Pull news feeds into the article corpus used by press collection
  entity        Manage the local entity catalog (add, list)
  events        JSONL event log viewer

Environment:
  PYTHIA_DB_PATH           SQLite database (default: ~/.pythia/pythia.db)
  PYTHIA_EVENT_LOG         JSONL run event log (default: next to the database)
  PYTHIA_LOG_LEVEL         debug, info, warn, error (default: info)
  PYTHIA_LOG_DIR           Write the human log to a dated file here instead of stderr
  PYTHIA_REQUEST_DELAY     Minimum spacing between HTTP requests (default: 1s)
  PYTHIA_NEWS_FEEDS        Comma-separated feed URLs for ingest-news
  GITHUB_TOKEN             Required for collect -source code

Run 'pythia <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	var err error
	switch cmd {
	case "collect":
		err = runCollect()
	case "score":
		err = runScore()
	case "health":
		err = runHealth()
	case "ingest-news":
		err = runIngestNews()
	case "entity":
		err = runEntity()
	case "events":
		err = runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "pythia: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pythia %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

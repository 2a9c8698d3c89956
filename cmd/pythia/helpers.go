package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/abelbrown/pythia/internal/config"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/lexicon"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/otel"
	"github.com/abelbrown/pythia/internal/store"
)

// runtime is what every command shares: settings, the database, run events
// and the human log.
type runtime struct {
	cfg    *config.Config
	st     *store.Store
	events *otel.Logger
	recent *otel.Recent
	lex    *lexicon.Lexicon

	eventFile *os.File
}

// setup loads configuration, aborts on anything the command requires but
// lacks, then opens logging, the event log and the database.
func setup(comp string, reqs ...config.Requirement) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg, append([]config.Requirement{config.RequireDatabase}, reqs...)...); err != nil {
		return nil, err
	}

	if cfg.LogDir != "" {
		if err := logging.InitFile(cfg.LogDir, cfg.LogLevel); err != nil {
			return nil, err
		}
	} else {
		logging.Init(os.Stderr, cfg.LogLevel)
	}

	rt, err := openRuntime(cfg)
	if err != nil {
		logging.Close()
		return nil, err
	}
	rt.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: comp})
	logging.Debug("startup", "cmd", comp, "db", cfg.DBPath, "log", logging.Path(), "session", rt.events.SessionID())
	return rt, nil
}

// openRuntime loads the lexicon and opens the database and the event log.
func openRuntime(cfg *config.Config) (*runtime, error) {
	lx := lexicon.Default()
	if cfg.Lexicon != "" {
		data, err := os.ReadFile(cfg.Lexicon)
		if err != nil {
			return nil, fmt.Errorf("read lexicon: %w", err)
		}
		if lx, err = lexicon.Load(data); err != nil {
			return nil, fmt.Errorf("load lexicon %s: %w", cfg.Lexicon, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rt := &runtime{cfg: cfg, st: st, lex: lx, recent: otel.NewRecent(512)}

	f, err := os.OpenFile(eventLogPath(cfg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("event log unavailable", "path", eventLogPath(cfg), "err", err)
	} else {
		rt.eventFile = f
		rt.events = otel.NewLogger(f)
		rt.events.Attach(rt.recent)
	}
	return rt, nil
}

// Close flushes events and releases files.
func (rt *runtime) Close() {
	rt.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown})
	rt.events.Close()
	if rt.eventFile != nil {
		rt.eventFile.Close()
	}
	rt.st.Close()
	logging.Close()
}

// client builds the shared, paced HTTP client.
func (rt *runtime) client() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		Timeout:   rt.cfg.HTTPTimeout,
		Delay:     rt.cfg.RequestDelay,
		UserAgent: rt.cfg.UserAgent,
	})
}

// eventLogPath is PYTHIA_EVENT_LOG or pythia.events.jsonl next to the database.
func eventLogPath(cfg *config.Config) string {
	if cfg.EventLog != "" {
		return cfg.EventLog
	}
	return filepath.Join(filepath.Dir(cfg.DBPath), "pythia.events.jsonl")
}

// signalContext is cancelled on SIGINT or SIGTERM so runs stop between entities.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// selectEntities resolves the -ids flag (comma-separated) or, when empty,
// the first limit catalog entities.
func selectEntities(st *store.Store, ids string, limit int) ([]model.Entity, error) {
	if strings.TrimSpace(ids) == "" {
		return st.Entities(limit)
	}
	var out []model.Entity
	for _, raw := range strings.Split(ids, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad entity id %q", raw)
		}
		e, err := st.Entity(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

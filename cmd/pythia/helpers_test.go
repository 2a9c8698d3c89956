package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pythia/internal/logging"
)

func TestSetupClosesLogFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PYTHIA_DB_PATH", filepath.Join(dir, "pythia.db"))
	t.Setenv("PYTHIA_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("PYTHIA_LEXICON", filepath.Join(dir, "missing.yaml"))
	t.Cleanup(func() { logging.Logger = nil })

	rt, err := setup("test")
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.Contains(t, err.Error(), "read lexicon")
	assert.Empty(t, logging.Path(), "log file left open")
}

func TestSetupOpensRuntime(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PYTHIA_DB_PATH", filepath.Join(dir, "pythia.db"))
	t.Setenv("PYTHIA_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("PYTHIA_LEXICON", "")
	t.Setenv("PYTHIA_EVENT_LOG", "")
	t.Cleanup(func() { logging.Logger = nil })

	rt, err := setup("test")
	require.NoError(t, err)
	assert.NotEmpty(t, logging.Path())
	assert.Equal(t, filepath.Join(dir, "pythia.events.jsonl"), eventLogPath(rt.cfg))

	rt.Close()
	assert.Empty(t, logging.Path())
}

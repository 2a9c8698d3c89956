package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopBeforeInit(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Info("dropped", "k", 1)
		Warn("dropped")
	})
	assert.Nil(t, WithPrefix("x"))
}

func TestInitLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "warn")
	t.Cleanup(func() { Logger = nil })

	Info("hidden")
	Warn("shown", "entity", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "entity=42")
}

func TestInitUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "chatty")
	t.Cleanup(func() { Logger = nil })

	Debug("hidden")
	Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitFileAndClose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitFile(dir, "info"))
	t.Cleanup(func() { Logger = nil })

	path := Path()
	assert.True(t, strings.HasPrefix(path, dir))
	Info("to file")

	Close()
	assert.Empty(t, Path())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

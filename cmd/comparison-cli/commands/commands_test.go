package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/document"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

func TestReadPrompt(t *testing.T) {
	got, err := readPrompt("Compare obligations", "")
	require.NoError(t, err)
	assert.Equal(t, "Compare obligations", got)

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("From file"), 0o644))
	got, err = readPrompt("", path)
	require.NoError(t, err)
	assert.Equal(t, "From file", got)

	_, err = readPrompt("inline", path)
	assert.ErrorContains(t, err, "not both")

	_, err = readPrompt("  ", "")
	assert.ErrorContains(t, err, "base prompt is required")

	_, err = readPrompt("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "read prompt file")
}

func TestDocumentNames(t *testing.T) {
	docs := []*document.Document{
		document.FromText("a.pdf", "x"),
		document.FromText("b.md", "y"),
	}
	assert.Equal(t, []string{"a.pdf", "b.md"}, documentNames(docs))
}

func TestHistoryRows(t *testing.T) {
	run := &storage.Run{
		ID:         "run-1",
		Status:     storage.RunStatusSucceeded,
		BasePrompt: "Compare the incident reporting obligations across both frameworks",
		Strategy:   chunking.StrategySection,
		Chunks:     comparison.ChunkStats{Processed: 4, Succeeded: 3, Failed: 1},
		Duration:   90 * time.Second,
		CreatedAt:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	rows := historyRows([]*storage.Run{run})
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, "succeeded", row[2])
	assert.Equal(t, "section", row[3])
	assert.Equal(t, "3/4", row[4])
	assert.Equal(t, "1m 30s", row[5])
	assert.Len(t, []rune(row[6]), 40)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"compare", "history", "show", "topics"} {
		assert.True(t, names[want], want)
	}
}

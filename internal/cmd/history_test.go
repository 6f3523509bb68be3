package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatext/csrgen/internal/history"
	"github.com/pharmatext/csrgen/internal/models"
)

func seedHistory(t *testing.T) (configPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	store, err := history.NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.BeginRun(history.Run{
		ID:               "run-abc",
		StartedAt:        time.Now(),
		ClinicalData:     "trial.json",
		Template:         "template.md",
		Model:            "gpt-4o-mini",
		TargetConfidence: 80,
		MaxIterations:    3,
	}))
	require.NoError(t, store.Recorder("run-abc").RecordIteration(models.IterationRecord{
		Iteration:         1,
		CompletenessScore: 70,
		ComplianceScore:   74,
		CombinedScore:     72,
		EvaluatedPath:     "output/csr.md",
		ProducedPath:      "output/csr_v1.md",
	}))
	require.NoError(t, store.FinishRun("run-abc", &models.LoopResult{
		FinalPath:  "output/csr_v1.md",
		FinalScore: 84,
		Iterations: 2,
	}, ""))

	configPath = filepath.Join(dir, "config.yaml")
	content := "history:\n  enabled: true\n  db_path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestHistoryCommandListsRuns(t *testing.T) {
	configPath := seedHistory(t)

	cmd := NewHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "run-abc")
	assert.Contains(t, out.String(), "converged")
	assert.Contains(t, out.String(), "84.0")
}

func TestHistoryCommandShowsIterations(t *testing.T) {
	configPath := seedHistory(t)

	cmd := NewHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "--run", "run-abc"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "72.0")
	assert.Contains(t, out.String(), "output/csr_v1.md")
}

func TestHistoryCommandEmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "history:\n  enabled: true\n  db_path: " + filepath.Join(dir, "fresh.db") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cmd := NewHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No runs recorded")
}

func TestHistoryCommandUnknownRun(t *testing.T) {
	configPath := seedHistory(t)

	cmd := NewHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "--run", "nope"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No iterations recorded")
}

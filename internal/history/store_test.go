package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatext/csrgen/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:               id,
		StartedAt:        started,
		ClinicalData:     "trial.json",
		Template:         "template.md",
		Model:            "gpt-4o-mini",
		TargetConfidence: 80,
		MaxIterations:    3,
	}
}

func TestStoreRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, "gpt-4o-mini", runs[0].Model)

	result := &models.LoopResult{
		FinalPath:  "output/csr_v1.md",
		FinalScore: 84,
		Iterations: 2,
	}
	require.NoError(t, store.FinishRun("run-1", result, ""))

	runs, err = store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusConverged, runs[0].Status)
	assert.Equal(t, "output/csr_v1.md", runs[0].FinalPath)
	assert.Equal(t, 84.0, runs[0].FinalScore)
	assert.Equal(t, 2, runs[0].Iterations)
	assert.False(t, runs[0].Exhausted)
}

func TestFinishRunExhausted(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))

	result := &models.LoopResult{
		FinalPath:           "output/csr_v3.md",
		FinalScore:          71,
		Iterations:          3,
		IterationsExhausted: true,
	}
	require.NoError(t, store.FinishRun("run-1", result, ""))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, runs[0].Status)
	assert.True(t, runs[0].Exhausted)
}

func TestFinishRunFailed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))
	require.NoError(t, store.FinishRun("run-1", nil, "compliance evaluation failed"))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "compliance evaluation failed", runs[0].Error)
}

func TestRecorderPersistsIterations(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))

	recorder := store.Recorder("run-1")
	require.NoError(t, recorder.RecordIteration(models.IterationRecord{
		Iteration:            1,
		CompletenessScore:    70,
		ComplianceScore:      74,
		CombinedScore:        72,
		EvaluatedPath:        "output/csr.md",
		ProducedPath:         "output/csr_v1.md",
		ReviewReportPath:     "output/csr_review_v1.md",
		ComplianceReportPath: "output/csr_compliance_v1.md",
	}))
	require.NoError(t, recorder.RecordIteration(models.IterationRecord{
		Iteration:         2,
		CompletenessScore: 82,
		ComplianceScore:   86,
		CombinedScore:     84,
		EvaluatedPath:     "output/csr_v1.md",
	}))

	recs, err := store.GetIterations("run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Iteration)
	assert.Equal(t, 72.0, recs[0].CombinedScore)
	assert.Equal(t, "output/csr_v1.md", recs[0].ProducedPath)
	assert.Equal(t, 84.0, recs[1].CombinedScore)
	assert.Empty(t, recs[1].ProducedPath)
}

func TestRecorderRejectsDuplicateIteration(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))

	recorder := store.Recorder("run-1")
	rec := models.IterationRecord{Iteration: 1, CombinedScore: 50}
	require.NoError(t, recorder.RecordIteration(rec))
	assert.Error(t, recorder.RecordIteration(rec))
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.BeginRun(testRun("older", base)))
	require.NoError(t, store.BeginRun(testRun("newer", base.Add(time.Minute))))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, "older", runs[1].ID)
}

func TestListRunsLimit(t *testing.T) {
	store := newTestStore(t)
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.BeginRun(testRun(id, base.Add(time.Duration(i)*time.Second))))
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetIterationsUnknownRun(t *testing.T) {
	store := newTestStore(t)
	recs, err := store.GetIterations("missing")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNewStoreCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "history.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.BeginRun(testRun("run-1", time.Now())))
}

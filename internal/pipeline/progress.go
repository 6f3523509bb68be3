package pipeline

// Snapshot is an immutable view of loop progress handed to an external
// consumer. Consumers observe; they cannot mutate loop state.
type Snapshot struct {
	// Status is a short human-readable description of the current step.
	Status string

	// Fraction is overall progress in [0, 1].
	Fraction float64

	// Iteration is the current 1-based iteration, 0 before the loop starts.
	Iteration int

	// Latest scores; zero until the first iteration completes evaluation.
	CompletenessScore float64
	ComplianceScore   float64
	CombinedScore     float64
}

// ProgressFunc receives progress snapshots. Called synchronously from the
// loop goroutine; implementations should return quickly.
type ProgressFunc func(Snapshot)

// iterationFraction maps an iteration index onto overall progress. The loop
// occupies the 0.35..0.95 band; extraction and composition fill the space
// below it.
func iterationFraction(iteration, maxIterations int) float64 {
	if maxIterations <= 0 {
		return 0.95
	}
	return 0.35 + 0.60*float64(iteration)/float64(maxIterations)
}

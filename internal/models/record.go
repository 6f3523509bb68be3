package models

// IterationRecord captures the scores and document references for one
// improvement-loop iteration. Records are append-only; together they form
// the score history used for convergence decisions and reporting.
type IterationRecord struct {
	// Iteration is the 1-based iteration index.
	Iteration int

	// CompletenessScore is the completeness evaluator's overall score.
	CompletenessScore float64

	// ComplianceScore is the compliance evaluator's overall score.
	ComplianceScore float64

	// CombinedScore is the unweighted mean of the two rubric scores.
	CombinedScore float64

	// EvaluatedPath is the document version the scores refer to.
	EvaluatedPath string

	// ProducedPath is the document version produced by the revision step,
	// or empty if the iteration converged and no revision ran.
	ProducedPath string

	// ReviewReportPath is the persisted completeness report for this iteration.
	ReviewReportPath string

	// ComplianceReportPath is the persisted compliance report for this iteration.
	ComplianceReportPath string
}

// LoopResult is the terminal output of the improvement loop, produced
// exactly once per run.
type LoopResult struct {
	// FinalPath references the final document version. On convergence this
	// is the version that was just evaluated; on iteration exhaustion it is
	// the last produced (post-revision) version.
	FinalPath string

	// FinalScore is the combined score of the last evaluated version.
	FinalScore float64

	// Iterations is the number of evaluate/revise cycles executed.
	Iterations int

	// IterationsExhausted is true when the loop stopped because the
	// iteration budget ran out without reaching the target. This is a
	// normal terminal state, not an error.
	IterationsExhausted bool

	// History holds one record per iteration, in order.
	History []IterationRecord

	// LastReview and LastCompliance reference the reports from the final
	// iteration executed.
	LastReview     *EvaluationReport
	LastCompliance *EvaluationReport
}

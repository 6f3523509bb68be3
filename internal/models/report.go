// Package models defines the shared data types produced and consumed by the
// CSR improvement pipeline: evaluation reports, per-iteration records, and
// the terminal loop result.
package models

// Rubric identifiers for the two evaluators.
const (
	RubricCompleteness = "completeness"
	RubricCompliance   = "compliance"
)

// SectionFeedback holds the evaluator's assessment of a single document
// section, keyed in EvaluationReport.Sections by normalized section name.
type SectionFeedback struct {
	// Score is the section-level score in [0, 100].
	Score float64

	// Rationale is the evaluator's free-form justification for the score.
	Rationale string

	// Gaps describes identified omissions or deficiencies, if any.
	Gaps string
}

// EvaluationReport is the structured result of evaluating one document
// version against one rubric. The overall score is reported independently by
// the evaluator, not derived from section scores.
type EvaluationReport struct {
	// Rubric is RubricCompleteness or RubricCompliance.
	Rubric string

	// DocumentPath is the document version that was evaluated.
	DocumentPath string

	// ReportPath is where the full free-form evaluation text was persisted.
	ReportPath string

	// OverallScore is the extracted overall score in [0, 100].
	// Zero when the evaluator output carried no parseable score line.
	OverallScore float64

	// ScoreFound is false when OverallScore defaulted to zero because no
	// score line matched.
	ScoreFound bool

	// Sections maps normalized section name to per-section feedback.
	// Parsed best-effort from the evaluation text; may be empty.
	Sections map[string]SectionFeedback

	// SectionOrder preserves the order sections appeared in the evaluation
	// text. Display only; correctness never depends on it.
	SectionOrder []string
}

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/models"
)

// HistoryRecorder persists iteration records as the loop produces them.
// Recording is diagnostic: failures are logged and never abort the loop.
type HistoryRecorder interface {
	RecordIteration(rec models.IterationRecord) error
}

// LoopOptions configures the improvement loop.
type LoopOptions struct {
	// TargetConfidence is the combined score that stops the loop, in [0, 100].
	TargetConfidence float64

	// MaxIterations bounds the number of evaluate/revise cycles. Must be >= 1.
	MaxIterations int

	// SequentialEvaluation runs the two evaluators one after the other
	// instead of concurrently. Either ordering is correct; concurrent is
	// the default for latency.
	SequentialEvaluation bool
}

// Loop drives the iterative document-improvement state machine:
//
//	Start -> { Evaluating -> Aggregating -> (Converged | Revising) -> ... } -> Terminated
//
// Iterations are strictly sequential: each consumes the document version
// the previous one produced. Within an iteration the two evaluators are
// independent and run as a fan-out/fan-in join. The loop owns its iteration
// history exclusively; document versions are held by reference only.
type Loop struct {
	completeness *Evaluator
	compliance   *Evaluator
	reviser      *Reviser
	opts         LoopOptions
	logger       Logger

	progress ProgressFunc
	history  HistoryRecorder
}

// NewLoop creates an improvement loop over the given evaluators and reviser.
func NewLoop(completeness, compliance *Evaluator, reviser *Reviser, opts LoopOptions, logger Logger) *Loop {
	return &Loop{
		completeness: completeness,
		compliance:   compliance,
		reviser:      reviser,
		opts:         opts,
		logger:       orNop(logger),
	}
}

// SetProgress installs a progress consumer. Must be called before Run.
func (l *Loop) SetProgress(fn ProgressFunc) {
	l.progress = fn
}

// SetHistoryRecorder installs a history recorder. Must be called before Run.
func (l *Loop) SetHistoryRecorder(h HistoryRecorder) {
	l.history = h
}

// Optional logger capabilities; ConsoleLogger implements both.
type iterationLogger interface {
	LogIterationStart(iteration, maxIterations int, docPath string)
}
type scoreLogger interface {
	LogScores(rec models.IterationRecord, target float64)
}

// Run executes the loop starting from the composed v0 document at
// initialPath and returns the terminal LoopResult.
//
// Termination rules:
//   - Convergence: combined score >= TargetConfidence stops the loop at
//     that iteration; the version just evaluated is final and no further
//     revision occurs.
//   - Exhaustion: every non-converged iteration revises, including the
//     last one, so when the budget runs out the final document is the
//     last produced (post-revision, not yet evaluated) version and
//     IterationsExhausted is set. This is a normal terminal state.
//   - Failure: any evaluator or reviser error aborts the loop with a
//     LoopError carrying the partial history. No retry, no stale version.
//
// Cancellation is cooperative, checked at the top of each iteration so an
// in-flight evaluator or reviser call always completes before the loop
// honors a stop request.
func (l *Loop) Run(ctx context.Context, initialPath string) (*models.LoopResult, error) {
	if l.opts.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: max iterations must be >= 1, got %d", ErrInvalidConfiguration, l.opts.MaxIterations)
	}
	if l.opts.TargetConfidence < 0 || l.opts.TargetConfidence > 100 {
		return nil, fmt.Errorf("%w: target confidence must be in [0, 100], got %v", ErrInvalidConfiguration, l.opts.TargetConfidence)
	}

	dir := filepath.Dir(initialPath)
	stem := document.Stem(initialPath)

	current := initialPath
	var history []models.IterationRecord
	var lastReview, lastCompliance *models.EvaluationReport

	for iteration := 1; iteration <= l.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, &LoopError{Phase: PhaseEvaluate, Iteration: iteration, History: history, Err: err}
		}

		if il, ok := l.logger.(iterationLogger); ok {
			il.LogIterationStart(iteration, l.opts.MaxIterations, current)
		} else {
			l.logger.LogInfo(fmt.Sprintf("Iteration %d/%d: evaluating %s", iteration, l.opts.MaxIterations, current))
		}
		l.snapshot(fmt.Sprintf("Iteration %d: evaluating", iteration), iterationFraction(iteration-1, l.opts.MaxIterations), iteration, nil)

		reviewPath := document.ReviewReportPath(dir, stem, iteration)
		compliancePath := document.ComplianceReportPath(dir, stem, iteration)

		review, compliance, err := l.evaluate(ctx, current, reviewPath, compliancePath)
		if err != nil {
			return nil, &LoopError{Phase: PhaseEvaluate, Iteration: iteration, History: history, Err: err}
		}
		lastReview, lastCompliance = review, compliance

		// The only aggregation rule: unweighted mean of the two rubrics.
		combined := (review.OverallScore + compliance.OverallScore) / 2.0

		rec := models.IterationRecord{
			Iteration:            iteration,
			CompletenessScore:    review.OverallScore,
			ComplianceScore:      compliance.OverallScore,
			CombinedScore:        combined,
			EvaluatedPath:        current,
			ReviewReportPath:     reviewPath,
			ComplianceReportPath: compliancePath,
		}

		if sl, ok := l.logger.(scoreLogger); ok {
			sl.LogScores(rec, l.opts.TargetConfidence)
		} else {
			l.logger.LogInfo(fmt.Sprintf("Iteration %d combined score %.1f (target %.1f)", iteration, combined, l.opts.TargetConfidence))
		}
		l.snapshot(fmt.Sprintf("Iteration %d: scored %.1f", iteration, combined), iterationFraction(iteration, l.opts.MaxIterations), iteration, &rec)

		if combined >= l.opts.TargetConfidence {
			history = append(history, rec)
			l.record(rec)
			l.logger.LogInfo(fmt.Sprintf("Target confidence reached at iteration %d with combined score %.1f", iteration, combined))
			l.snapshot("Converged", 1.0, iteration, &rec)

			return &models.LoopResult{
				FinalPath:      current,
				FinalScore:     combined,
				Iterations:     iteration,
				History:        history,
				LastReview:     lastReview,
				LastCompliance: lastCompliance,
			}, nil
		}

		outPath := document.VersionPath(dir, stem, iteration)
		l.snapshot(fmt.Sprintf("Iteration %d: revising", iteration), iterationFraction(iteration, l.opts.MaxIterations), iteration, &rec)

		next, err := l.reviser.Revise(ctx, current, reviewPath, compliancePath, outPath)
		if err != nil {
			history = append(history, rec)
			l.record(rec)
			return nil, &LoopError{Phase: PhaseRevise, Iteration: iteration, History: history, Err: err}
		}

		rec.ProducedPath = next
		history = append(history, rec)
		l.record(rec)

		l.logger.LogInfo(fmt.Sprintf("Iteration %d produced %s", iteration, next))
		current = next
	}

	last := history[len(history)-1]
	l.logger.LogInfo(fmt.Sprintf("Iteration budget exhausted after %d iterations; best combined score %.1f", l.opts.MaxIterations, last.CombinedScore))
	l.snapshot("Iterations exhausted", 1.0, l.opts.MaxIterations, &last)

	return &models.LoopResult{
		FinalPath:           current,
		FinalScore:          last.CombinedScore,
		Iterations:          l.opts.MaxIterations,
		IterationsExhausted: true,
		History:             history,
		LastReview:          lastReview,
		LastCompliance:      lastCompliance,
	}, nil
}

// evaluate runs both evaluators against the current version. Concurrent by
// default: a fan-out/fan-in join that waits for both, failing the iteration
// if either fails. Partial evaluation never reaches the stopping rule.
func (l *Loop) evaluate(ctx context.Context, docPath, reviewPath, compliancePath string) (*models.EvaluationReport, *models.EvaluationReport, error) {
	if l.opts.SequentialEvaluation {
		review, err := l.completeness.Evaluate(ctx, docPath, reviewPath)
		if err != nil {
			return nil, nil, err
		}
		compliance, err := l.compliance.Evaluate(ctx, docPath, compliancePath)
		if err != nil {
			return nil, nil, err
		}
		return review, compliance, nil
	}

	var review, compliance *models.EvaluationReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := l.completeness.Evaluate(gctx, docPath, reviewPath)
		review = r
		return err
	})
	g.Go(func() error {
		r, err := l.compliance.Evaluate(gctx, docPath, compliancePath)
		compliance = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return review, compliance, nil
}

func (l *Loop) snapshot(status string, fraction float64, iteration int, rec *models.IterationRecord) {
	if l.progress == nil {
		return
	}
	snap := Snapshot{
		Status:    status,
		Fraction:  fraction,
		Iteration: iteration,
	}
	if rec != nil {
		snap.CompletenessScore = rec.CompletenessScore
		snap.ComplianceScore = rec.ComplianceScore
		snap.CombinedScore = rec.CombinedScore
	}
	l.progress(snap)
}

func (l *Loop) record(rec models.IterationRecord) {
	if l.history == nil {
		return
	}
	if err := l.history.RecordIteration(rec); err != nil {
		l.logger.LogWarn(fmt.Sprintf("failed to record iteration %d history: %v", rec.Iteration, err))
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/llm"
	"github.com/pharmatext/csrgen/internal/models"
	"github.com/pharmatext/csrgen/internal/score"
)

// Evaluator produces a structured assessment and score for one document
// version. The two instances (completeness, compliance) share this contract
// and differ only in rubric: completeness judges section coverage, optionally
// against a reference CSR; compliance judges conformance to a regulatory
// section checklist.
type Evaluator struct {
	rubric    string
	client    llm.Client
	store     *document.Store
	extractor *score.Extractor
	logger    Logger

	// reference is the sample CSR text for the completeness rubric ("" if
	// unconfigured).
	reference string

	// checklist is the section checklist for the compliance rubric.
	checklist []string
}

// NewCompletenessEvaluator creates the completeness evaluator.
// referenceText may be empty when no sample CSR is configured.
func NewCompletenessEvaluator(client llm.Client, store *document.Store, referenceText string, logger Logger) *Evaluator {
	logger = orNop(logger)
	return &Evaluator{
		rubric:    models.RubricCompleteness,
		client:    client,
		store:     store,
		extractor: score.NewExtractor(score.LabelCompleteness, logger),
		logger:    logger,
		reference: referenceText,
	}
}

// NewComplianceEvaluator creates the compliance evaluator.
// A nil or empty checklist falls back to DefaultChecklist.
func NewComplianceEvaluator(client llm.Client, store *document.Store, checklist []string, logger Logger) *Evaluator {
	logger = orNop(logger)
	if len(checklist) == 0 {
		checklist = DefaultChecklist
	}
	return &Evaluator{
		rubric:    models.RubricCompliance,
		client:    client,
		store:     store,
		extractor: score.NewExtractor(score.LabelCompliance, logger),
		logger:    logger,
		checklist: checklist,
	}
}

// Rubric returns the evaluator's rubric identifier.
func (ev *Evaluator) Rubric() string {
	return ev.rubric
}

// Evaluate assesses the document at docPath and persists the full free-form
// evaluation text at reportPath.
//
// A blank document fails with EmptyDocumentError. A missing or malformed
// score line does NOT fail: the report is returned with OverallScore 0 and
// ScoreFound false, so the loop can proceed and self-correct via revision.
func (ev *Evaluator) Evaluate(ctx context.Context, docPath, reportPath string) (*models.EvaluationReport, error) {
	docText, err := ev.store.Read(docPath)
	if err != nil {
		return nil, err
	}
	if document.IsBlank(docText) {
		return nil, &EmptyDocumentError{Path: docPath}
	}

	ev.logger.LogDebug(fmt.Sprintf("Running %s evaluation of %s", ev.rubric, docPath))

	req := llm.Request{Instructions: completenessInstructions, Input: buildCompletenessInput(docText)}
	if ev.rubric == models.RubricCompliance {
		req = llm.Request{Instructions: complianceInstructions, Input: buildComplianceInput(docText, ev.checklist)}
	} else if ev.reference != "" {
		req.Reference = "Sample CSR (high-quality reference):\n" + ev.reference
	}

	raw, err := ev.client.Generate(ctx, req)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("%s evaluation failed: %w", ev.rubric, err), PhaseEvaluate, ev.rubric, 0)
	}

	// The full evaluation text is persisted regardless of whether the
	// structured score can be extracted from it.
	if err := ev.store.Write(reportPath, raw); err != nil {
		return nil, fmt.Errorf("failed to write %s report: %w", ev.rubric, err)
	}

	overall, found := ev.extractor.Extract(raw)
	sections, order := parseSectionFeedback(raw)

	return &models.EvaluationReport{
		Rubric:       ev.rubric,
		DocumentPath: docPath,
		ReportPath:   reportPath,
		OverallScore: overall,
		ScoreFound:   found,
		Sections:     sections,
		SectionOrder: order,
	}, nil
}

// parseSectionFeedback extracts per-section rows of the form
// "Section Name | 85 | rationale" from the evaluation text. Best effort:
// rows that do not parse are skipped, header and divider rows are ignored.
func parseSectionFeedback(raw string) (map[string]models.SectionFeedback, []string) {
	sections := make(map[string]models.SectionFeedback)
	var order []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "|")
		if !strings.Contains(trimmed, "|") {
			continue
		}

		parts := strings.Split(trimmed, "|")
		if len(parts) < 2 {
			continue
		}

		name := document.NormalizeHeading(strings.TrimSpace(parts[0]))
		if name == "" || name == "section name" {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			// Header or divider row.
			continue
		}
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}

		rationale := ""
		if len(parts) > 2 {
			rationale = strings.TrimSpace(strings.Join(parts[2:], "|"))
		}

		if _, seen := sections[name]; !seen {
			order = append(order, name)
		}
		sections[name] = models.SectionFeedback{
			Score:     value,
			Rationale: rationale,
		}
	}

	return sections, order
}

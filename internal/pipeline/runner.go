package pipeline

import (
	"context"
	"fmt"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/models"
)

// RunInputs names the input documents and output location for one full
// pipeline execution.
type RunInputs struct {
	// ClinicalDataPath is the structured clinical-trial data (JSON).
	ClinicalDataPath string

	// TemplatePath is the CSR template document.
	TemplatePath string

	// OutputDir receives all document versions and reports.
	OutputDir string

	// Stem is the base filename for generated versions.
	Stem string
}

// Runner executes the full pipeline: extraction, composition of v0, then
// the improvement loop.
type Runner struct {
	extractor *Extractor
	composer  *Composer
	loop      *Loop
	logger    Logger
}

// NewRunner assembles a pipeline Runner.
func NewRunner(extractor *Extractor, composer *Composer, loop *Loop, logger Logger) *Runner {
	return &Runner{
		extractor: extractor,
		composer:  composer,
		loop:      loop,
		logger:    orNop(logger),
	}
}

// Run executes extraction, composition, and the improvement loop, returning
// the terminal loop result. Extraction and composition failures are wrapped
// in a LoopError with an empty history so callers handle one failure shape.
func (r *Runner) Run(ctx context.Context, inputs RunInputs) (*models.LoopResult, error) {
	r.loop.snapshot("Extracting section content", 0.05, 0, nil)

	extracted, err := r.extractor.Extract(ctx, inputs.ClinicalDataPath, inputs.TemplatePath)
	if err != nil {
		return nil, &LoopError{Phase: PhaseExtract, Err: err}
	}

	r.loop.snapshot("Composing initial draft", 0.20, 0, nil)

	initialPath := document.VersionPath(inputs.OutputDir, inputs.Stem, 0)
	if _, err := r.composer.Compose(ctx, extracted, inputs.TemplatePath, initialPath); err != nil {
		return nil, &LoopError{Phase: PhaseCompose, Err: err}
	}

	result, err := r.loop.Run(ctx, initialPath)
	if err != nil {
		return nil, err
	}

	r.logger.LogInfo(fmt.Sprintf("Pipeline finished: final document %s", result.FinalPath))
	return result, nil
}

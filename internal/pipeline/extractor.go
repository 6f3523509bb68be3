package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/llm"
)

// ExtractedContent is the structured output of the extraction step: the raw
// extracted text plus a best-effort mapping from normalized section name to
// section content.
type ExtractedContent struct {
	// Raw is the full extracted text as returned by the generation service.
	Raw string

	// Sections maps normalized section name to extracted section content.
	Sections map[string]string

	// Order preserves section appearance order for display.
	Order []string
}

// Extractor produces structured content from raw clinical data and the CSR
// template. It runs exactly once per pipeline execution, before composition.
type Extractor struct {
	client llm.Client
	store  *document.Store
	logger Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(client llm.Client, store *document.Store, logger Logger) *Extractor {
	return &Extractor{
		client: client,
		store:  store,
		logger: orNop(logger),
	}
}

// Extract reads the clinical data JSON and the template document, asks the
// generation service to extract per-section content, and returns the result
// with a best-effort section map.
func (e *Extractor) Extract(ctx context.Context, dataPath, templatePath string) (*ExtractedContent, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read clinical data: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("clinical data %s is not valid JSON", dataPath)
	}

	templateText, err := e.store.Read(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	if document.IsBlank(templateText) {
		return nil, &EmptyDocumentError{Path: templatePath}
	}

	e.logger.LogInfo(fmt.Sprintf("Extracting section content from %s", dataPath))

	raw, err := e.client.Generate(ctx, llm.Request{
		Instructions: extractionInstructions,
		Input:        buildExtractionInput(templateText, string(data)),
	})
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("extraction failed: %w", err), PhaseExtract, "", 0)
	}

	sections := document.SplitSections(raw)
	byName := make(map[string]string, len(sections))
	var order []string
	for _, s := range sections {
		if _, seen := byName[s.Name]; !seen {
			byName[s.Name] = s.Body
			order = append(order, s.Name)
		}
	}

	e.logger.LogDebug(fmt.Sprintf("Extraction produced %d sections", len(order)))

	return &ExtractedContent{
		Raw:      raw,
		Sections: byName,
		Order:    order,
	}, nil
}

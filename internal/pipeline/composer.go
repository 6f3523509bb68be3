package pipeline

import (
	"context"
	"fmt"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/llm"
)

// Composer produces the initial document version (v0) by merging the
// template structure with extracted content. No stopping condition applies;
// composition runs exactly once per pipeline execution.
type Composer struct {
	client llm.Client
	store  *document.Store
	logger Logger
}

// NewComposer creates a Composer.
func NewComposer(client llm.Client, store *document.Store, logger Logger) *Composer {
	return &Composer{
		client: client,
		store:  store,
		logger: orNop(logger),
	}
}

// Compose generates the v0 document from extracted content and the template,
// writes it to outPath, and returns outPath.
func (c *Composer) Compose(ctx context.Context, extracted *ExtractedContent, templatePath, outPath string) (string, error) {
	templateText, err := c.store.Read(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	c.logger.LogInfo("Composing initial CSR draft (v0)")

	text, err := c.client.Generate(ctx, llm.Request{
		Instructions: compositionInstructions,
		Input:        buildCompositionInput(templateText, extracted.Raw),
	})
	if err != nil {
		return "", wrapTimeout(fmt.Errorf("composition failed: %w", err), PhaseCompose, "", 0)
	}
	if document.IsBlank(text) {
		return "", fmt.Errorf("composition produced an empty document")
	}

	if err := c.store.Write(outPath, text); err != nil {
		return "", fmt.Errorf("failed to write initial document: %w", err)
	}

	c.logger.LogInfo(fmt.Sprintf("Initial CSR written to %s", outPath))
	return outPath, nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/llm"
)

// Reviser produces the next document version from the current version and
// the two evaluation reports. Generation failures propagate to the loop;
// retry policy belongs to the transport layer, not here.
type Reviser struct {
	client llm.Client
	store  *document.Store
	logger Logger
}

// NewReviser creates a Reviser.
func NewReviser(client llm.Client, store *document.Store, logger Logger) *Reviser {
	return &Reviser{
		client: client,
		store:  store,
		logger: orNop(logger),
	}
}

// Revise generates an improved document from the version at docPath and the
// persisted review and compliance reports, writes it to outPath (a version
// path distinct from all prior versions), and returns outPath.
func (r *Reviser) Revise(ctx context.Context, docPath, reviewPath, compliancePath, outPath string) (string, error) {
	docText, err := r.store.Read(docPath)
	if err != nil {
		return "", err
	}
	if document.IsBlank(docText) {
		return "", &EmptyDocumentError{Path: docPath}
	}

	reviewText, err := r.store.Read(reviewPath)
	if err != nil {
		return "", fmt.Errorf("failed to read review report: %w", err)
	}
	complianceText, err := r.store.Read(compliancePath)
	if err != nil {
		return "", fmt.Errorf("failed to read compliance report: %w", err)
	}

	r.logger.LogDebug(fmt.Sprintf("Revising %s", docPath))

	revised, err := r.client.Generate(ctx, llm.Request{
		Instructions: revisionInstructions,
		Input:        buildRevisionInput(docText, reviewText, complianceText),
	})
	if err != nil {
		return "", wrapTimeout(fmt.Errorf("revision failed: %w", err), PhaseRevise, "", 0)
	}
	if document.IsBlank(revised) {
		return "", fmt.Errorf("revision produced an empty document")
	}

	if err := r.store.Write(outPath, revised); err != nil {
		return "", fmt.Errorf("failed to write revised document: %w", err)
	}

	return outPath, nil
}

package pipeline

import (
	"fmt"
	"strings"
)

// Rubric and role instructions for the generation service. The score lines
// demanded by the evaluator instructions are the sole structured signal
// extracted from the otherwise free-form output.

const extractionInstructions = `You are a clinical documentation assistant.
Using the clinical study data and CSR template, extract relevant content
for all sections implied by the template. Structure the answer by section
headings and return plain text only.`

const compositionInstructions = `You are a medical writer generating a Clinical Study Report (CSR).
You receive:
- A CSR template with sections and structure.
- Extracted content for each section (possibly in raw text form).

Produce a clean, well-structured CSR document that follows the template
headings and uses the extracted content where relevant. Preserve the
template's heading structure.`

const completenessInstructions = `You are a clinical documentation reviewer. Evaluate the completeness of the Clinical Study Report (CSR) section by section.

Your output MUST contain:
1) A table listing each major CSR section and its completeness score (0-100), one row per line formatted as:
   Section Name | Score | Rationale
2) A narrative rationale for each section score.
3) A summary of the main gaps.
4) An overall completeness score (0-100) on a separate line formatted EXACTLY as:
   OVERALL_COMPLETENESS_SCORE: <number>

Do not invent clinical results; only judge structure, clarity, and coverage.`

const complianceInstructions = `You are a regulatory compliance expert evaluating a Clinical Study Report (CSR) against ICH E3 and common agency expectations.

Your output MUST contain:
1) A section-by-section compliance assessment, one row per line formatted as:
   Section Name | Score | Rationale
2) A summary of key deficiencies and recommended actions.
3) An overall compliance score (0-100) on a separate line formatted EXACTLY as:
   OVERALL_COMPLIANCE_SCORE: <number>

Do not invent clinical results; only assess structure, content completeness, and regulatory expectations.`

const revisionInstructions = `You are a senior medical writer revising a Clinical Study Report (CSR) based on feedback from:
- A completeness review report
- A regulatory compliance report

Produce an improved version of the CSR that:
- Addresses completeness gaps and regulatory compliance issues
- Preserves the original section numbering and headings verbatim
- Retains all sections and content from the original CSR that are not flagged as needing change

Do NOT invent new clinical data, numerical results, or patients; refine only
the narrative, structure, and coverage. Output only the revised CSR text
with no extra commentary.`

// DefaultChecklist is the built-in ICH E3-style section checklist used by
// the compliance rubric when no checklist file is configured.
var DefaultChecklist = []string{
	"Title Page",
	"Synopsis",
	"Table of Contents",
	"List of Abbreviations",
	"Ethics",
	"Study Administrative Structure",
	"Introduction",
	"Study Objectives",
	"Investigational Plan",
	"Study Patients",
	"Efficacy Evaluation",
	"Safety Evaluation",
	"Discussion and Overall Conclusions",
	"References",
	"Appendices",
}

func buildExtractionInput(templateText, clinicalJSON string) string {
	return fmt.Sprintf("CSR Template:\n%s\n\nClinical Study Data (JSON):\n%s\n\nExtract and summarize the content for each section.",
		templateText, clinicalJSON)
}

func buildCompositionInput(templateText, extracted string) string {
	return fmt.Sprintf("CSR Template:\n%s\n\nExtracted Section Content:\n%s\n\nUsing the template structure and extracted content, generate the final CSR text.",
		templateText, extracted)
}

func buildCompletenessInput(docText string) string {
	return fmt.Sprintf("Generated CSR (To Review):\n%s\n\nCreate the review report as instructed. Keep everything in plain text.", docText)
}

func buildComplianceInput(docText string, checklist []string) string {
	var sb strings.Builder
	sb.WriteString("Section Checklist:\n")
	for _, s := range checklist {
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCSR Text:\n")
	sb.WriteString(docText)
	sb.WriteString("\n\nProduce the compliance report as instructed. Use ONLY plain text.")
	return sb.String()
}

func buildRevisionInput(docText, reviewText, complianceText string) string {
	return fmt.Sprintf("Original CSR:\n%s\n\nReview Report:\n%s\n\nCompliance Report:\n%s\n\nProduce the full revised CSR text.",
		docText, reviewText, complianceText)
}

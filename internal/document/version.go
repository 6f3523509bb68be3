package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Versioned filename scheme shared by the loop, the store, and the CLI.
// Given base stem S and iteration i:
//
//	document            S_v{i}.md   (version 0 is the bare stem, S.md)
//	completeness report S_review_v{i}.md
//	compliance report   S_compliance_v{i}.md

// DefaultExt is the extension given to documents the pipeline writes.
const DefaultExt = ".md"

// Stem returns the base name of a document path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// VersionPath returns the path for document version v under dir.
// Version 0 carries no suffix.
func VersionPath(dir, stem string, version int) string {
	if version == 0 {
		return filepath.Join(dir, stem+DefaultExt)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_v%d%s", stem, version, DefaultExt))
}

// ReviewReportPath returns the completeness report path for an iteration.
func ReviewReportPath(dir, stem string, iteration int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_review_v%d%s", stem, iteration, DefaultExt))
}

// ComplianceReportPath returns the compliance report path for an iteration.
func ComplianceReportPath(dir, stem string, iteration int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_compliance_v%d%s", stem, iteration, DefaultExt))
}

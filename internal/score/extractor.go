// Package score extracts the structured overall score from otherwise
// free-form evaluator output. The score line is an application-level
// convention layered on top of the text-generation service: a line exactly
// matching "LABEL: <integer>".
package score

import (
	"fmt"
	"regexp"
	"strconv"
)

// Score-line labels emitted by the evaluator prompts.
const (
	LabelCompleteness = "OVERALL_COMPLETENESS_SCORE"
	LabelCompliance   = "OVERALL_COMPLIANCE_SCORE"
)

// WarnLogger receives warnings about missing or malformed score lines.
// May be nil for silent operation.
type WarnLogger interface {
	LogWarn(message string)
}

// Extractor scans evaluator output for a labeled score line.
//
// A missing score line is deliberately not an error: the extractor degrades
// to 0.0 with a logged warning, and the zero score triggers revision on the
// next stopping-rule check.
type Extractor struct {
	label  string
	re     *regexp.Regexp
	logger WarnLogger
}

// NewExtractor creates an Extractor for the given label, e.g.
// LabelCompleteness. The label is matched at the start of a line, followed
// by a colon and an unsigned integer.
func NewExtractor(label string, logger WarnLogger) *Extractor {
	re := regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(label) + `[ \t]*:[ \t]*(\d+)`)
	return &Extractor{
		label:  label,
		re:     re,
		logger: logger,
	}
}

// Label returns the label this extractor scans for.
func (e *Extractor) Label() string {
	return e.label
}

// Extract returns the first matching score clamped to [0, 100].
// Returns 0 and logs a warning when no line matches; negative values cannot
// occur because the pattern matches unsigned digits only.
func (e *Extractor) Extract(raw string) (value float64, found bool) {
	matches := e.re.FindStringSubmatch(raw)
	if len(matches) < 2 {
		e.warn(fmt.Sprintf("no %s line found in evaluator output, defaulting to 0.0", e.label))
		return 0.0, false
	}

	n, err := strconv.Atoi(matches[1])
	if err != nil {
		// Digits beyond int range; the score is out of range either way.
		e.warn(fmt.Sprintf("%s value %q out of range, clamping to 100", e.label, matches[1]))
		return 100.0, true
	}

	if n > 100 {
		e.warn(fmt.Sprintf("%s value %d out of range, clamping to 100", e.label, n))
		return 100.0, true
	}

	return float64(n), true
}

func (e *Extractor) warn(message string) {
	if e.logger != nil {
		e.logger.LogWarn(message)
	}
}

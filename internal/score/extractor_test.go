package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	warnings []string
}

func (c *captureLogger) LogWarn(message string) {
	c.warnings = append(c.warnings, message)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		raw       string
		wantValue float64
		wantFound bool
	}{
		{
			name:      "plain score line",
			label:     LabelCompleteness,
			raw:       "Some preamble\nOVERALL_COMPLETENESS_SCORE: 85\nTrailing notes",
			wantValue: 85,
			wantFound: true,
		},
		{
			name:      "score at start of output",
			label:     LabelCompliance,
			raw:       "OVERALL_COMPLIANCE_SCORE: 72",
			wantValue: 72,
			wantFound: true,
		},
		{
			name:      "leading whitespace tolerated",
			label:     LabelCompleteness,
			raw:       "  \tOVERALL_COMPLETENESS_SCORE:  90",
			wantValue: 90,
			wantFound: true,
		},
		{
			name:      "first match wins",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: 60\nOVERALL_COMPLETENESS_SCORE: 95",
			wantValue: 60,
			wantFound: true,
		},
		{
			name:      "missing line defaults to zero",
			label:     LabelCompleteness,
			raw:       "The document is thorough and well organized.",
			wantValue: 0,
			wantFound: false,
		},
		{
			name:      "wrong label does not match",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLIANCE_SCORE: 88",
			wantValue: 0,
			wantFound: false,
		},
		{
			name:      "above range clamps to 100",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: 150",
			wantValue: 100,
			wantFound: true,
		},
		{
			name:      "huge value clamps to 100",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: 99999999999999999999999999",
			wantValue: 100,
			wantFound: true,
		},
		{
			name:      "boundary values pass through",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: 100",
			wantValue: 100,
			wantFound: true,
		},
		{
			name:      "zero passes through",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: 0",
			wantValue: 0,
			wantFound: true,
		},
		{
			name:      "label mid-line does not match",
			label:     LabelCompleteness,
			raw:       "we computed OVERALL_COMPLETENESS_SCORE: 50 internally",
			wantValue: 0,
			wantFound: false,
		},
		{
			name:      "non-numeric value does not match",
			label:     LabelCompleteness,
			raw:       "OVERALL_COMPLETENESS_SCORE: high",
			wantValue: 0,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor(tt.label, nil)
			value, found := ex.Extract(tt.raw)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestExtractWarnsOnMissingLine(t *testing.T) {
	log := &captureLogger{}
	ex := NewExtractor(LabelCompleteness, log)

	value, found := ex.Extract("no score here")

	assert.Equal(t, 0.0, value)
	assert.False(t, found)
	assert.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], LabelCompleteness)
}

func TestExtractWarnsOnClamp(t *testing.T) {
	log := &captureLogger{}
	ex := NewExtractor(LabelCompliance, log)

	value, found := ex.Extract("OVERALL_COMPLIANCE_SCORE: 340")

	assert.Equal(t, 100.0, value)
	assert.True(t, found)
	assert.Len(t, log.warnings, 1)
}

func TestLabel(t *testing.T) {
	ex := NewExtractor(LabelCompliance, nil)
	assert.Equal(t, LabelCompliance, ex.Label())
}

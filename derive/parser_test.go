package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqderive/requirement"
)

func TestParseCapabilities(t *testing.T) {
	raw := "```json\n" + `[
		{"text": "The system shall report mode changes", "category": "A", "confidence": 0.9,
		 "rationale": "mode switching implies status reporting",
		 "source_requirement_id": "REQ-1"},
		{"text": "Mode transitions complete within 100ms", "category": "k1", "confidence": 1.4,
		 "missing_specifications": ["transition deadline source"]}
	]` + "\n```"

	parser := NewParser()
	candidates, err := parser.ParseCapabilities(raw)

	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "The system shall report mode changes", candidates[0].Text)
	assert.Equal(t, "A", candidates[0].CategoryCode)
	assert.Equal(t, 0.9, candidates[0].Confidence)
	assert.Equal(t, "REQ-1", candidates[0].SourceRequirementID)

	// Out-of-range confidence clamps rather than failing.
	assert.Equal(t, 1.0, candidates[1].Confidence)
	assert.Equal(t, []string{"transition deadline source"}, candidates[1].MissingSpecifications)
}

func TestParseCapabilitiesValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no array", "the model refused to answer"},
		{"missing text", `[{"category": "A", "confidence": 0.5}]`},
		{"missing category", `[{"text": "x", "confidence": 0.5}]`},
		{"missing confidence", `[{"text": "x", "category": "A"}]`},
		{"unknown field", `[{"text": "x", "category": "A", "confidence": 0.5, "extra": true}]`},
		{"wrong type", `[{"text": "x", "category": "A", "confidence": "high"}]`},
	}

	parser := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseCapabilities(tt.raw)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected ValidationError, got %T: %v", err, err)
		})
	}
}

func TestParseQualityAnalysis(t *testing.T) {
	raw := `{
		"quality_score": 0.72,
		"issues": [{"category": "completeness", "severity": "HIGH", "description": "two capabilities lack deadlines"}],
		"recommendations": [{"category": "clarity", "description": "tighten wording", "suggested_edit": "replace 'fast' with a bound"}],
		"freeform_feedback": "solid derivation overall"
	}`

	qa, err := NewParser().ParseQualityAnalysis(raw)

	require.NoError(t, err)
	assert.Equal(t, 0.72, qa.QualityScore)
	require.Len(t, qa.Issues, 1)
	assert.Equal(t, requirement.SeverityHigh, qa.Issues[0].Severity)
	require.Len(t, qa.Recommendations, 1)
	assert.Equal(t, "replace 'fast' with a bound", qa.Recommendations[0].SuggestedEdit)
	assert.Equal(t, "solid derivation overall", qa.FreeformFeedback)
}

func TestParseQualityAnalysisValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object", "nothing structured here"},
		{"missing score", `{"freeform_feedback": "fine"}`},
		{"invalid severity", `{"quality_score": 0.5, "issues": [{"category": "x", "severity": "urgent", "description": "d"}]}`},
		{"issue missing description", `{"quality_score": 0.5, "issues": [{"category": "x", "severity": "low", "description": ""}]}`},
	}

	parser := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseQualityAnalysis(tt.raw)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

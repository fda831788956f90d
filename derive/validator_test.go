package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqderive/requirement"
)

func TestValidateNormalizesCategories(t *testing.T) {
	candidates := []Candidate{
		{Text: "report mode changes", CategoryCode: "A", Confidence: 0.9},
		{Text: "complete within 100ms", CategoryCode: "k1", Confidence: 0.8},
		{Text: "survive restarts", CategoryCode: "C12", Confidence: 0.7},
	}

	caps, warnings := NewTaxonomyValidator().Validate(candidates)

	require.Len(t, caps, 3)
	assert.Empty(t, warnings)

	assert.Equal(t, requirement.CategoryFunctional, caps[0].Category)
	assert.Empty(t, caps[0].Subcategory)

	assert.Equal(t, requirement.Category("K"), caps[1].Category)
	assert.Equal(t, "1", caps[1].Subcategory)

	assert.Equal(t, requirement.Category("C"), caps[2].Category)
	assert.Equal(t, "12", caps[2].Subcategory)
}

func TestValidateDropsUnknownCategories(t *testing.T) {
	candidates := []Candidate{
		{Text: "valid capability", CategoryCode: "B", Confidence: 0.9},
		{Text: "made-up category", CategoryCode: "Z9", Confidence: 0.9},
		{Text: "empty category code", CategoryCode: "", Confidence: 0.9},
	}

	caps, warnings := NewTaxonomyValidator().Validate(candidates)

	require.Len(t, caps, 1)
	assert.Equal(t, "valid capability", caps[0].Text)

	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "made-up category")
	assert.Contains(t, warnings[0], `"Z9"`)
	assert.Contains(t, warnings[0], "outside the taxonomy")
}

func TestValidateAssignsUniqueIDs(t *testing.T) {
	candidates := []Candidate{
		{Text: "first", CategoryCode: "A", Confidence: 0.5},
		{Text: "second", CategoryCode: "A", Confidence: 0.5},
	}

	caps, _ := NewTaxonomyValidator().Validate(candidates)

	require.Len(t, caps, 2)
	assert.NotEmpty(t, caps[0].ID)
	assert.NotEmpty(t, caps[1].ID)
	assert.NotEqual(t, caps[0].ID, caps[1].ID)
}

func TestValidateClampsConfidence(t *testing.T) {
	caps, _ := NewTaxonomyValidator().Validate([]Candidate{
		{Text: "over", CategoryCode: "A", Confidence: 1.7},
		{Text: "under", CategoryCode: "A", Confidence: -0.3},
	})

	require.Len(t, caps, 2)
	assert.Equal(t, 1.0, caps[0].Confidence)
	assert.Equal(t, 0.0, caps[1].Confidence)
}

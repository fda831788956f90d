package derive

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/c360studio/reqderive/requirement"
)

// TaxonomyValidator normalizes capability category codes against the fixed
// closed taxonomy. A candidate whose code falls outside the taxonomy is
// dropped and recorded as a processing warning; the rest of the batch
// survives.
type TaxonomyValidator struct{}

// NewTaxonomyValidator creates a taxonomy validator.
func NewTaxonomyValidator() *TaxonomyValidator {
	return &TaxonomyValidator{}
}

// Validate converts parsed candidates into derived capabilities. Category
// codes are case-normalized and split into category + subcode; invalid
// codes produce warnings, not errors. Fresh IDs are assigned here —
// capabilities are immutable after this point.
func (v *TaxonomyValidator) Validate(candidates []Candidate) ([]requirement.DerivedCapability, []string) {
	caps := make([]requirement.DerivedCapability, 0, len(candidates))
	var warnings []string

	for _, cand := range candidates {
		cat, sub, ok := requirement.ParseCategoryCode(cand.CategoryCode)
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"dropped capability %q: category %q is outside the taxonomy",
				truncate(cand.Text, 60), cand.CategoryCode))
			continue
		}

		caps = append(caps, requirement.DerivedCapability{
			ID:                    uuid.New().String(),
			Text:                  cand.Text,
			Category:              cat,
			Subcategory:           sub,
			Rationale:             cand.Rationale,
			Confidence:            requirement.Clamp01(cand.Confidence),
			SourceRequirementID:   cand.SourceRequirementID,
			MissingSpecifications: cand.MissingSpecifications,
		})
	}

	return caps, warnings
}

// truncate shortens s for warning messages.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Package requirement defines the data model shared by the derivation and
// coverage-analysis pipeline: requirements, derived capabilities, analysis
// results, and the fixed capability taxonomy.
//
// All types here are value types. Results are produced fresh per analysis
// call and never mutated afterwards; the only component that holds them
// across calls is the analysis cache.
package requirement

import "time"

// Table is a simple labeled grid attached to a requirement.
type Table struct {
	Title   string     `json:"title,omitempty" yaml:"title,omitempty"`
	Headers []string   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Requirement is an immutable input owned by the caller. The pipeline never
// mutates it.
type Requirement struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	Description            string   `json:"description" yaml:"description"`
	Tables                 []Table  `json:"tables,omitempty" yaml:"tables,omitempty"`
	SupplementalParagraphs []string `json:"supplemental_paragraphs,omitempty" yaml:"supplemental_paragraphs,omitempty"`
	SupplementalTables     []Table  `json:"supplemental_tables,omitempty" yaml:"supplemental_tables,omitempty"`
}

// DerivedCapability is a system-capability statement produced by analyzing a
// requirement with the language model. Created only by the derivation engine;
// never mutated after creation.
type DerivedCapability struct {
	ID                    string   `json:"id"`
	Text                  string   `json:"text"`
	Category              Category `json:"category"`
	Subcategory           string   `json:"subcategory,omitempty"`
	Rationale             string   `json:"rationale,omitempty"`
	Confidence            float64  `json:"confidence"`
	SourceRequirementID   string   `json:"source_requirement_id,omitempty"`
	MissingSpecifications []string `json:"missing_specifications,omitempty"`
}

// DerivationResult is the outcome of deriving capabilities for one
// requirement. Gateway and parse failures are reported here rather than as
// errors so batch processing can continue past individual failures.
type DerivationResult struct {
	Capabilities []DerivedCapability `json:"capabilities"`
	QualityScore float64             `json:"quality_score"`
	Warnings     []string            `json:"warnings,omitempty"`
	Successful   bool                `json:"successful"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// UncoveredCapability is a derived capability with no matching requirement
// in the corpus.
type UncoveredCapability struct {
	Capability     DerivedCapability `json:"capability"`
	Severity       Severity          `json:"severity"`
	Recommendation string            `json:"recommendation,omitempty"`
}

// UntestedRequirement is a corpus requirement matched by zero capabilities.
type UntestedRequirement struct {
	RequirementID string `json:"requirement_id"`
	Reason        string `json:"reason,omitempty"`
}

// RequirementOverlap records a requirement covered by two or more
// capabilities. OverlappingCapabilityIDs always has at least two entries.
type RequirementOverlap struct {
	RequirementID            string   `json:"requirement_id"`
	OverlappingCapabilityIDs []string `json:"overlapping_capability_ids"`
}

// GapAnalysisResult is the output of coverage analysis over a capability set
// and a requirement corpus.
type GapAnalysisResult struct {
	UncoveredCapabilities []UncoveredCapability `json:"uncovered_capabilities"`
	UntestedRequirements  []UntestedRequirement `json:"untested_requirements"`
	RequirementOverlaps   []RequirementOverlap  `json:"requirement_overlaps"`
	CoveragePercentage    float64               `json:"coverage_percentage"`
}

// QualityMetrics scores a derivation on several axes. Every field is in
// [0,1].
type QualityMetrics struct {
	OverallScore      float64 `json:"overall_score"`
	ConfidenceScore   float64 `json:"confidence_score"`
	CompletenessScore float64 `json:"completeness_score"`
	ConsistencyScore  float64 `json:"consistency_score"`
	ClarityScore      float64 `json:"clarity_score"`
}

// QualityIssue is a single problem found by a model-driven quality review.
type QualityIssue struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// QualityRecommendation suggests an improvement to a derivation.
type QualityRecommendation struct {
	Category      string `json:"category"`
	Description   string `json:"description"`
	SuggestedEdit string `json:"suggested_edit,omitempty"`
}

// QualityAnalysis is the structured record produced by a model-driven
// quality review of a derivation.
type QualityAnalysis struct {
	QualityScore     float64                 `json:"quality_score"`
	Issues           []QualityIssue          `json:"issues,omitempty"`
	Recommendations  []QualityRecommendation `json:"recommendations,omitempty"`
	FreeformFeedback string                  `json:"freeform_feedback,omitempty"`
}

// CacheEntry holds one cached derivation result.
type CacheEntry struct {
	Key           string           `json:"key"`
	RequirementID string           `json:"requirement_id"`
	Result        DerivationResult `json:"result"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Clamp01 clamps a score to [0,1]. Confidence and score fields always pass
// through this before being stored on a result.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

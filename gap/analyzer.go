// Package gap computes coverage, gaps, and overlaps between a derived
// capability set and an existing requirement corpus. Analysis is
// deterministic, side-effect-free, and order-independent: the same inputs
// produce an identical result regardless of input ordering.
package gap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/reqderive/requirement"
)

// Config tunes the fallback capability-to-requirement matching.
type Config struct {
	// SimilarityThreshold is the minimum combined similarity for a
	// fallback match when a capability has no usable source requirement.
	SimilarityThreshold float64

	// CategoryBonus is added to the token-overlap score when the
	// requirement text mentions the capability's taxonomy label.
	CategoryBonus float64
}

// DefaultConfig returns the standard matching configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.30,
		CategoryBonus:       0.10,
	}
}

// Analyzer performs gap analysis. The zero value is not usable; construct
// with NewAnalyzer.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates a gap analyzer with the given configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze matches capabilities against the requirement corpus and reports
// uncovered capabilities, untested requirements, overlaps, and coverage.
func (a *Analyzer) Analyze(caps []requirement.DerivedCapability, reqs []requirement.Requirement) requirement.GapAnalysisResult {
	result := requirement.GapAnalysisResult{
		UncoveredCapabilities: []requirement.UncoveredCapability{},
		UntestedRequirements:  []requirement.UntestedRequirement{},
		RequirementOverlaps:   []requirement.RequirementOverlap{},
	}

	// Index requirements by ID.
	index := make(map[string]*requirement.Requirement, len(reqs))
	reqTokens := make(map[string]map[string]struct{}, len(reqs))
	for i := range reqs {
		index[reqs[i].ID] = &reqs[i]
		reqTokens[reqs[i].ID] = tokenize(reqs[i].Name + " " + reqs[i].Description)
	}

	covering := make(map[string][]string) // requirement ID -> capability IDs

	for _, cap := range caps {
		reqID, ok := a.matchRequirement(cap, index, reqTokens)
		if !ok {
			result.UncoveredCapabilities = append(result.UncoveredCapabilities, requirement.UncoveredCapability{
				Capability: cap,
				Severity:   requirement.SeverityForConfidence(cap.Confidence),
				Recommendation: fmt.Sprintf(
					"no existing requirement covers this %s capability; consider adding one",
					cap.Category.Name()),
			})
			continue
		}
		covering[reqID] = append(covering[reqID], cap.ID)
	}

	for _, req := range reqs {
		ids := covering[req.ID]
		switch {
		case len(ids) == 0:
			result.UntestedRequirements = append(result.UntestedRequirements, requirement.UntestedRequirement{
				RequirementID: req.ID,
				Reason:        "no derived capability matches this requirement",
			})
		case len(ids) >= 2:
			// A requirement covered by exactly one capability is not an
			// overlap.
			sorted := append([]string(nil), ids...)
			sort.Strings(sorted)
			result.RequirementOverlaps = append(result.RequirementOverlaps, requirement.RequirementOverlap{
				RequirementID:            req.ID,
				OverlappingCapabilityIDs: sorted,
			})
		}
	}

	// Deterministic output ordering regardless of input order.
	sort.Slice(result.UncoveredCapabilities, func(i, j int) bool {
		return result.UncoveredCapabilities[i].Capability.ID < result.UncoveredCapabilities[j].Capability.ID
	})
	sort.Slice(result.UntestedRequirements, func(i, j int) bool {
		return result.UntestedRequirements[i].RequirementID < result.UntestedRequirements[j].RequirementID
	})
	sort.Slice(result.RequirementOverlaps, func(i, j int) bool {
		return result.RequirementOverlaps[i].RequirementID < result.RequirementOverlaps[j].RequirementID
	})

	if len(reqs) > 0 {
		result.CoveragePercentage = float64(len(covering)) / float64(len(reqs))
	}
	// With zero requirements coverage is 0 by convention.

	return result
}

// matchRequirement finds the requirement a capability covers: an exact
// source-requirement match first, then the best fallback similarity match
// above the threshold. Ties break toward the lexicographically smallest
// requirement ID so analysis stays order-independent.
func (a *Analyzer) matchRequirement(
	cap requirement.DerivedCapability,
	index map[string]*requirement.Requirement,
	reqTokens map[string]map[string]struct{},
) (string, bool) {
	if cap.SourceRequirementID != "" {
		if _, ok := index[cap.SourceRequirementID]; ok {
			return cap.SourceRequirementID, true
		}
		// An unknown source falls through to similarity matching.
	}

	capTokens := tokenize(cap.Text)
	categoryLabel := cap.Category.Name()

	bestID := ""
	bestScore := 0.0
	for id, req := range index {
		score := jaccard(capTokens, reqTokens[id])
		if categoryLabel != "" && containsLabel(req, categoryLabel) {
			score += a.cfg.CategoryBonus
		}
		if score > bestScore || (score == bestScore && bestScore > 0 && id < bestID) {
			bestID = id
			bestScore = score
		}
	}

	if bestScore >= a.cfg.SimilarityThreshold && bestID != "" {
		return bestID, true
	}
	return "", false
}

// containsLabel reports whether the requirement's text mentions the
// taxonomy label.
func containsLabel(req *requirement.Requirement, label string) bool {
	text := strings.ToLower(req.Name + " " + req.Description)
	return strings.Contains(text, label)
}

// Package quality scores derived capability sets. Scoring is deterministic
// and side-effect-free; the weighting of the overall score is an explicit
// configuration surface, not a hidden constant.
package quality

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/montanaflynn/stats"

	"github.com/c360studio/reqderive/requirement"
)

// clarityFullLength is the rationale length (in runes) at which the clarity
// heuristic awards full credit.
const clarityFullLength = 40

// Weights defines the contribution of each metric to the overall score.
// They must be non-negative and sum to 1.
type Weights struct {
	Confidence   float64 `yaml:"confidence"`
	Completeness float64 `yaml:"completeness"`
	Consistency  float64 `yaml:"consistency"`
	Clarity      float64 `yaml:"clarity"`
}

// DefaultWeights returns the standard weighting: confidence and
// completeness dominate, consistency and clarity refine.
func DefaultWeights() Weights {
	return Weights{
		Confidence:   0.35,
		Completeness: 0.30,
		Consistency:  0.20,
		Clarity:      0.15,
	}
}

// Validate checks that the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"confidence":   w.Confidence,
		"completeness": w.Completeness,
		"consistency":  w.Consistency,
		"clarity":      w.Clarity,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}

	sum := w.Confidence + w.Completeness + w.Consistency + w.Clarity
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Scorer computes quality metrics over derived capability sets.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Weights returns the scorer's weighting.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes quality metrics for a capability set. An empty set yields
// all-zero metrics, never an error.
func (s *Scorer) Score(caps []requirement.DerivedCapability) requirement.QualityMetrics {
	if len(caps) == 0 {
		return requirement.QualityMetrics{}
	}

	confidence := meanConfidence(caps)
	completeness := completenessScore(caps)
	consistency := consistencyScore(caps)
	clarity := clarityScore(caps)

	overall := s.weights.Confidence*confidence +
		s.weights.Completeness*completeness +
		s.weights.Consistency*consistency +
		s.weights.Clarity*clarity

	return requirement.QualityMetrics{
		OverallScore:      requirement.Clamp01(overall),
		ConfidenceScore:   confidence,
		CompletenessScore: completeness,
		ConsistencyScore:  consistency,
		ClarityScore:      clarity,
	}
}

// ScoreOne computes a per-capability score. Consistency is a set property,
// so its weight is redistributed over the remaining metrics.
func (s *Scorer) ScoreOne(cap requirement.DerivedCapability) float64 {
	complete := 1.0
	if len(cap.MissingSpecifications) > 0 {
		complete = 0
	}

	weightSum := s.weights.Confidence + s.weights.Completeness + s.weights.Clarity
	if weightSum == 0 {
		return 0
	}

	score := (s.weights.Confidence*requirement.Clamp01(cap.Confidence) +
		s.weights.Completeness*complete +
		s.weights.Clarity*clarityOf(cap)) / weightSum

	return requirement.Clamp01(score)
}

// meanConfidence averages capability confidences.
func meanConfidence(caps []requirement.DerivedCapability) float64 {
	values := make([]float64, len(caps))
	for i, c := range caps {
		values[i] = requirement.Clamp01(c.Confidence)
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return mean
}

// completenessScore is the fraction of capabilities with no missing
// specifications.
func completenessScore(caps []requirement.DerivedCapability) float64 {
	complete := 0
	for _, c := range caps {
		if len(c.MissingSpecifications) == 0 {
			complete++
		}
	}
	return float64(complete) / float64(len(caps))
}

// consistencyScore measures taxonomy agreement among capabilities sharing a
// source requirement: for each source group, the share held by the modal
// category, averaged over groups. Singleton groups are trivially consistent.
func consistencyScore(caps []requirement.DerivedCapability) float64 {
	groups := make(map[string][]requirement.Category)
	for _, c := range caps {
		groups[c.SourceRequirementID] = append(groups[c.SourceRequirementID], c.Category)
	}

	ratios := make([]float64, 0, len(groups))
	for _, categories := range groups {
		counts := make(map[requirement.Category]int)
		modal := 0
		for _, cat := range categories {
			counts[cat]++
			if counts[cat] > modal {
				modal = counts[cat]
			}
		}
		ratios = append(ratios, float64(modal)/float64(len(categories)))
	}

	mean, err := stats.Mean(ratios)
	if err != nil {
		return 0
	}
	return mean
}

// clarityScore averages the per-capability rationale heuristic.
func clarityScore(caps []requirement.DerivedCapability) float64 {
	values := make([]float64, len(caps))
	for i, c := range caps {
		values[i] = clarityOf(c)
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return mean
}

// clarityOf scores one rationale: zero when absent, scaling linearly to
// full credit at clarityFullLength runes.
func clarityOf(cap requirement.DerivedCapability) float64 {
	length := utf8.RuneCountInString(cap.Rationale)
	if length == 0 {
		return 0
	}
	if length >= clarityFullLength {
		return 1
	}
	return float64(length) / clarityFullLength
}

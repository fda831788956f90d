package derive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/reqderive/requirement"
)

// ValidationError reports model output that does not conform to the
// expected schema: missing required fields, unknown fields, or malformed
// structure. The derivation engine recovers it into a non-successful
// result; it never propagates past the engine.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid model response: " + e.Reason
}

// newValidationError creates a ValidationError with a formatted reason.
func newValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError returns true if err is a schema validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Candidate is one capability statement as parsed from model output,
// before taxonomy validation.
type Candidate struct {
	Text                  string
	CategoryCode          string
	Rationale             string
	Confidence            float64
	SourceRequirementID   string
	MissingSpecifications []string
}

// candidateRecord is the strict wire schema for one capability. Pointer
// fields distinguish absent from zero.
type candidateRecord struct {
	Text                  string   `json:"text"`
	Category              string   `json:"category"`
	Rationale             string   `json:"rationale"`
	Confidence            *float64 `json:"confidence"`
	SourceRequirementID   string   `json:"source_requirement_id"`
	MissingSpecifications []string `json:"missing_specifications"`
}

// qualityRecord is the strict wire schema for a quality-analysis response.
type qualityRecord struct {
	QualityScore *float64 `json:"quality_score"`
	Issues       []struct {
		Category    string `json:"category"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
	} `json:"issues"`
	Recommendations []struct {
		Category      string `json:"category"`
		Description   string `json:"description"`
		SuggestedEdit string `json:"suggested_edit"`
	} `json:"recommendations"`
	FreeformFeedback string `json:"freeform_feedback"`
}

// Parser converts raw generated text into typed records. Parsing is strict:
// a response that is not well-formed JSON, carries unknown fields, or lacks
// a required field yields a ValidationError.
type Parser struct{}

// NewParser creates a response parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseCapabilities decodes a capability list from raw model output.
func (p *Parser) ParseCapabilities(raw string) ([]Candidate, error) {
	extracted := extractArray(raw)
	if extracted == "" {
		return nil, newValidationError("no JSON array found in response")
	}

	var records []candidateRecord
	if err := strictDecode(extracted, &records); err != nil {
		return nil, newValidationError("decode capability list: %v", err)
	}

	candidates := make([]Candidate, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			return nil, newValidationError("capability %d: missing required field 'text'", i)
		}
		if strings.TrimSpace(rec.Category) == "" {
			return nil, newValidationError("capability %d: missing required field 'category'", i)
		}
		if rec.Confidence == nil {
			return nil, newValidationError("capability %d: missing required field 'confidence'", i)
		}

		candidates = append(candidates, Candidate{
			Text:                  strings.TrimSpace(rec.Text),
			CategoryCode:          rec.Category,
			Rationale:             strings.TrimSpace(rec.Rationale),
			Confidence:            requirement.Clamp01(*rec.Confidence),
			SourceRequirementID:   strings.TrimSpace(rec.SourceRequirementID),
			MissingSpecifications: rec.MissingSpecifications,
		})
	}

	return candidates, nil
}

// ParseQualityAnalysis decodes a structured quality-analysis record from
// raw model output.
func (p *Parser) ParseQualityAnalysis(raw string) (*requirement.QualityAnalysis, error) {
	extracted := extractObject(raw)
	if extracted == "" {
		return nil, newValidationError("no JSON object found in response")
	}

	var rec qualityRecord
	if err := strictDecode(extracted, &rec); err != nil {
		return nil, newValidationError("decode quality analysis: %v", err)
	}
	if rec.QualityScore == nil {
		return nil, newValidationError("missing required field 'quality_score'")
	}

	qa := &requirement.QualityAnalysis{
		QualityScore:     requirement.Clamp01(*rec.QualityScore),
		FreeformFeedback: strings.TrimSpace(rec.FreeformFeedback),
	}

	for i, issue := range rec.Issues {
		sev := requirement.Severity(strings.ToLower(strings.TrimSpace(issue.Severity)))
		if !sev.IsValid() {
			return nil, newValidationError("issue %d: invalid severity %q", i, issue.Severity)
		}
		if strings.TrimSpace(issue.Description) == "" {
			return nil, newValidationError("issue %d: missing required field 'description'", i)
		}
		qa.Issues = append(qa.Issues, requirement.QualityIssue{
			Category:    strings.TrimSpace(issue.Category),
			Severity:    sev,
			Description: strings.TrimSpace(issue.Description),
		})
	}

	for _, r := range rec.Recommendations {
		qa.Recommendations = append(qa.Recommendations, requirement.QualityRecommendation{
			Category:      strings.TrimSpace(r.Category),
			Description:   strings.TrimSpace(r.Description),
			SuggestedEdit: strings.TrimSpace(r.SuggestedEdit),
		})
	}

	return qa, nil
}

// strictDecode unmarshals JSON rejecting unknown fields and trailing data.
func strictDecode(data string, v any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A second document after the first is malformed output.
	if dec.More() {
		return fmt.Errorf("trailing data after JSON document")
	}
	return nil
}

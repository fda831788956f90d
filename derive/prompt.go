package derive

import (
	"fmt"
	"strings"

	"github.com/c360studio/reqderive/requirement"
)

// PromptAssembler builds the system and per-call context prompts sent to
// the text-generation gateway. It is a pure function over the requirement;
// prompt wording carries no pipeline semantics beyond the response schema
// the parser expects.
type PromptAssembler struct{}

// NewPromptAssembler creates a prompt assembler.
func NewPromptAssembler() *PromptAssembler {
	return &PromptAssembler{}
}

// SystemPrompt returns the system message for capability derivation. It
// pins the response schema and the closed taxonomy the parser validates
// against.
func (a *PromptAssembler) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a systems engineering analyst. Given a system requirement, ")
	b.WriteString("derive the distinct system capabilities it implies.\n\n")
	b.WriteString("Respond with a JSON array only. Each element:\n")
	b.WriteString(`{"text": "capability statement", "category": "A".."N" with optional numeric subcode, ` +
		`"rationale": "why this capability follows", "confidence": 0.0-1.0, ` +
		`"source_requirement_id": "originating requirement id if known", ` +
		`"missing_specifications": ["unspecified details, if any"]}` + "\n\n")
	b.WriteString("Taxonomy categories:\n")
	for _, c := range requirement.Categories() {
		fmt.Fprintf(&b, "  %s: %s\n", c, c.Name())
	}
	return b.String()
}

// ContextPrompt renders the requirement's text, tables, and supplemental
// content into the per-call user message.
func (a *PromptAssembler) ContextPrompt(req *requirement.Requirement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement %s: %s\n\n%s\n", req.ID, req.Name, req.Description)

	for _, table := range req.Tables {
		writeTable(&b, table)
	}

	if len(req.SupplementalParagraphs) > 0 {
		b.WriteString("\nSupplemental information:\n")
		for _, p := range req.SupplementalParagraphs {
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	for _, table := range req.SupplementalTables {
		writeTable(&b, table)
	}

	return b.String()
}

// QualitySystemPrompt returns the system message for a model-driven quality
// review of a derivation.
func (a *PromptAssembler) QualitySystemPrompt() string {
	return "You are reviewing derived system capabilities for quality. " +
		"Respond with a JSON object only: " +
		`{"quality_score": 0.0-1.0, ` +
		`"issues": [{"category": "...", "severity": "low|medium|high", "description": "..."}], ` +
		`"recommendations": [{"category": "...", "description": "...", "suggested_edit": "..."}], ` +
		`"freeform_feedback": "..."}`
}

// QualityContextPrompt renders the requirement and its derived capabilities
// for review.
func (a *PromptAssembler) QualityContextPrompt(req *requirement.Requirement, caps []requirement.DerivedCapability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement %s: %s\n\nDerived capabilities:\n", req.ID, req.Description)
	for _, c := range caps {
		fmt.Fprintf(&b, "- [%s%s] %s (confidence %.2f)\n", c.Category, c.Subcategory, c.Text, c.Confidence)
	}
	return b.String()
}

// writeTable renders a table as pipe-delimited rows.
func writeTable(b *strings.Builder, table requirement.Table) {
	if table.Title != "" {
		fmt.Fprintf(b, "\nTable: %s\n", table.Title)
	} else {
		b.WriteString("\nTable:\n")
	}
	if len(table.Headers) > 0 {
		fmt.Fprintf(b, "| %s |\n", strings.Join(table.Headers, " | "))
	}
	for _, row := range table.Rows {
		fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
	}
}

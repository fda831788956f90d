// Package derive turns a free-text system requirement into classified,
// confidence-scored derived-capability statements using a text-generation
// gateway. It assembles prompts, parses model output strictly, and
// validates taxonomy codes; everything after the gateway call is
// deterministic.
package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/reqderive/gateway"
	"github.com/c360studio/reqderive/quality"
	"github.com/c360studio/reqderive/requirement"
)

// ErrNilRequirement is returned when a nil requirement reaches a derivation
// entry point. This is a programmer error and fails fast before any I/O;
// input-quality problems (empty text, bad model output) are reported inside
// the DerivationResult instead.
var ErrNilRequirement = errors.New("requirement must not be nil")

// Options carries per-derivation feature toggles. A nil *Options uses
// DefaultOptions.
type Options struct {
	// QualityScoring computes a deterministic quality score over the
	// derived set and stores it on the result.
	QualityScoring bool

	// MaxCapabilities caps the derived set size; excess capabilities are
	// truncated with a warning. 0 uses the default.
	MaxCapabilities int
}

// DefaultOptions returns the default derivation options.
func DefaultOptions() *Options {
	return &Options{
		QualityScoring:  true,
		MaxCapabilities: 25,
	}
}

// Engine orchestrates prompt assembly, gateway invocation, response
// parsing, and taxonomy validation for one requirement.
//
// Gateway failures are caught and returned as non-successful results so
// batch processing can continue past individual failures.
type Engine struct {
	gw        gateway.Gateway
	assembler *PromptAssembler
	parser    *Parser
	validator *TaxonomyValidator
	scorer    *quality.Scorer
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithScorer sets the quality scorer used when quality scoring is enabled.
func WithScorer(scorer *quality.Scorer) EngineOption {
	return func(e *Engine) {
		e.scorer = scorer
	}
}

// NewEngine creates a derivation engine backed by the given gateway.
func NewEngine(gw gateway.Gateway, opts ...EngineOption) *Engine {
	e := &Engine{
		gw:        gw,
		assembler: NewPromptAssembler(),
		parser:    NewParser(),
		validator: NewTaxonomyValidator(),
		scorer:    quality.NewScorer(quality.DefaultWeights()),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Derive analyzes one requirement and returns the validated capability set.
// The error return is reserved for programmer errors (nil requirement);
// gateway and parse failures come back inside a non-successful result.
func (e *Engine) Derive(ctx context.Context, req *requirement.Requirement, opts *Options) (*requirement.DerivationResult, error) {
	if req == nil {
		return nil, ErrNilRequirement
	}
	if emptyText(req) {
		return failedResult("requirement has no description text"), nil
	}

	opts = normalizeOptions(opts)

	raw, err := e.gw.GenerateWithSystem(ctx, e.assembler.SystemPrompt(), e.assembler.ContextPrompt(req))
	if err != nil {
		if ctx.Err() != nil {
			// Preserve cancellation so batch slots can report it distinctly.
			return nil, ctx.Err()
		}
		e.logger.Warn("Generation failed", "requirement_id", req.ID, "error", err)
		return failedResult(fmt.Sprintf("text generation failed: %v", err)), nil
	}

	return e.finish(req, raw, opts), nil
}

// DeriveStreaming analyzes one requirement over the gateway's streaming
// path, forwarding chunks and progress to the callbacks, then parses the
// accumulated text exactly as Derive does.
func (e *Engine) DeriveStreaming(ctx context.Context, req *requirement.Requirement, opts *Options, onChunk gateway.ChunkFunc, onProgress gateway.ProgressFunc) (*requirement.DerivationResult, error) {
	if req == nil {
		return nil, ErrNilRequirement
	}
	if emptyText(req) {
		return failedResult("requirement has no description text"), nil
	}

	opts = normalizeOptions(opts)

	raw, err := e.gw.GenerateStream(ctx, e.assembler.SystemPrompt(), e.assembler.ContextPrompt(req), onChunk, onProgress)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("Streaming generation failed", "requirement_id", req.ID, "error", err)
		return failedResult(fmt.Sprintf("text generation failed: %v", err)), nil
	}

	return e.finish(req, raw, opts), nil
}

// Critique runs a model-driven quality review of a derived capability set.
// Unlike Derive, schema failures surface as errors here; the orchestrator
// decides how to present them.
func (e *Engine) Critique(ctx context.Context, req *requirement.Requirement, caps []requirement.DerivedCapability) (*requirement.QualityAnalysis, error) {
	if req == nil {
		return nil, ErrNilRequirement
	}

	raw, err := e.gw.GenerateWithSystem(ctx, e.assembler.QualitySystemPrompt(), e.assembler.QualityContextPrompt(req, caps))
	if err != nil {
		return nil, fmt.Errorf("quality review generation: %w", err)
	}

	qa, err := e.parser.ParseQualityAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("quality review: %w", err)
	}
	return qa, nil
}

// finish runs the deterministic tail of a derivation: parse, validate,
// truncate, score.
func (e *Engine) finish(req *requirement.Requirement, raw string, opts *Options) *requirement.DerivationResult {
	candidates, err := e.parser.ParseCapabilities(raw)
	if err != nil {
		e.logger.Warn("Response failed validation", "requirement_id", req.ID, "error", err)
		return failedResult(err.Error())
	}

	caps, warnings := e.validator.Validate(candidates)

	// Capabilities without an explicit source default to the analyzed
	// requirement.
	for i := range caps {
		if caps[i].SourceRequirementID == "" {
			caps[i].SourceRequirementID = req.ID
		}
	}

	if opts.MaxCapabilities > 0 && len(caps) > opts.MaxCapabilities {
		warnings = append(warnings, fmt.Sprintf(
			"derived %d capabilities, truncated to %d", len(caps), opts.MaxCapabilities))
		caps = caps[:opts.MaxCapabilities]
	}

	result := &requirement.DerivationResult{
		Capabilities: caps,
		Warnings:     warnings,
		Successful:   true,
	}

	if opts.QualityScoring {
		result.QualityScore = e.scorer.Score(caps).OverallScore
	}

	e.logger.Debug("Derivation complete",
		"requirement_id", req.ID,
		"capabilities", len(caps),
		"warnings", len(warnings))

	return result
}

// emptyText reports whether the requirement has no analyzable text.
func emptyText(req *requirement.Requirement) bool {
	for _, r := range req.Description {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// normalizeOptions fills in defaults for a nil or partially zero options
// value.
func normalizeOptions(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	normalized := *opts
	if normalized.MaxCapabilities == 0 {
		normalized.MaxCapabilities = DefaultOptions().MaxCapabilities
	}
	return &normalized
}

// failedResult builds a non-successful result with zero capabilities.
func failedResult(msg string) *requirement.DerivationResult {
	return &requirement.DerivationResult{
		Capabilities: []requirement.DerivedCapability{},
		Successful:   false,
		ErrorMessage: msg,
	}
}

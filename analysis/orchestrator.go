// Package analysis is the public entry point of the derivation pipeline.
// The Orchestrator composes cache lookup, health gating, capability
// derivation, gap analysis, and quality scoring behind three operations:
// analyze one requirement, analyze a batch with bounded concurrency, and
// analyze with streaming partial output.
//
// All collaborators are injected through the constructor; nothing is
// fetched from ambient global state.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/c360studio/reqderive/derive"
	"github.com/c360studio/reqderive/gap"
	"github.com/c360studio/reqderive/gateway"
	"github.com/c360studio/reqderive/health"
	"github.com/c360studio/reqderive/quality"
	"github.com/c360studio/reqderive/requirement"
)

// Outcome classifies how one analysis ended. Cancellation is distinct from
// failure and is never silently dropped.
type Outcome string

const (
	// OutcomeOK means the derivation completed successfully.
	OutcomeOK Outcome = "ok"

	// OutcomeFailed means the derivation completed unsuccessfully
	// (gateway failure, schema-invalid output, empty input).
	OutcomeFailed Outcome = "failed"

	// OutcomeCancelled means the analysis was cancelled in flight.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeSkipped means the health gate blocked the analysis before
	// any gateway work.
	OutcomeSkipped Outcome = "skipped"
)

// BatchItem is one requirement's slot in a batch result. Result is nil only
// for cancelled items.
type BatchItem struct {
	RequirementID string                        `json:"requirement_id"`
	Outcome       Outcome                       `json:"outcome"`
	Result        *requirement.DerivationResult `json:"result,omitempty"`
}

// ProgressFunc receives batch progress after each completed item. The
// completed count is strictly increasing; items complete in any order.
type ProgressFunc func(completed, total int)

// BatchOptions configures AnalyzeBatch. The zero value uses default
// concurrency and continues past individual failures.
type BatchOptions struct {
	// MaxConcurrency bounds concurrent in-flight analyses. 0 uses the
	// default of 4.
	MaxConcurrency int

	// OnProgress, if set, is invoked after each completed item.
	OnProgress ProgressFunc

	// StopOnFailure cancels outstanding work on the first failed item.
	// The default keeps going and records each failure in its own slot.
	StopOnFailure bool
}

// defaultMaxConcurrency bounds batch parallelism when unconfigured. Local
// model services saturate quickly; four in-flight requests is plenty.
const defaultMaxConcurrency = 4

// CorpusReport is the composite result of analyzing a requirement corpus:
// per-requirement derivations plus coverage and quality over the combined
// capability set.
type CorpusReport struct {
	Items    []BatchItem                   `json:"items"`
	Gaps     requirement.GapAnalysisResult `json:"gaps"`
	Quality  requirement.QualityMetrics    `json:"quality"`
	Duration time.Duration                 `json:"duration"`
}

// Orchestrator composes the pipeline's components. Construct with New.
type Orchestrator struct {
	engine   *derive.Engine
	cache    *Cache
	monitor  *health.Monitor
	analyzer *gap.Analyzer
	scorer   *quality.Scorer
	metrics  *Metrics
	logger   *slog.Logger
	options  *derive.Options
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithGapAnalyzer sets the gap analyzer used for corpus reports.
func WithGapAnalyzer(a *gap.Analyzer) Option {
	return func(o *Orchestrator) {
		o.analyzer = a
	}
}

// WithQualityScorer sets the scorer used for corpus reports.
func WithQualityScorer(s *quality.Scorer) Option {
	return func(o *Orchestrator) {
		o.scorer = s
	}
}

// WithDerivationOptions sets the per-derivation options applied to every
// analysis.
func WithDerivationOptions(opts *derive.Options) Option {
	return func(o *Orchestrator) {
		o.options = opts
	}
}

// New creates an orchestrator. The monitor may be nil to disable health
// gating.
func New(engine *derive.Engine, cache *Cache, monitor *health.Monitor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		cache:    cache,
		monitor:  monitor,
		analyzer: gap.NewAnalyzer(gap.DefaultConfig()),
		scorer:   quality.NewScorer(quality.DefaultWeights()),
		logger:   slog.Default(),
		options:  derive.DefaultOptions(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// AnalyzeOne derives capabilities for a single requirement: cache lookup by
// fingerprint, then health-gated derivation on a miss. The error return is
// reserved for programmer errors and cancellation; analysis failures come
// back inside the result.
func (o *Orchestrator) AnalyzeOne(ctx context.Context, req *requirement.Requirement) (*requirement.DerivationResult, error) {
	if req == nil {
		return nil, derive.ErrNilRequirement
	}

	result, outcome := o.analyze(ctx, req, func(deriveCtx context.Context) (*requirement.DerivationResult, error) {
		return o.engine.Derive(deriveCtx, req, o.options)
	})
	if outcome == OutcomeCancelled {
		return nil, ctx.Err()
	}
	return result, nil
}

// AnalyzeStreaming derives capabilities while forwarding gateway stream
// chunks to onPartialChunk and status text to onProgressMessage. A cache
// hit returns the stored result without streaming anything.
func (o *Orchestrator) AnalyzeStreaming(ctx context.Context, req *requirement.Requirement, onPartialChunk gateway.ChunkFunc, onProgressMessage gateway.ProgressFunc) (*requirement.DerivationResult, error) {
	if req == nil {
		return nil, derive.ErrNilRequirement
	}

	result, outcome := o.analyze(ctx, req, func(deriveCtx context.Context) (*requirement.DerivationResult, error) {
		return o.engine.DeriveStreaming(deriveCtx, req, o.options, onPartialChunk, onProgressMessage)
	})
	if outcome == OutcomeCancelled {
		return nil, ctx.Err()
	}
	return result, nil
}

// analyze runs the shared cache/health/derive path. The derivation itself
// is supplied by the caller so the streaming and non-streaming entry points
// stay identical everywhere else.
func (o *Orchestrator) analyze(ctx context.Context, req *requirement.Requirement, run func(context.Context) (*requirement.DerivationResult, error)) (*requirement.DerivationResult, Outcome) {
	key := requirement.Fingerprint(req)

	if entry, ok := o.cache.Get(key); ok {
		o.metrics.cacheHit()
		o.logger.Debug("Cache hit", "requirement_id", req.ID)
		result := entry.Result
		return &result, OutcomeOK
	}
	o.metrics.cacheMiss()

	if !o.gatewayUsable(ctx) {
		o.metrics.skipped()
		o.logger.Warn("Skipping analysis, gateway unhealthy", "requirement_id", req.ID)
		return &requirement.DerivationResult{
			Capabilities: []requirement.DerivedCapability{},
			Successful:   false,
			ErrorMessage: "text generation service is unavailable",
		}, OutcomeSkipped
	}

	started := time.Now()
	result, err := run(ctx)
	o.metrics.observeDuration(time.Since(started).Seconds())

	if err != nil {
		// The engine reserves errors for nil input and cancellation, and
		// nil input was checked at the entry point.
		return nil, OutcomeCancelled
	}

	if !result.Successful {
		o.metrics.failed()
		return result, OutcomeFailed
	}

	o.cache.Put(key, req.ID, *result)
	return result, OutcomeOK
}

// gatewayUsable applies the health gate: analysis proceeds unless the
// monitor reports Unhealthy. The last-known snapshot is reused when
// present so batch items don't re-probe per requirement.
func (o *Orchestrator) gatewayUsable(ctx context.Context) bool {
	if o.monitor == nil {
		return true
	}

	report, ok := o.monitor.Last()
	if !ok {
		report = o.monitor.Check(ctx)
	}
	return report.Status != health.StatusUnhealthy
}

// AnalyzeBatch analyzes requirements with bounded concurrency. Items may
// complete in any order; progress callbacks are delivered in completion
// order with a strictly increasing completed count. One item's failure
// never fails the batch call itself.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, reqs []requirement.Requirement, opts *BatchOptions) ([]BatchItem, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	total := len(reqs)
	items := make([]BatchItem, total)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(maxConcurrency))

	var wg sync.WaitGroup
	var progressMu sync.Mutex
	completed := 0

	// finish records an item and reports progress. Calling the callback
	// under the lock keeps the completed count strictly increasing.
	finish := func(i int, item BatchItem) {
		items[i] = item

		progressMu.Lock()
		completed++
		if opts.OnProgress != nil {
			opts.OnProgress(completed, total)
		}
		progressMu.Unlock()
	}

	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := &reqs[i]

			if err := sem.Acquire(batchCtx, 1); err != nil {
				finish(i, BatchItem{RequirementID: req.ID, Outcome: OutcomeCancelled})
				return
			}
			defer sem.Release(1)

			result, outcome := o.analyze(batchCtx, req, func(deriveCtx context.Context) (*requirement.DerivationResult, error) {
				return o.engine.Derive(deriveCtx, req, o.options)
			})
			finish(i, BatchItem{RequirementID: req.ID, Outcome: outcome, Result: result})

			if outcome == OutcomeFailed && opts.StopOnFailure {
				cancel()
			}
		}(i)
	}

	wg.Wait()

	// The batch call only fails when the caller's own context ended.
	return items, ctx.Err()
}

// AnalyzeCorpus runs a batch over the corpus, then computes gap coverage
// and quality over the combined derived capability set.
func (o *Orchestrator) AnalyzeCorpus(ctx context.Context, reqs []requirement.Requirement, opts *BatchOptions) (*CorpusReport, error) {
	started := time.Now()

	items, err := o.AnalyzeBatch(ctx, reqs, opts)
	if err != nil {
		return nil, fmt.Errorf("analyze corpus: %w", err)
	}

	var caps []requirement.DerivedCapability
	for _, item := range items {
		if item.Outcome == OutcomeOK && item.Result != nil {
			caps = append(caps, item.Result.Capabilities...)
		}
	}

	return &CorpusReport{
		Items:    items,
		Gaps:     o.analyzer.Analyze(caps, reqs),
		Quality:  o.scorer.Score(caps),
		Duration: time.Since(started),
	}, nil
}

// InvalidateCache removes cached results for a requirement ID and returns
// how many entries were removed.
func (o *Orchestrator) InvalidateCache(requirementID string) int {
	return o.cache.Invalidate(requirementID)
}

// ClearCache removes all cached results.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// ValidateService probes the gateway and returns true only when it is
// fully healthy. Degraded is conservatively treated as unavailable;
// callers that want to proceed on a degraded service can consult the
// monitor directly. With no monitor configured this always returns true.
func (o *Orchestrator) ValidateService(ctx context.Context) bool {
	if o.monitor == nil {
		return true
	}
	return o.monitor.Healthy(ctx)
}

// Package main provides the reqderive binary entry point: derive
// capabilities from a requirement corpus and report coverage gaps from the
// command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/reqderive/analysis"
	"github.com/c360studio/reqderive/config"
	"github.com/c360studio/reqderive/derive"
	"github.com/c360studio/reqderive/gap"
	"github.com/c360studio/reqderive/gateway"
	"github.com/c360studio/reqderive/health"
	"github.com/c360studio/reqderive/quality"
	"github.com/c360studio/reqderive/requirement"
)

const (
	Version = "0.1.0"
	appName = "reqderive"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:     appName,
		Short:   "Derive system capabilities from requirements and analyze coverage gaps",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(analyzeCmd(&configPath))
	cmd.AddCommand(healthCmd(&configPath))

	return cmd
}

// loadConfig reads the config file when given, defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildPipeline wires the gateway, monitor, and orchestrator from config.
func buildPipeline(cfg *config.Config) (*analysis.Orchestrator, *health.Monitor) {
	clientOpts := []gateway.ClientOption{
		gateway.WithTemperature(cfg.Service.Temperature),
	}
	if cfg.Service.APIKey != "" {
		clientOpts = append(clientOpts, gateway.WithAPIKey(cfg.Service.APIKey))
	}
	client := gateway.NewClient(cfg.Service.Endpoint, cfg.Service.Model, clientOpts...)

	monitor := health.NewMonitor(client,
		health.WithProbeTimeout(cfg.Health.ProbeTimeout),
		health.WithDegradedAfter(cfg.Health.DegradedAfter))

	scorer := quality.NewScorer(cfg.Quality.Weights)
	engine := derive.NewEngine(client, derive.WithScorer(scorer))

	orch := analysis.New(engine, analysis.NewCache(), monitor,
		analysis.WithGapAnalyzer(gap.NewAnalyzer(gap.Config{
			SimilarityThreshold: cfg.Gap.SimilarityThreshold,
			CategoryBonus:       cfg.Gap.CategoryBonus,
		})),
		analysis.WithQualityScorer(scorer),
		analysis.WithDerivationOptions(&derive.Options{
			QualityScoring:  cfg.Derivation.QualityScoring,
			MaxCapabilities: cfg.Derivation.MaxCapabilities,
		}))

	return orch, monitor
}

func analyzeCmd(configPath *string) *cobra.Command {
	var corpusPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Derive capabilities for a requirement corpus and report gaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.Batch.MaxConcurrency = concurrency
			}

			reqs, err := loadCorpus(corpusPath)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return fmt.Errorf("corpus %s contains no requirements", corpusPath)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch, _ := buildPipeline(cfg)

			if !orch.ValidateService(ctx) {
				slog.Warn("Generation service is not fully healthy; continuing anyway")
			}

			started := time.Now()
			report, err := orch.AnalyzeCorpus(ctx, reqs, &analysis.BatchOptions{
				MaxConcurrency: cfg.Batch.MaxConcurrency,
				OnProgress: func(completed, total int) {
					fmt.Fprintf(os.Stderr, "analyzed %d/%d requirements\n", completed, total)
				},
			})
			if err != nil {
				return err
			}

			slog.Info("Corpus analysis complete",
				"requirements", len(reqs),
				"coverage", fmt.Sprintf("%.0f%%", report.Gaps.CoveragePercentage*100),
				"elapsed", time.Since(started).Round(time.Millisecond))

			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to YAML file with the requirement corpus")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max concurrent analyses (overrides config)")
	_ = cmd.MarkFlagRequired("corpus")

	return cmd
}

func healthCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the text-generation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			_, monitor := buildPipeline(cfg)
			report := monitor.Check(cmd.Context())

			fmt.Printf("status: %s\nresponse_time_ms: %d\nchecked_at: %s\n",
				report.Status, report.ResponseTimeMs, report.CheckedAt.Format(time.RFC3339))

			if report.Status == health.StatusUnhealthy {
				os.Exit(1)
			}
			return nil
		},
	}
}

// corpusFile is the YAML shape of a requirement corpus.
type corpusFile struct {
	Requirements []requirement.Requirement `yaml:"requirements"`
}

// loadCorpus reads requirements from a YAML file. Both a top-level
// `requirements:` list and a bare list are accepted.
func loadCorpus(path string) ([]requirement.Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Requirements) > 0 {
		return file.Requirements, nil
	}

	var bare []requirement.Requirement
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return bare, nil
}

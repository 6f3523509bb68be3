package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pharmatext/csrgen/internal/config"
	"github.com/pharmatext/csrgen/internal/document"
	"github.com/pharmatext/csrgen/internal/history"
	"github.com/pharmatext/csrgen/internal/llm"
	"github.com/pharmatext/csrgen/internal/logger"
	"github.com/pharmatext/csrgen/internal/pipeline"
	"github.com/pharmatext/csrgen/internal/runlock"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and iteratively improve a CSR",
		Long: `Run the full pipeline: extract section content from the clinical data,
compose the initial CSR draft (v0), then iterate completeness and compliance
evaluation followed by revision until the combined score reaches the target
confidence or the iteration budget is exhausted.

Configuration is loaded from .csrgen/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Run with inputs from the config file
  csrgen run

  # Explicit inputs and a tighter target
  csrgen run --data trial.json --template template.md --target 90

  # Bound the loop and write elsewhere
  csrgen run --max-iterations 5 --out ./reports --stem nct01234567

  # Compare drafts afterwards
  csrgen compare reports/nct01234567.md reports/nct01234567_v2.md`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .csrgen/config.yaml)")
	cmd.Flags().String("data", "", "Path to clinical data JSON")
	cmd.Flags().String("template", "", "Path to CSR template document")
	cmd.Flags().String("reference", "", "Path to sample CSR used by the completeness review")
	cmd.Flags().String("checklist", "", "Path to regulatory section checklist (one section per line)")
	cmd.Flags().String("out", "", "Output directory for document versions and reports")
	cmd.Flags().String("stem", "", "Base filename for generated documents")
	cmd.Flags().Float64("target", -1, "Target confidence score in [0,100] (-1 = use config)")
	cmd.Flags().Int("max-iterations", -1, "Maximum evaluate/revise cycles (-1 = use config)")
	cmd.Flags().String("model", "", "Generation model identifier")
	cmd.Flags().String("base-url", "", "Generation service base URL")
	cmd.Flags().String("timeout", "", "Per-request generation timeout (e.g. 90s, 2m)")
	cmd.Flags().String("log-level", "", "Log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().Bool("sequential", false, "Run the two evaluators sequentially instead of concurrently")
	cmd.Flags().Bool("no-history", false, "Disable run-history recording")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := mergeRunFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateInputs(); err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)

	// One run at a time per output directory; version paths are write-once.
	lock, err := runlock.Acquire(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	client, err := buildClient(cfg, log)
	if err != nil {
		return err
	}

	store := document.NewStore()

	referenceText := ""
	if cfg.Inputs.Reference != "" {
		referenceText, err = store.Read(cfg.Inputs.Reference)
		if err != nil {
			return fmt.Errorf("failed to read reference CSR: %w", err)
		}
	}

	checklist, err := loadChecklist(cfg.Inputs.Checklist)
	if err != nil {
		return err
	}

	extractor := pipeline.NewExtractor(client, store, log)
	composer := pipeline.NewComposer(client, store, log)
	completeness := pipeline.NewCompletenessEvaluator(client, store, referenceText, log)
	compliance := pipeline.NewComplianceEvaluator(client, store, checklist, log)
	reviser := pipeline.NewReviser(client, store, log)

	loop := pipeline.NewLoop(completeness, compliance, reviser, pipeline.LoopOptions{
		TargetConfidence:     cfg.TargetConfidence,
		MaxIterations:        cfg.MaxIterations,
		SequentialEvaluation: cfg.SequentialEvaluation,
	}, log)

	progress := logger.NewProgressPrinter(cmd.OutOrStdout())
	loop.SetProgress(func(snap pipeline.Snapshot) {
		progress.Update(snap.Status, snap.Fraction)
	})

	runID := uuid.New().String()
	var histStore *history.Store
	if cfg.History.Enabled {
		histStore, err = history.NewStore(cfg.History.DBPath)
		if err != nil {
			// History is diagnostic; a broken database should not block a run.
			log.LogWarn(fmt.Sprintf("run history disabled: %v", err))
		} else {
			defer histStore.Close()
			if err := histStore.BeginRun(history.Run{
				ID:               runID,
				StartedAt:        time.Now(),
				ClinicalData:     cfg.Inputs.ClinicalData,
				Template:         cfg.Inputs.Template,
				Model:            client.Model(),
				TargetConfidence: cfg.TargetConfidence,
				MaxIterations:    cfg.MaxIterations,
			}); err != nil {
				log.LogWarn(fmt.Sprintf("failed to record run start: %v", err))
			} else {
				loop.SetHistoryRecorder(histStore.Recorder(runID))
			}
		}
	}

	// Cooperative cancellation: the loop checks at iteration boundaries, so
	// an in-flight generation call finishes before the run stops.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(extractor, composer, loop, log)

	log.LogInfo(fmt.Sprintf("Starting run %s (target=%.1f, max_iterations=%d, model=%s)",
		runID, cfg.TargetConfidence, cfg.MaxIterations, client.Model()))

	started := time.Now()
	result, runErr := runner.Run(ctx, pipeline.RunInputs{
		ClinicalDataPath: cfg.Inputs.ClinicalData,
		TemplatePath:     cfg.Inputs.Template,
		OutputDir:        cfg.OutputDir,
		Stem:             cfg.Stem,
	})
	progress.Done()

	if histStore != nil {
		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}
		if err := histStore.FinishRun(runID, result, errMsg); err != nil {
			log.LogWarn(fmt.Sprintf("failed to record run end: %v", err))
		}
	}

	if runErr != nil {
		// Surface the partial score history for diagnosis.
		var loopErr *pipeline.LoopError
		if errors.As(runErr, &loopErr) && len(loopErr.History) > 0 {
			log.LogError("Partial score history before failure:")
			for _, rec := range loopErr.History {
				log.LogError(fmt.Sprintf("  iteration %d: completeness=%.1f compliance=%.1f combined=%.1f",
					rec.Iteration, rec.CompletenessScore, rec.ComplianceScore, rec.CombinedScore))
			}
		}
		return runErr
	}

	log.LogRunSummary(result, time.Since(started))
	return nil
}

// loadConfigFromFlags loads config from --config or the default location.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// mergeRunFlags overlays run command flags onto the configuration.
func mergeRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.Inputs.ClinicalData = v
	}
	if v, _ := cmd.Flags().GetString("template"); v != "" {
		cfg.Inputs.Template = v
	}
	if v, _ := cmd.Flags().GetString("reference"); v != "" {
		cfg.Inputs.Reference = v
	}
	if v, _ := cmd.Flags().GetString("checklist"); v != "" {
		cfg.Inputs.Checklist = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("stem"); v != "" {
		cfg.Stem = v
	}
	if v, _ := cmd.Flags().GetFloat64("target"); v >= 0 {
		cfg.TargetConfidence = v
	}
	if v, _ := cmd.Flags().GetInt("max-iterations"); v >= 0 {
		cfg.MaxIterations = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Generation.Model = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("timeout"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		cfg.Generation.Timeout = timeout
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetBool("sequential"); v {
		cfg.SequentialEvaluation = true
	}
	if v, _ := cmd.Flags().GetBool("no-history"); v {
		cfg.History.Enabled = false
	}
	return nil
}

// buildClient selects and constructs the generation client. Strategy
// selection happens here, at construction time; the loop never branches on
// provider.
func buildClient(cfg *config.Config, log *logger.ConsoleLogger) (llm.Client, error) {
	base, err := llm.NewOpenAIClient(cfg.Generation.Model, llm.Config{
		BaseURL: cfg.Generation.BaseURL,
		APIKey:  cfg.APIKey(),
		Timeout: cfg.Generation.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build generation client: %w", err)
	}
	if cfg.Generation.MaxRetries > 0 {
		return llm.NewRetryClient(base, cfg.Generation.MaxRetries, time.Second, log), nil
	}
	return base, nil
}

// loadChecklist reads a checklist file with one section name per line.
// Returns nil (use the built-in checklist) when path is empty.
func loadChecklist(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist: %w", err)
	}
	var sections []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			sections = append(sections, line)
		}
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("checklist %s contains no sections", path)
	}
	return sections, nil
}

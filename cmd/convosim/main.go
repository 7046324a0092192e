// Command convosim generates simulated customer service conversations and
// filters finished batches by quality.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/convosim"
	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/evaluation"
	"github.com/hupe1980/convosim/logging"
	"github.com/hupe1980/convosim/retrieval"
	"github.com/hupe1980/convosim/sink"
)

func main() {
	// Provider credentials are commonly kept in a local .env file.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "convosim",
		Short:         "Generate simulated customer service conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(newRunCmd(&logLevel), newFilterCmd(&logLevel))

	return cmd
}

type runFlags struct {
	modelName     string
	modelProvider string
	agentType     string
	scenario      string
	scenarioDir   string
	iterations    int
	count         int
	maxRetries    int
	maxFailures   int
	timeout       time.Duration
	seed          int64
	outputDir     string
	knowledgeDB   string
	mongoURI      string
	summarize     bool
}

func newRunCmd(logLevel *string) *cobra.Command {
	flags := runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one or more conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, flags, *logLevel)
		},
	}

	cmd.Flags().StringVar(&flags.modelName, "model_name", "", "backend model name (adapter default when empty)")
	cmd.Flags().StringVar(&flags.modelProvider, "model_provider", convosim.ProviderOpenAI,
		fmt.Sprintf("model provider (%s)", strings.Join(convosim.Providers(), "|")))
	cmd.Flags().StringVar(&flags.agentType, "agent_type", convosim.AgentTypeSimple,
		fmt.Sprintf("service agent architecture (%s)", strings.Join(convosim.AgentTypes(), "|")))
	cmd.Flags().StringVar(&flags.scenario, "scenario", "default", "scenario name")
	cmd.Flags().StringVar(&flags.scenarioDir, "scenario-dir", "", "load scenario bundles from this directory instead of the embedded ones")
	cmd.Flags().IntVar(&flags.iterations, "iterations", 10, "total turn budget per conversation")
	cmd.Flags().IntVar(&flags.count, "count", 1, "number of conversations to generate")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 2, "retries per model call on transient provider failures")
	cmd.Flags().IntVar(&flags.maxFailures, "max-failures", 3, "consecutive step failures before a run aborts")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "per-step timeout (0 disables)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "scenario sampling seed (0 samples from the clock)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "conversations", "directory for conversation JSON files")
	cmd.Flags().StringVar(&flags.knowledgeDB, "knowledge-db", "", "SQLite knowledge base for retrieval-augmented agents")
	cmd.Flags().StringVar(&flags.mongoURI, "mongo-uri", "", "write records to this MongoDB instead of files")
	cmd.Flags().BoolVar(&flags.summarize, "summarize", false, "generate a reflection summary per conversation")

	return cmd
}

func runSimulation(cmd *cobra.Command, flags runFlags, logLevel string) error {
	logger := newLogger(logLevel)

	ctx := cmd.Context()

	recordSink, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}

	simOpts := []func(o *convosim.Options){func(o *convosim.Options) {
		o.ModelName = flags.modelName
		o.ModelProvider = flags.modelProvider
		o.AgentType = flags.agentType
		o.Scenario = flags.scenario
		o.ScenarioDir = flags.scenarioDir
		o.Iterations = flags.iterations
		o.MaxConsecutiveFailures = flags.maxFailures
		o.StepTimeout = flags.timeout
		o.MaxRetries = flags.maxRetries
		o.Seed = flags.seed
		o.Summarize = flags.summarize
		o.Sink = recordSink
		o.FallbackSink = sink.NewFileSink(filepath.Join(flags.outputDir, "fallback"))
		o.Logger = logger
	}}

	if flags.knowledgeDB != "" {
		store, err := retrieval.NewSQLiteStore(flags.knowledgeDB)
		if err != nil {
			return err
		}
		defer store.Close()

		simOpts = append(simOpts, func(o *convosim.Options) { o.KnowledgeStore = store })
	}

	sim, err := convosim.New(simOpts...)
	if err != nil {
		return err
	}

	aborted := 0

	for i := 0; i < flags.count; i++ {
		record, err := sim.Run(ctx)
		if err != nil {
			return err
		}

		if record.Status == core.StatusAborted {
			aborted++
			logger.Warn("conversation %s aborted: %s", record.CallID, record.AbortReason)
			continue
		}

		logger.Info("conversation %s completed with %d turns", record.CallID, record.TurnCount())
	}

	if aborted > 0 {
		return fmt.Errorf("%d of %d conversations aborted", aborted, flags.count)
	}

	return nil
}

func buildSink(ctx context.Context, flags runFlags) (sink.Sink, error) {
	if flags.mongoURI != "" {
		return sink.NewMongoSink(ctx, flags.mongoURI)
	}
	return sink.NewFileSink(flags.outputDir), nil
}

func newFilterCmd(logLevel *string) *cobra.Command {
	var (
		inputDir   string
		mediaType  string
		topN       int
		minScore   float64
		provider   string
		modelName  string
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Score generated conversations and keep the best",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)

			records, err := loadRecords(inputDir)
			if err != nil {
				return err
			}

			if mediaType != "" {
				records = evaluation.FilterByMediaType(records, mediaType)
			}

			if len(records) == 0 {
				return fmt.Errorf("no conversations to score in %s", inputDir)
			}

			sim, err := convosim.New(func(o *convosim.Options) {
				o.ModelName = modelName
				o.ModelProvider = provider
				o.MaxRetries = maxRetries
				o.Logger = logger
			})
			if err != nil {
				return err
			}

			grader, err := sim.BuildModel()
			if err != nil {
				return err
			}

			evaluator := evaluation.NewEvaluator(grader)

			scored := evaluator.ScoreAll(cmd.Context(), records)

			kept := 0
			for _, s := range evaluation.TopN(scored, topN) {
				if s.Score < minScore {
					continue
				}
				kept++
				fmt.Printf("%.1f\t%s\t%s\n", s.Score, s.Record.CallID, s.Record.InputSettings.Task)
			}

			logger.Info("scored %d conversations, kept %d", len(scored), kept)

			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "conversations", "directory with conversation JSON files")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "keep only this communication channel")
	cmd.Flags().IntVar(&topN, "top", 10, "number of conversations to keep")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop conversations scored below this")
	cmd.Flags().StringVar(&provider, "model_provider", convosim.ProviderOpenAI, "grader model provider")
	cmd.Flags().StringVar(&modelName, "model_name", "", "grader model name")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 2, "retries per grader call")

	return cmd
}

// loadRecords reads every conversation JSON file below dir.
func loadRecords(dir string) ([]*core.ConversationRecord, error) {
	var records []*core.ConversationRecord

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var record core.ConversationRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		records = append(records, &record)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func newLogger(level string) logging.Logger {
	return logging.NewConsoleLogger(logging.ParseLevel(level), os.Stderr)
}

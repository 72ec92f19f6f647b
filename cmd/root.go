package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/attempt"
	"github.com/abhisek/diagnostica/internal/config"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/llm"
	"github.com/abhisek/diagnostica/internal/logging"
	"github.com/abhisek/diagnostica/internal/remediation"
	"github.com/abhisek/diagnostica/internal/reporting"
	"github.com/abhisek/diagnostica/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "diagnostica",
	Short: "Cognitive diagnostic engine for exam telemetry",
	Long: "Diagnostica turns raw exam telemetry into per-student competency diagnoses,\n" +
		"remediation plans and cohort reports on item health and fairness.",
	SilenceUsage: true,
}

// cfg is loaded once per invocation by PersistentPreRunE.
var cfg *config.Config

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: ./diagnostica.yaml or the user config dir)")
	pf.String("db", "", "Path to SQLite database file (overrides DIAGNOSTICA_DB_PATH)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.PersistentPreRunE = loadConfig

	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	pf := cmd.Root().PersistentFlags()
	file, _ := pf.GetString("config")

	v := config.New(file)
	if err := v.BindPFlag("db.path", pf.Lookup("db")); err != nil {
		return fmt.Errorf("bind --db: %w", err)
	}
	if err := v.BindPFlag("log.level", pf.Lookup("log-level")); err != nil {
		return fmt.Errorf("bind --log-level: %w", err)
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c
	return nil
}

// runtime holds the process-wide dependencies a command needs.
type runtime struct {
	logger *zap.Logger
	store  *store.Store
}

// openRuntime builds the logger and opens the store.
func openRuntime() (*runtime, error) {
	return openRuntimeWith(nil)
}

// openRuntimeWith sends console logs to console; nil means stderr.
func openRuntimeWith(console io.Writer) (*runtime, error) {
	logger, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if err := store.EnsureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database directory: %w", err)
	}
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &runtime{logger: logger, store: st}, nil
}

func (r *runtime) Close() {
	r.store.Close()
	_ = r.logger.Sync()
}

func (r *runtime) evaluator() *evaluation.Evaluator {
	return evaluation.NewEvaluator(cfg.Engine, r.logger.Named("evaluation"))
}

func (r *runtime) attempts() *attempt.Service {
	return attempt.NewService(r.store, r.evaluator(), r.logger.Named("attempt"))
}

// reports wires the reporting service. A misconfigured LLM provider is
// logged and recommendations fall back to templates.
func (r *runtime) reports(ctx context.Context, attempts *attempt.Service) *reporting.Service {
	provider, err := llm.NewProvider(ctx, cfg.LLM, r.store.EventRepo(), r.logger.Named("llm"))
	if err != nil {
		r.logger.Warn("LLM provider not configured, using template recommendations", zap.Error(err))
		provider = nil
	}
	narrator := remediation.NewNarrator(provider, cfg.LLM.Timeout, r.logger.Named("narrator"))
	return reporting.NewService(r.store.Results(), r.store.Tags(), attempts, reporting.Options{
		Thresholds:        cfg.Cohort,
		RapidGuessFloorMs: cfg.Engine.Diagnosis.RapidGuessFloorMs,
		Narrator:          narrator,
		Logger:            r.logger.Named("reporting"),
	})
}

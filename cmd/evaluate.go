package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/logging"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an event file against a content pack without touching the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		packPath, _ := cmd.Flags().GetString("pack")
		eventsPath, _ := cmd.Flags().GetString("events")
		attemptID, _ := cmd.Flags().GetString("attempt")

		g, err := content.LoadGraph(packPath)
		if err != nil {
			return err
		}
		raw, err := readInput(cmd, eventsPath)
		if err != nil {
			return err
		}
		events, err := telemetry.ValidateBatch(raw)
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Log, nil)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ev := evaluation.NewEvaluator(cfg.Engine, logger.Named("evaluation"))
		res, err := ev.Evaluate(cmd.Context(), evaluation.Input{
			AttemptID: attemptID,
			ExamID:    g.ExamID(),
			Events:    events,
			Graph:     g,
		})
		if err != nil {
			logger.Error("evaluation failed", zap.String("pack", packPath), zap.Error(err))
			return fmt.Errorf("evaluate: %w", err)
		}
		return printJSON(cmd, res)
	},
}

func init() {
	evaluateCmd.Flags().String("pack", "", "Content pack file (YAML or JSON)")
	evaluateCmd.Flags().String("events", "-", "Telemetry events JSON file, or - for stdin")
	evaluateCmd.Flags().String("attempt", "adhoc", "Attempt ID recorded in the result")
	_ = evaluateCmd.MarkFlagRequired("pack")
}

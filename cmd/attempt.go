package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/diagnostica/internal/attempt"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Start attempts, ingest telemetry and finalize diagnoses",
}

var attemptStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open a new attempt and print its ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, _ := cmd.Flags().GetString("exam")
		studentID, _ := cmd.Flags().GetString("student")

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		a, err := rt.attempts().Start(cmd.Context(), examID, studentID)
		if err != nil {
			return fmt.Errorf("start attempt: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.ID)
		return nil
	},
}

var attemptIngestCmd = &cobra.Command{
	Use:   "ingest <attempt-id> <events.json|->",
	Short: "Append a JSON array of telemetry events to an attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		seqs, err := rt.attempts().AppendRaw(cmd.Context(), args[0], raw)
		if err != nil {
			return fmt.Errorf("ingest events: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appended %d events\n", len(seqs))
		return nil
	},
}

var attemptFinalizeCmd = &cobra.Command{
	Use:   "finalize <attempt-id>",
	Short: "Evaluate an attempt and print its diagnostic result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.attempts().Finalize(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("finalize: %w", err)
		}
		return printJSON(cmd, res)
	},
}

var attemptShowCmd = &cobra.Command{
	Use:   "show <attempt-id>",
	Short: "Show an attempt, its cached result and remediation plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		svc := rt.attempts()
		a, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %s\n", a.ID)
		fmt.Fprintf(out, "Exam:      %s\n", a.ExamID)
		fmt.Fprintf(out, "Student:   %s\n", a.StudentID)
		fmt.Fprintf(out, "Status:    %s\n", a.Status)
		fmt.Fprintf(out, "Started:   %s\n", a.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if a.CompletedAt != nil {
			fmt.Fprintf(out, "Completed: %s\n", a.CompletedAt.Local().Format("2006-01-02 15:04:05"))
		}

		res, err := svc.Result(ctx, a.ID)
		if errors.Is(err, attempt.ErrNotFound) {
			fmt.Fprintln(out, "\nNot finalized yet.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Score:     %d\n", res.OverallScore)
		fmt.Fprintf(out, "Behavior:  impulsive=%v anxious=%v rapid-guess=%.0f%%\n",
			res.BehaviorProfile.IsImpulsive, res.BehaviorProfile.IsAnxious, res.BehaviorProfile.RapidGuessRate*100)
		fmt.Fprintf(out, "ECE:       %.3f (%d blind spots, %d fragile)\n\n",
			res.Calibration.ECEScore, res.Calibration.BlindSpots, res.Calibration.FragileKnowledge)

		for _, d := range res.CompetencyDiagnoses {
			fmt.Fprintf(out, "  %-24s %s\n", d.CompetencyID, d.State)
		}

		plan, err := svc.Remediation(ctx, a.ID)
		if err != nil {
			return err
		}
		if len(plan) > 0 {
			fmt.Fprintln(out, "\nRemediation")
			for _, m := range plan {
				target := m.CompetencyID
				if m.QuestionID != "" {
					target += "/" + m.QuestionID
				}
				fmt.Fprintf(out, "  %-20s %-28s %s\n", m.Type, target, m.Reason)
			}
		}
		return nil
	},
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	attemptStartCmd.Flags().String("exam", "", "Exam ID")
	attemptStartCmd.Flags().String("student", "", "Student ID")
	_ = attemptStartCmd.MarkFlagRequired("exam")
	_ = attemptStartCmd.MarkFlagRequired("student")

	attemptCmd.AddCommand(attemptStartCmd)
	attemptCmd.AddCommand(attemptIngestCmd)
	attemptCmd.AddCommand(attemptFinalizeCmd)
	attemptCmd.AddCommand(attemptShowCmd)
}

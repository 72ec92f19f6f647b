package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/diagnostica/internal/app"
	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/screen"
	reportscreen "github.com/abhisek/diagnostica/internal/screens/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <exam-id>",
	Short: "Build the cohort report for an exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		tui, _ := cmd.Flags().GetBool("tui")
		examID := args[0]

		// Console logging would draw over the alt screen.
		var console io.Writer
		if tui {
			console = io.Discard
		}
		rt, err := openRuntimeWith(console)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		attempts := rt.attempts()
		reports := rt.reports(ctx, attempts)

		if tui {
			return app.Run("Cohort report", examID, func() screen.Screen {
				r := reports.Report(ctx, examID)
				// Without the pack, screens fall back to raw IDs.
				g, _ := attempts.Graph(ctx, examID)
				return reportscreen.New(r, g).WithThresholds(cfg.Cohort)
			})
		}

		r := reports.Report(ctx, examID)
		if asJSON {
			b, err := cohort.MarshalReport(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		var g *content.Graph
		if gr, err := attempts.Graph(ctx, examID); err == nil {
			g = gr
		}
		printReport(cmd, r, g)
		if r.Error != "" {
			return fmt.Errorf("report failed: %s", r.Error)
		}
		return nil
	},
}

func printReport(cmd *cobra.Command, r *cohort.Report, g *content.Graph) {
	out := cmd.OutOrStdout()
	name := func(id string) string {
		if g != nil {
			if c, err := g.Competency(id); err == nil && c.Name != "" {
				return c.Name
			}
		}
		return id
	}

	fmt.Fprintf(out, "Exam %s: %d finalized attempts\n", r.ExamID, r.Attempts)
	if r.Error != "" {
		return
	}

	fmt.Fprintln(out, "\nShadow nodes")
	if len(r.ShadowNodes) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, p := range r.ShadowNodes {
		fmt.Fprintf(out, "  %-28s %4d\n", truncate(name(p.CompetencyID), 28), p.Occurrences)
	}

	fmt.Fprintln(out, "\nItem health")
	fmt.Fprintf(out, "  %-20s  %6s  %6s  %6s  %4s  %4s  %s\n", "Question", "Slip", "Guess", "Disc", "M", "N", "Status")
	for _, it := range r.Items {
		fmt.Fprintf(out, "  %-20s  %6s  %6s  %6s  %4d  %4d  %s\n",
			truncate(it.QuestionID, 20), param(it.Slip), param(it.Guess), param(it.Discrimination),
			it.MasterN, it.NoviceN, it.Status)
	}

	if len(r.Fairness) > 0 {
		fmt.Fprintln(out, "\nFairness")
		for _, f := range r.Fairness {
			fmt.Fprintf(out, "  %-20s  %6s  %s\n", truncate(f.Dimension, 20), param(f.Ratio), f.Status)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(out, "  %s [%s]\n    %s\n", name(rec.CompetencyID), rec.Source, rec.Text)
		}
	}
}

func param(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
	reportCmd.Flags().Bool("tui", false, "Browse the report in an interactive terminal UI")
	reportCmd.MarkFlagsMutuallyExclusive("json", "tui")
}

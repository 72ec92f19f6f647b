package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/ui/theme"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Validate and import exam content packs",
}

var contentValidateCmd = &cobra.Command{
	Use:   "validate <pack.yaml|pack.json>",
	Short: "Check a content pack without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := content.LoadPack(args[0])
		if err != nil {
			return err
		}
		report := p.Validate()
		printValidation(cmd, report)
		if err := report.Err(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s: %d competencies, %d misconceptions, %d questions\n",
			theme.Status("HEALTHY").Render("✓"), p.ExamID, p.Version,
			len(p.Competencies), len(p.Misconceptions), len(p.Questions))
		return nil
	},
}

var contentImportCmd = &cobra.Command{
	Use:   "import <pack.yaml|pack.json>",
	Short: "Validate a content pack and store it, replacing any earlier version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := content.LoadPack(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.attempts().ImportExam(cmd.Context(), p)
		printValidation(cmd, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s %s\n", p.ExamID, p.Version)
		return nil
	},
}

func printValidation(cmd *cobra.Command, r content.ValidationReport) {
	out := cmd.ErrOrStderr()
	for _, e := range r.Errors {
		fmt.Fprintln(out, theme.Status("BROKEN").Render("error:")+" "+e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintln(out, theme.Status("WARNING").Render("warning:")+" "+w)
	}
}

func init() {
	contentCmd.AddCommand(contentValidateCmd)
	contentCmd.AddCommand(contentImportCmd)
}

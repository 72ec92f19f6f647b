package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/diagnostica/internal/store"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage cohort tags used for fairness analysis",
}

var tagSetCmd = &cobra.Command{
	Use:   "set <student-id> <dimension> <group>",
	Short: "Assign a student to a group within a dimension",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		tag := store.CohortTag{StudentID: args[0], Dimension: args[1], Group: args[2]}
		if err := rt.store.Tags().Set(cmd.Context(), tag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s=%s\n", tag.StudentID, tag.Dimension, tag.Group)
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagSetCmd)
}

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/curriculum"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [subject]",
	Short: "List suggested topics for a subject and grade",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("curriculum")
		grade, _ := cmd.Flags().GetInt("grade")

		fp, err := curriculum.NewFileProvider(path)
		if err != nil {
			return fmt.Errorf("load curriculum: %w", err)
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			subjects := fp.Subjects()
			slices.Sort(subjects)
			fmt.Fprintln(out, "Subjects:", strings.Join(subjects, ", "))
			return nil
		}

		cache := curriculum.NewTopicCache(fp, logger)
		topics, err := cache.GetTopics(cmd.Context(), strings.ToUpper(args[0]), grade)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			fmt.Fprintf(out, "No %s topics for grade %d.\n", strings.ToUpper(args[0]), grade)
			return nil
		}
		for i, t := range topics {
			fmt.Fprintf(out, "%2d. %s\n", i+1, t)
		}
		return nil
	},
}

func init() {
	topicsCmd.Flags().IntP("grade", "g", 6, "Student grade level (1-12)")
}

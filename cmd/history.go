package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recent sessions or show one session's conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		repo := s.SessionRepo()

		if len(args) == 1 {
			msgs, err := repo.Messages(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query messages: %w", err)
			}
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No messages for session %s.\n", args[0])
				return nil
			}
			for _, m := range msgs {
				who := "tutor"
				if m.IsUser {
					who = "you"
				}
				meta := m.Approach
				if m.Status != "sent" {
					meta = strings.TrimSpace(meta + " " + m.Status)
				}
				if meta != "" {
					meta = " [" + meta + "]"
				}
				fmt.Fprintf(out, "%s %s%s: %s\n",
					m.CreatedAt.Local().Format("15:04:05"), who, meta, m.Content)
			}
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := repo.RecentSessions(ctx, limit)
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions recorded yet.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-5s  %s\n", "Session", "Started", "Subject", "Grade", "Topic")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, r := range sessions {
			fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-5d  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.SubjectID,
				r.GradeLevel,
				r.CurrentTopic,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
}

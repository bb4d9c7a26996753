package cmd

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/store"
)

type topicStats struct {
	topic      string
	turns      int
	failures   int
	quality    float64
	duration   time.Duration
	approaches map[string]int
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tutoring statistics per topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		days, _ := cmd.Flags().GetInt("days")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{}
		if days > 0 {
			opts.From = time.Now().AddDate(0, 0, -days)
		}
		interactions, err := s.EventRepo().QueryInteractions(cmd.Context(), strings.ToUpper(subject), opts)
		if err != nil {
			return fmt.Errorf("query interactions: %w", err)
		}
		if len(interactions) == 0 {
			fmt.Println("No tutoring interactions recorded yet.")
			return nil
		}

		byTopic := make(map[string]*topicStats)
		for _, in := range interactions {
			key := in.Subject + " / " + in.Topic
			st, ok := byTopic[key]
			if !ok {
				st = &topicStats{topic: key, approaches: make(map[string]int)}
				byTopic[key] = st
			}
			st.turns++
			if in.InteractionType == "failed" {
				st.failures++
			}
			st.quality += in.Quality
			st.duration += time.Duration(in.DurationMs) * time.Millisecond
			if in.Approach != "" {
				st.approaches[in.Approach]++
			}
		}

		rows := make([]*topicStats, 0, len(byTopic))
		for _, st := range byTopic {
			rows = append(rows, st)
		}
		slices.SortFunc(rows, func(a, b *topicStats) int {
			return cmp.Or(cmp.Compare(b.turns, a.turns), strings.Compare(a.topic, b.topic))
		})

		fmt.Printf("%-36s  %5s  %6s  %7s  %8s  %s\n", "Topic", "Turns", "Failed", "Quality", "Avg Time", "Top approach")
		fmt.Println(strings.Repeat("─", 90))
		for _, st := range rows {
			avgQuality := st.quality / float64(st.turns)
			avgTime := (st.duration / time.Duration(st.turns)).Round(100 * time.Millisecond)
			fmt.Printf("%-36s  %5d  %6d  %7.2f  %8s  %s\n",
				truncate(st.topic, 36), st.turns, st.failures, avgQuality, avgTime, topApproach(st.approaches))
		}
		return nil
	},
}

func topApproach(counts map[string]int) string {
	best, bestN := "", 0
	for a, n := range counts {
		if n > bestN || (n == bestN && a < best) {
			best, bestN = a, n
		}
	}
	return best
}

func init() {
	statsCmd.Flags().StringP("subject", "s", "", "Only show one subject")
	statsCmd.Flags().Int("days", 0, "Only include the last N days (0 = all)")
}

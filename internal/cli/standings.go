package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"pubquiz-hub/internal/config"
	"pubquiz-hub/internal/domain"
)

// NewStandingsCmd prints the ranked leaderboard for an optional date window.
func NewStandingsCmd(configPath *string) *cobra.Command {
	var from, to string
	var minQuizzes int

	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Print the ranked leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			if minQuizzes <= 0 {
				minQuizzes = cfg.Leaderboard.MinQuizzes
			}

			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.close()

			standings, err := svc.leaderboard.Standings(cmd.Context(), window, minQuizzes)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tUSER\tAVG SCORE\tAVG TIEBREAKER\tPLAYED")
			for i, st := range standings {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%d\n", i+1, st.Username, st.AverageScore, st.AverageTiebreaker, st.QuizzesPlayed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first quiz date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last quiz date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&minQuizzes, "min", 0, "minimum quizzes played (defaults to config)")
	return cmd
}

func parseWindow(from, to string) (domain.Window, error) {
	var w domain.Window
	var err error
	if from != "" {
		if w.From, err = time.Parse(time.DateOnly, from); err != nil {
			return w, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if w.To, err = time.Parse(time.DateOnly, to); err != nil {
			return w, fmt.Errorf("--to: %w", err)
		}
	}
	return w, nil
}

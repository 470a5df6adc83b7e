package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ipormac/internal/domain"
)

// NewStatsCmd prints a site's progress.
func NewStatsCmd(configPath *string) *cobra.Command {
	var (
		siteKey string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show accuracy, points and level for a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			open, closeStores, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			snapshot, err := newDrill(cfg, open, nil).Stats(cmd.Context(), siteKey)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snapshot)
			}
			printStats(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
	cmd.Flags().StringVar(&siteKey, "site", domain.DefaultSiteKey, "site key")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// NewResetCmd clears a site's history.
func NewResetCmd(configPath *string) *cobra.Command {
	var (
		siteKey string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded attempt and the streak for a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset cannot be undone; pass --yes to confirm")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			open, closeStores, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			service := newDrill(cfg, open, nil)
			if err := service.Reset(cmd.Context(), siteKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scores for %s reset\n", service.Site(siteKey).Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&siteKey, "site", domain.DefaultSiteKey, "site key")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func printStats(out io.Writer, s domain.StatsSnapshot) {
	o := s.Overall
	fmt.Fprintf(out, "%s %s %s\n", o.Level.Emoji, o.Level.Title, o.Level.Description)
	fmt.Fprintf(out, "points %d  attempts %d  correct %d  accuracy %.1f%%  streak %d %s\n",
		o.TotalPoints, o.TotalAttempts, o.TotalCorrect, o.Accuracy, s.Streak, s.StreakEmojis)
	if o.NextLevel != nil {
		fmt.Fprintf(out, "next: %s %s (%.0f%%, %d points and %.1f%% accuracy to go)\n",
			o.NextLevel.Emoji, o.NextLevel.Title, o.Progress, o.PointsToNext, o.AccuracyToNext)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tATTEMPTS\tCORRECT\tACCURACY")
	for _, t := range domain.AddressTypes() {
		ts := s.ByType[t]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", t, ts.Attempts, ts.Correct, ts.Accuracy)
	}
	tw.Flush()
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ipormac/internal/app"
	"ipormac/internal/domain"
)

// NewPracticeCmd runs the drill in the terminal against the configured store.
func NewPracticeCmd(configPath *string) *cobra.Command {
	var siteKey string
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice identifying addresses in the terminal",
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
			service := newDrill(cfg, open, nil)
			return runPractice(cmd.Context(), service, siteKey, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&siteKey, "site", domain.DefaultSiteKey, "site key to record scores under")
	return cmd
}

func runPractice(ctx context.Context, service *app.DrillService, siteKey string, in io.Reader, out io.Writer) error {
	site := service.Site(siteKey)
	fmt.Fprintf(out, "%s %s\n%s\n", site.Icon, site.Title, site.Subtitle)
	fmt.Fprintln(out, "Answer with 1-4, s for stats, r to reset, q to quit.")

	scanner := bufio.NewScanner(in)
	for {
		q, err := service.NextQuestion(ctx, site.Key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n  %s\n%s> ", q.Address, choiceLine())

		for answered := false; !answered; {
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			input := strings.ToLower(strings.TrimSpace(scanner.Text()))
			switch input {
			case "q", "quit", "exit":
				return nil
			case "s", "stats":
				snapshot, err := service.Stats(ctx, site.Key)
				if err != nil {
					return err
				}
				printStats(out, snapshot)
				fmt.Fprint(out, "> ")
				continue
			case "r", "reset":
				if err := service.Reset(ctx, site.Key); err != nil {
					return err
				}
				fmt.Fprintln(out, "Scores reset.")
				answered = true
				continue
			}

			choice, err := strconv.Atoi(input)
			if _, ok := domain.ChoiceType(choice); err != nil || !ok {
				fmt.Fprint(out, "Pick 1, 2, 3 or 4> ")
				continue
			}
			result, err := service.SubmitAnswer(ctx, site.Key, q.ID, choice)
			if err != nil {
				return err
			}
			answered = true
			fmt.Fprintln(out, result.Feedback.Message)
			if result.Feedback.Explanation != "" {
				fmt.Fprintln(out, result.Feedback.Explanation)
			}
			fmt.Fprintf(out, "+%d  streak %d %s  total %d  %s %s\n",
				result.Score, result.Streak, result.StreakEmojis,
				result.Stats.TotalPoints, result.Stats.Level.Emoji, result.Stats.Level.Title)
		}
	}
}

func choiceLine() string {
	parts := make([]string, 0, 4)
	for _, c := range domain.AnswerChoices() {
		parts = append(parts, fmt.Sprintf("[%s] %s", c.Shortcut, c.Text))
	}
	return strings.Join(parts, "  ")
}

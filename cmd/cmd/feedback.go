package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/core"
	"personabrief/internal/logger"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and review summary ratings",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add [summary-id]",
	Short: "Rate a generated summary",
	Long: `Record a 1-5 star rating (and optional comment) against a summary ID.
Summary IDs are printed when a summary is generated and stored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rating, _ := cmd.Flags().GetInt("rating")
		comment, _ := cmd.Flags().GetString("comment")
		if err := runFeedbackAdd(args[0], rating, comment); err != nil {
			logger.Error("Failed to record feedback", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded feedback",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFeedbackList(); err != nil {
			logger.Error("Failed to list feedback", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackAddCmd.Flags().IntP("rating", "r", 0, "rating from 1 to 5 (required)")
	feedbackAddCmd.Flags().StringP("comment", "c", "", "optional comment")
	_ = feedbackAddCmd.MarkFlagRequired("rating")
}

func runFeedbackAdd(summaryID string, rating int, comment string) error {
	localStore, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = localStore.Close() }()

	summary, err := localStore.GetSummary(summaryID)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("%w: no summary with id %q", core.ErrInvalidInput, summaryID)
	}

	feedback := core.Feedback{
		ID:        uuid.NewString(),
		SummaryID: summaryID,
		Rating:    rating,
		Comment:   comment,
		DateAdded: time.Now().UTC(),
	}
	if err := localStore.SaveFeedback(feedback); err != nil {
		return err
	}

	fmt.Printf("Recorded %d-star rating for summary %s\n", rating, summaryID)
	return nil
}

func runFeedbackList() error {
	localStore, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = localStore.Close() }()

	entries, err := localStore.ListFeedback()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No feedback recorded.")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %d/5  summary %s", entry.DateAdded.Format("2006-01-02"), entry.Rating, entry.SummaryID)
		if entry.Comment != "" {
			fmt.Printf("  %q", entry.Comment)
		}
		fmt.Println()
	}
	return nil
}

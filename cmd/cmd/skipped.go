package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/logger"
)

var skippedCmd = &cobra.Command{
	Use:   "skipped",
	Short: "Show the skipped-document audit trail",
	Long: `List documents that were rejected by the relevance gate, newest first.
Each record carries the persona, the calibrated score and label at
rejection time, and the filename.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if err := runSkipped(limit); err != nil {
			logger.Error("Failed to list skipped documents", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(skippedCmd)
	skippedCmd.Flags().IntP("limit", "n", 20, "maximum records to show (0 for all)")
}

func runSkipped(limit int) error {
	localStore, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = localStore.Close() }()

	records, err := localStore.ListSkipped(limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No skipped documents recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tPERSONA\tSCORE\tLABEL\tFILENAME")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			record.Timestamp.Format("2006-01-02 15:04"),
			record.Persona,
			record.Score,
			record.Label,
			record.Filename,
		)
	}
	return w.Flush()
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/kev"
	"personabrief/internal/logger"
)

var kevCmd = &cobra.Command{
	Use:   "kev",
	Short: "Work with the CISA Known Exploited Vulnerabilities catalog",
}

var kevFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch KEV entries not seen before",
	Long: `Download the CISA KEV catalog and print the entries that have not been
ingested yet, as JSON. Seen entries are tracked locally so repeated
fetches only surface new vulnerabilities.`,
	Run: func(cmd *cobra.Command, args []string) {
		enrich, _ := cmd.Flags().GetBool("enrich")
		output, _ := cmd.Flags().GetString("output")
		if err := runKEVFetch(enrich, output); err != nil {
			logger.Error("KEV fetch failed", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(kevCmd)
	kevCmd.AddCommand(kevFetchCmd)
	kevFetchCmd.Flags().Bool("enrich", false, "attach embedding-ready text to each entry")
	kevFetchCmd.Flags().StringP("output", "o", "", "write entries to this file instead of stdout")
}

func runKEVFetch(enrich bool, output string) error {
	cfg := config.Get()

	localStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = localStore.Close() }()

	fetcher := kev.NewFetcher(cfg.KEV.FeedURL)
	entries, err := fetcher.FetchNew(context.Background(), localStore)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No new KEV entries.")
		return nil
	}
	if enrich {
		entries = kev.Enrich(entries)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write entries: %w", err)
		}
		fmt.Printf("Wrote %d new KEV entries to %s\n", len(entries), output)
		return nil
	}

	fmt.Println(string(data))
	return nil
}

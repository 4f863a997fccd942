package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/core"
	"personabrief/internal/extract"
	"personabrief/internal/logger"
	"personabrief/internal/pipeline"
	"personabrief/internal/summarize"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a document for a persona",
	Long: `Extract text from a document (PDF, ZIP of PDFs, plain text, or JSON),
score its relevance against the selected persona, and produce a
persona-targeted executive summary when the document clears the gate.

Rejected documents are recorded in the skipped-document audit trail;
use --force to summarize despite a low relevance score.

Example:
  personabrief summarize advisory.pdf --persona "SOC Analyst"
  personabrief summarize report.zip --persona "CISO" --force --output summary.md`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		personaName, _ := cmd.Flags().GetString("persona")
		force, _ := cmd.Flags().GetBool("force")
		output, _ := cmd.Flags().GetString("output")
		maxTokens, _ := cmd.Flags().GetInt32("max-tokens")

		if err := runSummarize(args[0], personaName, output, force, maxTokens); err != nil {
			logger.Error("Summarization failed", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringP("persona", "p", "", "persona to summarize for (required)")
	summarizeCmd.Flags().BoolP("force", "f", false, "summarize even when the relevance score is below the gate")
	summarizeCmd.Flags().StringP("output", "o", "", "write the summary to this file instead of stdout")
	summarizeCmd.Flags().Int32("max-tokens", 0, "cap each generated summary (default from config)")
	_ = summarizeCmd.MarkFlagRequired("persona")
}

func runSummarize(path, personaName, output string, force bool, maxTokens int32) error {
	cfg := config.Get()

	doc, err := extract.FromFile(path)
	if err != nil {
		return err
	}
	logger.Info("extracted document", "file", path, "chars", len(doc.Text))

	client, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}

	personaStore, err := buildPersonaStore(cfg)
	if err != nil {
		return err
	}

	localStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = localStore.Close() }()

	if maxTokens <= 0 {
		maxTokens = cfg.Pipeline.SummaryMaxTokens
	}

	summarizer := summarize.NewSummarizer(client, summarize.Options{
		MaxTokens:      maxTokens,
		Temperature:    cfg.AI.Gemini.Temperature,
		RequestsPerSec: cfg.Pipeline.RequestsPerSec,
		CallTimeout:    parseDuration(cfg.Pipeline.CallTimeout, 60*time.Second),
	})

	p := pipeline.New(client, summarizer, personaStore, buildScorer(cfg), localStore, pipeline.Options{
		ChunkSize:       cfg.Pipeline.ChunkSize,
		ChunkOverlap:    cfg.Pipeline.ChunkOverlap,
		PrefixRetrySize: cfg.Pipeline.PrefixRetrySize,
		GlossaryTopK:    cfg.Pipeline.GlossaryTopK,
	})

	result, err := p.Run(context.Background(), doc, personaName, force)
	if err != nil {
		if errors.Is(err, core.ErrServiceUnavailable) {
			return fmt.Errorf("the model provider is rate-limiting requests; try again shortly: %w", err)
		}
		return err
	}

	if result.Status == pipeline.StatusRejected {
		fmt.Printf("Document %q was not summarized for %s.\n", doc.Filename, personaName)
		fmt.Printf("Relevance: %s (score %.2f). The rejection was recorded; rerun with --force to summarize anyway.\n",
			result.Label, result.Score)
		return nil
	}

	if err := localStore.SaveSummary(result.Summary); err != nil {
		logger.Warn("failed to persist summary", "error", err.Error())
	}

	rendered := renderSummary(result.Summary)
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil && filepath.Dir(output) != "." {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		fmt.Printf("Summary written to %s (id %s)\n", output, result.Summary.ID)
		return nil
	}

	fmt.Print(rendered)
	return nil
}

func renderSummary(summary *core.ExecutiveSummary) string {
	header := fmt.Sprintf("# Executive Summary for %s\n\n", summary.Persona)
	footer := fmt.Sprintf("\n\n---\nRelevance: %s (%.2f) | Chunks: %d", summary.Label, summary.Score, summary.ChunkCount)
	if summary.FailedChunks > 0 {
		footer += fmt.Sprintf(" (%d failed)", summary.FailedChunks)
	}
	footer += fmt.Sprintf(" | Summary ID: %s\n", summary.ID)
	return header + summary.Text + footer
}

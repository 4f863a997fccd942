/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/llm"
	"personabrief/internal/logger"
	"personabrief/internal/personas"
	"personabrief/internal/relevance"
	"personabrief/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "personabrief",
	Short: "Persona-conditioned document summarization for security analysts",
	Long: `personabrief summarizes security documents for a selected professional
persona (SOC Analyst, Malware Analyst, CISO, ...). It scores each document's
relevance to the persona before spending tokens on summarization, chunks
long documents to fit model context limits, and reduces per-chunk summaries
into one executive summary targeted at that persona's responsibilities.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.personabrief.yaml)")
}

// initConfig loads .env, the config file, and environment variables.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}
}

// openStore opens the local SQLite database from configuration.
func openStore(cfg *config.Config) (*store.Store, error) {
	dataDir := cfg.App.DataDir
	if dataDir == "" {
		dataDir = ".personabrief"
	}
	return store.NewStore(dataDir)
}

// buildPersonaStore selects the persona/glossary adapter from configuration.
func buildPersonaStore(cfg *config.Config) (personas.Store, error) {
	dims := int(cfg.AI.Gemini.EmbeddingDimensions)
	switch cfg.Personas.Backend {
	case "astra":
		return personas.NewAstraStore(personas.AstraConfig{
			Endpoint:           cfg.Personas.AstraEndpoint,
			Token:              cfg.Personas.AstraToken,
			PersonaCollection:  cfg.Personas.PersonaCollection,
			GlossaryCollection: cfg.Personas.GlossaryCollection,
			Dimensions:         dims,
		}), nil
	case "pgvector":
		db, err := sql.Open("postgres", cfg.Personas.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		return personas.NewPgVectorStore(db, dims), nil
	case "catalog", "":
		return personas.NewCatalog(dims), nil
	default:
		return nil, fmt.Errorf("unknown personas backend %q", cfg.Personas.Backend)
	}
}

// buildLLMClient constructs the shared provider client from configuration.
func buildLLMClient(cfg *config.Config) (*llm.Client, error) {
	backoff := llm.DefaultBackoff()
	if cfg.Pipeline.RetryAttempts > 0 {
		backoff.MaxAttempts = cfg.Pipeline.RetryAttempts
	}
	if d := parseDuration(cfg.Pipeline.RetryBaseDelay, 0); d > 0 {
		backoff.BaseDelay = d
	}

	return llm.NewClient(llm.Options{
		APIKey:              cfg.AI.Gemini.APIKey,
		Model:               cfg.AI.Gemini.Model,
		EmbeddingModel:      cfg.AI.Gemini.EmbeddingModel,
		EmbeddingDimensions: cfg.AI.Gemini.EmbeddingDimensions,
		Backoff:             backoff,
	})
}

// buildScorer maps the configured threshold surface onto a scorer.
func buildScorer(cfg *config.Config) *relevance.Scorer {
	thresholds := relevance.DefaultThresholds()
	if cfg.Relevance.CalibrationPower > 0 {
		thresholds.CalibrationPower = cfg.Relevance.CalibrationPower
	}
	if cfg.Relevance.MinScore > 0 {
		thresholds.MinScore = cfg.Relevance.MinScore
	}
	if len(cfg.Relevance.Buckets) > 0 {
		buckets := make(map[float64]relevance.Label, len(cfg.Relevance.Buckets))
		for label, bound := range cfg.Relevance.Buckets {
			buckets[bound] = relevance.Label(label)
		}
		thresholds.Buckets = buckets
	}
	return relevance.NewScorer(thresholds)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration in config, using fallback", "value", value, "fallback", fallback.String())
		return fallback
	}
	return d
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"personabrief/internal/config"
	"personabrief/internal/logger"
	"personabrief/internal/personas"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List available personas",
	Long:  `List the persona identifiers available in the configured persona store.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPersonasList(); err != nil {
			logger.Error("Failed to list personas", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

var personasShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a persona's profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPersonasShow(args[0]); err != nil {
			logger.Error("Failed to show persona", err)
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
	personasCmd.AddCommand(personasShowCmd)
}

func runPersonasList() error {
	cfg := config.Get()
	store, err := buildPersonaStore(cfg)
	if err != nil {
		return err
	}

	names, err := store.ListNames(context.Background())
	if err != nil {
		// The external store being down should not hide which personas
		// exist; fall back to the built-in catalog.
		logger.Warn("persona store unreachable, listing built-in catalog", "error", err.Error())
		names, err = personas.NewCatalog(int(cfg.AI.Gemini.EmbeddingDimensions)).ListNames(context.Background())
		if err != nil {
			return err
		}
	}

	if len(names) == 0 {
		fmt.Println("No personas found in the configured store.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runPersonasShow(name string) error {
	store, err := buildPersonaStore(config.Get())
	if err != nil {
		return err
	}

	persona, err := store.Get(context.Background(), name)
	if err != nil {
		return err
	}

	fmt.Printf("Name: %s\n", persona.Name)
	fmt.Printf("Description: %s\n", persona.Description)
	if persona.Tone != "" {
		fmt.Printf("Tone: %s\n", persona.Tone)
	}
	if persona.Style != "" {
		fmt.Printf("Style: %s\n", persona.Style)
	}
	if persona.Format != "" {
		fmt.Printf("Format: %s\n", persona.Format)
	}
	if len(persona.Goals) > 0 {
		fmt.Printf("Goals: %s\n", strings.Join(persona.Goals, "; "))
	}
	if len(persona.CommonTasks) > 0 {
		fmt.Printf("Common tasks: %s\n", strings.Join(persona.CommonTasks, "; "))
	}
	if persona.DomainFocus != "" {
		fmt.Printf("Domain focus: %s\n", persona.DomainFocus)
	}
	return nil
}

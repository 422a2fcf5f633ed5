package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action:      runConfig,
	}
}

func runConfig(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Println("====================")
	fmt.Println("Active Configuration:")

	fmt.Println("\nCatalog:")
	fmt.Printf("  Database Dir: %s\n", cfg.Catalog.DatabaseDir)
	fmt.Printf("  Sample Values: %d\n", cfg.Catalog.SampleValues)

	fmt.Println("\nLinker:")
	fmt.Printf("  Initial Top M: %d\n", cfg.Linker.InitialTopM)
	fmt.Printf("  Retrieve Top K: %d\n", cfg.Linker.RetrieveTopK)
	fmt.Printf("  Max Steps: %d\n", cfg.Linker.MaxSteps)
	fmt.Printf("  Prompt Token Budget: %d\n", cfg.Linker.PromptTokenBudget)
	fmt.Printf("  Min Feedback Actions: %d\n", cfg.Linker.MinFeedbackActions)
	fmt.Printf("  Explore Enabled: %t\n", cfg.Linker.EnableExplore)
	fmt.Printf("  Verify Enabled: %t\n", cfg.Linker.EnableVerify)

	fmt.Println("\nProbe:")
	fmt.Printf("  Row Limit: %d\n", cfg.Probe.RowLimit)
	fmt.Printf("  Query Timeout: %s\n", cfg.Probe.QueryTimeout)

	fmt.Println("\nLLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s\n", cfg.LLM.Model)
	fmt.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)

	if cfg.LLM.APIKey != "" {
		fmt.Printf("  API Key: %s\n", maskKey(cfg.LLM.APIKey))
	} else {
		fmt.Printf("  API Key: (not set)\n")
	}

	fmt.Println("\nStore:")
	fmt.Printf("  Output Dir: %s\n", cfg.Store.OutputDir)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	return nil
}

// maskKey hides all but the last four characters of a credential
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}

	return "****" + key[len(key)-4:]
}

// Package cmd wires the CLI commands together.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sqlscout/sqlscout/internal/config"
	"github.com/sqlscout/sqlscout/internal/logging"
)

// Execute runs the CLI with the process arguments
func Execute() error {
	app := &cli.Command{
		Name:  "sqlscout",
		Usage: "Ask natural language questions against local DuckDB databases",
		Description: `sqlscout routes a question to the right database, iteratively links the
relevant schema subset with an LLM planning loop, generates SQL grounded in
that schema, and verifies it with read-only probes before answering.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-dir",
				Usage: "directory containing DuckDB database files",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			AskCommand(),
			CatalogCommand(),
			HistoryCommand(),
			ConfigCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return err
}

// loadConfig loads the configuration with global flag overrides applied and
// initializes logging from it
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	overrides := map[string]interface{}{
		"db-dir":    cmd.String("db-dir"),
		"log-level": cmd.String("log-level"),
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.ExpandAllPaths()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to prepare directories: %w", err)
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.Warnf("falling back to default logger: %v", err)
	}

	return cfg, nil
}

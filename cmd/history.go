package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/sqlscout/sqlscout/internal/pipeline"
	"github.com/sqlscout/sqlscout/internal/store"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "List or show persisted query records",
		ArgsUsage:   "[query-id]",
		Description: `Without arguments, list every stored query. With a query id, print its full record as JSON.`,
		Action:      runHistory,
	}
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	contexts, err := store.NewContextStore(cfg.Store.OutputDir)
	if err != nil {
		return err
	}

	if id := cmd.Args().First(); id != "" {
		var record pipeline.Record
		if err := contexts.Load(id, &record); err != nil {
			return err
		}

		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(data))

		return nil
	}

	ids, err := contexts.List()
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Println("No stored queries.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Database", "Question", "SQL"})

	for _, id := range ids {
		var record pipeline.Record
		if err := contexts.Load(id, &record); err != nil {
			continue
		}

		t.AppendRow(table.Row{
			record.ID, record.DatabaseID,
			truncate(record.Question, 50), truncate(record.FinalSQL, 50),
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}

// truncate bounds a cell for table rendering
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}

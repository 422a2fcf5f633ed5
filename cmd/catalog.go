package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:        "catalog",
		Usage:       "List indexed databases, tables, and columns",
		ArgsUsage:   "[database]",
		Description: `Without arguments, list every indexed database. With a database id, list its tables and columns.`,
		Action:      runCatalog,
	}
}

func runCatalog(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	dbID := cmd.Args().First()
	if dbID == "" {
		return listDatabases(ctx, rt)
	}

	return listColumns(ctx, rt, dbID)
}

// listDatabases prints one row per indexed database
func listDatabases(ctx context.Context, rt *runtime) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Database", "Tables"})

	for _, dbID := range rt.databases() {
		tables, err := rt.index.ListTables(ctx, dbID)
		if err != nil {
			return err
		}

		t.AppendRow(table.Row{dbID, len(tables)})
	}

	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}

// listColumns prints every column of one database grouped by table
func listColumns(ctx context.Context, rt *runtime, dbID string) error {
	tables, err := rt.index.ListTables(ctx, dbID)
	if err != nil {
		return err
	}

	cols, err := rt.index.ColumnsFor(dbID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Table", "Column", "Type", "Role"})

	for _, col := range cols {
		t.AppendRow(table.Row{col.Table, col.Name, col.Type, col.Role()})
	}

	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Printf("%d tables, %d columns\n", len(tables), len(cols))

	return nil
}

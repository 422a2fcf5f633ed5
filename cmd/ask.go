package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/sqlscout/sqlscout/internal/api"
	"github.com/sqlscout/sqlscout/internal/pipeline"
	"github.com/sqlscout/sqlscout/internal/schemalink"
	"github.com/sqlscout/sqlscout/internal/store"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a natural language question with verified SQL",
		ArgsUsage: "<question>",
		Description: `Route the question to the best matching database, link the relevant
schema subset, generate SQL, and verify it with read-only probes.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "LLM provider override (openai, anthropic, ollama, local)",
			},
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "schema linking step budget override",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "answer against this database instead of routing",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "user id recorded with the query",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session id recorded with the query (defaults to a fresh id)",
			},
			&cli.IntFlag{
				Name:  "max-latency",
				Usage: "overall latency cap in milliseconds (0 means uncapped)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the full response as JSON",
			},
			&cli.BoolFlag{
				Name:  "show-trace",
				Usage: "print the schema linking trace",
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("usage: sqlscout ask <question>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	request := api.QueryRequest{
		UserID:    cmd.String("user"),
		SessionID: cmd.String("session"),
		QueryText: question,
		Database:  cmd.String("database"),
		Options: api.QueryOptions{
			Temperature:  cfg.LLM.Temperature,
			ReadOnly:     true,
			MaxLatencyMS: int(cmd.Int("max-latency")),
		},
	}

	if request.SessionID == "" {
		request.SessionID = uuid.NewString()
	}

	gateway, err := buildGateway(cfg, cmd.String("provider"), request.Options.Temperature)
	if err != nil {
		return err
	}

	linkerCfg := schemalink.Config{
		InitialTopM:        cfg.Linker.InitialTopM,
		RetrieveTopK:       cfg.Linker.RetrieveTopK,
		MaxSteps:           cfg.Linker.MaxSteps,
		PromptTokenBudget:  cfg.Linker.PromptTokenBudget,
		MinFeedbackActions: cfg.Linker.MinFeedbackActions,
		ProbeRowLimit:      cfg.Probe.RowLimit,
		EnableExplore:      cfg.Linker.EnableExplore,
		EnableVerify:       cfg.Linker.EnableVerify,
	}

	if steps := cmd.Int("max-steps"); steps > 0 {
		linkerCfg.MaxSteps = int(steps)
	}

	contexts, err := store.NewContextStore(cfg.Store.OutputDir)
	if err != nil {
		return err
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewRouter(rt.index, rt.databases()),
		schemalink.NewEngine(gateway, rt.index, rt.runner, linkerCfg),
		pipeline.NewGenerator(gateway),
		pipeline.NewVerifier(rt.runner, cfg.Probe.RowLimit),
		contexts,
	)

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " answering..."
	sp.Start()

	qc, answerErr := orchestrator.Answer(ctx, request.ToRequest())

	sp.Stop()

	if answerErr != nil {
		return answerErr
	}

	response := api.FromContext(qc)

	if cmd.Bool("json") {
		data, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(data))

		return nil
	}

	printResponse(response, cmd.Bool("show-trace"), qc)

	return nil
}

// printResponse renders the answer for terminal consumption
func printResponse(response *api.QueryResponse, showTrace bool, qc *pipeline.QueryContext) {
	fmt.Printf("Database: %s\n", response.Database)
	fmt.Printf("SQL:\n%s\n\n", response.SQL)

	if len(response.SampleRows) > 0 {
		printRows(response.SampleRows)
		fmt.Println()
	}

	if response.ErrorType != "" {
		fmt.Printf("Verification failed (%s): %s\n\n", response.ErrorType, response.ErrorMessage)
	}

	fmt.Printf(
		"Linked %d tables in %d steps (forced stop: %t), %dms total\n",
		len(response.Schema), response.Steps, response.ForcedStop, response.LatencyMS,
	)

	if showTrace {
		fmt.Println("\nTrace:")
		printTrace(qc)
	}
}

// printRows renders sample rows as a table with a stable column order
func printRows(rows []map[string]interface{}) {
	if len(rows) == 0 {
		return
	}

	var columns []string
	for col := range rows[0] {
		columns = append(columns, col)
	}

	sort.Strings(columns)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := make(table.Row, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}

	t.AppendHeader(header)

	for _, row := range rows {
		out := make(table.Row, 0, len(columns))
		for _, col := range columns {
			out = append(out, row[col])
		}

		t.AppendRow(out)
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

// printTrace renders one line per linking step
func printTrace(qc *pipeline.QueryContext) {
	_, trace := qc.LinkingProgress()

	for _, step := range trace {
		actions, _ := json.Marshal(step.Actions)

		marker := ""
		if step.ForcedStop {
			marker = " [forced stop]"
		}

		fmt.Printf("  step %d%s: %s\n", step.Step, marker, string(actions))
	}
}

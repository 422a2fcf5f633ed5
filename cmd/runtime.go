package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlscout/sqlscout/internal/catalog"
	"github.com/sqlscout/sqlscout/internal/config"
	"github.com/sqlscout/sqlscout/internal/llm"
	"github.com/sqlscout/sqlscout/internal/probe"
)

// runtime holds the live pieces shared by the commands: the column index,
// open database connections for probing, and the gateway chain
type runtime struct {
	cfg      *config.Config
	index    *catalog.KeywordIndex
	runner   *probe.SQLRunner
	catalogs []*catalog.DuckDBCatalog
}

// openRuntime introspects every DuckDB file in the configured directory,
// indexing its columns and keeping the connection open for probes
func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	queryTimeout, err := time.ParseDuration(cfg.Probe.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid probe query timeout %q: %w", cfg.Probe.QueryTimeout, err)
	}

	index, catalogs, err := catalog.LoadDirectory(ctx, cfg.Catalog.DatabaseDir, cfg.Catalog.SampleValues)
	if err != nil {
		return nil, err
	}

	if len(catalogs) == 0 {
		return nil, fmt.Errorf(
			"no DuckDB databases (*.db, *.duckdb) found in %s",
			cfg.Catalog.DatabaseDir,
		)
	}

	rt := &runtime{
		cfg:      cfg,
		index:    index,
		runner:   probe.NewSQLRunner(queryTimeout),
		catalogs: catalogs,
	}

	for _, cat := range catalogs {
		rt.runner.Register(cat.ID(), cat.DB())
	}

	return rt, nil
}

// Close closes every open database connection
func (rt *runtime) Close() {
	for _, cat := range rt.catalogs {
		_ = cat.Close()
	}
}

// databases returns the indexed database ids
func (rt *runtime) databases() []string {
	return rt.index.Databases()
}

// buildGateway constructs the provider client. The provider flag and the
// request temperature, when set, override the configured values.
func buildGateway(cfg *config.Config, provider string, temperature float64) (llm.Gateway, error) {
	llmCfg := llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	}

	if provider != "" {
		llmCfg.Provider = provider
	}

	if temperature > 0 {
		llmCfg.Temperature = temperature
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, err
	}

	return llm.NewChain(llm.DefaultChainConfig(), client), nil
}

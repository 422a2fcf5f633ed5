package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Catalog CatalogConfig `json:"catalog" envPrefix:"SQLSCOUT_"`
	Linker  LinkerConfig  `json:"linker"  envPrefix:"SQLSCOUT_"`
	Probe   ProbeConfig   `json:"probe"   envPrefix:"SQLSCOUT_"`
	LLM     LLMConfig     `json:"llm"     envPrefix:"SQLSCOUT_"`
	Store   StoreConfig   `json:"store"   envPrefix:"SQLSCOUT_"`
	Logging LoggingConfig `json:"logging" envPrefix:"SQLSCOUT_"`
}

// CatalogConfig configures the column index backing store
type CatalogConfig struct {
	DatabaseDir  string `json:"database_dir"  env:"CATALOG_DB_DIR"       envDefault:"~/.config/sqlscout/databases"`
	SampleValues int    `json:"sample_values" env:"CATALOG_SAMPLE_VALUES" envDefault:"3"`
}

// LinkerConfig holds the tunable parameters of the schema-linking loop
type LinkerConfig struct {
	InitialTopM        int  `json:"initial_top_m"        env:"LINKER_INITIAL_TOP_M"  envDefault:"80"`
	RetrieveTopK       int  `json:"retrieve_top_k"       env:"LINKER_RETRIEVE_TOP_K" envDefault:"5"`
	MaxSteps           int  `json:"max_steps"            env:"LINKER_MAX_STEPS"      envDefault:"8"`
	PromptTokenBudget  int  `json:"prompt_token_budget"  env:"LINKER_TOKEN_BUDGET"   envDefault:"4000"`
	MinFeedbackActions int  `json:"min_feedback_actions" env:"LINKER_MIN_FEEDBACK"   envDefault:"1"`
	EnableExplore      bool `json:"enable_explore"       env:"LINKER_ENABLE_EXPLORE" envDefault:"true"`
	EnableVerify       bool `json:"enable_verify"        env:"LINKER_ENABLE_VERIFY"  envDefault:"true"`
}

// ProbeConfig configures read-only SQL probing
type ProbeConfig struct {
	RowLimit     int    `json:"row_limit"     env:"PROBE_ROW_LIMIT"     envDefault:"5"`
	QueryTimeout string `json:"query_timeout" env:"PROBE_QUERY_TIMEOUT" envDefault:"30s"`
}

// LLMConfig configures the prompt/response gateway
type LLMConfig struct {
	Provider    string  `json:"provider"    env:"LLM_PROVIDER"    envDefault:"openai"`
	Model       string  `json:"model"       env:"LLM_MODEL"       envDefault:"gpt-4"`
	APIKey      string  `json:"api_key"     env:"LLM_API_KEY"`
	BaseURL     string  `json:"base_url"    env:"LLM_BASE_URL"`
	Temperature float64 `json:"temperature" env:"LLM_TEMPERATURE" envDefault:"0.1"`
}

// StoreConfig configures query context persistence
type StoreConfig struct {
	OutputDir string `json:"output_dir" env:"STORE_OUTPUT_DIR" envDefault:"~/.local/share/sqlscout/contexts"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/sqlscout/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets
	// defaults). The SQLSCOUT_ prefix comes from the envPrefix struct tags.
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "db-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Catalog.DatabaseDir = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "max-steps":
			if n, ok := value.(int); ok && n > 0 {
				config.Linker.MaxSteps = n
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		case "output-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Store.OutputDir = str
			}
		}
	}
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if config.Linker.MaxSteps <= 0 {
		return fmt.Errorf("linker max steps must be positive: %d", config.Linker.MaxSteps)
	}

	if config.Linker.InitialTopM <= 0 {
		return fmt.Errorf("linker initial top M must be positive: %d", config.Linker.InitialTopM)
	}

	if config.Linker.RetrieveTopK <= 0 {
		return fmt.Errorf("linker retrieve top K must be positive: %d", config.Linker.RetrieveTopK)
	}

	if config.Probe.RowLimit <= 0 {
		return fmt.Errorf("probe row limit must be positive: %d", config.Probe.RowLimit)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("SQLSCOUT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "sqlscout", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Catalog.DatabaseDir = expandPath(c.Catalog.DatabaseDir)
	c.Store.OutputDir = expandPath(c.Store.OutputDir)
	c.Logging.File = expandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Catalog.DatabaseDir,
		c.Store.OutputDir,
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

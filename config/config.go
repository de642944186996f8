package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"paperrag/internal/domain"
)

// Config holds all configuration for paperrag.
type Config struct {
	Chunk    ChunkConfig    `yaml:"chunk"`
	Index    IndexConfig    `yaml:"index"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	LLM      LLMConfig      `yaml:"llm"`
	Batch    BatchConfig    `yaml:"batch"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ChunkConfig controls the character windows fed to the index.
type ChunkConfig struct {
	MaxChars int `yaml:"max_chars"`
	Overlap  int `yaml:"overlap"`
}

// IndexConfig holds TF-IDF vocabulary settings.
type IndexConfig struct {
	MaxDocFreq     float64  `yaml:"max_doc_freq"` // Terms in a larger share of chunks are dropped
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

type RetrieveConfig struct {
	TopK  int    `yaml:"top_k"`
	Query string `yaml:"query"`
}

// LLMConfig selects the model used for summaries and analyses.
type LLMConfig struct {
	Provider         string  `yaml:"provider"` // "mistral", "openai", "ollama", "offline"
	Model            string  `yaml:"model"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	BaseURL          string  `yaml:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
	MaxRetries       int     `yaml:"max_retries"`
	Temperature      float64 `yaml:"temperature"`
	SummaryExcerpts  int     `yaml:"summary_excerpts"`
	AnalysisExcerpts int     `yaml:"analysis_excerpts"`
	MaxPromptTokens  int     `yaml:"max_prompt_tokens"` // Excerpt budget per prompt, 0 = unlimited
}

type BatchConfig struct {
	DataDir  string   `yaml:"data_dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"`
}

type OutputConfig struct {
	ResultsDir string `yaml:"results_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			MaxChars: 1500,
			Overlap:  150,
		},
		Index: IndexConfig{
			MaxDocFreq: 0.9,
		},
		Retrieve: RetrieveConfig{
			TopK:  5,
			Query: "What problem does this paper solve?",
		},
		LLM: LLMConfig{
			Provider:         "mistral",
			Model:            "mistral-tiny",
			APIKeyEnv:        "MISTRAL_API_KEY",
			TimeoutSecs:      45,
			MaxRetries:       2,
			Temperature:      0.2,
			SummaryExcerpts:  5,
			AnalysisExcerpts: 8,
			MaxPromptTokens:  4000,
		},
		Batch: BatchConfig{
			DataDir:  "data/sample_papers",
			Includes: []string{"*.pdf"},
			Excludes: []string{},
			Workers:  1,
		},
		Output: OutputConfig{
			ResultsDir: "results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for paperrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "paperrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".paperrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings that would make chunking or ranking fail.
func (c *Config) Validate() error {
	if c.Chunk.MaxChars <= 0 {
		return fmt.Errorf("%w: chunk.max_chars must be positive", domain.ErrInvalidChunkConfig)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.MaxChars {
		return fmt.Errorf("%w: chunk.overlap must be in [0, max_chars)", domain.ErrInvalidChunkConfig)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k", domain.ErrInvalidTopK)
	}
	if c.Index.MaxDocFreq <= 0 || c.Index.MaxDocFreq > 1 {
		return fmt.Errorf("index.max_doc_freq must be in (0, 1], got %v", c.Index.MaxDocFreq)
	}
	if c.LLM.MaxPromptTokens < 0 {
		return fmt.Errorf("llm.max_prompt_tokens must not be negative, got %d", c.LLM.MaxPromptTokens)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	return nil
}

// Output directories below the results dir.
func SummariesDir(resultsDir string) string   { return filepath.Join(resultsDir, "summaries") }
func AnalysesDir(resultsDir string) string    { return filepath.Join(resultsDir, "analyses") }
func MetadataDir(resultsDir string) string    { return filepath.Join(resultsDir, "metadata") }
func ComparisonsDir(resultsDir string) string { return filepath.Join(resultsDir, "comparisons") }

// BatchReportPath returns the path of the CSV batch report.
func BatchReportPath(resultsDir string) string {
	return filepath.Join(resultsDir, "batch_report.csv")
}

// HistoryDBPath returns the path to the run history database.
func HistoryDBPath(resultsDir string) string {
	return filepath.Join(resultsDir, "history.db")
}

// EnsureResultsDirs creates the results directory tree.
func EnsureResultsDirs(resultsDir string) error {
	for _, dir := range []string{
		SummariesDir(resultsDir),
		AnalysesDir(resultsDir),
		MetadataDir(resultsDir),
		ComparisonsDir(resultsDir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

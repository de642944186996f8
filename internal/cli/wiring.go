package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"paperrag/config"
	"paperrag/internal/adapter/analyzer"
	"paperrag/internal/adapter/extract"
	"paperrag/internal/adapter/llm"
	"paperrag/internal/adapter/store"
	"paperrag/internal/usecase"
)

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnMark = color.New(color.FgYellow, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// resolvePath makes config-relative paths relative to the project directory.
func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetRootDir(), p)
}

func resultsDir(cfg *config.Config) string {
	return resolvePath(cfg.Output.ResultsDir)
}

// applyOverrides copies non-zero flag values over the loaded config and
// validates the result.
func applyOverrides(cfg *config.Config, query string, topK int) error {
	if query != "" {
		cfg.Retrieve.Query = query
	}
	if topK != 0 {
		cfg.Retrieve.TopK = topK
	}
	return cfg.Validate()
}

func newTokenizer(cfg *config.Config) *analyzer.Tokenizer {
	return analyzer.NewTokenizer(cfg.Index.ExtraStopwords...)
}

func newRetrieveUseCase(cfg *config.Config, tokenizer *analyzer.Tokenizer) (*usecase.RetrieveUseCase, error) {
	return usecase.NewRetrieveUseCase(tokenizer, usecase.RetrieveOptions{
		TopK:       cfg.Retrieve.TopK,
		Query:      cfg.Retrieve.Query,
		MaxChars:   cfg.Chunk.MaxChars,
		Overlap:    cfg.Chunk.Overlap,
		MaxDocFreq: cfg.Index.MaxDocFreq,
	})
}

// newPaperUseCase wires extraction, retrieval and the configured model.
func newPaperUseCase(cfg *config.Config) (*usecase.PaperUseCase, error) {
	tokenizer := newTokenizer(cfg)
	retrieveUC, err := newRetrieveUseCase(cfg, tokenizer)
	if err != nil {
		return nil, err
	}

	model, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}
	slog.Debug("using llm", "provider", cfg.LLM.Provider, "model", model.ModelName())

	return usecase.NewPaperUseCase(
		extract.NewExtractor(),
		retrieveUC,
		usecase.NewPackUseCase(tokenizer, cfg.LLM.MaxPromptTokens),
		model,
		usecase.PaperOptions{
			SummaryExcerpts:  cfg.LLM.SummaryExcerpts,
			AnalysisExcerpts: cfg.LLM.AnalysisExcerpts,
			ResultsDir:       resultsDir(cfg),
		},
	), nil
}

// openHistory opens the run history and brings its schema up to date.
func openHistory(cfg *config.Config) (*store.BoltStore, error) {
	dir := resultsDir(cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	st, err := store.NewBoltStore(config.HistoryDBPath(dir))
	if err != nil {
		return nil, err
	}

	result, err := st.Migrate(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if result.NeedsMigration {
		slog.Debug("history schema migrated", "reason", result.Reason, "from", result.OldVersion, "to", result.NewVersion)
	}
	if result.SettingsChanged {
		slog.Info("retrieval settings differ from earlier runs, older history entries used other settings")
	}
	return st, nil
}

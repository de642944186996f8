package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"paperrag/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "paperrag",
	Short: "Research paper assistant - retrieve, summarize and analyze papers",
	Long: `paperrag ranks the passages of research papers against a question with
TF-IDF retrieval and turns the best passages into summaries and analyses.

Example usage:
  paperrag search --file paper.pdf -q "What problem does this paper solve?"
  paperrag run --file paper.pdf          # Summarize and analyze one paper
  paperrag run --data-dir data/papers    # Batch mode with CSV report
  paperrag compare a.pdf b.pdf           # Compare two papers`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		setupLogging(cfg.Logging)

		// API keys may live in a .env file next to the config
		if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load .env file", "error", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./paperrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory holding config and .env (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func setupLogging(lc config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

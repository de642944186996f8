package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"paperrag/config"
	"paperrag/internal/adapter/fs"
	"paperrag/internal/adapter/memstore"
	"paperrag/internal/adapter/report"
	"paperrag/internal/domain"
	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

var (
	runFile      string
	runDataDir   string
	runQuery     string
	runTopK      int
	runWorkers   int
	runTimeout   int
	runNoHistory bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Summarize and analyze one paper or a directory of papers",
	Long: `Rank each paper's passages against the query, then ask the configured model
for a bullet summary and a Methods / Key Results / Limitations analysis.

Outputs go to results/summaries, results/analyses and results/metadata. Every
processed paper is recorded in the run history. A directory run also rewrites
results/batch_report.csv with one row per processed paper of that batch.
Papers that fail are skipped with a reason.

Examples:
  paperrag run --file data/sample_papers/attention.pdf
  paperrag run --data-dir data/sample_papers --workers 4
  paperrag run -q "What datasets are used?" -k 8 --timeout 60`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "process a single paper")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "directory of papers (default from config)")
	runCmd.Flags().StringVarP(&runQuery, "query", "q", "", "retrieval query (default from config)")
	runCmd.Flags().IntVarP(&runTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "papers processed in parallel (default from config)")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "timeout per model call in seconds (default from config)")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record this run in results/history.db")
	runCmd.MarkFlagsMutuallyExclusive("file", "data-dir")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if runWorkers != 0 {
		cfg.Batch.Workers = runWorkers
	}
	if runTimeout != 0 {
		cfg.LLM.TimeoutSecs = runTimeout
	}
	if err := applyOverrides(cfg, runQuery, runTopK); err != nil {
		return err
	}

	paperUC, err := newPaperUseCase(cfg)
	if err != nil {
		return err
	}

	var history port.HistoryStore = memstore.NewMemoryStore()
	if !runNoHistory {
		st, err := openHistory(cfg)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer st.Close()
		history = st
	}

	// Only directory batches get a CSV report
	var (
		reportPath string
		csvReport  port.ReportWriter
	)
	if runFile == "" {
		reportPath = config.BatchReportPath(resultsDir(cfg))
		csvReport = report.NewCSVWriter(reportPath)
	}
	walker := fs.NewWalker(cfg.Batch.Includes, cfg.Batch.Excludes)
	batchUC := usecase.NewBatchUseCase(walker, paperUC, csvReport, history, cfg.Batch.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var summary *usecase.BatchSummary
	if runFile != "" {
		if _, err := os.Stat(runFile); err != nil {
			return fmt.Errorf("paper not found: %w", err)
		}
		fmt.Printf("Processing %s\n", filepath.Base(runFile))
		summary, err = batchUC.Run(ctx, []string{runFile}, nil)
	} else {
		dataDir := runDataDir
		if dataDir == "" {
			dataDir = resolvePath(cfg.Batch.DataDir)
		}
		fmt.Printf("Scanning %s...\n", dataDir)
		summary, err = batchUC.RunDir(ctx, dataDir, newProgress())
	}
	if summary == nil {
		return err
	}

	printSummary(summary, reportPath)
	if err != nil {
		return err
	}
	if summary.Processed == 0 {
		return fmt.Errorf("no paper could be processed")
	}
	return nil
}

// newProgress draws a progress bar once the number of papers is known.
func newProgress() usecase.ProgressFunc {
	var (
		bar  *progressbar.ProgressBar
		once sync.Once
	)
	return func(done, total int, result domain.PaperResult) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("[cyan]Processing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		})
		bar.Describe(fmt.Sprintf("[cyan]Processing[reset] %s", filepath.Base(result.Path)))
		bar.Set(done)
	}
}

func printSummary(summary *usecase.BatchSummary, reportPath string) {
	fmt.Println()
	for _, r := range summary.Results {
		name := filepath.Base(r.Path)
		switch {
		case !r.OK():
			fmt.Printf("%s Skipped %s: %v\n", failMark("x"), name, r.Failure)
		case r.Degenerate:
			fmt.Printf("%s Done: %s in %.1fs %s\n", warnMark("!"), name, r.Duration.Seconds(), dim("(no passage matched the query)"))
		default:
			fmt.Printf("%s Done: %s in %.1fs\n", okMark("✓"), name, r.Duration.Seconds())
		}
		if r.OK() {
			fmt.Printf("    summary:  %s\n    analysis: %s\n", r.SummaryPath, r.AnalysisPath)
		}
	}

	fmt.Printf("\nRun %s: %d processed, %d skipped in %.1fs\n",
		summary.RunID, summary.Processed, summary.Skipped, summary.Duration.Seconds())
	if summary.Processed > 0 && reportPath != "" {
		fmt.Printf("Batch report: %s\n", reportPath)
	}
}

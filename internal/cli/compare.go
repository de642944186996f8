package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	compareQuery string
	compareTopK  int
)

var compareCmd = &cobra.Command{
	Use:   "compare <paper-a> <paper-b>",
	Short: "Compare two papers on the same query",
	Long: `Rank each paper's passages independently against the query and ask the
configured model to contrast them. The comparison is written to
results/comparisons/<a>_vs_<b>.md.

Examples:
  paperrag compare attention.pdf bert.pdf
  paperrag compare a.pdf b.pdf -q "How are the models evaluated?"`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&compareQuery, "query", "q", "", "retrieval query (default from config)")
	compareCmd.Flags().IntVarP(&compareTopK, "top-k", "k", 0, "passages retrieved per paper (default from config)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyOverrides(cfg, compareQuery, compareTopK); err != nil {
		return err
	}

	paperUC, err := newPaperUseCase(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := paperUC.Compare(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if c.Degenerate {
		fmt.Fprintf(os.Stderr, "%s at least one paper has no passage matching the query\n", warnMark("!"))
	}
	fmt.Printf("%s Compared %q and %q\n", okMark("✓"), c.A.Title, c.B.Title)
	fmt.Printf("    comparison: %s\n", c.Path)
	return nil
}

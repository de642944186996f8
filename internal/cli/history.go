package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyRuns  bool
	historyPaper string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List processed papers and past runs",
	Long: `Show the papers recorded in results/history.db.

Examples:
  paperrag history
  paperrag history --runs
  paperrag history --paper attention_is_all_you_need --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyRuns, "runs", false, "list runs instead of papers")
	historyCmd.Flags().StringVar(&historyPaper, "paper", "", "show the record of one paper by file stem")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openHistory(GetConfig())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer st.Close()

	switch {
	case historyPaper != "":
		rec, err := st.GetPaper(historyPaper)
		if err != nil {
			return err
		}
		output, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(output))
		return nil

	case historyRuns:
		runs, err := st.ListRuns()
		if err != nil {
			return err
		}
		if historyJSON {
			output, _ := json.MarshalIndent(runs, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tPROCESSED\tSKIPPED\tTOP-K\tQUERY")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Processed, len(r.Skipped), r.TopK, r.Query)
		}
		return w.Flush()

	default:
		papers, err := st.ListPapers()
		if err != nil {
			return err
		}
		if historyJSON {
			output, _ := json.MarshalIndent(papers, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		if len(papers) == 0 {
			fmt.Println("No papers recorded. Run 'paperrag run' first.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tTITLE\tPROCESSED\tDURATION")
		for _, p := range papers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\n",
				p.File, p.Title, p.ProcessedAt.Format("2006-01-02 15:04"), p.DurationSecs)
		}
		return w.Flush()
	}
}

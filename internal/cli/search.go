package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"paperrag/internal/adapter/extract"
)

var (
	searchFile  string
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank the passages of one paper against a query",
	Long: `Extract a paper, split it into overlapping character windows and rank the
windows against the query by TF-IDF cosine similarity. No model is called.

Examples:
  paperrag search --file paper.pdf -q "attention heads"
  paperrag search --file notes.txt -q "training setup" -k 3 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "paper to search (required)")
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (default from config)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("file")
}

// SearchResult is one ranked passage in CLI output.
type SearchResult struct {
	Rank  int     `json:"rank"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyOverrides(cfg, searchQuery, searchTopK); err != nil {
		return err
	}

	retrieveUC, err := newRetrieveUseCase(cfg, newTokenizer(cfg))
	if err != nil {
		return err
	}

	doc, err := extract.NewExtractor().Extract(searchFile)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", searchFile, err)
	}

	r, err := retrieveUC.Retrieve(doc)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, len(r.Hits))
	for i, h := range r.Hits {
		results[i] = SearchResult{Rank: i + 1, Label: h.Chunk.Label, Score: h.Score, Text: h.Chunk.Text}
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if r.Degenerate {
		fmt.Fprintf(os.Stderr, "%s no passage shares a term with the query; showing passages in document order\n\n", warnMark("!"))
	}
	fmt.Printf("Top %d of %d passages for: %s\n\n", len(results), len(r.Chunks), cfg.Retrieve.Query)
	for _, res := range results {
		fmt.Printf("--- [%d] %s (score: %.4f) ---\n", res.Rank, res.Label, res.Score)
		text := []rune(res.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}

	return nil
}

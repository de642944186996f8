package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"paperrag/config"
	"paperrag/internal/adapter/analyzer"
	"paperrag/internal/adapter/extract"
	"paperrag/internal/usecase"
)

func main() {
	configDir := flag.String("config-dir", ".", "Directory holding paperrag.yaml")
	file := flag.String("file", "", "Paper to test")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *file == "" || *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -file paper.pdf -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Corpus shape (chunks, window size, overlap)")
		fmt.Println("  2. Ranked passages with cosine scores")
		fmt.Println("  3. Separation between the best and the remaining passages")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	retrieveUC, err := usecase.NewRetrieveUseCase(analyzer.NewTokenizer(cfg.Index.ExtraStopwords...), usecase.RetrieveOptions{
		TopK:       *topK,
		Query:      *query,
		MaxChars:   cfg.Chunk.MaxChars,
		Overlap:    cfg.Chunk.Overlap,
		MaxDocFreq: cfg.Index.MaxDocFreq,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	doc, err := extract.NewExtractor().Extract(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction error: %v\n", err)
		os.Exit(1)
	}

	r, err := retrieveUC.Retrieve(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Paper: %s\n", doc.Path)
	fmt.Printf("Chunks: %d (max %d chars, %d overlap)\n", len(r.Chunks), cfg.Chunk.MaxChars, cfg.Chunk.Overlap)
	fmt.Printf("Max document frequency: %.2f\n", cfg.Index.MaxDocFreq)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Top %d passages:\n\n", len(r.Hits))

	totalScore := 0.0
	matched := 0
	for i, h := range r.Hits {
		preview := []rune(h.Chunk.Text)
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		totalScore += h.Score
		if h.Score > 0 {
			matched++
		}

		rating := "NONE"
		if h.Score > 0.3 {
			rating = "HIGH"
		} else if h.Score > 0.15 {
			rating = "GOOD"
		} else if h.Score > 0 {
			rating = "LOW"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, h.Score, h.Chunk.Label)
		fmt.Printf("   %s\n\n", strings.ReplaceAll(string(preview), "\n", " "))
	}

	avgScore := totalScore / float64(len(r.Hits))
	margin := r.Hits[0].Score
	if len(r.Hits) > 1 {
		margin -= r.Hits[1].Score
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Matching passages:  %d of %d\n", matched, len(r.Hits))
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", r.Hits[0].Score)
	fmt.Printf("  Top-1 margin:       %.3f\n", margin)

	switch {
	case r.Degenerate:
		fmt.Println("  Status: NO SIGNAL - no passage shares an informative term with the query")
	case margin > 0.1:
		fmt.Println("  Status: GOOD - one passage clearly stands out")
	default:
		fmt.Println("  Status: FLAT - several passages match about equally, try a more specific query")
	}
}

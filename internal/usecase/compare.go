package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paperrag/config"
	"paperrag/internal/domain"
)

// Comparison is the outcome of comparing two papers on the same query.
type Comparison struct {
	A, B       domain.Metadata
	HitsA      []domain.ScoredHit
	HitsB      []domain.ScoredHit
	Degenerate bool
	Markdown   string
	Path       string
}

// Compare retrieves passages from each paper independently, asks the model
// to contrast them and writes the result under the comparisons directory.
// The two papers never share an index.
func (u *PaperUseCase) Compare(ctx context.Context, pathA, pathB string) (*Comparison, error) {
	query := u.retrieve.Options().Query

	metaA, hitsA, degA, err := u.rank(pathA)
	if err != nil {
		return nil, err
	}
	metaB, hitsB, degB, err := u.rank(pathB)
	if err != nil {
		return nil, err
	}

	excerpts := append(
		tagExcerpts("A", u.packer.Pack(hitsA, u.opts.SummaryExcerpts).Hits),
		tagExcerpts("B", u.packer.Pack(hitsB, u.opts.SummaryExcerpts).Hits)...,
	)
	prompt, err := render("compare.tmpl", map[string]string{
		"Query":    query,
		"TitleA":   metaA.Title,
		"TitleB":   metaB.Title,
		"Excerpts": strings.Join(excerpts, excerptSeparator),
	})
	if err != nil {
		return nil, err
	}

	reply, err := u.llm.GenerateWithSystem(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("comparison of %s and %s: %w", pathA, pathB, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Comparison: %s vs %s\n\n", metaA.Title, metaB.Title)
	fmt.Fprintf(&sb, "**A:** %s (%s)\n\n**B:** %s (%s)\n\n", metaA.Title, metaA.Authors, metaB.Title, metaB.Authors)
	fmt.Fprintf(&sb, "**Query:** %s\n\n---\n\n", query)
	sb.WriteString(reply)

	c := &Comparison{
		A:          metaA,
		B:          metaB,
		HitsA:      hitsA,
		HitsB:      hitsB,
		Degenerate: degA || degB,
		Markdown:   sb.String(),
	}

	dir := config.ComparisonsDir(u.opts.ResultsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create comparisons directory: %w", err)
	}
	c.Path = filepath.Join(dir, outputStem(pathA)+"_vs_"+outputStem(pathB)+".md")
	if err := os.WriteFile(c.Path, []byte(c.Markdown), 0644); err != nil {
		return nil, err
	}

	return c, nil
}

func (u *PaperUseCase) rank(path string) (domain.Metadata, []domain.ScoredHit, bool, error) {
	doc, meta, err := u.load(path)
	if err != nil {
		return domain.Metadata{}, nil, false, err
	}
	retrieval, err := u.retrieve.Retrieve(doc)
	if err != nil {
		return domain.Metadata{}, nil, false, fmt.Errorf("retrieval for %s: %w", path, err)
	}
	return meta, retrieval.Hits, retrieval.Degenerate, nil
}

func tagExcerpts(tag string, hits []domain.ScoredHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = "[" + tag + "] " + h.Chunk.Text
	}
	return out
}

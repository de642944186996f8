package usecase

import (
	"fmt"
	"log/slog"

	"paperrag/internal/adapter/analyzer"
	"paperrag/internal/adapter/chunker"
	"paperrag/internal/adapter/retriever"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// RetrieveOptions configures one retrieval over a single document.
type RetrieveOptions struct {
	TopK       int
	Query      string
	MaxChars   int
	Overlap    int
	MaxDocFreq float64 // 0 means retriever.DefaultMaxDocFreq
}

// Retrieval is the ranked outcome for one document.
type Retrieval struct {
	Chunks     []domain.Chunk
	Hits       []domain.ScoredHit
	Degenerate bool
}

// RetrieveUseCase normalizes, chunks, indexes and searches one document at a
// time. Every call builds a fresh index, so a use case can serve concurrent
// callers.
type RetrieveUseCase struct {
	tokenizer *analyzer.Tokenizer
	chunker   port.Chunker
	builder   *retriever.TFIDFBuilder
	opts      RetrieveOptions
}

// NewRetrieveUseCase validates opts up front so configuration errors surface
// before any document is read.
func NewRetrieveUseCase(tokenizer *analyzer.Tokenizer, opts RetrieveOptions) (*RetrieveUseCase, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, opts.TopK)
	}
	ch, err := chunker.NewCharChunker(opts.MaxChars, opts.Overlap)
	if err != nil {
		return nil, err
	}
	if opts.MaxDocFreq == 0 {
		opts.MaxDocFreq = retriever.DefaultMaxDocFreq
	}
	builder, err := retriever.NewTFIDFBuilder(tokenizer, opts.MaxDocFreq)
	if err != nil {
		return nil, err
	}

	return &RetrieveUseCase{
		tokenizer: tokenizer,
		chunker:   ch,
		builder:   builder,
		opts:      opts,
	}, nil
}

func (u *RetrieveUseCase) Options() RetrieveOptions {
	return u.opts
}

// Retrieve ranks doc's chunks against the configured query.
func (u *RetrieveUseCase) Retrieve(doc domain.Document) (*Retrieval, error) {
	return u.RetrieveQuery(doc, u.opts.Query)
}

// RetrieveQuery ranks doc's chunks against query. A ranking in which no
// chunk matches is returned with Degenerate set, not as an error.
func (u *RetrieveUseCase) RetrieveQuery(doc domain.Document, query string) (*Retrieval, error) {
	doc.Text = analyzer.Normalize(doc.Text)

	chunks, err := u.chunker.Chunk(doc)
	if err != nil {
		return nil, err
	}

	idx, err := u.builder.Build(chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build index for %s: %w", doc.Path, err)
	}

	hits, err := idx.Search(query, u.opts.TopK)
	if err != nil {
		return nil, err
	}

	r := &Retrieval{
		Chunks:     chunks,
		Hits:       hits,
		Degenerate: domain.IsDegenerate(hits),
	}
	if r.Degenerate {
		slog.Warn("no chunk matches the query, passages are in document order",
			"path", doc.Path, "query", query, "chunks", len(chunks), "vocabulary", idx.VocabularySize())
	}

	return r, nil
}

package retriever

import (
	"fmt"
	"math"
	"sort"

	"paperrag/internal/adapter/analyzer"
	"paperrag/internal/domain"
)

// DefaultMaxDocFreq drops terms present in more than 90% of chunks.
const DefaultMaxDocFreq = 0.9

// TFIDFBuilder fits a TF-IDF vector space over a corpus of chunks.
type TFIDFBuilder struct {
	tokenizer  *analyzer.Tokenizer
	maxDocFreq float64
}

// NewTFIDFBuilder returns a builder that drops terms present in more than
// maxDocFreq of the chunks. maxDocFreq must be in (0, 1].
func NewTFIDFBuilder(tokenizer *analyzer.Tokenizer, maxDocFreq float64) (*TFIDFBuilder, error) {
	if maxDocFreq <= 0 || maxDocFreq > 1 {
		return nil, fmt.Errorf("%w: got %v", domain.ErrInvalidMaxDocFreq, maxDocFreq)
	}
	return &TFIDFBuilder{
		tokenizer:  tokenizer,
		maxDocFreq: maxDocFreq,
	}, nil
}

// TFIDFIndex is an immutable term-weighted vector space. Row i holds the
// L2-normalised weights of corpus chunk i.
type TFIDFIndex struct {
	tokenizer  *analyzer.Tokenizer
	vocabulary map[string]int
	terms      []string
	idf        []float64
	rows       []sparseVector
	chunks     []domain.Chunk
}

// sparseVector holds non-zero weights ordered by column.
type sparseVector struct {
	cols    []int
	weights []float64
}

// Build fits the vocabulary and IDF weights on corpus and computes one row
// per chunk. A corpus whose terms are all filtered out still yields a valid
// index on which every score is zero.
func (b *TFIDFBuilder) Build(corpus []domain.Chunk) (*TFIDFIndex, error) {
	if len(corpus) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	// Tokenize once and count document frequencies
	docTokens := make([][]string, len(corpus))
	df := make(map[string]int)
	for i, chunk := range corpus {
		tokens := b.tokenizer.Tokenize(chunk.Text)
		docTokens[i] = tokens

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	n := float64(len(corpus))
	maxCount := b.maxDocFreq * n

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if float64(count) > maxCount {
			continue
		}
		terms = append(terms, term)
	}
	// Columns follow sorted term order so the space is reproducible
	sort.Strings(terms)

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for col, term := range terms {
		vocabulary[term] = col
		// Smoothed IDF
		idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	idx := &TFIDFIndex{
		tokenizer:  b.tokenizer,
		vocabulary: vocabulary,
		terms:      terms,
		idf:        idf,
		rows:       make([]sparseVector, len(corpus)),
		chunks:     append([]domain.Chunk(nil), corpus...),
	}
	for i, tokens := range docTokens {
		idx.rows[i] = idx.vectorize(tokens)
	}

	return idx, nil
}

// vectorize turns tokens into an L2-normalised TF-IDF vector over the fitted
// vocabulary. Unknown tokens are ignored.
func (x *TFIDFIndex) vectorize(tokens []string) sparseVector {
	tf := make(map[int]int)
	for _, tok := range tokens {
		if col, ok := x.vocabulary[tok]; ok {
			tf[col]++
		}
	}
	if len(tf) == 0 {
		return sparseVector{}
	}

	cols := make([]int, 0, len(tf))
	for col := range tf {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	weights := make([]float64, len(cols))
	norm := 0.0
	for i, col := range cols {
		w := float64(tf[col]) * x.idf[col]
		weights[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range weights {
			weights[i] /= norm
		}
	}

	return sparseVector{cols: cols, weights: weights}
}

// Len returns the number of rows, which equals the corpus size.
func (x *TFIDFIndex) Len() int {
	return len(x.chunks)
}

// Chunk returns the corpus chunk backing row i.
func (x *TFIDFIndex) Chunk(i int) domain.Chunk {
	return x.chunks[i]
}

// VocabularySize returns the number of terms that survived the
// document-frequency cutoff.
func (x *TFIDFIndex) VocabularySize() int {
	return len(x.terms)
}

// IDF returns the inverse document frequency of a vocabulary term.
func (x *TFIDFIndex) IDF(term string) (float64, bool) {
	col, ok := x.vocabulary[term]
	if !ok {
		return 0, false
	}
	return x.idf[col], true
}

// Weights returns the non-zero term weights of row i keyed by term.
func (x *TFIDFIndex) Weights(i int) map[string]float64 {
	if i < 0 || i >= len(x.rows) {
		panic(fmt.Sprintf("retriever: row %d out of range [0,%d)", i, len(x.rows)))
	}
	row := x.rows[i]
	out := make(map[string]float64, len(row.cols))
	for j, col := range row.cols {
		out[x.terms[col]] = row.weights[j]
	}
	return out
}

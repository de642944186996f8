package retriever

import (
	"fmt"
	"sort"

	"paperrag/internal/domain"
)

// Search scores every chunk against query by cosine similarity and returns
// the k best, highest first. Ties keep corpus order. A query with no known
// terms scores every chunk 0 and returns them in corpus order.
func (x *TFIDFIndex) Search(query string, k int) ([]domain.ScoredHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}

	q := x.vectorize(x.tokenizer.Tokenize(query))
	qv := make(map[int]float64, len(q.cols))
	for i, col := range q.cols {
		qv[col] = q.weights[i]
	}

	hits := make([]domain.ScoredHit, len(x.rows))
	for i, row := range x.rows {
		hits[i] = domain.ScoredHit{
			Score: cosine(qv, row),
			Chunk: x.chunks[i],
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// cosine computes the dot product of two unit vectors, clamped to [0,1]
// against rounding.
func cosine(query map[int]float64, row sparseVector) float64 {
	if len(query) == 0 {
		return 0
	}
	dot := 0.0
	for i, col := range row.cols {
		if w, ok := query[col]; ok {
			dot += w * row.weights[i]
		}
	}
	if dot > 1 {
		return 1
	}
	if dot < 0 {
		return 0
	}
	return dot
}

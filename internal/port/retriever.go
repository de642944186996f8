package port

import "paperrag/internal/domain"

// Retriever ranks the chunks of a single built index against a query.
type Retriever interface {
	// Search returns the top-k chunks ordered by descending score.
	Search(query string, k int) ([]domain.ScoredHit, error)
}

package port

import "paperrag/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}

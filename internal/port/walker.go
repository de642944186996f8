package port

import "paperrag/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// TextExtractor turns a source file into a document with raw text.
type TextExtractor interface {
	Extract(path string) (domain.Document, error)
}

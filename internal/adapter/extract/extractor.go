package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"paperrag/internal/adapter/fs"
	"paperrag/internal/domain"
)

// Extractor reads source papers into documents, dispatching on extension.
type Extractor struct {
	pdf *PDFExtractor
}

func NewExtractor() *Extractor {
	return &Extractor{pdf: NewPDFExtractor()}
}

// Extract returns the raw text of the file at path. The text is not
// normalized; empty text is not an error at this stage.
func (e *Extractor) Extract(path string) (domain.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.pdf.Extract(path)
	case ".txt", ".md", ".text":
		return extractPlain(path)
	default:
		return domain.Document{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// extractPlain treats a form feed as a page break so the first page can feed
// the metadata heuristics.
func extractPlain(path string) (domain.Document, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	firstPage := content
	if i := strings.IndexByte(content, '\f'); i >= 0 {
		firstPage = content[:i]
	}

	return domain.Document{
		Path:      path,
		Stem:      fs.Stem(path),
		Text:      content,
		FirstPage: firstPage,
	}, nil
}

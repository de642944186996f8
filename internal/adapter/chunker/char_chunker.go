package chunker

import (
	"fmt"

	"paperrag/internal/domain"
)

// CharChunker splits text into fixed-size character windows that overlap by
// a fixed number of characters. Offsets are counted in runes.
type CharChunker struct {
	maxChars int
	overlap  int
}

// Window is one chunk of text together with its rune offsets.
type Window struct {
	Start int
	End   int
	Text  string
}

// NewCharChunker validates the window parameters. The overlap must be
// strictly smaller than maxChars so every window advances.
func NewCharChunker(maxChars, overlap int) (*CharChunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: max chars must be positive, got %d", domain.ErrInvalidChunkConfig, maxChars)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidChunkConfig, overlap)
	}
	if overlap >= maxChars {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than max chars (%d)", domain.ErrInvalidChunkConfig, overlap, maxChars)
	}
	return &CharChunker{
		maxChars: maxChars,
		overlap:  overlap,
	}, nil
}

// Windows returns the ordered windows covering text. Empty text yields none.
func (c *CharChunker) Windows(text string) []Window {
	runes := []rune(text)
	n := len(runes)

	var windows []Window
	start := 0
	for start < n {
		end := min(start+c.maxChars, n)
		windows = append(windows, Window{
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == n {
			break
		}
		start = max(0, end-c.overlap)
	}

	return windows
}

// Chunk windows the document's text and labels each chunk after the
// document stem. A document without text is reported as
// domain.ErrNoExtractableText.
func (c *CharChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	windows := c.Windows(doc.Text)
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w from: %s", domain.ErrNoExtractableText, doc.Path)
	}

	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			Label: Label(doc.Stem, i),
			Text:  w.Text,
		}
	}
	return chunks, nil
}

// Label formats the human-readable chunk label, e.g. "attention [chunk 3]".
func Label(stem string, index int) string {
	return fmt.Sprintf("%s [chunk %d]", stem, index+1)
}

package domain

import "errors"

var (
	// ErrInvalidChunkConfig is returned for non-positive max chars or an
	// overlap that would stop the chunker from advancing.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	ErrInvalidTopK = errors.New("top-k must be greater than zero")

	// ErrNoExtractableText means a document produced no chunks.
	ErrNoExtractableText = errors.New("no extractable text")

	ErrEmptyCorpus = errors.New("cannot build index from empty corpus")

	// ErrInvalidMaxDocFreq is returned for a document-frequency cutoff
	// outside (0, 1].
	ErrInvalidMaxDocFreq = errors.New("max document frequency must be in (0, 1]")

	ErrNoPapers = errors.New("no papers found")
)

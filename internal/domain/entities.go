package domain

import "time"

// Document is one source paper after text extraction.
type Document struct {
	Path      string
	Stem      string
	Title     string // embedded title, if the source carries one
	Text      string
	FirstPage string
}

// Chunk is an immutable labeled window of a document's normalized text.
type Chunk struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type ScoredHit struct {
	Score float64 `json:"score"`
	Chunk Chunk   `json:"chunk"`
}

// IsDegenerate reports whether no hit carries any signal, which happens when
// the query shares no informative term with the corpus.
func IsDegenerate(hits []ScoredHit) bool {
	for _, h := range hits {
		if h.Score > 0 {
			return false
		}
	}
	return true
}

type Metadata struct {
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Abstract string `json:"abstract,omitempty"`
}

// FailureReason names why a paper was skipped in a batch.
type FailureReason string

const (
	FailureExtraction   FailureReason = "extraction_failed"
	FailureNoText       FailureReason = "no_extractable_text"
	FailureRetrieval    FailureReason = "retrieval_failed"
	FailureLLM          FailureReason = "llm_failed"
	FailureWriteOutputs FailureReason = "write_failed"
	FailureCancelled    FailureReason = "cancelled"
)

// PaperResult is the outcome of processing one paper. Exactly one of the
// success fields or Failure is meaningful.
type PaperResult struct {
	Path         string
	Metadata     Metadata
	Query        string
	Hits         []ScoredHit
	Degenerate   bool
	SummaryPath  string
	AnalysisPath string
	MetadataPath string
	Duration     time.Duration
	Failure      *Failure
}

func (r PaperResult) OK() bool {
	return r.Failure == nil
}

type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	return string(f.Reason) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// PaperRecord is the persisted form of a processed paper.
type PaperRecord struct {
	File         string            `json:"file"`
	PDFPath      string            `json:"pdf_path"`
	Title        string            `json:"title"`
	Authors      string            `json:"authors"`
	Abstract     string            `json:"abstract,omitempty"`
	QueryUsed    string            `json:"query_used"`
	Outputs      map[string]string `json:"outputs"`
	RunID        string            `json:"run_id,omitempty"`
	ProcessedAt  time.Time         `json:"processed_at"`
	DurationSecs float64           `json:"duration_secs"`
}

// RunRecord summarises one batch or single-paper run.
type RunRecord struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Query      string            `json:"query"`
	TopK       int               `json:"top_k"`
	Processed  int               `json:"processed"`
	Skipped    map[string]string `json:"skipped,omitempty"`
}

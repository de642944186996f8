package port

import "paperrag/internal/domain"

// HistoryStore records processed papers and runs.
type HistoryStore interface {
	PutPaper(rec domain.PaperRecord) error

	GetPaper(stem string) (domain.PaperRecord, error)

	ListPapers() ([]domain.PaperRecord, error)

	PutRun(run domain.RunRecord) error

	ListRuns() ([]domain.RunRecord, error)
}

// ReportWriter appends per-paper rows to a batch report.
type ReportWriter interface {
	// Init starts an empty report for a new batch.
	Init() error

	Append(result domain.PaperResult) error
}

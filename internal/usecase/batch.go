package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// BatchSummary contains the results of a batch run, in input order.
type BatchSummary struct {
	RunID     string
	Results   []domain.PaperResult
	Processed int
	Skipped   int
	Duration  time.Duration
}

func (s *BatchSummary) Failures() []domain.PaperResult {
	var failed []domain.PaperResult
	for _, r := range s.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// ProgressFunc is called once per paper as it completes, with the number
// of papers finished so far.
type ProgressFunc func(done, total int, result domain.PaperResult)

// BatchUseCase processes many papers with a bounded number of workers. Each
// paper gets its own index, so workers share nothing but the sinks.
type BatchUseCase struct {
	walker  port.FileWalker
	paper   *PaperUseCase
	report  port.ReportWriter
	history port.HistoryStore
	workers int
	topK    int
	newID   func() string
	now     func() time.Time
}

// NewBatchUseCase creates a batch use case. report and history may be nil.
func NewBatchUseCase(
	walker port.FileWalker,
	paper *PaperUseCase,
	report port.ReportWriter,
	history port.HistoryStore,
	workers int,
) *BatchUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &BatchUseCase{
		walker:  walker,
		paper:   paper,
		report:  report,
		history: history,
		workers: workers,
		topK:    paper.retrieve.Options().TopK,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// RunDir processes every paper the walker finds under dir.
func (u *BatchUseCase) RunDir(ctx context.Context, dir string, progress ProgressFunc) (*BatchSummary, error) {
	files, err := u.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrNoPapers, dir)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return u.Run(ctx, paths, progress)
}

// Run processes paths and records each outcome. A failing paper is skipped
// with a named reason and never stops the batch. progress may be nil.
func (u *BatchUseCase) Run(ctx context.Context, paths []string, progress ProgressFunc) (*BatchSummary, error) {
	if len(paths) == 0 {
		return nil, domain.ErrNoPapers
	}
	if u.report != nil {
		if err := u.report.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize batch report: %w", err)
		}
	}

	summary := &BatchSummary{
		RunID:   u.newID(),
		Results: make([]domain.PaperResult, len(paths)),
	}
	started := u.now()
	slog.Info("batch started", "run_id", summary.RunID, "papers", len(paths), "workers", u.workers)

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i, path := range paths {
		g.Go(func() error {
			result := u.paper.Process(gctx, summary.RunID, path)
			summary.Results[i] = result

			mu.Lock()
			defer mu.Unlock()
			u.record(summary.RunID, result)
			done++
			if progress != nil {
				progress(done, len(paths), result)
			}
			return nil
		})
	}
	// Workers report failures in their results, never as errors
	_ = g.Wait()

	run := domain.RunRecord{
		ID:         summary.RunID,
		StartedAt:  started,
		FinishedAt: u.now(),
		Query:      u.paper.retrieve.Options().Query,
		TopK:       u.topK,
	}
	for _, r := range summary.Results {
		if r.OK() {
			summary.Processed++
			continue
		}
		summary.Skipped++
		if run.Skipped == nil {
			run.Skipped = make(map[string]string)
		}
		run.Skipped[r.Path] = string(r.Failure.Reason)
	}
	run.Processed = summary.Processed
	summary.Duration = run.FinishedAt.Sub(started)

	if u.history != nil {
		if err := u.history.PutRun(run); err != nil {
			slog.Warn("failed to record run", "run_id", run.ID, "error", err)
		}
	}
	slog.Info("batch finished", "run_id", summary.RunID,
		"processed", summary.Processed, "skipped", summary.Skipped, "duration", summary.Duration)

	return summary, ctx.Err()
}

// record writes one outcome to the report and history sinks. Sink errors
// are logged and do not fail the paper.
func (u *BatchUseCase) record(runID string, result domain.PaperResult) {
	if !result.OK() {
		slog.Warn("skipped paper", "path", result.Path, "reason", result.Failure.Reason, "error", result.Failure.Err)
		return
	}
	if result.Degenerate {
		slog.Warn("paper processed without a matching passage", "path", result.Path)
	}

	if u.report != nil {
		if err := u.report.Append(result); err != nil {
			slog.Warn("failed to append to batch report", "path", result.Path, "error", err)
		}
	}
	if u.history != nil {
		if err := u.history.PutPaper(NewPaperRecord(result, runID, u.now())); err != nil {
			slog.Warn("failed to record paper", "path", result.Path, "error", err)
		}
	}
}

package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"paperrag/config"
	"paperrag/internal/adapter/fs"
	"paperrag/internal/adapter/report"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
)

func newTestBatch(t *testing.T, llm *fakeLLM, workers int) (*BatchUseCase, *store.BoltStore, string) {
	t.Helper()
	paper, resultsDir := newTestPaperUseCase(t, llm, 5)

	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		t.Fatal(err)
	}
	st, err := store.NewBoltStore(config.HistoryDBPath(resultsDir))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	csvWriter := report.NewCSVWriter(config.BatchReportPath(resultsDir))
	uc := NewBatchUseCase(fs.NewWalker([]string{"*.txt"}, nil), paper, csvWriter, st, workers)
	uc.newID = func() string { return "run-1" }
	return uc, st, resultsDir
}

func TestBatch_ReportHoldsOnlyLatestBatch(t *testing.T) {
	dataDir := t.TempDir()
	a := writePaper(t, dataDir, "a.txt", samplePaper)
	c := writePaper(t, dataDir, "c.txt", samplePaper)

	uc, st, resultsDir := newTestBatch(t, &fakeLLM{}, 1)

	if _, err := uc.Run(context.Background(), []string{a, c}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Run(context.Background(), []string{c}, nil); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(config.BatchReportPath(resultsDir))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d rows", len(rows))
	}
	if rows[1][1] != "c.txt" {
		t.Errorf("expected the second batch's paper, got %q", rows[1][1])
	}

	// History still spans both batches
	papers, err := st.ListPapers()
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Errorf("expected 2 papers in history, got %d", len(papers))
	}
}

func TestBatch_RunDir(t *testing.T) {
	dataDir := t.TempDir()
	writePaper(t, dataDir, "a.txt", samplePaper)
	writePaper(t, dataDir, "b_empty.txt", "   ")
	writePaper(t, dataDir, "c.txt", samplePaper)
	writePaper(t, dataDir, "ignored.md", samplePaper)

	uc, st, resultsDir := newTestBatch(t, &fakeLLM{}, 2)

	var seen, lastDone int32
	summary, err := uc.RunDir(context.Background(), dataDir, func(done, total int, _ domain.PaperResult) {
		atomic.AddInt32(&seen, 1)
		atomic.StoreInt32(&lastDone, int32(done))
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if summary.RunID != "run-1" {
		t.Errorf("unexpected run id %s", summary.RunID)
	}
	if summary.Processed != 2 || summary.Skipped != 1 {
		t.Errorf("expected 2 processed and 1 skipped, got %d and %d", summary.Processed, summary.Skipped)
	}
	if seen != 3 || lastDone != 3 {
		t.Errorf("expected 3 progress callbacks ending at 3, got %d ending at %d", seen, lastDone)
	}

	wantOrder := []string{"a.txt", "b_empty.txt", "c.txt"}
	for i, r := range summary.Results {
		if filepath.Base(r.Path) != wantOrder[i] {
			t.Errorf("result %d: expected %s, got %s", i, wantOrder[i], r.Path)
		}
	}
	failures := summary.Failures()
	if len(failures) != 1 || failures[0].Failure.Reason != domain.FailureNoText {
		t.Errorf("unexpected failures %+v", failures)
	}

	f, err := os.Open(config.BatchReportPath(resultsDir))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header and 2 rows, got %d", len(rows))
	}

	papers, err := st.ListPapers()
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 papers in history, got %d", len(papers))
	}
	for _, p := range papers {
		if p.RunID != "run-1" {
			t.Errorf("paper %s not tagged with run id", p.File)
		}
	}

	runs, err := st.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Processed != 2 || run.TopK != 5 || len(run.Skipped) != 1 {
		t.Errorf("unexpected run record %+v", run)
	}
	for path, reason := range run.Skipped {
		if filepath.Base(path) != "b_empty.txt" || reason != string(domain.FailureNoText) {
			t.Errorf("unexpected skipped entry %s: %s", path, reason)
		}
	}
}

func TestBatch_AllFailuresDoNotAbort(t *testing.T) {
	dataDir := t.TempDir()
	paths := []string{
		writePaper(t, dataDir, "one.txt", samplePaper),
		writePaper(t, dataDir, "two.txt", samplePaper),
	}

	uc, st, _ := newTestBatch(t, &fakeLLM{err: errors.New("unavailable")}, 1)
	summary, err := uc.Run(context.Background(), paths, nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 0 || summary.Skipped != 2 {
		t.Errorf("expected all papers skipped, got %+v", summary)
	}
	for _, r := range summary.Results {
		if r.Failure == nil || r.Failure.Reason != domain.FailureLLM {
			t.Errorf("expected llm failure for %s", r.Path)
		}
	}

	papers, _ := st.ListPapers()
	if len(papers) != 0 {
		t.Errorf("failed papers must not be recorded, got %d", len(papers))
	}
}

func TestBatch_NoPapers(t *testing.T) {
	uc, _, _ := newTestBatch(t, &fakeLLM{}, 1)

	if _, err := uc.RunDir(context.Background(), t.TempDir(), nil); !errors.Is(err, domain.ErrNoPapers) {
		t.Errorf("expected ErrNoPapers, got %v", err)
	}
	if _, err := uc.Run(context.Background(), nil, nil); !errors.Is(err, domain.ErrNoPapers) {
		t.Errorf("expected ErrNoPapers, got %v", err)
	}
}

func TestBatch_Cancelled(t *testing.T) {
	dataDir := t.TempDir()
	path := writePaper(t, dataDir, "one.txt", samplePaper)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc, _, _ := newTestBatch(t, &fakeLLM{}, 1)
	summary, err := uc.Run(ctx, []string{path}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if summary == nil || summary.Skipped != 1 {
		t.Fatalf("expected the paper to be skipped, got %+v", summary)
	}
	if summary.Results[0].Failure.Reason != domain.FailureCancelled {
		t.Errorf("unexpected reason %s", summary.Results[0].Failure.Reason)
	}
}

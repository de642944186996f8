package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paperrag/internal/domain"
)

func TestProcess(t *testing.T) {
	llm := &fakeLLM{}
	uc, resultsDir := newTestPaperUseCase(t, llm, 2)
	path := writePaper(t, t.TempDir(), "Sparse Paper.txt", samplePaper)

	result := uc.Process(context.Background(), "run-1", path)
	if !result.OK() {
		t.Fatalf("unexpected failure: %v", result.Failure)
	}

	if result.Metadata.Title != "Sparse Retrieval For Scientific Papers" {
		t.Errorf("unexpected title %q", result.Metadata.Title)
	}
	if result.Metadata.Authors != "Ada Lovelace, Alan Turing" {
		t.Errorf("unexpected authors %q", result.Metadata.Authors)
	}
	if len(result.Hits) != 5 || result.Degenerate {
		t.Errorf("expected 5 ranked hits, got %d (degenerate=%v)", len(result.Hits), result.Degenerate)
	}

	wantSummary := filepath.Join(resultsDir, "summaries", "sparse_paper_summary.md")
	if result.SummaryPath != wantSummary {
		t.Errorf("unexpected summary path %s", result.SummaryPath)
	}
	summary := readFile(t, result.SummaryPath)
	wantHeader := "# Sparse Retrieval For Scientific Papers\n\n**Authors:** Ada Lovelace, Alan Turing\n\n" +
		"**Abstract (detected):** We rank passages of research papers with term weights.\n\n---\n\n- reply"
	if summary != wantHeader {
		t.Errorf("unexpected summary:\n%s", summary)
	}

	analysis := readFile(t, result.AnalysisPath)
	if !strings.HasPrefix(analysis, "# Analysis: Sparse Retrieval For Scientific Papers\n\n## Methods\n\n- reply") {
		t.Errorf("unexpected analysis start:\n%s", analysis)
	}
	for _, section := range []string{"## Key Results", "## Limitations"} {
		if !strings.Contains(analysis, section) {
			t.Errorf("analysis is missing %s", section)
		}
	}

	var rec domain.PaperRecord
	if err := json.Unmarshal([]byte(readFile(t, result.MetadataPath)), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.File != "Sparse Paper.txt" || rec.PDFPath != path || rec.RunID != "run-1" {
		t.Errorf("unexpected metadata record: %+v", rec)
	}
	if rec.QueryUsed != testRetrieveOptions().Query {
		t.Errorf("unexpected query %q", rec.QueryUsed)
	}
	if rec.Outputs["summary_md"] != result.SummaryPath || rec.Outputs["analysis_md"] != result.AnalysisPath {
		t.Errorf("unexpected outputs %v", rec.Outputs)
	}

	calls := llm.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 1 summary and 3 analysis calls, got %d", len(calls))
	}
	if calls[0].system != summarySystemPrompt {
		t.Errorf("unexpected summary system prompt %q", calls[0].system)
	}
	if !strings.HasPrefix(calls[0].user, "TITLE: Sparse Retrieval For Scientific Papers\n\nEXCERPTS:\n") {
		t.Errorf("unexpected summary prompt %q", calls[0].user)
	}
	if n := countExcerpts(calls[0].user); n != 2 {
		t.Errorf("expected 2 summary excerpts, got %d", n)
	}
	if !strings.Contains(calls[0].user, result.Hits[0].Chunk.Text) {
		t.Error("summary prompt should start with the best hit")
	}
	for _, c := range calls[1:] {
		if c.system != analysisSystemPrompt {
			t.Errorf("unexpected analysis system prompt %q", c.system)
		}
		if n := countExcerpts(c.user); n != 5 {
			t.Errorf("expected all 5 hits in analysis prompt, got %d", n)
		}
	}
	if !strings.HasPrefix(calls[1].user, "From the excerpts below, extract the METHODS used.") {
		t.Errorf("unexpected methods prompt %q", calls[1].user)
	}
}

func TestProcess_Failures(t *testing.T) {
	dir := t.TempDir()
	good := writePaper(t, dir, "good.txt", samplePaper)
	blank := writePaper(t, dir, "blank.txt", "  \n\n\t ")
	unsupported := writePaper(t, dir, "paper.docx", "binary")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		path   string
		ctx    context.Context
		llmErr error
		want   domain.FailureReason
	}{
		{"missing file", filepath.Join(dir, "missing.txt"), context.Background(), nil, domain.FailureExtraction},
		{"unsupported type", unsupported, context.Background(), nil, domain.FailureExtraction},
		{"no text", blank, context.Background(), nil, domain.FailureNoText},
		{"llm error", good, context.Background(), errors.New("rate limited"), domain.FailureLLM},
		{"cancelled", good, cancelled, nil, domain.FailureCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, resultsDir := newTestPaperUseCase(t, &fakeLLM{err: tt.llmErr}, 5)

			result := uc.Process(tt.ctx, "run", tt.path)
			if result.OK() {
				t.Fatal("expected failure")
			}
			if result.Failure.Reason != tt.want {
				t.Errorf("expected reason %s, got %s (%v)", tt.want, result.Failure.Reason, result.Failure.Err)
			}
			if tt.llmErr != nil && !errors.Is(result.Failure, tt.llmErr) {
				t.Errorf("failure should wrap the llm error, got %v", result.Failure)
			}
			if _, err := os.Stat(filepath.Join(resultsDir, "metadata")); !os.IsNotExist(err) {
				t.Error("no outputs should be written for a failed paper")
			}
		})
	}
}

func TestProcess_TitleFallback(t *testing.T) {
	uc, _ := newTestPaperUseCase(t, &fakeLLM{}, 5)
	body := strings.Repeat("plain lowercase text without headings. ", 20)
	path := writePaper(t, t.TempDir(), "notes_2024.txt", body)

	result := uc.Process(context.Background(), "run", path)
	if !result.OK() {
		t.Fatalf("unexpected failure: %v", result.Failure)
	}
	if result.Metadata.Title != "notes_2024" {
		t.Errorf("expected stem as title, got %q", result.Metadata.Title)
	}
	if result.Metadata.Authors != "Unknown" {
		t.Errorf("expected unknown authors, got %q", result.Metadata.Authors)
	}
	if strings.Contains(readFile(t, result.SummaryPath), "Abstract (detected)") {
		t.Error("summary should not show an abstract line")
	}
}

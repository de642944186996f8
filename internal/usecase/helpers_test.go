package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"paperrag/internal/adapter/analyzer"
	"paperrag/internal/adapter/extract"
)

const samplePaper = `Sparse Retrieval For Scientific Papers
Ada Lovelace, Alan Turing
Abstract
We rank passages of research papers with term weights.
Keywords: retrieval
` + "\f" + `1 Introduction
Lexical retrieval scores passages by weighted term overlap with a question.
Passages that share rare terms with the question rank above passages that
share only common words.

2 Method
Each paper is split into overlapping character windows. Every window becomes
a row of a term weight matrix with inverse document frequency smoothing.

3 Results
On a small benchmark the ranking recovers the passage that answers the
question in most cases, while runtime stays below one millisecond.

4 Limitations
Synonyms are not matched and scanned documents without a text layer cannot
be processed at all.`

type llmCall struct {
	system string
	user   string
}

// fakeLLM records every prompt and answers with a fixed reply.
type fakeLLM struct {
	mu    sync.Mutex
	calls []llmCall
	reply string
	err   error
}

func (f *fakeLLM) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{system: systemPrompt, user: userPrompt})
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "- reply", nil
	}
	return f.reply, nil
}

func (f *fakeLLM) ModelName() string {
	return "fake"
}

func (f *fakeLLM) Calls() []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llmCall(nil), f.calls...)
}

func writePaper(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		TopK:       5,
		Query:      "Which passages rank above others?",
		MaxChars:   200,
		Overlap:    20,
		MaxDocFreq: 0.9,
	}
}

func newTestPaperUseCase(t *testing.T, llm *fakeLLM, summaryExcerpts int) (*PaperUseCase, string) {
	t.Helper()
	tokenizer := analyzer.NewTokenizer()
	retrieve, err := NewRetrieveUseCase(tokenizer, testRetrieveOptions())
	if err != nil {
		t.Fatal(err)
	}
	resultsDir := filepath.Join(t.TempDir(), "results")
	uc := NewPaperUseCase(extract.NewExtractor(), retrieve, NewPackUseCase(tokenizer, 0), llm, PaperOptions{
		SummaryExcerpts:  summaryExcerpts,
		AnalysisExcerpts: 8,
		ResultsDir:       resultsDir,
	})
	return uc, resultsDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func countExcerpts(prompt string) int {
	_, body, ok := strings.Cut(prompt, "EXCERPTS:\n")
	if !ok || body == "" {
		return 0
	}
	return strings.Count(body, excerptSeparator) + 1
}

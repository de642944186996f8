package usecase

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"paperrag/config"
	"paperrag/internal/adapter/fs"
	"paperrag/internal/adapter/metadata"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

//go:embed templates/*.tmpl
var promptTemplates embed.FS

var prompts = template.Must(template.ParseFS(promptTemplates, "templates/*.tmpl"))

const (
	summarySystemPrompt = "You are a concise research assistant. Summarize the user's provided excerpts " +
		"into 5-7 bullet points using plain language. Avoid speculation; focus on what is explicitly supported."
	analysisSystemPrompt = "You are a careful research analyst. Be terse and factual."

	unknownAuthors = "Unknown"
)

// AnalysisSection is one heading of the analysis document and the
// instruction used to fill it.
type AnalysisSection struct {
	Name        string
	Instruction string
}

var analysisSections = []AnalysisSection{
	{
		Name: "Methods",
		Instruction: "From the excerpts below, extract the METHODS used. " +
			"Name architectures, datasets, training setup (optimizer, lr, steps), and eval metrics. " +
			"Bullet points, only facts supported by the text.",
	},
	{
		Name: "Key Results",
		Instruction: "From the excerpts below, extract the MAIN RESULTS. " +
			"Report strongest findings, key numbers vs baselines. " +
			"Bullet points, no speculation.",
	},
	{
		Name: "Limitations",
		Instruction: "From the excerpts below, list LIMITATIONS and open questions. " +
			"Include failure modes, assumptions, scope. Bullet points.",
	},
}

// PaperOptions controls how many ranked passages each prompt receives and
// where outputs are written.
type PaperOptions struct {
	SummaryExcerpts  int
	AnalysisExcerpts int
	ResultsDir       string
}

// PaperUseCase turns one paper into a summary, an analysis and a metadata
// file.
type PaperUseCase struct {
	extractor port.TextExtractor
	retrieve  *RetrieveUseCase
	packer    *PackUseCase
	llm       port.LLM
	opts      PaperOptions
	now       func() time.Time
}

func NewPaperUseCase(
	extractor port.TextExtractor,
	retrieve *RetrieveUseCase,
	packer *PackUseCase,
	llm port.LLM,
	opts PaperOptions,
) *PaperUseCase {
	if opts.SummaryExcerpts <= 0 {
		opts.SummaryExcerpts = 5
	}
	if opts.AnalysisExcerpts <= 0 {
		opts.AnalysisExcerpts = 8
	}
	return &PaperUseCase{
		extractor: extractor,
		retrieve:  retrieve,
		packer:    packer,
		llm:       llm,
		opts:      opts,
		now:       time.Now,
	}
}

// Process runs the whole pipeline for the paper at path. Failures are
// reported in the result, never as a panic or a partial write of metadata.
func (u *PaperUseCase) Process(ctx context.Context, runID, path string) domain.PaperResult {
	start := u.now()
	result := domain.PaperResult{
		Path:  path,
		Query: u.retrieve.Options().Query,
	}
	fail := func(reason domain.FailureReason, err error) domain.PaperResult {
		result.Failure = &domain.Failure{Reason: reason, Err: err}
		result.Duration = u.now().Sub(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(domain.FailureCancelled, err)
	}

	doc, meta, err := u.load(path)
	if err != nil {
		return fail(domain.FailureExtraction, err)
	}
	result.Metadata = meta

	retrieval, err := u.retrieve.Retrieve(doc)
	if err != nil {
		if errors.Is(err, domain.ErrNoExtractableText) {
			return fail(domain.FailureNoText, err)
		}
		return fail(domain.FailureRetrieval, err)
	}
	result.Hits = retrieval.Hits
	result.Degenerate = retrieval.Degenerate

	summary, err := u.Summarize(ctx, meta, retrieval.Hits)
	if err != nil {
		return fail(llmFailure(err), err)
	}
	analysis, err := u.Analyze(ctx, meta.Title, retrieval.Hits)
	if err != nil {
		return fail(llmFailure(err), err)
	}

	stem := outputStem(path)
	result.SummaryPath = filepath.Join(config.SummariesDir(u.opts.ResultsDir), stem+"_summary.md")
	result.AnalysisPath = filepath.Join(config.AnalysesDir(u.opts.ResultsDir), stem+"_analysis.md")
	result.MetadataPath = filepath.Join(config.MetadataDir(u.opts.ResultsDir), stem+"_meta.json")
	result.Duration = u.now().Sub(start)

	if err := u.writeOutputs(result, runID, summary, analysis); err != nil {
		return fail(domain.FailureWriteOutputs, err)
	}

	return result
}

func llmFailure(err error) domain.FailureReason {
	if errors.Is(err, context.Canceled) {
		return domain.FailureCancelled
	}
	return domain.FailureLLM
}

// load extracts the paper and guesses its metadata. The title falls back to
// the embedded document title, then to the file stem.
func (u *PaperUseCase) load(path string) (domain.Document, domain.Metadata, error) {
	doc, err := u.extractor.Extract(path)
	if err != nil {
		return domain.Document{}, domain.Metadata{}, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	fallback := doc.Title
	if strings.TrimSpace(fallback) == "" {
		fallback = doc.Stem
	}
	meta := metadata.Extract(doc.FirstPage, fallback)
	if meta.Title == "" {
		meta.Title = fs.Stem(path)
	}
	if meta.Authors == "" {
		meta.Authors = unknownAuthors
	}
	return doc, meta, nil
}

// Summarize asks the model for a bullet summary of the leading hits and
// prefixes it with the paper header.
func (u *PaperUseCase) Summarize(ctx context.Context, meta domain.Metadata, hits []domain.ScoredHit) (string, error) {
	packed := u.packer.Pack(hits, u.opts.SummaryExcerpts)
	prompt, err := render("summary.tmpl", map[string]string{
		"Title":    meta.Title,
		"Excerpts": packed.Text(),
	})
	if err != nil {
		return "", err
	}

	reply, err := u.llm.GenerateWithSystem(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summary of %q: %w", meta.Title, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n**Authors:** %s\n\n", meta.Title, meta.Authors)
	if meta.Abstract != "" {
		fmt.Fprintf(&sb, "**Abstract (detected):** %s\n\n---\n\n", meta.Abstract)
	}
	sb.WriteString(reply)
	return sb.String(), nil
}

// Analyze fills each analysis section from the leading hits, one model call
// per section.
func (u *PaperUseCase) Analyze(ctx context.Context, title string, hits []domain.ScoredHit) (string, error) {
	excerpts := u.packer.Pack(hits, u.opts.AnalysisExcerpts).Text()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Analysis: %s\n", title)
	for _, section := range analysisSections {
		prompt, err := render("analysis.tmpl", map[string]string{
			"Instruction": section.Instruction,
			"Excerpts":    excerpts,
		})
		if err != nil {
			return "", err
		}

		reply, err := u.llm.GenerateWithSystem(ctx, analysisSystemPrompt, prompt)
		if err != nil {
			return "", fmt.Errorf("analysis section %s: %w", section.Name, err)
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", section.Name, reply)
	}
	return strings.TrimSpace(sb.String()), nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// NewPaperRecord converts a successful result into its persisted form.
func NewPaperRecord(result domain.PaperResult, runID string, processedAt time.Time) domain.PaperRecord {
	return domain.PaperRecord{
		File:      filepath.Base(result.Path),
		PDFPath:   result.Path,
		Title:     result.Metadata.Title,
		Authors:   result.Metadata.Authors,
		Abstract:  result.Metadata.Abstract,
		QueryUsed: result.Query,
		Outputs: map[string]string{
			"summary_md":  result.SummaryPath,
			"analysis_md": result.AnalysisPath,
		},
		RunID:        runID,
		ProcessedAt:  processedAt,
		DurationSecs: result.Duration.Seconds(),
	}
}

// writeOutputs writes the metadata file last so its presence implies the
// markdown outputs exist.
func (u *PaperUseCase) writeOutputs(result domain.PaperResult, runID, summary, analysis string) error {
	if err := config.EnsureResultsDirs(u.opts.ResultsDir); err != nil {
		return fmt.Errorf("failed to create results directories: %w", err)
	}
	if err := os.WriteFile(result.SummaryPath, []byte(summary), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(result.AnalysisPath, []byte(analysis), 0644); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewPaperRecord(result, runID, u.now())); err != nil {
		return err
	}
	return os.WriteFile(result.MetadataPath, buf.Bytes(), 0644)
}

// outputStem names output files after the paper, falling back to "paper"
// for names without any usable characters.
func outputStem(path string) string {
	if stem := fs.SafeStem(path); stem != "" {
		return stem
	}
	return "paper"
}

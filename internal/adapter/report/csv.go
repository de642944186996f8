// Package report writes the CSV report of a single batch, one row per
// processed paper.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"paperrag/internal/domain"
)

var header = []string{
	"Timestamp",
	"File Name",
	"Title",
	"Query Used",
	"Summary File",
	"Analysis File",
	"Summary Word Count",
	"Analysis Word Count",
	"Duration (s)",
}

// CSVWriter writes the batch report at path. It is safe for concurrent use.
type CSVWriter struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path, now: time.Now}
}

func (w *CSVWriter) Path() string {
	return w.path
}

// Init starts a fresh report holding only the header row, replacing the
// report of any earlier batch.
func (w *CSVWriter) Init() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	return w.write(header, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

// Append adds a row for a successfully processed paper. Failed results are
// not reported.
func (w *CSVWriter) Append(result domain.PaperResult) error {
	if !result.OK() {
		return nil
	}

	row := []string{
		w.now().Format("2006-01-02 15:04:05"),
		filepath.Base(result.Path),
		result.Metadata.Title,
		result.Query,
		result.SummaryPath,
		result.AnalysisPath,
		strconv.Itoa(WordCount(result.SummaryPath)),
		strconv.Itoa(WordCount(result.AnalysisPath)),
		strconv.FormatFloat(result.Duration.Seconds(), 'f', 2, 64),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(row, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func (w *CSVWriter) write(row []string, flag int) error {
	f, err := os.OpenFile(w.path, flag, 0644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WordCount returns the number of whitespace separated words in the file at
// path, or 0 if it cannot be read.
func WordCount(path string) int {
	if path == "" {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return len(strings.Fields(string(data)))
}

package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"paperrag/internal/adapter/fs"
	"paperrag/internal/domain"
)

// PDFExtractor pulls plain text out of PDF pages.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract joins the non-empty page texts with blank lines. The parser panics
// on some malformed files; those panics are returned as errors.
func (e *PDFExtractor) Extract(path string) (doc domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var parts []string
	firstPage := ""
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Document{}, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if i == 1 {
			firstPage = text
		}
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return domain.Document{
		Path:      path,
		Stem:      fs.Stem(path),
		Title:     embeddedTitle(reader),
		Text:      strings.Join(parts, "\n\n"),
		FirstPage: firstPage,
	}, nil
}

func embeddedTitle(reader *pdf.Reader) string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

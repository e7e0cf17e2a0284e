// Package doctext turns uploaded document bytes into ordered per-page
// plain text for downstream quiz generation.
package doctext

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brightpath/studycoach/internal/config"
)

// ErrExtraction indicates the uploaded document could not be read.
var ErrExtraction = eris.New("document text extraction failed")

// Extractor extracts ordered page texts from raw document bytes.
type Extractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.DoctextConfig) (Extractor, error) {
	switch cfg.Provider {
	case "plain", "":
		return NewPlain(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("doctext: unknown provider %q", cfg.Provider)
	}
}

// JoinPages concatenates page texts with newline page breaks into a single
// document string. The result is what gets chunked for prompting.
func JoinPages(pages []string) string {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String()
}

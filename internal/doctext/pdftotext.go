package doctext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDF uploads using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractPages writes the upload to a temp file, runs pdftotext -layout on
// it, and splits stdout on the form feeds pdftotext emits between pages.
func (p *PdfToText) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, eris.Wrap(ErrExtraction, "empty document")
	}

	dir, err := os.MkdirTemp("", "studycoach-pdf-")
	if err != nil {
		return nil, eris.Wrap(err, "doctext: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, eris.Wrap(err, "doctext: write temp PDF")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(ErrExtraction, "pdftotext: %v: %s", err, stderr.String())
	}

	return strings.Split(stdout.String(), "\f"), nil
}

package doctext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Plain treats the upload as UTF-8 text, with form feeds as page breaks.
type Plain struct{}

// NewPlain creates a plain-text extractor.
func NewPlain() *Plain {
	return &Plain{}
}

// ExtractPages splits the document on form-feed characters.
func (p *Plain) ExtractPages(_ context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, eris.Wrap(ErrExtraction, "empty document")
	}
	if !utf8.Valid(data) {
		return nil, eris.Wrap(ErrExtraction, "document is not valid UTF-8 text")
	}

	return strings.Split(string(data), "\f"), nil
}

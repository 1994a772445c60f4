package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// Extractor converts uploaded statement bytes into plain text, dispatching
// on the declared file extension. It is a pure transformation: no storage,
// no network.
type Extractor struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

// Text returns the plain-text content of the uploaded statement.
// Plain-text files are decoded as UTF-8 verbatim; PDF statements yield the
// text of the first page only. Anything else is an unsupported format.
func (e *Extractor) Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("extract: %q is not valid UTF-8", filename)
		}
		return string(data), nil
	case ".pdf":
		return e.firstPageText(filename, data)
	default:
		return "", fmt.Errorf("extract: %q: %w", filename, domain.ErrUnsupportedFileFormat)
	}
}

// firstPageText opens the byte stream as a paginated document and extracts
// the first page. Multi-page statements are a known limitation: the extra
// pages are dropped, loudly.
func (e *Extractor) firstPageText(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf %q: %w", filename, err)
	}

	n := reader.NumPage()
	if n == 0 {
		return "", fmt.Errorf("extract: pdf %q has no pages", filename)
	}
	if n > 1 {
		e.log.Warn().
			Str("filename", filename).
			Int("pages", n).
			Msg("Statement has multiple pages; only the first page is extracted")
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("extract: pdf %q: first page is unreadable", filename)
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract: pdf %q: first page text: %w", filename, err)
	}
	return text, nil
}

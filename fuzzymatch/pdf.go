package fuzzymatch

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ledongthuc/pdf"
)

// ExtractPDF extracts the plain text of a PDF file, pages joined with
// newlines.
func ExtractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open pdf: %s", path)
	}
	defer f.Close()

	return readPlainText(r)
}

// ExtractPDFReader extracts the plain text of an in-memory PDF.
func ExtractPDFReader(ra io.ReaderAt, size int64) (string, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", errors.Wrap(err, "failed to read pdf")
	}
	return readPlainText(r)
}

func readPlainText(r *pdf.Reader) (string, error) {
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "failed to extract page %d", i)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// SearchPDF extracts the PDF text and fuzzy-searches it.
func SearchPDF(path, query string, opts ...Option) ([]Match, error) {
	text, err := ExtractPDF(path)
	if err != nil {
		return nil, err
	}
	return Search(text, query, opts...)
}

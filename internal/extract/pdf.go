package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts page text and splits it into paragraphs on blank lines.
type PDF struct{}

// Extract implements Extractor.
func (PDF) Extract(path string) (paras []string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			paras, err = nil, &ExtractionError{Path: path, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return nil, &ExtractionError{Path: path, Err: errNoPages}
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return nil, &ExtractionError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		text.WriteString(pageText)
		text.WriteString("\n\n")
	}
	return SplitParagraphs(text.String()), nil
}
